// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package engine

import (
	"fmt"

	"zombiezen.com/go/sqlite"

	"github.com/aplane-algo/sqlitejs/internal/scripting"
)

// createJS implements createjs(name, code) and createjs(name, init, step, final).
func (e *Engine) createJS(_ sqlite.Context, args []sqlite.Value) (sqlite.Value, error) {
	name, src, err := parseDefinition(args)
	if err != nil {
		return sqlite.Value{}, err
	}
	if err := e.define(name, src); err != nil {
		return sqlite.Value{}, err
	}
	return sqlite.TextValue("ok"), nil
}

// parseDefinition validates createjs arguments left to right.
// In the four-argument form the init code sits where the two-argument form
// keeps the function code, so messages past the name shift by one.
func parseDefinition(args []sqlite.Value) (string, scripting.Sources, error) {
	n := len(args)
	if n != 2 && n != 4 {
		return "", scripting.Sources{}, fmt.Errorf("createjs expects 2 or 4 arguments, got %d", n)
	}

	for i, v := range args {
		if v.Type() != sqlite.TypeText {
			adj := 1
			if n == 2 || i == 0 {
				adj = 0
			}
			return "", scripting.Sources{}, &ValidationError{Arg: i, Message: validationMessages[i+adj]}
		}
	}

	if n == 2 {
		return args[0].Text(), scripting.ScalarSources(args[1].Text()), nil
	}
	return args[0].Text(), scripting.AggregateSources(args[1].Text(), args[2].Text(), args[3].Text()), nil
}

// Define creates or redefines a JavaScript SQL function from Go.
// It follows the same rules as the createjs SQL function.
func (e *Engine) Define(name string, src scripting.Sources) error {
	if name == "" {
		return &ValidationError{Arg: 0, Message: validationMessages[0]}
	}

	e.connMu.Lock()
	defer e.connMu.Unlock()
	return e.define(name, src)
}

// define creates the function on first use of name and recompiles the
// existing interpreter afterwards. A failed first definition leaves no
// interpreter, registry entry or SQL function behind. A failed redefinition
// keeps the previous code running.
func (e *Engine) define(name string, src scripting.Sources) error {
	e.defineMu.Lock()
	defer e.defineMu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}

	if h, ok := e.functions.Lookup(name); ok {
		return e.redefine(name, h, src)
	}

	h := scripting.NewHandle(name, e.handleOptions()...)
	if err := h.Compile(src); err != nil {
		_ = h.Close()
		return compileError(src.Kind(), err)
	}

	e.functions.Register(name, h)
	if err := e.createFunction(name, h, src.Kind()); err != nil {
		e.functions.Unregister(name)
		return err
	}

	e.logger.Debug("function defined", "function", name, "kind", src.Kind())
	return nil
}

func (e *Engine) redefine(name string, h *scripting.Handle, src scripting.Sources) error {
	chunks, err := h.Prepare(src)
	if err != nil {
		return compileError(src.Kind(), err)
	}

	if kind, ok := h.Kind(); !ok || kind != chunks.Kind() {
		// SQLite fixes scalar/aggregate at registration, so a kind change
		// needs a new SQL function around the same interpreter.
		if err := e.createFunction(name, h, chunks.Kind()); err != nil {
			return err
		}
	}

	h.Install(chunks)
	e.logger.Debug("function redefined", "function", name, "kind", chunks.Kind())
	return nil
}

// createFunction registers name with SQLite. The handle is captured by the
// callbacks, so calls reach their interpreter without a registry lookup.
func (e *Engine) createFunction(name string, h *scripting.Handle, kind scripting.Kind) error {
	impl := &sqlite.FunctionImpl{
		NArgs:         -1,
		Deterministic: e.Deterministic,
		AllowIndirect: e.AllowIndirect,
	}
	if kind == scripting.KindAggregate {
		impl.MakeAggregate = e.aggregate(h)
	} else {
		impl.Scalar = e.scalar(h)
	}

	if err := e.conn.CreateFunction(name, impl); err != nil {
		return fmt.Errorf("register %s function %s: %w", kind, name, err)
	}
	return nil
}
