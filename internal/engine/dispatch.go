// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package engine

import (
	"errors"

	"zombiezen.com/go/sqlite"

	"github.com/aplane-algo/sqlitejs/internal/bridge"
	"github.com/aplane-algo/sqlitejs/internal/scripting"
)

// scalar returns the SQLite callback of a scalar JavaScript function.
func (e *Engine) scalar(h *scripting.Handle) func(sqlite.Context, []sqlite.Value) (sqlite.Value, error) {
	return func(_ sqlite.Context, args []sqlite.Value) (sqlite.Value, error) {
		result, err := h.Invoke(scripting.ChunkMain, args)
		if err != nil {
			e.logger.Debug("scalar call failed", "function", h.Name(), "error", err)
			return sqlite.Value{}, callError(err)
		}
		return bridge.ToDB(result)
	}
}

// aggregate returns the SQLite factory of per-group aggregate states.
func (e *Engine) aggregate(h *scripting.Handle) func(sqlite.Context) (sqlite.AggregateFunction, error) {
	return func(sqlite.Context) (sqlite.AggregateFunction, error) {
		if _, ok := h.Kind(); !ok {
			return nil, ErrFunctionClosed
		}
		return &aggregateState{fn: h, engine: e}, nil
	}
}

// aggregateStage tracks one group through init, step and final.
type aggregateStage int

const (
	stageUninitialized aggregateStage = iota
	stageAccumulating
	stageFinalized
)

func (s aggregateStage) String() string {
	switch s {
	case stageUninitialized:
		return "uninitialized"
	case stageAccumulating:
		return "accumulating"
	default:
		return "finalized"
	}
}

var errGroupFinalized = errors.New("aggregate group already finalized")

// aggregateState is the per-group state of a JavaScript aggregate.
// Accumulated values live in the script's globals; the state records whether
// the init chunk has run for this group and the first init or step failure.
type aggregateState struct {
	fn     *scripting.Handle
	engine *Engine
	stage  aggregateStage
	err    error
}

// Step runs init on the first row of the group, then the step chunk.
// Step results are discarded. SQLite ignores errors from the step callback,
// so a failure is kept and reported by WindowValue; later rows are skipped.
func (a *aggregateState) Step(_ sqlite.Context, rowArgs []sqlite.Value) error {
	if a.stage == stageFinalized {
		return errGroupFinalized
	}
	if a.err != nil {
		return a.err
	}
	if err := a.ensureInit(); err != nil {
		return err
	}
	if _, err := a.fn.Invoke(scripting.ChunkMain, rowArgs); err != nil && !errors.Is(err, scripting.ErrNoReturnValue) {
		a.engine.logger.Debug("aggregate step failed", "function", a.fn.Name(), "error", err)
		a.err = callError(err)
		return a.err
	}
	return nil
}

// WindowInverse is not part of the init/step/final protocol.
func (a *aggregateState) WindowInverse(sqlite.Context, []sqlite.Value) error {
	return ErrWindowInverse
}

// WindowValue runs the final chunk and converts its result. A group with no
// rows still runs init first so final sees initialized globals.
func (a *aggregateState) WindowValue(sqlite.Context) (sqlite.Value, error) {
	if a.stage == stageFinalized {
		return sqlite.Value{}, errGroupFinalized
	}
	if a.err != nil {
		return sqlite.Value{}, a.err
	}
	if err := a.ensureInit(); err != nil {
		return sqlite.Value{}, err
	}

	result, err := a.fn.Invoke(scripting.ChunkFinal, nil)
	if err != nil {
		a.engine.logger.Debug("aggregate final failed", "function", a.fn.Name(), "error", err)
		return sqlite.Value{}, callError(err)
	}
	return bridge.ToDB(result)
}

// Finalize ends the group. SQLite discards the state afterwards.
func (a *aggregateState) Finalize(sqlite.Context) {
	a.stage = stageFinalized
}

func (a *aggregateState) ensureInit() error {
	if a.stage != stageUninitialized {
		return nil
	}
	if _, err := a.fn.Invoke(scripting.ChunkInit, nil); err != nil && !errors.Is(err, scripting.ErrNoReturnValue) {
		a.engine.logger.Debug("aggregate init failed", "function", a.fn.Name(), "error", err)
		a.err = callError(err)
		return a.err
	}
	a.stage = stageAccumulating
	return nil
}
