// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package engine

import (
	"errors"
	"fmt"

	"github.com/aplane-algo/sqlitejs/internal/bridge"
	"github.com/aplane-algo/sqlitejs/internal/scripting"
)

var (
	// ErrStackLength indicates a scalar or final chunk that returned nothing
	ErrStackLength = errors.New("Invalid javascript stack length! " +
		"This normally happens if your code doesn't return any value.")

	// ErrUnsupportedType indicates a script result with no SQLite equivalent
	ErrUnsupportedType = bridge.ErrUnsupportedType

	// ErrFunctionClosed indicates a call to a function whose interpreter was released
	ErrFunctionClosed = errors.New("javascript function has been closed")

	// ErrWindowInverse indicates use of a JavaScript aggregate as a sliding window
	ErrWindowInverse = errors.New("javascript aggregates cannot be used as sliding window functions")

	// ErrOpenFile indicates loadfile() could not read its file
	ErrOpenFile = errors.New("Unable to open the file")

	// ErrEngineClosed indicates use of an engine after Close
	ErrEngineClosed = errors.New("engine closed")
)

// ValidationError reports a createjs argument of the wrong type.
// Nothing is created or modified when it is returned.
type ValidationError struct {
	Arg     int
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var validationMessages = [...]string{
	"Invalid function name, string expected",
	"Invalid function code, string expected",
	"Invalid init code, string expected",
	"Invalid step code, string expected",
	"Invalid final code, string expected",
}

// compileError turns a chunk compile failure into the message shown to SQL users.
func compileError(kind scripting.Kind, err error) error {
	var ce *scripting.CompileError
	if !errors.As(err, &ce) {
		return err
	}

	msg := "compilation problem, please check source code"
	switch ce.Chunk {
	case scripting.ChunkMain:
		if kind == scripting.KindAggregate {
			msg = "compilation problem, please check step source code"
		}
	case scripting.ChunkInit:
		msg = "compilation problem, please check init source code"
	case scripting.ChunkFinal:
		msg = "compilation problem, please check final source code"
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// callError maps interpreter errors to per-call SQL errors.
func callError(err error) error {
	switch {
	case errors.Is(err, scripting.ErrNoReturnValue):
		return ErrStackLength
	case errors.Is(err, scripting.ErrHandleClosed):
		return ErrFunctionClosed
	default:
		return err
	}
}
