// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package scripting owns the embedded JavaScript interpreters behind SQL functions.
// Each Handle wraps one isolated goja runtime together with the chunks
// compiled for a single SQL function.
package scripting

import (
	"errors"
	"fmt"
)

var (
	// ErrNoReturnValue indicates the chunk finished without a return statement
	ErrNoReturnValue = errors.New("chunk did not return a value")

	// ErrChunkMissing indicates a call to a chunk that is not compiled
	ErrChunkMissing = errors.New("chunk not compiled")

	// ErrHandleClosed indicates a call on a destroyed interpreter
	ErrHandleClosed = errors.New("interpreter closed")

	// ErrInterrupted indicates the call exceeded its time limit
	ErrInterrupted = errors.New("script interrupted")
)

// ScriptError represents an uncaught exception raised by script code.
type ScriptError struct {
	Function string
	Chunk    ChunkRole
	Message  string
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Function, e.Chunk, e.Message)
}

// CompileError reports which chunk failed to parse.
type CompileError struct {
	Chunk ChunkRole
	Err   error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s chunk: %v", e.Chunk, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// ChunkRole names a compiled chunk of a function.
type ChunkRole int

const (
	// ChunkMain is the body of a scalar function, or the step of an aggregate.
	ChunkMain ChunkRole = iota
	ChunkInit
	ChunkFinal
)

func (r ChunkRole) String() string {
	switch r {
	case ChunkMain:
		return "main"
	case ChunkInit:
		return "init"
	case ChunkFinal:
		return "final"
	default:
		return fmt.Sprintf("chunk(%d)", int(r))
	}
}

// Kind is the SQL role of a function.
type Kind int

const (
	KindScalar Kind = iota
	KindAggregate
)

func (k Kind) String() string {
	if k == KindAggregate {
		return "aggregate"
	}
	return "scalar"
}

// Sources holds the script source of a function definition.
// Scalar functions set only Main. Aggregates set all three, with Main
// carrying the step code.
type Sources struct {
	Main  string
	Init  string
	Final string

	Aggregate bool
}

// ScalarSources returns the sources of a scalar function.
func ScalarSources(code string) Sources {
	return Sources{Main: code}
}

// AggregateSources returns the sources of an aggregate function.
func AggregateSources(init, step, final string) Sources {
	return Sources{Main: step, Init: init, Final: final, Aggregate: true}
}

// Kind returns the SQL role implied by the sources.
func (s Sources) Kind() Kind {
	if s.Aggregate {
		return KindAggregate
	}
	return KindScalar
}
