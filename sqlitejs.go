// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package sqlitejs adds JavaScript-defined SQL functions to a SQLite connection.
//
// After Open, the connection understands
//
//	SELECT createjs('inc', 'return arg[0] + 1;');
//	SELECT createjs('sum2x', 'total = 0;', 'total += arg[0] * 2;', 'return total;');
//	SELECT loadfile('script.js');
//
// Every function name gets its own JavaScript interpreter. Scalar code and
// aggregate final code must end with a return statement; the row's arguments
// are available as the array arg.
package sqlitejs

import (
	"zombiezen.com/go/sqlite"

	"github.com/aplane-algo/sqlitejs/internal/engine"
	"github.com/aplane-algo/sqlitejs/internal/funclib"
	"github.com/aplane-algo/sqlitejs/internal/scripting"
)

type (
	// Engine owns the interpreters of one connection's JavaScript functions.
	Engine = engine.Engine
	// Option configures an Engine.
	Option = engine.EngineOption
	// FunctionInfo describes a defined function.
	FunctionInfo = engine.FunctionInfo
	// Sources holds the JavaScript code of one function.
	Sources = scripting.Sources
	// Kind tells scalar and aggregate functions apart.
	Kind = scripting.Kind
	// ValidationError reports a createjs argument of the wrong type.
	ValidationError = engine.ValidationError
)

const (
	KindScalar    = scripting.KindScalar
	KindAggregate = scripting.KindAggregate
)

var (
	WithLogger        = engine.WithLogger
	WithCallTimeout   = engine.WithCallTimeout
	WithDeterministic = engine.WithDeterministic
	WithAllowIndirect = engine.WithAllowIndirect
	WithLoadFileDir   = engine.WithLoadFileDir

	ErrStackLength     = engine.ErrStackLength
	ErrUnsupportedType = engine.ErrUnsupportedType
	ErrFunctionClosed  = engine.ErrFunctionClosed
	ErrOpenFile        = engine.ErrOpenFile
	ErrEngineClosed    = engine.ErrEngineClosed
)

// Open installs createjs and loadfile on conn. Close the returned Engine
// before closing conn.
func Open(conn *sqlite.Conn, opts ...Option) (*Engine, error) {
	return engine.New(conn, opts...)
}

// Scalar returns the sources of a scalar function.
func Scalar(code string) Sources {
	return scripting.ScalarSources(code)
}

// Aggregate returns the sources of an aggregate function.
func Aggregate(init, step, final string) Sources {
	return scripting.AggregateSources(init, step, final)
}

// LoadFunctions defines every function listed in the YAML manifest at path.
func LoadFunctions(e *Engine, path string) error {
	_, err := funclib.LoadAndApply(path, e, nil)
	return err
}
