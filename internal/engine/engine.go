// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package engine installs JavaScript-defined SQL functions on a SQLite connection.
// It validates createjs calls, keeps one interpreter per function name, and
// dispatches scalar and aggregate calls from SQLite to those interpreters.
package engine

import (
	"log/slog"
	"sync"
	"time"

	"zombiezen.com/go/sqlite"

	"github.com/aplane-algo/sqlitejs/internal/registry"
	"github.com/aplane-algo/sqlitejs/internal/scripting"
	"github.com/aplane-algo/sqlitejs/internal/util"
)

// Engine binds the JavaScript function machinery to one SQLite connection.
type Engine struct {
	conn      *sqlite.Conn
	functions *registry.Registry
	logger    *slog.Logger

	// Configuration
	CallTimeout   time.Duration
	Deterministic bool // Declare defined functions deterministic
	AllowIndirect bool // Allow defined functions in views, triggers and schema
	LoadFileDir   string

	// connMu serializes Go-side use of conn (Do, Define). SQL callbacks run
	// on the goroutine that already holds it.
	connMu sync.Mutex
	// defineMu serializes registry mutation and SQL function creation.
	defineMu sync.Mutex
	closed   bool
}

// EngineOption is a functional option for configuring the Engine
type EngineOption func(*Engine) error

// WithLogger sets the logger for engine and script output
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) error {
		if l != nil {
			e.logger = l
		}
		return nil
	}
}

// WithCallTimeout limits every JavaScript call to d (0 = unlimited)
func WithCallTimeout(d time.Duration) EngineOption {
	return func(e *Engine) error {
		e.CallTimeout = d
		return nil
	}
}

// WithDeterministic marks defined functions as deterministic
func WithDeterministic(v bool) EngineOption {
	return func(e *Engine) error {
		e.Deterministic = v
		return nil
	}
}

// WithAllowIndirect allows defined functions outside top-level SQL
func WithAllowIndirect(v bool) EngineOption {
	return func(e *Engine) error {
		e.AllowIndirect = v
		return nil
	}
}

// WithLoadFileDir sets the base directory for relative loadfile() paths
func WithLoadFileDir(dir string) EngineOption {
	return func(e *Engine) error {
		e.LoadFileDir = dir
		return nil
	}
}

// WithConfig applies the function-related settings of a loaded Config
func WithConfig(c util.Config) EngineOption {
	return func(e *Engine) error {
		e.CallTimeout = c.CallTimeout
		e.Deterministic = c.Deterministic
		e.AllowIndirect = c.AllowIndirect
		e.LoadFileDir = c.LoadFileDir
		return nil
	}
}

// New creates an Engine for conn and installs createjs and loadfile on it.
func New(conn *sqlite.Conn, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		conn:      conn,
		functions: registry.New(),
		logger:    util.DefaultLogger(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	if err := e.install(); err != nil {
		return nil, err
	}
	return e, nil
}

// Conn returns the connection the engine is installed on.
func (e *Engine) Conn() *sqlite.Conn {
	return e.conn
}

// Do runs fn with exclusive access to the connection. Use it when the
// connection is shared with a goroutine that calls Define, such as the
// function library watcher.
func (e *Engine) Do(fn func(conn *sqlite.Conn) error) error {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	if e.isClosed() {
		return ErrEngineClosed
	}
	return fn(e.conn)
}

// FunctionInfo describes a defined JavaScript function.
type FunctionInfo struct {
	Name string
	Kind scripting.Kind
}

// Functions lists the defined JavaScript functions, sorted by name.
func (e *Engine) Functions() []FunctionInfo {
	names := e.functions.Names()
	infos := make([]FunctionInfo, 0, len(names))
	for _, name := range names {
		h, ok := e.functions.Lookup(name)
		if !ok {
			continue
		}
		kind, _ := h.Kind()
		infos = append(infos, FunctionInfo{Name: name, Kind: kind})
	}
	return infos
}

// Close releases every interpreter. SQL functions already registered on the
// connection stay until the connection closes and fail if called.
func (e *Engine) Close() error {
	e.defineMu.Lock()
	defer e.defineMu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.logger.Debug("closing engine", "functions", e.functions.Len())
	return e.functions.Close()
}

func (e *Engine) isClosed() bool {
	e.defineMu.Lock()
	defer e.defineMu.Unlock()
	return e.closed
}

func (e *Engine) handleOptions() []scripting.HandleOption {
	return []scripting.HandleOption{
		scripting.WithTimeout(e.CallTimeout),
		scripting.WithLogger(e.logger),
	}
}

// install registers the built-in SQL functions.
func (e *Engine) install() error {
	builtins := []struct {
		name  string
		nargs int
		fn    func(sqlite.Context, []sqlite.Value) (sqlite.Value, error)
	}{
		{"createjs", 2, e.createJS},
		{"createjs", 4, e.createJS},
		{"loadfile", 1, e.loadFile},
		{"loadfile", 2, e.loadFile},
	}

	for _, b := range builtins {
		err := e.conn.CreateFunction(b.name, &sqlite.FunctionImpl{
			NArgs:  b.nargs,
			Scalar: b.fn,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
