// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package scripting

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"zombiezen.com/go/sqlite"

	"github.com/aplane-algo/sqlitejs/internal/bridge"
	"github.com/aplane-algo/sqlitejs/internal/util"
)

// chunk is one compiled source. Sources without a top-level return run as
// global programs, so their declarations are shared by the other chunks of
// the function; sources that return run as a function body.
type chunk struct {
	prog *goja.Program
	fn   goja.Callable
}

// Chunks is a compiled function definition. Init and Final are nil for
// scalar functions.
type Chunks struct {
	kind  Kind
	main  *chunk
	init  *chunk
	final *chunk
}

// Kind returns the SQL role the chunks were compiled for.
func (c *Chunks) Kind() Kind {
	return c.kind
}

func (c *Chunks) get(role ChunkRole) *chunk {
	switch role {
	case ChunkMain:
		return c.main
	case ChunkInit:
		return c.init
	case ChunkFinal:
		return c.final
	}
	return nil
}

// Handle owns one isolated goja runtime and the chunks compiled into it.
// All methods are safe for concurrent use; calls are serialized.
type Handle struct {
	name    string
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	vm       *goja.Runtime
	chunks   *Chunks
	noReturn *goja.Object
}

// HandleOption configures a Handle.
type HandleOption func(*Handle)

// WithTimeout limits the wall-clock time of a single chunk call.
// Zero disables the limit.
func WithTimeout(d time.Duration) HandleOption {
	return func(h *Handle) {
		h.timeout = d
	}
}

// WithLogger sets the logger that receives console.log and print output.
func WithLogger(l *slog.Logger) HandleOption {
	return func(h *Handle) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHandle creates a fresh interpreter for the SQL function name.
func NewHandle(name string, opts ...HandleOption) *Handle {
	h := &Handle{
		name:   name,
		logger: util.DefaultLogger(),
		vm:     goja.New(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.noReturn = h.vm.NewObject()
	h.installConsole()

	return h
}

// Name returns the SQL function name the handle was created for.
func (h *Handle) Name() string {
	return h.name
}

// Kind reports the SQL role of the installed chunks.
// ok is false until a definition has compiled successfully.
func (h *Handle) Kind() (kind Kind, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.chunks == nil {
		return KindScalar, false
	}
	return h.chunks.kind, true
}

// Compile compiles src and replaces the installed chunks with the result.
// On failure the previously installed chunks stay in place.
func (h *Handle) Compile(src Sources) error {
	chunks, err := h.Prepare(src)
	if err != nil {
		return err
	}
	h.Install(chunks)
	return nil
}

// Prepare compiles src into this handle's runtime without installing it.
// Chunks are compiled in main, init, final order and the first failure is
// returned as a *CompileError.
func (h *Handle) Prepare(src Sources) (*Chunks, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.vm == nil {
		return nil, ErrHandleClosed
	}

	chunks := &Chunks{kind: src.Kind()}
	var err error
	if chunks.main, err = h.compileChunk(ChunkMain, src.Main); err != nil {
		return nil, err
	}
	if src.Aggregate {
		if chunks.init, err = h.compileChunk(ChunkInit, src.Init); err != nil {
			return nil, err
		}
		if chunks.final, err = h.compileChunk(ChunkFinal, src.Final); err != nil {
			return nil, err
		}
	}
	return chunks, nil
}

// Install makes chunks the active definition. Chunks must come from
// Prepare on the same handle.
func (h *Handle) Install(chunks *Chunks) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.vm == nil {
		return
	}
	h.chunks = chunks
}

// A chunk that needs return becomes the body of a function taking the row
// arguments as arg. Falling off the end returns the noReturn sentinel so a
// missing return statement can be told apart from an explicit "return;".
const (
	chunkPrefix = "(function (arg, __sqlitejs_no_return__) {\n"
	chunkSuffix = "\n;return __sqlitejs_no_return__;\n})"
)

func (h *Handle) compileChunk(role ChunkRole, code string) (*chunk, error) {
	name := fmt.Sprintf("%s.%s.js", h.name, role)

	// A top-level return does not compile as a program
	if prog, err := goja.Compile(name, code, false); err == nil {
		return &chunk{prog: prog}, nil
	}

	prog, err := goja.Compile(name, chunkPrefix+code+chunkSuffix, false)
	if err != nil {
		return nil, &CompileError{Chunk: role, Err: err}
	}
	v, err := h.vm.RunProgram(prog)
	if err != nil {
		return nil, &CompileError{Chunk: role, Err: err}
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, &CompileError{Chunk: role, Err: errors.New("source does not form a function body")}
	}
	return &chunk{fn: fn}, nil
}

// Invoke calls the chunk with args bound to arg and returns its result.
// A chunk that ends without returning yields ErrNoReturnValue.
func (h *Handle) Invoke(role ChunkRole, args []sqlite.Value) (goja.Value, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.vm == nil {
		return nil, ErrHandleClosed
	}
	if h.chunks == nil {
		return nil, ErrChunkMissing
	}
	c := h.chunks.get(role)
	if c == nil {
		return nil, ErrChunkMissing
	}

	vm := h.vm
	argv := bridge.Args(vm, args)

	stop := h.startTimer(vm)
	var result goja.Value
	var err error
	if c.prog != nil {
		// Programs see the arguments as the global arg and never return
		if err = vm.Set("arg", argv); err == nil {
			_, err = vm.RunProgram(c.prog)
		}
		result = h.noReturn
	} else {
		result, err = c.fn(goja.Undefined(), argv, h.noReturn)
	}
	stop()

	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, fmt.Errorf("%s (%s): %w", h.name, role, ErrInterrupted)
		}
		var exception *goja.Exception
		if errors.As(err, &exception) {
			return nil, &ScriptError{Function: h.name, Chunk: role, Message: exception.Error()}
		}
		return nil, err
	}

	if result != nil && result.SameAs(h.noReturn) {
		return nil, ErrNoReturnValue
	}
	return result, nil
}

// startTimer arms the call timeout and returns a function that disarms it
// and clears any interrupt that raced with the end of the call.
func (h *Handle) startTimer(vm *goja.Runtime) func() {
	if h.timeout <= 0 {
		return func() {}
	}

	var mu sync.Mutex
	finished := false
	timer := time.AfterFunc(h.timeout, func() {
		mu.Lock()
		defer mu.Unlock()
		if !finished {
			vm.Interrupt(ErrInterrupted)
		}
	})

	return func() {
		mu.Lock()
		finished = true
		mu.Unlock()
		timer.Stop()
		vm.ClearInterrupt()
	}
}

// Close releases the runtime and its chunks. Calling Close more than once is
// harmless; later calls on the handle fail with ErrHandleClosed.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.vm == nil {
		return nil
	}
	h.logger.Debug("interpreter released", "function", h.name)
	h.vm = nil
	h.chunks = nil
	h.noReturn = nil
	return nil
}

// installConsole routes console.log and print to the logger.
func (h *Handle) installConsole() {
	logFn := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			parts[i] = a.String()
		}
		h.logger.Info(strings.Join(parts, " "), "function", h.name)
		return goja.Undefined()
	}

	console := h.vm.NewObject()
	_ = console.Set("log", logFn)
	_ = h.vm.Set("console", console)
	_ = h.vm.Set("print", logFn)
}
