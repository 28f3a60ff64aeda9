// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package registry maps SQL function names to the interpreters that own them.
package registry

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/aplane-algo/sqlitejs/internal/scripting"
)

// Registry owns the handles of every defined JavaScript function.
// A name registers once; redefinitions recompile the same handle.
// Unregister and Close release the handles they remove.
type Registry struct {
	mu    sync.RWMutex
	items map[string]*scripting.Handle
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{items: make(map[string]*scripting.Handle)}
}

// key folds names the way SQLite matches function names: A-Z only, other
// bytes compare exactly.
func key(name string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, name)
}

// Lookup returns the handle registered under name.
func (r *Registry) Lookup(name string) (*scripting.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.items[key(name)]
	return h, ok
}

// Register stores h under name if the name is free.
// Returns false, leaving the existing entry untouched, if name is taken.
func (r *Registry) Register(name string, h *scripting.Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(name)
	if _, exists := r.items[k]; exists {
		return false
	}
	r.items[k] = h
	return true
}

// Unregister removes name and closes its handle.
// Returns false if name was not registered.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	h, ok := r.items[key(name)]
	delete(r.items, key(name))
	r.mu.Unlock()

	if ok {
		_ = h.Close()
	}
	return ok
}

// Names returns the registered names, sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.items))
	for _, h := range r.items {
		names = append(names, h.Name())
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Close removes every entry and closes its handle.
func (r *Registry) Close() error {
	r.mu.Lock()
	items := r.items
	r.items = make(map[string]*scripting.Handle)
	r.mu.Unlock()

	var errs []error
	for _, h := range items {
		if err := h.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
