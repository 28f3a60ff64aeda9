// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package funclib

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceDelay is how long the watcher waits for a burst of file events to
// settle before reloading.
var DebounceDelay = 300 * time.Millisecond

// Watch re-applies the manifest at path whenever it or one of its script
// files changes. It watches the containing directories, since editors
// commonly replace files instead of writing them in place. onReload, if not
// nil, receives the outcome of every reload. Watching stops when ctx is done.
func Watch(ctx context.Context, path string, d Definer, logger *slog.Logger, onReload func(error)) error {
	m, err := Load(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &watch{path: path, definer: d, logger: logger, onReload: onReload, watcher: watcher}
	if err := w.track(m); err != nil {
		_ = watcher.Close()
		return err
	}

	go w.run(ctx)
	return nil
}

type watch struct {
	path     string
	definer  Definer
	logger   *slog.Logger
	onReload func(error)
	watcher  *fsnotify.Watcher

	mu    sync.Mutex
	files map[string]bool
	dirs  map[string]bool
}

// track records the files worth reacting to and watches their directories.
func (w *watch) track(m *Manifest) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	abs, err := filepath.Abs(w.path)
	if err != nil {
		return err
	}
	files := map[string]bool{filepath.Clean(abs): true}
	for _, f := range m.Files() {
		if a, err := filepath.Abs(f); err == nil {
			files[filepath.Clean(a)] = true
		}
	}
	w.files = files

	if w.dirs == nil {
		w.dirs = make(map[string]bool)
	}
	for f := range files {
		dir := filepath.Dir(f)
		if w.dirs[dir] {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	return nil
}

func (w *watch) relevant(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[filepath.Clean(abs)]
}

func (w *watch) reload() {
	m, err := LoadAndApply(w.path, w.definer, w.logger)
	if m != nil {
		if trackErr := w.track(m); trackErr != nil && err == nil {
			err = trackErr
		}
	}
	if w.logger != nil {
		if err != nil {
			w.logger.Warn("function reload failed", "manifest", w.path, "error", err)
		} else {
			w.logger.Info("functions reloaded", "manifest", w.path)
		}
	}
	if w.onReload != nil {
		w.onReload(err)
	}
}

func (w *watch) run(ctx context.Context) {
	defer func() { _ = w.watcher.Close() }()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(DebounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn("file watcher error", "error", err)
			}
		}
	}
}
