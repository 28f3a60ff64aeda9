// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package funclib

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aplane-algo/sqlitejs/internal/testutil"
)

func TestWatchReloadsOnScriptChange(t *testing.T) {
	DebounceDelay = 20 * time.Millisecond
	path := writeSample(t)
	rec := newRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan error, 10)
	if err := Watch(ctx, path, rec, nil, func(err error) { reloaded <- err }); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	testutil.WriteFile(t, filepath.Dir(path), "triple.js", "return arg[0] * 30;")

	select {
	case err := <-reloaded:
		if err != nil {
			t.Fatalf("reload error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	src, ok := rec.get("triple")
	if !ok || src.Main != "return arg[0] * 30;" {
		t.Errorf("triple after reload = %+v, %v", src, ok)
	}
}

func TestWatchReloadsOnManifestChange(t *testing.T) {
	DebounceDelay = 20 * time.Millisecond
	path := writeSample(t)
	rec := newRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan error, 10)
	if err := Watch(ctx, path, rec, nil, func(err error) { reloaded <- err }); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	testutil.WriteFile(t, filepath.Dir(path), "functions.yaml", sampleManifest+"  - name: added\n    code: \"return 7;\"\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-reloaded:
			if _, ok := rec.get("added"); ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for the new function")
		}
	}
}

func TestWatchIgnoresUnrelatedFiles(t *testing.T) {
	DebounceDelay = 20 * time.Millisecond
	path := writeSample(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan error, 10)
	if err := Watch(ctx, path, newRecorder(), nil, func(err error) { reloaded <- err }); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	testutil.WriteFile(t, filepath.Dir(path), "notes.txt", "hi")

	select {
	case <-reloaded:
		t.Error("unrelated file triggered a reload")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatchInvalidManifest(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "functions.yaml", "functions: [\n")
	if err := Watch(context.Background(), path, newRecorder(), nil, nil); err == nil {
		t.Error("Watch() expected error for invalid manifest")
	}
}
