// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMkdirAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := MkdirAll(dir); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != DataDirPerm {
		t.Errorf("mode = %v, want %v", info.Mode().Perm(), DataDirPerm)
	}

	// Existing directories are left alone
	if err := os.Chmod(dir, 0755); err != nil {
		t.Fatalf("Chmod() error = %v", err)
	}
	if err := MkdirAll(dir); err != nil {
		t.Fatalf("MkdirAll() on existing dir error = %v", err)
	}
	info, _ = os.Stat(dir)
	if info.Mode().Perm() != 0755 {
		t.Errorf("existing dir mode changed to %v", info.Mode().Perm())
	}
}

func TestEnsureParentDir(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantDir string
	}{
		{"empty", "", ""},
		{"memory", ":memory:", ""},
		{"nested", "data/db/app.sqlite", "data/db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := t.TempDir()
			path := tt.path
			if path != "" && path != ":memory:" {
				path = filepath.Join(base, path)
			}
			if err := EnsureParentDir(path); err != nil {
				t.Fatalf("EnsureParentDir() error = %v", err)
			}
			if tt.wantDir == "" {
				return
			}
			if info, err := os.Stat(filepath.Join(base, tt.wantDir)); err != nil || !info.IsDir() {
				t.Errorf("parent %s not created: %v", tt.wantDir, err)
			}
		})
	}
}
