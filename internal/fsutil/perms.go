// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package fsutil provides filesystem helpers for the sqlitejs data directory.
// The directory holds the database, the REPL history and function scripts,
// so it is created private to the owner (0700).
package fsutil

import (
	"os"
	"path/filepath"
)

// DataDirPerm is the permission mode for data directories.
const DataDirPerm os.FileMode = 0700

// MkdirAll creates a directory and all parents with data directory permissions.
// Unlike os.MkdirAll, this explicitly sets permissions after creation to
// bypass umask restrictions. Existing directories keep their mode.
func MkdirAll(path string) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil
	}
	if err := os.MkdirAll(path, DataDirPerm); err != nil {
		return err
	}
	return os.Chmod(path, DataDirPerm)
}

// EnsureParentDir creates the directory that will contain path.
// Empty paths and the in-memory database name need no directory.
func EnsureParentDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	return MkdirAll(filepath.Dir(path))
}
