// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package testutil provides reusable test infrastructure and utilities.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/aplane-algo/sqlitejs/internal/engine"
)

// NewEngine opens an in-memory database with the JavaScript functions
// installed. Both are closed when the test completes.
func NewEngine(t *testing.T, opts ...engine.EngineOption) (*sqlite.Conn, *engine.Engine) {
	t.Helper()

	conn, err := sqlite.OpenConn(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	eng, err := engine.New(conn, opts...)
	if err != nil {
		_ = conn.Close()
		t.Fatalf("Failed to create engine: %v", err)
	}
	t.Cleanup(func() {
		_ = eng.Close()
		_ = conn.Close()
	})
	return conn, eng
}

// QueryInt64 runs sql and returns the first column of its last row.
func QueryInt64(t *testing.T, conn *sqlite.Conn, sql string) int64 {
	t.Helper()

	var got int64
	err := sqlitex.Execute(conn, sql, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			got = stmt.ColumnInt64(0)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("%s: %v", sql, err)
	}
	return got
}

// WriteFile writes content to name under dir, creating parent directories.
// Returns the file path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// AssertError checks that an error matches expected criteria.
func AssertError(t *testing.T, err error, shouldError bool, msgContains string) {
	t.Helper()

	if !shouldError {
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		return
	}
	if err == nil {
		t.Error("Expected an error but got nil")
		return
	}
	if msgContains != "" && !strings.Contains(err.Error(), msgContains) {
		t.Errorf("Error message %q should contain %q", err.Error(), msgContains)
	}
}
