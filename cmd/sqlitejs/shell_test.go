// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aplane-algo/sqlitejs/internal/testutil"
)

func newTestShell(t *testing.T) (*shell, *bytes.Buffer) {
	t.Helper()
	_, eng := testutil.NewEngine(t)
	var out bytes.Buffer
	return newShell(eng, &out, false), &out
}

func TestComplete(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"SELECT 1;", true},
		{"SELECT 1", false},
		{"SELECT 1;  \n", true},
		{"SELECT createjs('f', 'return 1;'", false},
		{"SELECT createjs('f', 'return 1;');", true},
		{"SELECT 'it''s';", true},
		{"SELECT 'open;", false},
		{"SELECT 1; -- trailing comment", true},
		{"SELECT 1 -- not done;", false},
		{"SELECT 1 /* x; */;", true},
		{"SELECT 1 /* open;", false},
		{`SELECT "a;b"`, false},
		{"SELECT [x;y];", true},
		{"", false},
	}

	for _, tt := range tests {
		if got := complete(tt.sql); got != tt.want {
			t.Errorf("complete(%q) = %v, want %v", tt.sql, got, tt.want)
		}
	}
}

func TestExecuteListMode(t *testing.T) {
	sh, out := newTestShell(t)

	err := sh.execute(`
		SELECT createjs('inc', 'return arg[0] + 1;');
		SELECT inc(41), 2.5, NULL, 'text', x'00ff';
	`)
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}

	want := "ok\n42|2.5||text|X'00FF'\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestExecuteTableMode(t *testing.T) {
	sh, out := newTestShell(t)
	sh.color = true

	if err := sh.execute("SELECT 42 AS answer;"); err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "answer") || !strings.Contains(out.String(), "42") {
		t.Errorf("table output = %q", out.String())
	}
}

func TestExecuteError(t *testing.T) {
	sh, _ := newTestShell(t)

	err := sh.execute("SELECT createjs('bad', 'return ;;(');")
	testutil.AssertError(t, err, true, "compilation problem")

	if err := sh.execute("SELECT nope();"); err == nil {
		t.Error("execute() expected error for unknown function")
	}
}

func TestExecuteTrailingComment(t *testing.T) {
	sh, out := newTestShell(t)

	if err := sh.execute("SELECT 1; -- done"); err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if out.String() != "1\n" {
		t.Errorf("output = %q, want %q", out.String(), "1\n")
	}
}

func TestHandleLineMultiLine(t *testing.T) {
	sh, out := newTestShell(t)
	var buf statementBuffer

	lines := []string{
		"SELECT createjs('sum2x',",
		"  'total = 0;',",
		"  'total += arg[0] * 2;',",
		"  'return total;');",
		"SELECT sum2x(value) FROM (SELECT 1 AS value UNION ALL SELECT 2 UNION ALL SELECT 3);",
	}
	for _, line := range lines {
		quit, err := handleLine(sh, &buf, line)
		if err != nil {
			t.Fatalf("handleLine(%q) error = %v", line, err)
		}
		if quit {
			t.Fatalf("handleLine(%q) asked to quit", line)
		}
	}
	if !buf.empty() {
		t.Errorf("buffer not empty: %q", buf.text())
	}
	if out.String() != "ok\n12\n" {
		t.Errorf("output = %q, want %q", out.String(), "ok\n12\n")
	}
}

func TestMetaCommands(t *testing.T) {
	sh, out := newTestShell(t)
	var buf statementBuffer

	if _, err := handleLine(sh, &buf, ".functions"); err != nil {
		t.Fatalf(".functions error = %v", err)
	}
	if !strings.Contains(out.String(), "No JavaScript functions") {
		t.Errorf(".functions output = %q", out.String())
	}

	out.Reset()
	if _, err := handleLine(sh, &buf, "SELECT createjs('inc', 'return arg[0] + 1;');"); err != nil {
		t.Fatalf("createjs error = %v", err)
	}
	out.Reset()
	if _, err := handleLine(sh, &buf, ".functions"); err != nil {
		t.Fatalf(".functions error = %v", err)
	}
	if !strings.Contains(out.String(), "inc") || !strings.Contains(out.String(), "scalar") {
		t.Errorf(".functions output = %q", out.String())
	}

	if _, err := handleLine(sh, &buf, ".bogus"); err == nil {
		t.Error(".bogus expected error")
	}
	if _, err := handleLine(sh, &buf, ".reload"); err == nil {
		t.Error(".reload without functions_file expected error")
	}

	quit, err := handleLine(sh, &buf, ".quit")
	if err != nil || !quit {
		t.Errorf(".quit = %v, %v; want true, nil", quit, err)
	}
}

func TestReload(t *testing.T) {
	sh, out := newTestShell(t)

	sh.functionsFile = testutil.WriteFile(t, t.TempDir(), "functions.yaml",
		"functions:\n  - name: double\n    code: \"return arg[0] * 2;\"\n")

	if err := sh.reload(); err != nil {
		t.Fatalf("reload() error = %v", err)
	}
	out.Reset()
	if err := sh.execute("SELECT double(21);"); err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if out.String() != "42\n" {
		t.Errorf("output = %q, want %q", out.String(), "42\n")
	}
}

func TestRunBatch(t *testing.T) {
	sh, out := newTestShell(t)

	input := "SELECT 1;\n.functions\nSELECT 2\n;\nSELECT 3"
	if err := runBatch(sh, strings.NewReader(input)); err != nil {
		t.Fatalf("runBatch() error = %v", err)
	}
	want := "1\nNo JavaScript functions defined\n2\n3\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}
