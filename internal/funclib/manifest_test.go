// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package funclib

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aplane-algo/sqlitejs/internal/scripting"
	"github.com/aplane-algo/sqlitejs/internal/testutil"
)

// recorder is a Definer that remembers the last sources per name.
type recorder struct {
	mu      sync.Mutex
	defined map[string]scripting.Sources
	fail    map[string]error
}

func newRecorder() *recorder {
	return &recorder{defined: make(map[string]scripting.Sources), fail: make(map[string]error)}
}

func (r *recorder) Define(name string, src scripting.Sources) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[name]; err != nil {
		return err
	}
	r.defined[name] = src
	return nil
}

func (r *recorder) get(name string) (scripting.Sources, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.defined[name]
	return src, ok
}

const sampleManifest = `functions:
  - name: inc
    code: "return arg[0] + 1;"
  - name: triple
    code_file: triple.js
  - name: sum2x
    init: "total = 0;"
    step_file: scripts/step.js
    final: "return total;"
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "triple.js", "return arg[0] * 3;")
	testutil.WriteFile(t, dir, "scripts/step.js", "total += arg[0] * 2;")
	return testutil.WriteFile(t, dir, "functions.yaml", sampleManifest)
}

func TestLoadAndApply(t *testing.T) {
	path := writeSample(t)
	rec := newRecorder()

	m, err := LoadAndApply(path, rec, nil)
	if err != nil {
		t.Fatalf("LoadAndApply() error = %v", err)
	}
	if len(m.Functions) != 3 {
		t.Fatalf("len(Functions) = %d, want 3", len(m.Functions))
	}

	inc, _ := rec.get("inc")
	if inc.Kind() != scripting.KindScalar || inc.Main != "return arg[0] + 1;" {
		t.Errorf("inc = %+v", inc)
	}
	triple, _ := rec.get("triple")
	if triple.Main != "return arg[0] * 3;" {
		t.Errorf("triple = %+v", triple)
	}
	sum, _ := rec.get("sum2x")
	if sum.Kind() != scripting.KindAggregate || sum.Init != "total = 0;" || sum.Main != "total += arg[0] * 2;" || sum.Final != "return total;" {
		t.Errorf("sum2x = %+v", sum)
	}

	files := m.Files()
	if len(files) != 2 {
		t.Errorf("Files() = %v, want 2 entries", files)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing name", "functions:\n  - code: \"return 1;\"\n", "name is required"},
		{"duplicate", "functions:\n  - name: a\n    code: x\n  - name: a\n    code: y\n", "more than once"},
		{"no code", "functions:\n  - name: a\n", "no code given"},
		{"both kinds", "functions:\n  - name: a\n    code: x\n    step: y\n    final: z\n", "not both"},
		{"inline and file", "functions:\n  - name: a\n    code: x\n    code_file: a.js\n", "mutually exclusive"},
		{"aggregate without final", "functions:\n  - name: a\n    init: x\n    step: y\n", "step and final"},
		{"bad yaml", "functions: [\n", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, t.TempDir(), "functions.yaml", tt.body)
			_, err := Load(path)
			testutil.AssertError(t, err, true, tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestApplyContinuesAfterFailure(t *testing.T) {
	path := writeSample(t)
	rec := newRecorder()
	boom := errors.New("boom")
	rec.fail["inc"] = boom

	_, err := LoadAndApply(path, rec, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("LoadAndApply() error = %v, want boom", err)
	}
	if _, ok := rec.get("sum2x"); !ok {
		t.Error("functions after the failing one were not applied")
	}
}

func TestApplyMissingScript(t *testing.T) {
	path := writeSample(t)
	if err := os.Remove(filepath.Join(filepath.Dir(path), "triple.js")); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	_, err := LoadAndApply(path, newRecorder(), nil)
	testutil.AssertError(t, err, true, "function triple")
}

func TestApplyToEngine(t *testing.T) {
	path := writeSample(t)
	conn, eng := testutil.NewEngine(t)

	if _, err := LoadAndApply(path, eng, nil); err != nil {
		t.Fatalf("LoadAndApply() error = %v", err)
	}

	if got := testutil.QueryInt64(t, conn, "SELECT inc(41)"); got != 42 {
		t.Errorf("inc(41) = %d, want 42", got)
	}
	if got := testutil.QueryInt64(t, conn, "SELECT triple(2)"); got != 6 {
		t.Errorf("triple(2) = %d, want 6", got)
	}
	got := testutil.QueryInt64(t, conn, "SELECT sum2x(value) FROM (SELECT 1 AS value UNION ALL SELECT 2 UNION ALL SELECT 3)")
	if got != 12 {
		t.Errorf("sum2x = %d, want 12", got)
	}
}
