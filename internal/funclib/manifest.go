// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package funclib defines JavaScript SQL functions from a YAML manifest and
// keeps them in sync with the manifest and its script files.
package funclib

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/aplane-algo/sqlitejs/internal/scripting"
)

// Function is one manifest entry. A scalar sets Code or CodeFile; an
// aggregate sets Init, Step and Final (or their _file variants).
// File paths are relative to the manifest's directory.
type Function struct {
	Name string `yaml:"name"`

	Code     string `yaml:"code,omitempty"`
	CodeFile string `yaml:"code_file,omitempty"`

	Init      string `yaml:"init,omitempty"`
	InitFile  string `yaml:"init_file,omitempty"`
	Step      string `yaml:"step,omitempty"`
	StepFile  string `yaml:"step_file,omitempty"`
	Final     string `yaml:"final,omitempty"`
	FinalFile string `yaml:"final_file,omitempty"`
}

// Manifest is a parsed functions file.
type Manifest struct {
	Functions []Function `yaml:"functions"`

	path string
}

// Definer creates or redefines a function. *engine.Engine implements it.
type Definer interface {
	Define(name string, src scripting.Sources) error
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from the operator's config
	if err != nil {
		return nil, fmt.Errorf("failed to read functions file: %w", err)
	}

	m := &Manifest{path: path}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse functions file: %w", err)
	}

	seen := make(map[string]bool)
	for i, f := range m.Functions {
		if f.Name == "" {
			return nil, fmt.Errorf("function #%d: name is required", i+1)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("function %s: defined more than once", f.Name)
		}
		seen[f.Name] = true
		if err := f.validate(); err != nil {
			return nil, fmt.Errorf("function %s: %w", f.Name, err)
		}
	}
	return m, nil
}

// Dir returns the directory relative script paths are resolved against.
func (m *Manifest) Dir() string {
	return filepath.Dir(m.path)
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return m.path
}

func (f Function) isAggregate() bool {
	return f.Init != "" || f.InitFile != "" || f.Step != "" || f.StepFile != "" || f.Final != "" || f.FinalFile != ""
}

func (f Function) validate() error {
	hasCode := f.Code != "" || f.CodeFile != ""
	if hasCode && f.isAggregate() {
		return errors.New("set either code or init/step/final, not both")
	}
	if !hasCode && !f.isAggregate() {
		return errors.New("no code given")
	}

	pairs := [][2]string{{f.Code, f.CodeFile}, {f.Init, f.InitFile}, {f.Step, f.StepFile}, {f.Final, f.FinalFile}}
	for _, p := range pairs {
		if p[0] != "" && p[1] != "" {
			return errors.New("inline code and a code file are mutually exclusive")
		}
	}
	if f.isAggregate() {
		if (f.Step == "" && f.StepFile == "") || (f.Final == "" && f.FinalFile == "") {
			return errors.New("aggregates need step and final code")
		}
	}
	return nil
}

// Sources resolves the function's code, reading script files relative to dir.
func (f Function) Sources(dir string) (scripting.Sources, error) {
	read := func(inline, file string) (string, error) {
		if file == "" {
			return inline, nil
		}
		data, err := os.ReadFile(resolve(file, dir)) // #nosec G304 - manifest-listed script
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	}

	if !f.isAggregate() {
		code, err := read(f.Code, f.CodeFile)
		if err != nil {
			return scripting.Sources{}, err
		}
		return scripting.ScalarSources(code), nil
	}

	initCode, err := read(f.Init, f.InitFile)
	if err != nil {
		return scripting.Sources{}, err
	}
	stepCode, err := read(f.Step, f.StepFile)
	if err != nil {
		return scripting.Sources{}, err
	}
	finalCode, err := read(f.Final, f.FinalFile)
	if err != nil {
		return scripting.Sources{}, err
	}
	return scripting.AggregateSources(initCode, stepCode, finalCode), nil
}

// Files returns the absolute paths of every script file the manifest names.
func (m *Manifest) Files() []string {
	set := make(map[string]bool)
	for _, f := range m.Functions {
		for _, file := range []string{f.CodeFile, f.InitFile, f.StepFile, f.FinalFile} {
			if file != "" {
				set[resolve(file, m.Dir())] = true
			}
		}
	}
	files := make([]string, 0, len(set))
	for file := range set {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}

// Apply defines every function in the manifest. It keeps going after a
// failure and returns all failures joined.
func Apply(m *Manifest, d Definer, logger *slog.Logger) error {
	var errs []error
	for _, f := range m.Functions {
		src, err := f.Sources(m.Dir())
		if err == nil {
			err = d.Define(f.Name, src)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
			continue
		}
		if logger != nil {
			logger.Debug("function loaded", "function", f.Name, "kind", src.Kind(), "manifest", m.path)
		}
	}
	return errors.Join(errs...)
}

// LoadAndApply loads the manifest at path and applies it.
func LoadAndApply(path string, d Definer, logger *slog.Logger) (*Manifest, error) {
	m, err := Load(path)
	if err != nil {
		return nil, err
	}
	return m, Apply(m, d, logger)
}

func resolve(path, dir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
