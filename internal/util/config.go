// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds sqlitejs configuration settings
type Config struct {
	Database      string        `yaml:"database" description:"SQLite database path (relative to data dir)" default:":memory:"`
	CallTimeout   time.Duration `yaml:"call_timeout" description:"Maximum run time of one JavaScript call (0 = unlimited)" default:"0"`
	Deterministic bool          `yaml:"deterministic" description:"Declare JavaScript functions deterministic to SQLite" default:"false"`
	AllowIndirect bool          `yaml:"allow_indirect" description:"Allow JavaScript functions in views, triggers and schema" default:"false"`

	// Function library
	FunctionsFile  string `yaml:"functions_file" description:"YAML manifest of functions defined at start-up (relative to data dir)"`
	WatchFunctions bool   `yaml:"watch_functions" description:"Redefine functions when the manifest or its scripts change" default:"false"`

	// loadfile() settings
	LoadFileDir string `yaml:"loadfile_dir" description:"Base directory for relative loadfile() paths (empty = working directory)"`

	// Shell settings
	HistoryFile string `yaml:"history_file" description:"REPL history file (relative to data dir)" default:".sqlitejs_history"`
}

// DefaultConfig returns the default configuration for runtime use.
func DefaultConfig() Config {
	return Config{
		Database:    ":memory:",
		HistoryFile: ".sqlitejs_history",
	}
}

// DefaultDataDir is the default data directory for sqlitejs
const DefaultDataDir = "~/.sqlitejs"

// GetDataDir returns the data directory.
// Resolution order: -d flag > SQLITEJS_DATA env var > ~/.sqlitejs
func GetDataDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envDir := os.Getenv("SQLITEJS_DATA"); envDir != "" {
		return envDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "" // Can't determine default
	}
	return filepath.Join(home, ".sqlitejs")
}

// GetConfigPath returns the path to the config file in the data directory.
// Returns empty string if dataDir is empty.
func GetConfigPath(dataDir string) string {
	if dataDir == "" {
		return ""
	}
	return filepath.Join(dataDir, "config.yaml")
}

// ResolvePath resolves a path relative to baseDir if not absolute.
// Returns path unchanged if empty, already absolute, or the in-memory database name.
func ResolvePath(path, baseDir string) string {
	if path == "" || path == ":memory:" || baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// LoadConfig loads configuration from config.yaml in the data directory.
// Relative paths are resolved relative to the data directory.
func LoadConfig(dataDir string) (Config, error) {
	config, err := LoadConfigFromPath(GetConfigPath(dataDir))
	if err != nil {
		return config, err
	}

	config.Database = ResolvePath(config.Database, dataDir)
	config.FunctionsFile = ResolvePath(config.FunctionsFile, dataDir)
	config.HistoryFile = ResolvePath(config.HistoryFile, dataDir)
	config.LoadFileDir = ResolvePath(config.LoadFileDir, dataDir)

	return config, nil
}

// LoadConfigFromPath loads configuration from the specified path.
// If path is empty or the file doesn't exist, returns default config.
func LoadConfigFromPath(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay config file values
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	// Fill in defaults for missing values
	defaults := DefaultConfig()
	if config.Database == "" {
		config.Database = defaults.Database
	}
	if config.HistoryFile == "" {
		config.HistoryFile = defaults.HistoryFile
	}

	return config, nil
}

// Validate checks settings that cannot be repaired with defaults.
func (c *Config) Validate() error {
	if c.CallTimeout < 0 {
		return fmt.Errorf("call_timeout must not be negative (got %s)", c.CallTimeout)
	}
	if c.WatchFunctions && c.FunctionsFile == "" {
		return fmt.Errorf("watch_functions requires functions_file")
	}
	return nil
}

// DisplayConfig prints the current configuration
func DisplayConfig(dataDir string) {
	config, err := LoadConfig(dataDir)
	configPath := GetConfigPath(dataDir)

	fmt.Println("Current Configuration:")
	fmt.Println("=====================")
	fmt.Printf("Data dir:       %s\n", dataDir)
	fmt.Printf("Config file:    %s\n", configPath)
	if err != nil {
		fmt.Printf("Error:          %v\n", err)
		fmt.Println()
		return
	}
	fmt.Printf("Database:       %s\n", config.Database)
	if config.CallTimeout > 0 {
		fmt.Printf("Call timeout:   %s\n", config.CallTimeout)
	} else {
		fmt.Printf("Call timeout:   unlimited\n")
	}
	fmt.Printf("Deterministic:  %v\n", config.Deterministic)
	fmt.Printf("Allow indirect: %v\n", config.AllowIndirect)
	if config.FunctionsFile != "" {
		fmt.Printf("Functions:      %s (watch: %v)\n", config.FunctionsFile, config.WatchFunctions)
	} else {
		fmt.Printf("Functions:      (none)\n")
	}
	if config.LoadFileDir != "" {
		fmt.Printf("loadfile dir:   %s\n", config.LoadFileDir)
	}
	fmt.Println()
}
