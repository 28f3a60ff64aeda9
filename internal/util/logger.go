// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"io"
	"log/slog"
	"os"
)

var Logger *slog.Logger

// InitLogger initializes the global logger with appropriate log level
// Set SQLITEJS_DEBUG=1 environment variable to enable debug logging
func InitLogger() {
	InitLoggerTo(os.Stderr)
}

// InitLoggerTo initializes the global logger writing to w.
func InitLoggerTo(w io.Writer) {
	level := slog.LevelInfo // Default: only show Info, Warn, Error

	if os.Getenv("SQLITEJS_DEBUG") != "" {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Remove time attribute for cleaner CLI output
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})

	Logger = slog.New(handler)
}

// DefaultLogger returns the global logger, or slog's default logger when
// InitLogger has not been called (library use).
func DefaultLogger() *slog.Logger {
	if Logger != nil {
		return Logger
	}
	return slog.Default()
}

// Debug logs a debug message (only shown when SQLITEJS_DEBUG is set)
func Debug(msg string, args ...any) {
	DefaultLogger().Debug(msg, args...)
}
