// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// SupportsColor checks if the terminal supports ANSI color codes
func SupportsColor() bool {
	if !term.IsTerminal(int(os.Stdout.Fd())) { // #nosec G115 - file descriptors are small integers
		return false
	}

	termEnv := os.Getenv("TERM")
	if termEnv == "" || termEnv == "dumb" {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	return true
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) // #nosec G115 - file descriptors are small integers
}

// Styles used by the shell when colour is available.
var (
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	NullStyle   = lipgloss.NewStyle().Faint(true)
	ErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	OKStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// Styled renders s with style when colour output is supported.
func Styled(style lipgloss.Style, s string) string {
	if !SupportsColor() {
		return s
	}
	return style.Render(s)
}
