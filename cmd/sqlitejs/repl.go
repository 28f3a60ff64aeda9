// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/aplane-algo/sqlitejs/internal/fsutil"
	"github.com/aplane-algo/sqlitejs/internal/util"
)

const (
	prompt         = "sqlitejs> "
	continuePrompt = "     ...> "
)

// statementBuffer accumulates input lines until they form complete SQL.
type statementBuffer struct {
	lines []string
}

func (b *statementBuffer) add(line string) {
	b.lines = append(b.lines, line)
}

func (b *statementBuffer) empty() bool {
	return len(b.lines) == 0
}

func (b *statementBuffer) text() string {
	return strings.Join(b.lines, "\n")
}

func (b *statementBuffer) reset() {
	b.lines = b.lines[:0]
}

// complete reports whether sql ends with a ';' outside any quoted string,
// identifier or comment.
func complete(sql string) bool {
	last, open := scanSQL(sql)
	return !open && last == ';'
}

// blank reports whether sql holds nothing but whitespace and comments.
func blank(sql string) bool {
	last, open := scanSQL(sql)
	return !open && last == 0
}

// scanSQL returns the last character outside comments and whitespace, and
// whether sql ends inside a quote or block comment.
func scanSQL(sql string) (last byte, open bool) {
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if quote != 0 {
			if c == quote {
				quote = 0
				last = c
			}
			continue
		}
		switch {
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '[':
			quote = ']'
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			continue
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return last, true
			}
			i += end + 3
			continue
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			continue
		}
		last = c
	}
	return last, quote != 0
}

// handleLine feeds one input line to the shell. It reports whether the
// shell should exit.
func handleLine(sh *shell, buf *statementBuffer, line string) (bool, error) {
	trimmed := strings.TrimSpace(line)
	if buf.empty() {
		if trimmed == "" {
			return false, nil
		}
		if strings.HasPrefix(trimmed, ".") {
			return sh.metaCommand(trimmed)
		}
	}

	buf.add(line)
	if !complete(buf.text()) {
		return false, nil
	}
	sql := buf.text()
	buf.reset()
	return false, sh.execute(sql)
}

func printError(err error) {
	fmt.Fprintln(os.Stderr, util.Styled(util.ErrorStyle, "Error: "+err.Error()))
}

// runBatch executes statements read from r without prompting, stopping at
// the first error.
func runBatch(sh *shell, r io.Reader) error {
	var buf statementBuffer
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		quit, err := handleLine(sh, &buf, scanner.Text())
		if err != nil {
			printError(err)
			return err
		}
		if quit {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		printError(err)
		return err
	}
	if !buf.empty() && !blank(buf.text()) {
		if err := sh.execute(buf.text()); err != nil {
			printError(err)
			return err
		}
	}
	return nil
}

func startBasicREPL(sh *shell) {
	fmt.Println("Running in basic mode (no history)")
	var buf statementBuffer
	scanner := bufio.NewScanner(os.Stdin)
	for {
		if buf.empty() {
			fmt.Print(prompt)
		} else {
			fmt.Print(continuePrompt)
		}
		if !scanner.Scan() {
			break
		}
		quit, err := handleLine(sh, &buf, scanner.Text())
		if err != nil {
			printError(err)
		}
		if quit {
			break
		}
	}
}

func startREPL(sh *shell, historyFile string) {
	fmt.Println("sqlitejs - SQLite with JavaScript functions")
	fmt.Println("Type '.help' for help or '.quit' to exit")

	if err := fsutil.EnsureParentDir(historyFile); err != nil {
		util.Logger.Warn("history disabled", "error", err)
		historyFile = ""
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            util.Styled(util.OKStyle, prompt),
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         ".quit",
		HistorySearchFold: true,
		// Multi-line statements go into history as one entry
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		fmt.Printf("Failed to create readline instance, falling back to basic input: %v\n", err)
		startBasicREPL(sh)
		return
	}
	defer func() {
		_ = rl.Close() // Best-effort close, errors during shutdown not critical
	}()

	var buf statementBuffer
	for {
		if buf.empty() {
			rl.SetPrompt(util.Styled(util.OKStyle, prompt))
		} else {
			rl.SetPrompt(continuePrompt)
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if buf.empty() && len(line) == 0 {
					fmt.Println("Use '.quit' or Ctrl+D to exit")
				}
				buf.reset()
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Println()
				break
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		pending := line
		if !buf.empty() {
			pending = buf.text() + "\n" + line
		}
		quit, err := handleLine(sh, &buf, line)
		if buf.empty() && strings.TrimSpace(pending) != "" {
			_ = rl.SaveHistory(strings.Join(strings.Fields(pending), " "))
		}
		if err != nil {
			printError(err)
		}
		if quit {
			break
		}
	}
}
