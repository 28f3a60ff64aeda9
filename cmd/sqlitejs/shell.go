// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"zombiezen.com/go/sqlite"

	"github.com/aplane-algo/sqlitejs/internal/engine"
	"github.com/aplane-algo/sqlitejs/internal/funclib"
	"github.com/aplane-algo/sqlitejs/internal/util"
)

// shell runs SQL text against the engine's connection and prints results.
type shell struct {
	engine *engine.Engine
	out    io.Writer
	color  bool // render results as a styled table

	functionsFile string
}

func newShell(eng *engine.Engine, out io.Writer, color bool) *shell {
	return &shell{engine: eng, out: out, color: color}
}

// resultSet is one statement's output.
type resultSet struct {
	columns []string
	rows    [][]string
}

// execute runs every statement in sql and prints each result set.
func (s *shell) execute(sql string) error {
	return s.engine.Do(func(conn *sqlite.Conn) error {
		rest := sql
		for !blank(rest) {
			stmt, trailing, err := conn.PrepareTransient(rest)
			if err != nil {
				return err
			}
			rest = rest[len(rest)-trailing:]
			if stmt == nil {
				break // only comments left
			}

			rs, err := collect(stmt, s.color)
			if finErr := stmt.Finalize(); err == nil {
				err = finErr
			}
			if err != nil {
				return err
			}
			s.render(rs)
		}
		return nil
	})
}

func collect(stmt *sqlite.Stmt, color bool) (*resultSet, error) {
	rs := &resultSet{}
	for i := 0; i < stmt.ColumnCount(); i++ {
		rs.columns = append(rs.columns, stmt.ColumnName(i))
	}

	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, err
		}
		if !hasRow {
			return rs, nil
		}
		row := make([]string, len(rs.columns))
		for i := range row {
			row[i] = formatColumn(stmt, i, color)
		}
		rs.rows = append(rs.rows, row)
	}
}

// formatColumn renders a result column the way the sqlite3 shell does,
// with blobs as hex literals.
func formatColumn(stmt *sqlite.Stmt, col int, color bool) string {
	switch stmt.ColumnType(col) {
	case sqlite.TypeNull:
		if color {
			return util.NullStyle.Render("NULL")
		}
		return ""
	case sqlite.TypeInteger:
		return strconv.FormatInt(stmt.ColumnInt64(col), 10)
	case sqlite.TypeFloat:
		return strconv.FormatFloat(stmt.ColumnFloat(col), 'g', -1, 64)
	case sqlite.TypeBlob:
		buf := make([]byte, stmt.ColumnLen(col))
		stmt.ColumnBytes(col, buf)
		return "X'" + strings.ToUpper(hex.EncodeToString(buf)) + "'"
	default:
		return stmt.ColumnText(col)
	}
}

func (s *shell) render(rs *resultSet) {
	if len(rs.rows) == 0 {
		return
	}
	if !s.color {
		// List mode, as in the sqlite3 shell
		for _, row := range rs.rows {
			fmt.Fprintln(s.out, strings.Join(row, "|"))
		}
		return
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Faint(true)).
		Headers(rs.columns...).
		Rows(rs.rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return util.HeaderStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(s.out, t.Render())
}

// listFunctions prints the defined JavaScript functions.
func (s *shell) listFunctions() {
	fns := s.engine.Functions()
	if len(fns) == 0 {
		fmt.Fprintln(s.out, "No JavaScript functions defined")
		return
	}
	for _, fn := range fns {
		fmt.Fprintf(s.out, "%-24s %s\n", fn.Name, fn.Kind)
	}
}

// reload re-applies the configured function library.
func (s *shell) reload() error {
	if s.functionsFile == "" {
		return fmt.Errorf("no functions_file configured")
	}
	m, err := funclib.LoadAndApply(s.functionsFile, s.engine, util.Logger)
	if m != nil {
		fmt.Fprintf(s.out, "Applied %d function(s) from %s\n", len(m.Functions), s.functionsFile)
	}
	return err
}

const helpText = `Enter SQL statements terminated by ';'.

  SELECT createjs('name', 'code');                  define a scalar function
  SELECT createjs('name', 'init', 'step', 'final'); define an aggregate
  SELECT loadfile('path' [, 'b']);                  read a file as text (or blob)

Commands:
  .functions   list JavaScript functions
  .reload      re-apply the function library
  .help        show this help
  .quit        exit
`

// metaCommand handles a dot command. It reports whether the shell should exit.
func (s *shell) metaCommand(line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ".quit", ".exit":
		return true, nil
	case ".help":
		fmt.Fprint(s.out, helpText)
	case ".functions":
		s.listFunctions()
	case ".reload":
		return false, s.reload()
	default:
		return false, fmt.Errorf("unknown command %s (try .help)", fields[0])
	}
	return false, nil
}
