// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"zombiezen.com/go/sqlite"

	"github.com/aplane-algo/sqlitejs/internal/engine"
	"github.com/aplane-algo/sqlitejs/internal/fsutil"
	"github.com/aplane-algo/sqlitejs/internal/funclib"
	"github.com/aplane-algo/sqlitejs/internal/util"
	"github.com/aplane-algo/sqlitejs/internal/version"
)

func main() {
	// Define all flags upfront before parsing
	printVersion := flag.Bool("version", false, "Print version and exit")
	showConfig := flag.Bool("config-show", false, "Print the effective configuration and exit")
	dataDir := flag.String("d", "", "Data directory (default: ~/.sqlitejs or SQLITEJS_DATA)")
	dbPath := flag.String("db", "", "Database file (overrides config; default :memory:)")
	sqlExpr := flag.String("e", "", "Execute SQL and exit")
	sqlFile := flag.String("f", "", "Execute SQL file and exit (use '-' for stdin)")
	flag.Parse()

	// Handle early-exit flags
	if *printVersion {
		fmt.Printf("sqlitejs %s\n", version.String())
		os.Exit(0)
	}

	// Resolve data directory: -d flag > SQLITEJS_DATA env var > ~/.sqlitejs
	resolvedDataDir := util.GetDataDir(*dataDir)

	if *showConfig {
		util.DisplayConfig(resolvedDataDir)
		os.Exit(0)
	}

	// Initialize logger (supports SQLITEJS_DEBUG environment variable)
	util.InitLogger()

	config, err := util.LoadConfig(resolvedDataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		config.Database = *dbPath
	}

	if err := fsutil.EnsureParentDir(config.Database); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	conn, err := sqlite.OpenConn(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open database %s: %v\n", config.Database, err)
		os.Exit(1)
	}

	eng, err := engine.New(conn, engine.WithConfig(config), engine.WithLogger(util.Logger))
	if err != nil {
		_ = conn.Close()
		fmt.Fprintf(os.Stderr, "Error: failed to install JavaScript functions: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	sh := newShell(eng, os.Stdout, util.SupportsColor())
	sh.functionsFile = config.FunctionsFile
	loadFunctions(ctx, eng, config)

	code := run(sh, config, *sqlExpr, *sqlFile)

	// Cleanup
	stop()
	if err := eng.Close(); err != nil {
		util.Logger.Warn("failed to close engine", "error", err)
	}
	if err := conn.Close(); err != nil {
		util.Logger.Warn("failed to close database", "error", err)
	}
	os.Exit(code)
}

// loadFunctions applies the function library and starts watching it when
// configured. Failures are reported but do not stop the shell.
func loadFunctions(ctx context.Context, eng *engine.Engine, config util.Config) {
	if config.FunctionsFile == "" {
		return
	}

	m, err := funclib.LoadAndApply(config.FunctionsFile, eng, util.Logger)
	if err != nil {
		util.Logger.Warn("function library", "error", err)
	}
	if m != nil {
		util.Debug("function library loaded", "path", config.FunctionsFile, "functions", len(m.Functions))
	}

	if !config.WatchFunctions {
		return
	}
	if err := funclib.Watch(ctx, config.FunctionsFile, eng, util.Logger, nil); err != nil {
		util.Logger.Warn("not watching function library", "error", err)
	}
}

// run executes -e or -f input, or starts the REPL. It returns the exit code.
func run(sh *shell, config util.Config, sqlExpr, sqlFile string) int {
	switch {
	case sqlExpr != "":
		return exitCode(sh.execute(sqlExpr))

	case sqlFile != "":
		var data []byte
		var err error
		if sqlFile == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(sqlFile) // #nosec G304 - user-specified script
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return exitCode(sh.execute(string(data)))

	case util.IsInteractive():
		startREPL(sh, config.HistoryFile)
		return 0

	default:
		if err := runBatch(sh, os.Stdin); err != nil {
			return 1
		}
		return 0
	}
}

func exitCode(err error) int {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
