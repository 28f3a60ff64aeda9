// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package version reports the sqlitejs build and the SQLite library it embeds.
package version

import (
	"fmt"
	"runtime"

	sqlite3 "modernc.org/sqlite/lib"
)

// Set with -ldflags "-X github.com/aplane-algo/sqlitejs/internal/version.Version=0.3.0"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// SQLiteVersion is the version of the SQLite library compiled into the binary.
const SQLiteVersion = sqlite3.SQLITE_VERSION

// String returns the -version line: build, embedded SQLite and platform.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s, SQLite %s, %s/%s)",
		Version, GitCommit, BuildTime, SQLiteVersion, runtime.GOOS, runtime.GOARCH)
}
