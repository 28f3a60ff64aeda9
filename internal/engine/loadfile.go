// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package engine

import (
	"fmt"
	"os"
	"strings"

	"zombiezen.com/go/sqlite"

	"github.com/aplane-algo/sqlitejs/internal/util"
)

// loadFile implements loadfile(path) and loadfile(path, mode).
// The contents come back as TEXT unless mode starts with 'b', which selects BLOB.
func (e *Engine) loadFile(_ sqlite.Context, args []sqlite.Value) (sqlite.Value, error) {
	path := util.ResolvePath(args[0].Text(), e.LoadFileDir)

	data, err := os.ReadFile(path) // #nosec G304 - reading user-named files is the purpose of loadfile
	if err != nil {
		e.logger.Debug("loadfile failed", "path", path, "error", err)
		return sqlite.Value{}, fmt.Errorf("%w: %s", ErrOpenFile, path)
	}

	if len(args) == 2 && strings.HasPrefix(args[1].Text(), "b") {
		return sqlite.BlobValue(data), nil
	}
	return sqlite.TextValue(string(data)), nil
}
