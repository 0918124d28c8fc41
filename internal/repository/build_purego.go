//go:build !cgo_sqlite

package repository

// Pure Go SQLite driver, no C compiler required.
//
// Build command:
//   CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// SQLiteDriverName is the database/sql driver used for SQLite
	SQLiteDriverName = "sqlite"

	// SQLiteBuildMode describes the current build configuration
	SQLiteBuildMode = "purego"
)
