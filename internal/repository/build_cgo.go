//go:build cgo_sqlite

package repository

// CGO SQLite driver.
//
// Build command:
//   CGO_ENABLED=1 go build -tags cgo_sqlite ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// SQLiteDriverName is the database/sql driver used for SQLite
	SQLiteDriverName = "sqlite3"

	// SQLiteBuildMode describes the current build configuration
	SQLiteBuildMode = "cgo"
)
