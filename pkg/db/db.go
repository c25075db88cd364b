// Package db persists risk rules, risk states, and the risk event audit log
// in SQLite.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

// Database wraps the SQL handle so callers do not open connections
// themselves.
type Database struct {
	DB *sql.DB
}

// New opens the SQLite database at path, creating the parent directory and
// the file as needed.
func New(path string) (*Database, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	return open(path)
}

// NewInMemory opens a throwaway in-memory database, for tests.
func NewInMemory() (*Database, error) {
	return open(":memory:")
}

func open(dsn string) (*Database, error) {
	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer; a single pooled connection avoids
	// SQLITE_BUSY under concurrent keeper saves.
	handle.SetMaxOpenConns(1)
	return &Database{DB: handle}, nil
}

// Close releases the underlying handle.
func (d *Database) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
