package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// Open opens a SQLite database. An in-memory DSN keeps everything in
// process memory; a file path gets WAL mode and its parent directory is
// created if needed.
//
// The pool is limited to one connection: each in-memory connection would
// otherwise see its own empty database.
func Open(dsn string) (*sql.DB, error) {
	source := dsn
	if !isMemory(dsn) {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		source = dsn + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", source)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func isMemory(dsn string) bool {
	return dsn == "" || dsn == MemoryDSN || strings.Contains(dsn, "mode=memory")
}
