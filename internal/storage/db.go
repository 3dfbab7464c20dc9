// Package storage opens the shared SQLite database and maintains its schema.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB is the narrow database interface repositories depend on.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// TxDB is DB plus transactions, for stores that need atomic
// multi-statement writes.
type TxDB interface {
	DB
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var _ TxDB = (*sql.DB)(nil)

// Open opens the SQLite database at path and applies the schema.
// A single connection is used: SQLite serializes writers anyway, and the
// repositories add their own coarse locking on top.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenMemory opens a fresh in-memory database, for tests and demos.
func OpenMemory() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates missing tables and indices.
func Migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pages (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		folio       TEXT NOT NULL,
		width       INTEGER NOT NULL,
		height      INTEGER NOT NULL,
		section     TEXT NOT NULL DEFAULT '',
		image_path  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS symbols (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		page_id        INTEGER NOT NULL REFERENCES pages(id),
		x              INTEGER NOT NULL,
		y              INTEGER NOT NULL,
		width          INTEGER NOT NULL,
		height         INTEGER NOT NULL,
		category       TEXT,
		signature      TEXT NOT NULL,
		mean_intensity REAL NOT NULL DEFAULT 0,
		metadata       TEXT NOT NULL DEFAULT '{}',
		extracted_at   TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_symbols_page ON symbols(page_id)`,
	`CREATE INDEX IF NOT EXISTS idx_symbols_signature ON symbols(signature)`,
	`CREATE TABLE IF NOT EXISTS extraction_jobs (
		id            TEXT PRIMARY KEY,
		start_page_id INTEGER NOT NULL,
		end_page_id   INTEGER NOT NULL,
		params        TEXT NOT NULL,
		status        TEXT NOT NULL,
		progress      INTEGER NOT NULL DEFAULT 0,
		symbols_extracted INTEGER NOT NULL DEFAULT 0,
		started_at    TIMESTAMP NOT NULL,
		completed_at  TIMESTAMP,
		error_detail  TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_status ON extraction_jobs(status)`,
}
