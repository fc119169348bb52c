// Package store is the SQLite data access layer for analysis results:
// analyzed files, per-domain results, diagnostics, and run telemetry.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite database holding taproot's five tables.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// schemaVersion is bumped whenever schemaDDL changes shape.
const schemaVersion = "1"

// Migrate creates all tables and indexes and records the schema version in
// the metadata table. Idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := s.SetMetadata("schema_version", schemaVersion); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  language        TEXT NOT NULL,
  hash            TEXT,
  line_count      INTEGER,
  last_analyzed   TIMESTAMP
);

-- One row per (file, domain) analysis outcome. domain is 'type' or
-- 'concrete'; result is the rendered type or value.
CREATE TABLE IF NOT EXISTS analyses (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  domain          TEXT NOT NULL,
  result          TEXT NOT NULL,
  duration_us     INTEGER
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  domain          TEXT NOT NULL,
  kind            TEXT NOT NULL,
  message         TEXT NOT NULL
);

-- Run telemetry: one row per AnalyzeDirectory invocation.
CREATE TABLE IF NOT EXISTS runs (
  id              INTEGER PRIMARY KEY,
  started_at      TIMESTAMP,
  duration_ms     INTEGER,
  commit_hash     TEXT,
  branch          TEXT,
  dirty           BOOLEAN,
  files_total     INTEGER,
  files_failed    INTEGER
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT
);

CREATE INDEX IF NOT EXISTS idx_analyses_file ON analyses(file_id);
CREATE INDEX IF NOT EXISTS idx_diagnostics_file ON diagnostics(file_id);
CREATE INDEX IF NOT EXISTS idx_files_language ON files(language);
`
