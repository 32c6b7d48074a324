// Package metadata is the relational store for note and attachment records,
// backed by SQLite.
package metadata

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/quire/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	file_path  TEXT NOT NULL,
	is_deleted INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS attachments (
	id              TEXT PRIMARY KEY,
	note_id         TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	attachment_type TEXT NOT NULL DEFAULT '',
	file_name       TEXT NOT NULL,
	file_path       TEXT NOT NULL,
	mime_type       TEXT,
	size_bytes      INTEGER,
	created_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attachments_note_id ON attachments(note_id);
CREATE INDEX IF NOT EXISTS idx_notes_updated ON notes(updated_at DESC);
`

// DefaultMaxOpenConns bounds the connection pool when the caller passes zero.
const DefaultMaxOpenConns = 5

// SQLite understands the default "?" placeholders.
var builder = sq.StatementBuilder

// Store wraps a sqlx.DB with note and attachment operations.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(path string, maxOpenConns int) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("metadata: open db: %w", err)
	}
	if maxOpenConns <= 0 {
		maxOpenConns = DefaultMaxOpenConns
	}
	db.SetMaxOpenConns(maxOpenConns)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("metadata: ping: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("metadata: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an already opened handle. The schema is not applied.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperr.Store("metadata.ping", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
