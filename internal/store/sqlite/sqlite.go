// Package sqlite provides a SQLite-backed implementation of the
// store.Store interface using the pure Go driver (no CGO).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/tallied-dev/tallied/internal/store"
)

// Ensure SQLiteStore implements store.Store.
var _ store.Store = (*SQLiteStore)(nil)

// SQLiteStore persists documents in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath, creating parent
// directories and running migrations.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load returns the document for kind/id, or store.ErrNotFound.
func (s *SQLiteStore) Load(ctx context.Context, kind, id string) ([]byte, error) {
	var record []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT record FROM documents WHERE kind = ? AND id = ?", kind, id,
	).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s/%s: %w", kind, id, err)
	}
	return record, nil
}

// Save upserts the document for kind/id, preserving the original insertion
// sequence on overwrite.
func (s *SQLiteStore) Save(ctx context.Context, kind, id string, record []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (kind, id, record) VALUES (?, ?, ?)
		 ON CONFLICT(kind, id) DO UPDATE SET record = excluded.record`,
		kind, id, record,
	)
	if err != nil {
		return fmt.Errorf("saving %s/%s: %w", kind, id, err)
	}
	return nil
}

// List returns all documents of a kind in insertion order.
func (s *SQLiteStore) List(ctx context.Context, kind string) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT record FROM documents WHERE kind = ? ORDER BY seq", kind,
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", kind, err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", kind, err)
	}
	return out, nil
}

// Delete removes the document for kind/id.
func (s *SQLiteStore) Delete(ctx context.Context, kind, id string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE kind = ? AND id = ?", kind, id,
	); err != nil {
		return fmt.Errorf("deleting %s/%s: %w", kind, id, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
