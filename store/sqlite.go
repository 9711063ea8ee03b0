package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/YuminosukeSato/pricefit/pkg/errors"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS models (
    key      TEXT PRIMARY KEY,
    payload  BLOB NOT NULL,
    checksum INTEGER NOT NULL,
    saved_at DATETIME NOT NULL
);`

// SQLiteStore keeps artifacts in a single sqlite table, one row per key.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, errors.NewModelError("OpenSQLite", "open", err)
	}
	// one writer at a time; also serializes Save/Load per key
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.NewModelError("OpenSQLite", "create schema", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, key string, a Artifact) (time.Time, error) {
	if err := ValidateKey(key); err != nil {
		return time.Time{}, err
	}
	if err := a.Bundle.Validate(); err != nil {
		return time.Time{}, err
	}
	savedAt := now()
	payload, sum, err := encodeArtifact(a, savedAt)
	if err != nil {
		return time.Time{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, errors.NewModelError("SQLiteStore.Save", "begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO models (key, payload, checksum, saved_at) VALUES (?, ?, ?, ?)`,
		key, payload, int64(sum), savedAt.Format(time.RFC3339Nano))
	if err != nil {
		return time.Time{}, errors.NewModelError("SQLiteStore.Save", "insert", err)
	}
	if err := tx.Commit(); err != nil {
		return time.Time{}, errors.NewModelError("SQLiteStore.Save", "commit", err)
	}
	return savedAt, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, key string) (Artifact, error) {
	var (
		payload []byte
		sum     int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, checksum FROM models WHERE key = ?`, key).Scan(&payload, &sum)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, errors.NewNotFoundError(key)
	}
	if err != nil {
		return Artifact{}, errors.NewModelError("SQLiteStore.Load", "query", err)
	}
	return unmarshal(payload, uint64(sum))
}
