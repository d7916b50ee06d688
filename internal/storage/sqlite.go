package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/IshaanNene/outbreak/internal/types"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS json (
	ID TEXT PRIMARY KEY,
	json TEXT NOT NULL,
	updated_at INTEGER NOT NULL DEFAULT (unixepoch())
)`

// SQLiteStore keeps snapshots as rows of a key/value table.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path. The path
// ":memory:" gives a private in-memory database.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("create data dir: %w", err)}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("open: %w", err)}
	}
	// One connection keeps ":memory:" databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("create schema: %w", err)}
	}

	return &SQLiteStore{
		db:     db,
		path:   path,
		logger: logger.With("component", "sqlite_storage"),
	}, nil
}

func (s *SQLiteStore) Name() string { return "sqlite" }

func (s *SQLiteStore) Save(ctx context.Context, dataset types.Dataset, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO json (ID, json, updated_at) VALUES (?, ?, unixepoch())
		 ON CONFLICT(ID) DO UPDATE SET json = excluded.json, updated_at = excluded.updated_at`,
		string(dataset), string(data),
	)
	if err != nil {
		return &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("upsert %s: %w", dataset, err)}
	}
	s.logger.Debug("snapshot written", "dataset", dataset, "bytes", len(data))
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, dataset types.Dataset) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT json FROM json WHERE ID = ?`, string(dataset)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notStored("sqlite", dataset)
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("select %s: %w", dataset, err)}
	}
	return []byte(value), nil
}

func (s *SQLiteStore) Close() error {
	s.logger.Info("sqlite storage closing", "path", s.path)
	return s.db.Close()
}
