// Package storage persists dataset snapshots outside the process.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/IshaanNene/outbreak/internal/config"
	"github.com/IshaanNene/outbreak/internal/types"
)

// SnapshotStore is the interface for all durable snapshot backends. Each
// dataset holds one encoded value; Save replaces it entirely.
type SnapshotStore interface {
	// Save replaces the stored value for a dataset.
	Save(ctx context.Context, dataset types.Dataset, data []byte) error

	// Load returns the stored value, or an error wrapping types.ErrNotStored.
	Load(ctx context.Context, dataset types.Dataset) ([]byte, error)

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// New opens the backend selected by storage.type. The memory type has no
// durable backend and returns nil. A comma-separated list opens every named
// backend behind a MultiStore.
func New(cfg config.StorageConfig, logger *slog.Logger) (SnapshotStore, error) {
	names := cfg.Backends()
	if len(names) == 0 || (len(names) == 1 && names[0] == "memory") {
		return nil, nil
	}
	if len(names) == 1 {
		return open(names[0], cfg, logger)
	}

	backends := make([]SnapshotStore, 0, len(names))
	for _, name := range names {
		if name == "memory" {
			closeAll(backends)
			return nil, &types.ConfigError{
				Key: "storage.type",
				Err: fmt.Errorf("memory cannot be combined with other backends"),
			}
		}
		store, err := open(name, cfg, logger)
		if err != nil {
			closeAll(backends)
			return nil, err
		}
		backends = append(backends, store)
	}
	return NewMultiStore(backends, logger), nil
}

func open(name string, cfg config.StorageConfig, logger *slog.Logger) (SnapshotStore, error) {
	switch name {
	case "file":
		return NewFileStore(cfg.Path, logger)
	case "sqlite":
		return NewSQLiteStore(filepath.Join(cfg.Path, "outbreak.sqlite"), logger)
	case "mongo":
		return NewMongoStore(cfg.URI, cfg.Database, "snapshots", cfg.Timeout, logger)
	case "redis":
		return NewRedisStore(cfg.URI, cfg.Prefix, cfg.Timeout, logger)
	default:
		return nil, &types.ConfigError{
			Key: "storage.type",
			Err: fmt.Errorf("unsupported storage type: %s", name),
		}
	}
}

func closeAll(stores []SnapshotStore) {
	for _, s := range stores {
		_ = s.Close()
	}
}

func notStored(backend string, dataset types.Dataset) error {
	return &types.StorageError{
		Backend: backend,
		Err:     fmt.Errorf("%w: %s", types.ErrNotStored, dataset),
	}
}
