package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/IshaanNene/outbreak/internal/types"
)

// FileStore keeps one JSON file per dataset in a directory. Writes go to a
// temporary file first and are renamed into place.
type FileStore struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileStore creates a file store rooted at dir.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "file", Err: fmt.Errorf("create data dir: %w", err)}
	}

	return &FileStore{
		dir:    dir,
		logger: logger.With("component", "file_storage"),
	}, nil
}

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) path(dataset types.Dataset) string {
	return filepath.Join(s.dir, string(dataset)+".json")
}

func (s *FileStore) Save(_ context.Context, dataset types.Dataset, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, string(dataset)+".*.tmp")
	if err != nil {
		return &types.StorageError{Backend: "file", Err: fmt.Errorf("create temp file: %w", err)}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &types.StorageError{Backend: "file", Err: fmt.Errorf("write snapshot: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return &types.StorageError{Backend: "file", Err: fmt.Errorf("close snapshot: %w", err)}
	}
	if err := os.Rename(tmp.Name(), s.path(dataset)); err != nil {
		return &types.StorageError{Backend: "file", Err: fmt.Errorf("rename snapshot: %w", err)}
	}

	s.logger.Debug("snapshot written", "dataset", dataset, "bytes", len(data))
	return nil
}

func (s *FileStore) Load(_ context.Context, dataset types.Dataset) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(dataset))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notStored("file", dataset)
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "file", Err: fmt.Errorf("read snapshot: %w", err)}
	}
	return data, nil
}

func (s *FileStore) Close() error {
	s.logger.Info("file storage closing", "dir", s.dir)
	return nil
}
