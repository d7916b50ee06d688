package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/outbreak/internal/storage"
	"github.com/IshaanNene/outbreak/internal/types"
)

// storedSnapshot is the encoded form written to a durable backend.
type storedSnapshot struct {
	Dataset   types.Dataset   `json:"dataset"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// PersistentStore is a MemoryStore that writes every Put through to a
// durable backend. The in-memory value is authoritative for readers.
type PersistentStore struct {
	*MemoryStore
	backend storage.SnapshotStore
	logger  *slog.Logger
}

// NewPersistentStore wraps a memory store around backend.
func NewPersistentStore(backend storage.SnapshotStore, logger *slog.Logger) *PersistentStore {
	return &PersistentStore{
		MemoryStore: NewMemoryStore(),
		backend:     backend,
		logger:      logger.With("component", "cache", "backend", backend.Name()),
	}
}

// Put updates memory first, then the backend. A backend failure is
// returned but the in-memory value stays updated.
func (p *PersistentStore) Put(ctx context.Context, snap types.Snapshot) error {
	if err := p.MemoryStore.Put(ctx, snap); err != nil {
		return err
	}

	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := p.backend.Save(ctx, snap.Dataset, data); err != nil {
		p.logger.Warn("write-through failed", "dataset", snap.Dataset, "error", err)
		return err
	}
	return nil
}

// Warm loads every dataset present in the backend into memory. Missing
// datasets are skipped; other failures are logged and skipped too.
func (p *PersistentStore) Warm(ctx context.Context) int {
	loaded := 0
	for _, dataset := range types.Datasets {
		data, err := p.backend.Load(ctx, dataset)
		if errors.Is(err, types.ErrNotStored) {
			continue
		}
		if err != nil {
			p.logger.Warn("warm load failed", "dataset", dataset, "error", err)
			continue
		}

		snap, err := decodeSnapshot(dataset, data)
		if err != nil {
			p.logger.Warn("discarding undecodable snapshot", "dataset", dataset, "error", err)
			continue
		}
		_ = p.MemoryStore.Put(ctx, snap)
		loaded++
	}

	p.logger.Info("cache warmed", "datasets", loaded)
	return loaded
}

// Close closes the durable backend.
func (p *PersistentStore) Close() error {
	return p.backend.Close()
}

func encodeSnapshot(snap types.Snapshot) ([]byte, error) {
	value, err := json.Marshal(snap.Value)
	if err != nil {
		return nil, fmt.Errorf("encode %s snapshot: %w", snap.Dataset, err)
	}
	return json.Marshal(storedSnapshot{
		Dataset:   snap.Dataset,
		Value:     value,
		UpdatedAt: snap.UpdatedAt,
	})
}

func decodeSnapshot(dataset types.Dataset, data []byte) (types.Snapshot, error) {
	var stored storedSnapshot
	if err := json.Unmarshal(data, &stored); err != nil {
		return types.Snapshot{}, fmt.Errorf("decode envelope: %w", err)
	}

	var value any
	switch dataset {
	case types.DatasetWorld:
		var w types.WorldSummary
		if err := json.Unmarshal(stored.Value, &w); err != nil {
			return types.Snapshot{}, err
		}
		value = w
	case types.DatasetCountries:
		var records []types.CountryRecord
		if err := json.Unmarshal(stored.Value, &records); err != nil {
			return types.Snapshot{}, err
		}
		value = records
	case types.DatasetNews:
		var articles []types.NewsArticle
		if err := json.Unmarshal(stored.Value, &articles); err != nil {
			return types.Snapshot{}, err
		}
		value = articles
	default:
		return types.Snapshot{}, fmt.Errorf("unknown dataset %q", dataset)
	}

	return types.Snapshot{Dataset: dataset, Value: value, UpdatedAt: stored.UpdatedAt}, nil
}
