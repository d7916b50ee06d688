// Package cache holds the latest snapshot of every dataset for readers.
package cache

import (
	"context"
	"sync"

	"github.com/IshaanNene/outbreak/internal/types"
)

// Repository stores one snapshot per dataset. Put replaces the whole value;
// readers never observe a partial update.
type Repository interface {
	Get(dataset types.Dataset) (types.Snapshot, bool)
	Put(ctx context.Context, snap types.Snapshot) error
}

// MemoryStore is a Repository kept in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[types.Dataset]types.Snapshot
}

// NewMemoryStore creates an empty in-memory repository.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[types.Dataset]types.Snapshot, len(types.Datasets))}
}

// Get returns the snapshot for a dataset, or false if none has been stored.
func (m *MemoryStore) Get(dataset types.Dataset) (types.Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.items[dataset]
	return snap, ok
}

// Put replaces the snapshot for snap.Dataset.
func (m *MemoryStore) Put(_ context.Context, snap types.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[snap.Dataset] = snap
	return nil
}

// Datasets returns the datasets currently held.
func (m *MemoryStore) Datasets() []types.Dataset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Dataset, 0, len(m.items))
	for _, d := range types.Datasets {
		if _, ok := m.items[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

// World returns the cached world summary.
func World(r Repository) (types.WorldSummary, bool) {
	snap, ok := r.Get(types.DatasetWorld)
	if !ok {
		return types.WorldSummary{}, false
	}
	w, ok := snap.Value.(types.WorldSummary)
	return w, ok
}

// Countries returns the cached country records, or an empty slice.
func Countries(r Repository) []types.CountryRecord {
	snap, ok := r.Get(types.DatasetCountries)
	if !ok {
		return []types.CountryRecord{}
	}
	records, ok := snap.Value.([]types.CountryRecord)
	if !ok || records == nil {
		return []types.CountryRecord{}
	}
	return records
}

// News returns the cached articles, or an empty slice.
func News(r Repository) []types.NewsArticle {
	snap, ok := r.Get(types.DatasetNews)
	if !ok {
		return []types.NewsArticle{}
	}
	articles, ok := snap.Value.([]types.NewsArticle)
	if !ok || articles == nil {
		return []types.NewsArticle{}
	}
	return articles
}
