package cache

import (
	"context"
	"sync"
	"time"

	"TrendSignal/internal/model"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[model.CacheKey]model.CacheEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[model.CacheKey]model.CacheEntry)}
}

func (m *MemoryStore) Get(_ context.Context, key model.CacheKey) (model.CacheEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return model.CacheEntry{}, false, nil
	}
	e.Series = e.Series.Clone()
	return e, true, nil
}

func (m *MemoryStore) Put(_ context.Context, key model.CacheKey, series *model.TimeSeries, fetchedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.entries[key]; ok && fetchedAt.Before(cur.FetchedAt) {
		return nil
	}
	m.entries[key] = model.CacheEntry{
		Key:        key,
		Series:     series.Clone(),
		FetchedAt:  fetchedAt.UTC(),
		Provenance: model.ProvenanceCache,
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
