package store

import (
	"context"
	"sync"
	"time"

	"github.com/YuminosukeSato/pricefit/pkg/errors"
)

// MemoryStore keeps artifacts in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Artifact
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Artifact)}
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, key string, a Artifact) (time.Time, error) {
	if err := ValidateKey(key); err != nil {
		return time.Time{}, err
	}
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	if err := a.Bundle.Validate(); err != nil {
		return time.Time{}, err
	}
	a.SavedAt = now()

	m.mu.Lock()
	m.items[key] = a
	m.mu.Unlock()
	return a.SavedAt, nil
}

// Load implements Store.
func (m *MemoryStore) Load(ctx context.Context, key string) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	m.mu.RLock()
	a, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return Artifact{}, errors.NewNotFoundError(key)
	}
	return a, nil
}
