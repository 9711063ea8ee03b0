package store

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/YuminosukeSato/pricefit/pkg/errors"
)

// CachedStore is a read-through LRU cache in front of another Store.
//
// Save writes through to the inner store first and only then updates the
// cache, so a failed save never leaves a cached artifact that was not persisted.
type CachedStore struct {
	inner Store
	cache *lru.Cache[string, Artifact]
}

// NewCachedStore wraps inner with an LRU cache holding up to size artifacts.
func NewCachedStore(inner Store, size int) (*CachedStore, error) {
	if size <= 0 {
		return nil, errors.NewValidationError("cache_size", "must be positive", size)
	}
	c, err := lru.New[string, Artifact](size)
	if err != nil {
		return nil, errors.Wrap(err, "create lru cache")
	}
	return &CachedStore{inner: inner, cache: c}, nil
}

// Save implements Store.
func (c *CachedStore) Save(ctx context.Context, key string, a Artifact) (time.Time, error) {
	savedAt, err := c.inner.Save(ctx, key, a)
	if err != nil {
		return time.Time{}, err
	}
	a.SavedAt = savedAt
	c.cache.Add(key, a)
	return savedAt, nil
}

// Load implements Store.
func (c *CachedStore) Load(ctx context.Context, key string) (Artifact, error) {
	if a, ok := c.cache.Get(key); ok {
		return a, nil
	}
	a, err := c.inner.Load(ctx, key)
	if err != nil {
		return Artifact{}, err
	}
	c.cache.Add(key, a)
	return a, nil
}

// Invalidate drops key from the cache so the next Load reads the inner store.
func (c *CachedStore) Invalidate(key string) {
	c.cache.Remove(key)
}

// Len returns the number of cached artifacts.
func (c *CachedStore) Len() int {
	return c.cache.Len()
}
