package kv

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps values in process memory. Entries never expire.
type MemoryStore struct {
	c *cache.Cache
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v.([]byte)), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.c.Set(key, clone(value), cache.NoExpiration)
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

func (m *MemoryStore) MultiRemove(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.c.Delete(k)
	}
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
