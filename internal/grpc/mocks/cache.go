package mocks

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/godilite/nps-insights/pkg/cache"
)

// MemoryStore is an in-process cache.Store that serialises values like the redis store does.
type MemoryStore struct {
	mu      sync.Mutex
	items   map[string][]byte
	Deleted []string

	GetErr error
	SetErr error
}

var _ cache.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, key string, dest any) error {
	if m.GetErr != nil {
		return m.GetErr
	}
	m.mu.Lock()
	raw, ok := m.items[key]
	m.mu.Unlock()
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *MemoryStore) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
		m.Deleted = append(m.Deleted, k)
	}
	return nil
}

// Has reports whether key is currently stored.
func (m *MemoryStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[key]
	return ok
}

func (m *MemoryStore) Close() error { return nil }
