package credentials

import (
	"context"
	"sync"
)

// MemoryStore implements in-memory credential storage
type MemoryStore struct {
	pair Pair
	mu   sync.RWMutex
}

// NewMemoryStore creates a new memory store instance
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns the stored pair
func (m *MemoryStore) Get(_ context.Context) Pair {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.pair
}

// Set writes the provided fields
func (m *MemoryStore) Set(_ context.Context, pair Pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pair = merge(m.pair, pair)
	return nil
}

// Clear removes both credentials
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pair = Pair{}
	return nil
}

// Close is a no-op for memory storage
func (m *MemoryStore) Close() error {
	return nil
}
