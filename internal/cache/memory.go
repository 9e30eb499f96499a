package cache

import (
	"context"
	"sync"
)

// Memory is an in-process tier. It is also a complete Store on its own,
// which is what tests use.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]int64
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]int64)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Get(_ context.Context, id string) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ts, ok := m.entries[id]
	return ts, ok, nil
}

func (m *Memory) Put(_ context.Context, id string, timestamp int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = timestamp
	return nil
}

func (m *Memory) Remove(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[id]
	delete(m.entries, id)
	return ok, nil
}

func (m *Memory) Len(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.entries)), nil
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]int64)
	return nil
}
