// Package mirror persists the last successful response body for each cache
// key, so a restarted client has something to show before the network
// answers. Only successful responses are ever saved.
package mirror

import (
	"context"
	"sync"
)

// Store holds snapshots keyed by cache key
type Store interface {
	// Load returns the snapshot for key and whether one exists
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, body []byte) error
	Close() error
}

// Open returns a SQLite mirror at path, or an in-memory one when path is empty
func Open(path string) (Store, error) {
	if path == "" {
		return NewMemory(), nil
	}
	return OpenSQLite(path)
}

// Memory is a process-local Store
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemory creates an empty in-memory mirror
func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func (m *Memory) Load(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	body, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), body...), true, nil
}

func (m *Memory) Save(ctx context.Context, key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = append([]byte(nil), body...)
	return nil
}

func (m *Memory) Close() error { return nil }
