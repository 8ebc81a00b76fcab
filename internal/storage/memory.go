package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryBackend is an in-memory Backend used by tests and one-shot
// runs that do not want a database on disk.
type MemoryBackend struct {
	mu       sync.RWMutex
	index    []byte
	clusters map[string][]byte
	meta     map[string]string
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		clusters: make(map[string][]byte),
		meta:     make(map[string]string),
	}
}

// PutIndex replaces the stored master index.
func (m *MemoryBackend) PutIndex(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = append([]byte(nil), data...)
	return nil
}

// Index returns the stored master index, or ErrNotFound.
func (m *MemoryBackend) Index(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.index == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), m.index...), nil
}

// PutClusters replaces the whole cluster payload set.
func (m *MemoryBackend) PutClusters(ctx context.Context, payloads map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clusters = make(map[string][]byte, len(payloads))
	for id, data := range payloads {
		m.clusters[id] = append([]byte(nil), data...)
	}
	return nil
}

// Cluster returns one cluster payload by id, or ErrNotFound.
func (m *MemoryBackend) Cluster(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.clusters[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// ClusterIDs returns the stored cluster ids, sorted.
func (m *MemoryBackend) ClusterIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.clusters))
	for id := range m.clusters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// PutMeta stores one metadata key.
func (m *MemoryBackend) PutMeta(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta[key] = value
	return nil
}

// Meta returns one metadata value, or ErrNotFound.
func (m *MemoryBackend) Meta(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.meta[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Close releases all resources held by the backend.
func (m *MemoryBackend) Close() error {
	return nil
}
