// Package storage provides the durable key/value storage that backs the
// portal's session and configuration cache, the server-side counterpart
// of browser local storage.
package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("storage: key not found")

// Store is a flat string key/value store.
// Implementations are safe for concurrent use.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set creates or replaces the value for key.
	Set(ctx context.Context, key, value string) error
	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// Keys lists every key that starts with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// DeletePrefix removes every key starting with prefix and returns how
// many keys were removed.
func DeletePrefix(ctx context.Context, s Store, prefix string) (int, error) {
	keys, err := s.Keys(ctx, prefix)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := s.Delete(ctx, keys...); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// MemoryStore keeps values in process memory. Used for tests and for
// ephemeral workspaces.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return matchKeys(m.values, prefix), nil
}

// Len reports the number of stored keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

func matchKeys(values map[string]string, prefix string) []string {
	keys := make([]string, 0)
	for k := range values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
