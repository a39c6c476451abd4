package localstore

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, scope, key string) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[scope][key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (m *MemoryStore) Set(ctx context.Context, scope, key string, value []byte) error {
	return m.SetMany(ctx, scope, map[string][]byte{key: value})
}

func (m *MemoryStore) SetMany(_ context.Context, scope string, values map[string][]byte) error {
	for key := range values {
		if err := checkKey(key); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries, ok := m.values[scope]
	if !ok {
		entries = make(map[string][]byte)
		m.values[scope] = entries
	}
	for key, value := range values {
		entries[key] = append([]byte(nil), value...)
	}
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
