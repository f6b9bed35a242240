package store

import (
	"context"
	"sync"
)

// MemoryStore keeps the document in memory. Data is lost on restart.
// Safe for concurrent use.
type MemoryStore struct {
	feed
	mu     sync.RWMutex
	data   map[string]any
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]any)}
}

func (m *MemoryStore) Get(_ context.Context, keys ...string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	if len(keys) == 0 {
		keys = make([]string, 0, len(m.data))
		for k := range m.data {
			keys = append(keys, k)
		}
	}
	result := make(map[string]any, len(keys))
	for _, k := range keys {
		v, ok := m.data[k]
		if !ok {
			continue
		}
		c, err := cloneValue(v)
		if err != nil {
			return nil, err
		}
		result[k] = c
	}
	return result, nil
}

func (m *MemoryStore) Set(_ context.Context, items map[string]any) error {
	stored := make(map[string]any, len(items))
	published := make(map[string]any, len(items))
	for k, v := range items {
		c, err := cloneValue(v)
		if err != nil {
			return err
		}
		stored[k] = c
		// Listeners get their own copy so they cannot reach into the document.
		published[k], _ = cloneValue(c)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	changes := diffSet(m.data, published)
	for k, v := range stored {
		m.data[k] = v
	}
	m.enqueue(changes)
	m.mu.Unlock()

	m.flush()
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	changes := diffRemove(m.data, keys)
	for _, k := range keys {
		delete(m.data, k)
	}
	m.enqueue(changes)
	m.mu.Unlock()

	m.flush()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	changes := ChangeSet{}
	for k, v := range m.data {
		changes[k] = Change{OldValue: v}
	}
	m.data = make(map[string]any)
	m.enqueue(changes)
	m.mu.Unlock()

	m.flush()
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
