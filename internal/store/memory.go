package store

import (
	"context"
	"sync"
)

// Ensure Memory implements Store.
var _ Store = (*Memory)(nil)

// Memory is an in-process Store used by tests and embedding callers.
type Memory struct {
	mu    sync.RWMutex
	docs  map[string]map[string][]byte // kind -> id -> record
	order map[string][]string          // kind -> ids in insertion order
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs:  make(map[string]map[string][]byte),
		order: make(map[string][]string),
	}
}

// Load returns the document for kind/id, or ErrNotFound.
func (m *Memory) Load(_ context.Context, kind, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.docs[kind][id]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(rec))
	copy(out, rec)
	return out, nil
}

// Save writes the document for kind/id.
func (m *Memory) Save(_ context.Context, kind, id string, record []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.docs[kind] == nil {
		m.docs[kind] = make(map[string][]byte)
	}
	if _, exists := m.docs[kind][id]; !exists {
		m.order[kind] = append(m.order[kind], id)
	}
	rec := make([]byte, len(record))
	copy(rec, record)
	m.docs[kind][id] = rec
	return nil
}

// List returns all documents of a kind in insertion order.
func (m *Memory) List(_ context.Context, kind string) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.order[kind]
	out := make([][]byte, 0, len(ids))
	for _, id := range ids {
		if rec, ok := m.docs[kind][id]; ok {
			cp := make([]byte, len(rec))
			copy(cp, rec)
			out = append(out, cp)
		}
	}
	return out, nil
}

// Delete removes the document for kind/id.
func (m *Memory) Delete(_ context.Context, kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[kind][id]; !ok {
		return nil
	}
	delete(m.docs[kind], id)
	ids := m.order[kind]
	for i, v := range ids {
		if v == id {
			m.order[kind] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }
