package fetchlog

import (
	"context"
	"sync"
)

// MemoryStore keeps the most recent entries in a fixed-size ring.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
	next    int
	full    bool
}

// NewMemoryStore creates a ring holding capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = MaxLimit
	}
	return &MemoryStore{entries: make([]*Entry, capacity)}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// Record stores a copy of e, evicting the oldest entry when full.
func (m *MemoryStore) Record(_ context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *e
	m.entries[m.next] = &cp
	m.next = (m.next + 1) % len(m.entries)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Recent returns the newest entries first.
func (m *MemoryStore) Recent(_ context.Context, endpoint string, limit int) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit = ClampLimit(limit)
	size := m.next
	if m.full {
		size = len(m.entries)
	}

	out := make([]*Entry, 0, min(limit, size))
	for i := 1; i <= size && len(out) < limit; i++ {
		e := m.entries[(m.next-i+len(m.entries))%len(m.entries)]
		if endpoint != "" && e.Endpoint != endpoint {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}
