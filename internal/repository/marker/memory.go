package marker

import (
	"context"
	"sync"
)

// Memory keeps markers for the lifetime of the process.
type Memory struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemory creates an empty in-process marker store.
func NewMemory() *Memory {
	return &Memory{seen: make(map[string]struct{})}
}

// MarkOnce claims searchID and reports whether this call was the first.
func (m *Memory) MarkOnce(_ context.Context, searchID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[searchID]; ok {
		return false, nil
	}
	m.seen[searchID] = struct{}{}
	return true, nil
}

// Marked reports whether searchID has been claimed.
func (m *Memory) Marked(_ context.Context, searchID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[searchID]
	return ok, nil
}
