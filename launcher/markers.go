package launcher

import (
	"context"
	"sync"
)

// MarkerSet tracks which task timestamps have a launch in flight.
// TryAdd must be atomic: of several concurrent callers with the same key,
// exactly one gets true until Remove is called.
type MarkerSet interface {
	TryAdd(ctx context.Context, key string) (bool, error)
	Remove(ctx context.Context, key string) error
	Contains(ctx context.Context, key string) (bool, error)
}

// MemoryMarkers is a process-local MarkerSet.
type MemoryMarkers struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewMemoryMarkers creates an empty set.
func NewMemoryMarkers() *MemoryMarkers {
	return &MemoryMarkers{keys: make(map[string]struct{})}
}

// TryAdd adds key if absent and reports whether it did.
func (m *MemoryMarkers) TryAdd(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, held := m.keys[key]; held {
		return false, nil
	}
	m.keys[key] = struct{}{}
	return true, nil
}

// Remove deletes key. Removing an absent key is a no-op.
func (m *MemoryMarkers) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.keys, key)
	m.mu.Unlock()
	return nil
}

// Contains reports whether key is held.
func (m *MemoryMarkers) Contains(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.keys[key]
	return held, nil
}

// Len returns the number of held keys.
func (m *MemoryMarkers) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}
