package lease

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Leases do not survive a restart.
type MemoryStore struct {
	mu     sync.Mutex
	leases map[string]time.Time
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory lease store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leases: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Acquire implements Store.
func (m *MemoryStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expiry, ok := m.leases[key]; ok && expiry.After(now) {
		return false, nil
	}
	m.leases[key] = now.Add(ttl)
	return true, nil
}

// Release implements Store.
func (m *MemoryStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.leases, key)
	return nil
}

// Held implements Store.
func (m *MemoryStore) Held(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, ok := m.leases[key]
	return ok && expiry.After(m.now()), nil
}
