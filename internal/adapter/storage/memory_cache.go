package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/aircraft-factory/internal/port"
)

var _ port.CacheRepository = (*MemoryCache)(nil)

// MemoryCache is a process-local CacheRepository for single-instance
// deployments without Redis.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// live reports whether key is present and unexpired. Caller holds mu.
func (m *MemoryCache) live(key string) bool {
	exp, ok := m.entries[key]
	if !ok {
		return false
	}
	if m.now().After(exp) {
		delete(m.entries, key)
		return false
	}
	return true
}

func (m *MemoryCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.live(key) {
		return false, nil
	}
	m.entries[key] = m.now().Add(idempotencyKeyTTL)
	return true, nil
}

func (m *MemoryCache) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryCache) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[revokedTokenPrefix+tokenID] = m.now().Add(ttl)
	return nil
}

func (m *MemoryCache) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live(revokedTokenPrefix + tokenID), nil
}
