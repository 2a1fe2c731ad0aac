package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

type MemoryProductCache struct {
	mu          sync.Mutex
	entries     map[int64]memoryEntry
	generations map[int64]int64
	now         func() time.Time
}

func NewMemoryProductCache() *MemoryProductCache {
	return &MemoryProductCache{
		entries:     make(map[int64]memoryEntry),
		generations: make(map[int64]int64),
		now:         time.Now,
	}
}

func (c *MemoryProductCache) Get(ctx context.Context, productID int64) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[productID]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, productID)
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (c *MemoryProductCache) Generation(ctx context.Context, productID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[productID], nil
}

func (c *MemoryProductCache) SetIfGeneration(ctx context.Context, productID, gen int64, value []byte, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generations[productID] != gen {
		return false, nil
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	c.entries[productID] = memoryEntry{value: stored, expiresAt: c.now().Add(ttl)}
	return true, nil
}

func (c *MemoryProductCache) Invalidate(ctx context.Context, productID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, productID)
	c.generations[productID]++
	return nil
}

func (c *MemoryProductCache) Ping(ctx context.Context) error { return nil }

// MemoryLocker is a process-local Locker.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]memoryEntry
	now   func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]memoryEntry), now: time.Now}
}

func (l *MemoryLocker) AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.locks[key]; ok && l.now().Before(e.expiresAt) {
		return false, nil
	}
	l.locks[key] = memoryEntry{value: []byte(value), expiresAt: l.now().Add(ttl)}
	return true, nil
}

func (l *MemoryLocker) ReleaseLock(ctx context.Context, key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.locks[key]; ok && string(e.value) == value {
		delete(l.locks, key)
	}
	return nil
}
