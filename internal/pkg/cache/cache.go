// Package cache holds the product read-through cache and the lock used by
// background jobs. Redis backs both in production; the memory variants serve
// single-process runs and tests.
package cache

import (
	"context"
	"time"
)

// DefaultInvalidateTimeout bounds a post-commit invalidation.
const DefaultInvalidateTimeout = 2 * time.Second

// ProductCache stores serialized product snapshots keyed by product id.
//
// Writers call Invalidate, which drops the entry and bumps the product's
// generation. Readers take Generation before loading from the store and fill
// with SetIfGeneration, so a fill racing a write is discarded.
type ProductCache interface {
	Get(ctx context.Context, productID int64) ([]byte, bool, error)
	Generation(ctx context.Context, productID int64) (int64, error)
	SetIfGeneration(ctx context.Context, productID, gen int64, value []byte, ttl time.Duration) (bool, error)
	Invalidate(ctx context.Context, productID int64) error
	Ping(ctx context.Context) error
}

// Locker is a best-effort mutual exclusion lease keyed by name.
type Locker interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}

var (
	_ ProductCache = (*RedisProductCache)(nil)
	_ ProductCache = (*MemoryProductCache)(nil)
	_ Locker       = (*RedisClient)(nil)
	_ Locker       = (*MemoryLocker)(nil)
)

// InvalidateDetached invalidates productID with its own deadline. The caller's
// cancellation is ignored: once the store has committed, the cache must still
// be told.
func InvalidateDetached(ctx context.Context, c ProductCache, productID int64, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultInvalidateTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return c.Invalidate(ctx, productID)
}
