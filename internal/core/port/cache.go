package port

import (
	"context"
	"time"
)

// CacheStats summarizes cache usage for one namespace.
type CacheStats struct {
	TotalKeys   int
	MemoryUsage string
}

// Cache exposes the key-value operations the response cache requires from the
// cache directory. Implementations return repository.ErrNotFound on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	// DeleteByPrefix removes every key under namespace:prefix and reports how
	// many were removed.
	DeleteByPrefix(ctx context.Context, namespace, prefix string) (int64, error)
	Stats(ctx context.Context, namespace string) (CacheStats, error)
}
