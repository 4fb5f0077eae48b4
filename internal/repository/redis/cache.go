package redis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/port"
	"github.com/sunhaoxiang/pure-admin-service/internal/repository"
)

var usedMemoryHumanRegex = regexp.MustCompile(`used_memory_human:([^\r\n]+)`)

// CacheRepository implements port.Cache on top of Redis strings. Prefix
// invalidation scans matching keys and removes them with UNLINK so eviction
// happens off the main thread.
type CacheRepository struct {
	client *red.Client
}

// NewCacheRepository constructs a Redis-backed cache directory.
func NewCacheRepository(client *red.Client) *CacheRepository {
	return &CacheRepository{client: client}
}

// Get fetches a cached value, returning ErrNotFound on cache miss.
func (r *CacheRepository) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("cache key is required")
	}

	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("redis get: %w", err)
	}

	return value, nil
}

// Set stores a value under the key. A non-positive TTL stores without expiry.
func (r *CacheRepository) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("cache key is required")
	}
	if ttl < 0 {
		ttl = 0
	}

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the given keys. Missing keys are ignored.
func (r *CacheRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := r.client.Unlink(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis unlink: %w", err)
	}
	return nil
}

// Keys returns the keys matching the glob pattern.
func (r *CacheRepository) Keys(ctx context.Context, pattern string) ([]string, error) {
	if pattern == "" {
		return nil, fmt.Errorf("pattern is required")
	}

	keys, err := r.client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, fmt.Errorf("redis keys: %w", err)
	}
	return keys, nil
}

// DeleteByPrefix removes every key under namespace:prefix and reports how
// many were removed.
func (r *CacheRepository) DeleteByPrefix(ctx context.Context, namespace, prefix string) (int64, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return 0, fmt.Errorf("prefix is required")
	}

	pattern := prefix + "*"
	if namespace != "" {
		pattern = namespace + ":" + pattern
	}

	keys, err := r.Keys(ctx, pattern)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	removed, err := r.client.Unlink(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis unlink by prefix: %w", err)
	}

	return removed, nil
}

// Stats reports the number of keys in the namespace and the server's memory
// usage as Redis formats it.
func (r *CacheRepository) Stats(ctx context.Context, namespace string) (port.CacheStats, error) {
	pattern := "*"
	if namespace != "" {
		pattern = namespace + ":*"
	}

	keys, err := r.Keys(ctx, pattern)
	if err != nil {
		return port.CacheStats{}, err
	}

	stats := port.CacheStats{TotalKeys: len(keys), MemoryUsage: "unknown"}

	// INFO may be disabled on managed deployments; key counting still works.
	info, err := r.client.Info(ctx, "memory").Result()
	if err == nil {
		if match := usedMemoryHumanRegex.FindStringSubmatch(info); len(match) == 2 {
			stats.MemoryUsage = strings.TrimSpace(match[1])
		}
	}

	return stats, nil
}

var _ port.Cache = (*CacheRepository)(nil)
