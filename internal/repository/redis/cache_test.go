package redis

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/sunhaoxiang/pure-admin-service/internal/repository"
)

func newTestCache(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := red.NewClient(&red.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCacheRepository(client), server
}

func TestCacheSetGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "api:role:list:default", `{"total":3}`, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	value, err := cache.Get(ctx, "api:role:list:default")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if value != `{"total":3}` {
		t.Fatalf("value = %q", value)
	}
}

func TestCacheGetMiss(t *testing.T) {
	cache, _ := newTestCache(t)

	if _, err := cache.Get(context.Background(), "api:missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCacheGetRequiresKey(t *testing.T) {
	cache, _ := newTestCache(t)

	if _, err := cache.Get(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestCacheSetRespectsTTL(t *testing.T) {
	cache, server := newTestCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "api:user:info:7:default", "{}", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	server.FastForward(2 * time.Minute)

	if _, err := cache.Get(ctx, "api:user:info:7:default"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected entry to expire, got %v", err)
	}
}

func TestCacheDelete(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "api:menu:tree:default", "{}", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := cache.Delete(ctx, "api:menu:tree:default", "api:never-existed"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := cache.Get(ctx, "api:menu:tree:default"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("key survived delete: %v", err)
	}
}

func TestCacheKeys(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	seed := []string{"api:role:list:default", "api:role:all:default", "api:menu:tree:default"}
	for _, key := range seed {
		if err := cache.Set(ctx, key, "{}", 0); err != nil {
			t.Fatalf("Set(%s): %v", key, err)
		}
	}

	keys, err := cache.Keys(ctx, "api:role:*")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	sort.Strings(keys)

	want := []string{"api:role:all:default", "api:role:list:default"}
	if len(keys) != len(want) || keys[0] != want[0] || keys[1] != want[1] {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
}

func TestCacheDeleteByPrefix(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	seed := []string{
		"api:role:list:default",
		"api:role:list:name-admin",
		"api:role:all:default",
		"api:menu:tree:default",
	}
	for _, key := range seed {
		if err := cache.Set(ctx, key, "{}", 0); err != nil {
			t.Fatalf("Set(%s): %v", key, err)
		}
	}

	removed, err := cache.DeleteByPrefix(ctx, "api", "role:list")
	if err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}

	if _, err := cache.Get(ctx, "api:role:all:default"); err != nil {
		t.Fatalf("role:all entry was evicted: %v", err)
	}
	if _, err := cache.Get(ctx, "api:menu:tree:default"); err != nil {
		t.Fatalf("menu:tree entry was evicted: %v", err)
	}
}

func TestCacheDeleteByPrefixStopsAtSeparator(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	for _, key := range []string{"api:user:info:42:default", "api:user:info:420:default"} {
		if err := cache.Set(ctx, key, "{}", 0); err != nil {
			t.Fatalf("Set(%s): %v", key, err)
		}
	}

	removed, err := cache.DeleteByPrefix(ctx, "api", "user:info:42:")
	if err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := cache.Get(ctx, "api:user:info:420:default"); err != nil {
		t.Fatalf("entry for user 420 was evicted: %v", err)
	}
}

func TestCacheDeleteByPrefixNoMatches(t *testing.T) {
	cache, _ := newTestCache(t)

	removed, err := cache.DeleteByPrefix(context.Background(), "api", "role:list")
	if err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
}

func TestCacheDeleteByPrefixRequiresPrefix(t *testing.T) {
	cache, _ := newTestCache(t)

	if _, err := cache.DeleteByPrefix(context.Background(), "api", "  "); err == nil {
		t.Fatalf("expected error for blank prefix")
	}
}

func TestCacheStats(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	for _, key := range []string{"api:role:list:default", "api:menu:tree:default", "other:key"} {
		if err := cache.Set(ctx, key, "{}", 0); err != nil {
			t.Fatalf("Set(%s): %v", key, err)
		}
	}

	stats, err := cache.Stats(ctx, "api")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalKeys != 2 {
		t.Fatalf("TotalKeys = %d, want 2", stats.TotalKeys)
	}
	if stats.MemoryUsage == "" {
		t.Fatalf("MemoryUsage is empty, want a value or the unknown fallback")
	}
}
