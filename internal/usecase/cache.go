package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/port"
)

// CacheService exposes cache introspection and manual invalidation for the
// admin surface.
type CacheService struct {
	cache     port.Cache
	namespace string
	logger    *zap.Logger
}

// NewCacheService constructs a CacheService scoped to one namespace.
func NewCacheService(cache port.Cache, namespace string, logger *zap.Logger) *CacheService {
	return &CacheService{cache: cache, namespace: namespace, logger: logger}
}

// Stats reports key count and memory usage for the namespace.
func (s *CacheService) Stats(ctx context.Context) (port.CacheStats, error) {
	return s.cache.Stats(ctx, s.namespace)
}

// Keys lists the cached keys under the given prefix, or the whole namespace
// when the prefix is empty.
func (s *CacheService) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := s.namespace + ":*"
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		pattern = s.namespace + ":" + prefix + "*"
	}

	keys, err := s.cache.Keys(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("list cache keys: %w", err)
	}
	return keys, nil
}

// Clear removes every cached entry under the given prefix and reports how
// many keys were removed. An empty prefix clears the whole namespace.
func (s *CacheService) Clear(ctx context.Context, prefix string) (int64, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		keys, err := s.cache.Keys(ctx, s.namespace+":*")
		if err != nil {
			return 0, fmt.Errorf("list cache keys: %w", err)
		}
		if len(keys) == 0 {
			return 0, nil
		}
		if err := s.cache.Delete(ctx, keys...); err != nil {
			return 0, fmt.Errorf("clear cache namespace: %w", err)
		}
		s.logger.Info("cache namespace cleared", zap.Int("keys", len(keys)))
		return int64(len(keys)), nil
	}

	removed, err := s.cache.DeleteByPrefix(ctx, s.namespace, prefix)
	if err != nil {
		return 0, fmt.Errorf("clear cache prefix: %w", err)
	}

	s.logger.Info("cache prefix cleared", zap.String("prefix", prefix), zap.Int64("keys", removed))
	return removed, nil
}
