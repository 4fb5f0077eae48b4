package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/port"
	"github.com/sunhaoxiang/pure-admin-service/internal/infra/config"
	"github.com/sunhaoxiang/pure-admin-service/internal/repository"
)

// emptyFingerprint keys requests that carry no query parameters.
const emptyFingerprint = "default"

// CacheOptions declares how a read route is cached.
type CacheOptions struct {
	// Prefix groups this route's entries for invalidation.
	Prefix string
	// PerUser scopes entries to the authenticated user so permission-filtered
	// responses never leak across accounts.
	PerUser bool
	// TTL overrides the default entry lifetime when positive.
	TTL time.Duration
}

// InvalidateOptions declares which cached prefixes a mutation route evicts.
type InvalidateOptions struct {
	Prefixes []string
	// PerUserPrefixes are evicted once per user ID returned by UserIDs.
	PerUserPrefixes []string
	UserIDs         func(c *gin.Context) []int64
}

// ResponseCache caches successful JSON responses in Redis keyed by route
// prefix and query fingerprint. Cache failures never fail the request; they
// degrade to a miss and are logged.
type ResponseCache struct {
	cache         port.Cache
	namespace     string
	defaultTTL    time.Duration
	opTimeout     time.Duration
	logger        *zap.Logger
	hits          prometheus.Counter
	misses        prometheus.Counter
	invalidations prometheus.Counter
}

// ResponseCacheCounters carries the optional cache metrics.
type ResponseCacheCounters struct {
	Hits          prometheus.Counter
	Misses        prometheus.Counter
	Invalidations prometheus.Counter
}

// NewResponseCache constructs the response cache layer.
func NewResponseCache(cache port.Cache, cfg config.CacheSettings, counters ResponseCacheCounters, log *zap.Logger) *ResponseCache {
	if log == nil {
		log = zap.NewNop()
	}

	namespace := strings.TrimSpace(cfg.Namespace)
	if namespace == "" {
		namespace = "api"
	}

	defaultTTL := cfg.DefaultTTL
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}

	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 2 * time.Second
	}

	return &ResponseCache{
		cache:         cache,
		namespace:     namespace,
		defaultTTL:    defaultTTL,
		opTimeout:     opTimeout,
		logger:        log,
		hits:          counters.Hits,
		misses:        counters.Misses,
		invalidations: counters.Invalidations,
	}
}

// Fingerprint derives a deterministic cache key segment from query
// parameters. Parameters are sorted by name so equivalent requests with
// different parameter order share an entry.
func Fingerprint(query map[string][]string) string {
	if len(query) == 0 {
		return emptyFingerprint
	}

	names := make([]string, 0, len(query))
	for name := range query {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		for _, value := range query[name] {
			parts = append(parts, name+"-"+value)
		}
	}
	if len(parts) == 0 {
		return emptyFingerprint
	}

	return strings.Join(parts, "|")
}

func (rc *ResponseCache) key(c *gin.Context, opts CacheOptions) string {
	segments := []string{rc.namespace, opts.Prefix}
	if opts.PerUser {
		segments = append(segments, strconv.FormatInt(UserIDFrom(c), 10))
	}
	segments = append(segments, Fingerprint(c.Request.URL.Query()))
	return strings.Join(segments, ":")
}

// bodyCapture duplicates the response body so a successful payload can be
// stored after the handler runs.
type bodyCapture struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCapture) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cached serves the stored response for repeat reads and stores the payload
// of a successful miss.
func (rc *ResponseCache) Cached(opts CacheOptions) gin.HandlerFunc {
	if opts.Prefix == "" {
		return func(c *gin.Context) { c.Next() }
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = rc.defaultTTL
	}

	return func(c *gin.Context) {
		key := rc.key(c, opts)

		ctx, cancel := context.WithTimeout(c.Request.Context(), rc.opTimeout)
		value, err := rc.cache.Get(ctx, key)
		cancel()

		if err == nil {
			if rc.hits != nil {
				rc.hits.Inc()
			}
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(value))
			c.Abort()
			return
		}
		if !errors.Is(err, repository.ErrNotFound) {
			rc.logger.Warn("response cache read failed", zap.String("key", key), zap.Error(err))
		}

		if rc.misses != nil {
			rc.misses.Inc()
		}

		capture := &bodyCapture{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = capture

		c.Next()

		if c.Writer.Status() != http.StatusOK || capture.body.Len() == 0 {
			return
		}

		ctx, cancel = context.WithTimeout(context.WithoutCancel(c.Request.Context()), rc.opTimeout)
		defer cancel()
		if err := rc.cache.Set(ctx, key, capture.body.String(), ttl); err != nil {
			rc.logger.Warn("response cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// Invalidate evicts the configured prefixes after a successful mutation.
// Eviction failures are logged per prefix and never surface to the caller;
// stale entries age out through their TTL.
func (rc *ResponseCache) Invalidate(opts InvalidateOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		prefixes := make([]string, 0, len(opts.Prefixes))
		prefixes = append(prefixes, opts.Prefixes...)
		if len(opts.PerUserPrefixes) > 0 && opts.UserIDs != nil {
			for _, id := range opts.UserIDs(c) {
				for _, prefix := range opts.PerUserPrefixes {
					// The trailing separator keeps the eviction scoped to this
					// user id; without it user 42 would also match user 420.
					prefixes = append(prefixes, prefix+":"+strconv.FormatInt(id, 10)+":")
				}
			}
		}

		for _, prefix := range prefixes {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), rc.opTimeout)
			removed, err := rc.cache.DeleteByPrefix(ctx, rc.namespace, prefix)
			cancel()
			if err != nil {
				rc.logger.Warn("response cache invalidation failed", zap.String("prefix", prefix), zap.Error(err))
				continue
			}
			if removed > 0 && rc.invalidations != nil {
				rc.invalidations.Inc()
			}
		}
	}
}
