package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sunhaoxiang/pure-admin-service/internal/infra/config"
)

// Provider represents a telemetry provider handle. Per-request metrics are
// owned by the HTTP metrics middleware; the provider carries the response
// cache counters.
type Provider struct {
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	cacheInvalidation prometheus.Counter
}

// Attach configures telemetry exporters and returns a provider handle.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	return &Provider{
		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "admin",
			Name:      "response_cache_hits_total",
			Help:      "Total number of response cache hits",
		}),
		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "admin",
			Name:      "response_cache_misses_total",
			Help:      "Total number of response cache misses",
		}),
		cacheInvalidation: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "admin",
			Name:      "response_cache_invalidations_total",
			Help:      "Total number of response cache prefix invalidations",
		}),
	}, nil
}

// CacheHits exposes the response cache hit metric.
func (p *Provider) CacheHits() prometheus.Counter {
	if p == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{})
	}
	return p.cacheHits
}

// CacheMisses exposes the response cache miss metric.
func (p *Provider) CacheMisses() prometheus.Counter {
	if p == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{})
	}
	return p.cacheMisses
}

// CacheInvalidations exposes the response cache invalidation metric.
func (p *Provider) CacheInvalidations() prometheus.Counter {
	if p == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{})
	}
	return p.cacheInvalidation
}
