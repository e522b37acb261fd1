package sampler

import (
	"context"
	"fmt"
	"maps"

	"github.com/couchcryptid/terroir-match-service/internal/domain"
	"github.com/couchcryptid/terroir-match-service/internal/lru"
	"github.com/couchcryptid/terroir-match-service/internal/observability"
)

// keyPrecision is the coordinate rounding applied before lookup, about 1 km.
const keyPrecision = 2

// Cached wraps a PointSampler with an in-memory LRU cache keyed on rounded
// coordinates. Only successful samples are cached.
type Cached struct {
	inner   domain.PointSampler
	cache   *lru.Cache[domain.PointSample]
	metrics *observability.Metrics
}

// NewCached creates a cache decorator around a sampler.
func NewCached(inner domain.PointSampler, maxEntries int, metrics *observability.Metrics) *Cached {
	return &Cached{
		inner:   inner,
		cache:   lru.New[domain.PointSample](maxEntries),
		metrics: metrics,
	}
}

func (c *Cached) SamplePoint(ctx context.Context, at domain.Coordinates) (domain.PointSample, error) {
	at = at.Rounded(keyPrecision)
	key := fmt.Sprintf("%.*f,%.*f", keyPrecision, at.Lat, keyPrecision, at.Lon)

	if s, ok := c.cache.Get(key); ok {
		c.metrics.SampleCache.WithLabelValues("hit").Inc()
		return clone(s), nil
	}
	c.metrics.SampleCache.WithLabelValues("miss").Inc()

	s, err := c.inner.SamplePoint(ctx, at)
	if err != nil {
		return s, err
	}
	c.cache.Put(key, clone(s))
	return s, nil
}

// clone copies the per-depth maps so callers cannot mutate cached entries.
func clone(s domain.PointSample) domain.PointSample {
	s.Sand = maps.Clone(s.Sand)
	s.Clay = maps.Clone(s.Clay)
	s.OrganicCarbon = maps.Clone(s.OrganicCarbon)
	return s
}
