// Package matcher answers "which reference region does this point most
// resemble" by sampling the point, normalizing the readings and comparing
// the resulting profile against the region catalog.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/terroir-match-service/internal/domain"
	"github.com/couchcryptid/terroir-match-service/internal/observability"
	"github.com/google/uuid"
)

// samplePrecision is the coordinate rounding applied to every query point.
const samplePrecision = 2

// Matcher runs point and profile matches against a fixed catalog. It is safe
// for concurrent use.
type Matcher struct {
	catalog  *domain.Catalog
	sampler  domain.PointSampler
	geocoder domain.Geocoder
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New creates a Matcher. geocoder may be nil to disable place enrichment.
func New(catalog *domain.Catalog, sampler domain.PointSampler, geocoder domain.Geocoder, metrics *observability.Metrics, logger *slog.Logger) *Matcher {
	if catalog != nil {
		metrics.CatalogSize.Set(float64(catalog.Len()))
	}
	return &Matcher{
		catalog:  catalog,
		sampler:  sampler,
		geocoder: geocoder,
		metrics:  metrics,
		logger:   logger,
	}
}

// Catalog returns the catalog matches are scored against.
func (m *Matcher) Catalog() *domain.Catalog {
	return m.catalog
}

// Match samples the point at lat/lon, rounded to 2 decimals, and compares it
// against every catalog region.
func (m *Matcher) Match(ctx context.Context, lat, lon float64) (domain.MatchResult, error) {
	start := time.Now()
	result, err := m.match(ctx, domain.Coordinates{Lat: lat, Lon: lon})
	m.metrics.MatchDuration.Observe(time.Since(start).Seconds())

	outcome := outcomeOf(err)
	m.metrics.MatchRequests.WithLabelValues(outcome).Inc()
	switch outcome {
	case "success":
		m.metrics.BestMatches.WithLabelValues(result.BestRegion).Inc()
		m.logger.Info("point matched",
			"match_id", result.ID,
			"lat", result.Coordinates.Lat,
			"lon", result.Coordinates.Lon,
			"best_region", result.BestRegion,
		)
	case "error":
		m.logger.Error("point match failed", "lat", lat, "lon", lon, "error", err)
	default:
		m.logger.Debug("point match rejected", "lat", lat, "lon", lon, "outcome", outcome, "error", err)
	}
	return result, err
}

func (m *Matcher) match(ctx context.Context, at domain.Coordinates) (domain.MatchResult, error) {
	if err := at.Validate(); err != nil {
		return domain.MatchResult{}, err
	}
	at = at.Rounded(samplePrecision)

	// Missing or unusable remote readings mean the point has no data.
	sample, err := m.sampler.SamplePoint(ctx, at)
	if err != nil {
		if errors.Is(err, domain.ErrMissingSample) || errors.Is(err, domain.ErrSampleOutOfRange) {
			return domain.MatchResult{}, fmt.Errorf("%w: %w", domain.ErrNoData, err)
		}
		return domain.MatchResult{}, err
	}
	loc, err := sample.Normalize()
	if err != nil {
		return domain.MatchResult{}, fmt.Errorf("%w: normalize sample: %w", domain.ErrNoData, err)
	}

	result, err := m.compare(loc)
	if err != nil {
		return domain.MatchResult{}, err
	}
	result.Coordinates = at
	return domain.EnrichWithPlace(ctx, result, m.geocoder, m.logger), nil
}

// CompareProfile scores a caller-supplied location profile against the
// catalog. No sampling or geocoding takes place.
func (m *Matcher) CompareProfile(loc domain.LocationProfile) (domain.MatchResult, error) {
	result, err := m.compare(loc)
	if err != nil {
		return domain.MatchResult{}, err
	}
	m.metrics.BestMatches.WithLabelValues(result.BestRegion).Inc()
	return result, nil
}

func (m *Matcher) compare(loc domain.LocationProfile) (domain.MatchResult, error) {
	comparison, err := m.catalog.Compare(loc)
	if err != nil {
		return domain.MatchResult{}, err
	}
	best, ok := m.catalog.Region(comparison.BestRegionID)
	if !ok {
		return domain.MatchResult{}, fmt.Errorf("%w: best region %q not in catalog", domain.ErrInvalidCatalog, comparison.BestRegionID)
	}

	result := domain.NewMatchResult(domain.Coordinates{}, loc, comparison, best)
	result.ID = uuid.NewString()
	return result, nil
}

// CheckReadiness reports an error until a non-empty catalog is loaded.
func (m *Matcher) CheckReadiness(_ context.Context) error {
	if m.catalog == nil || m.catalog.Len() == 0 {
		return errors.New("catalog not loaded")
	}
	return nil
}

// outcomeOf maps a match error to its metric label.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrNoData):
		return "no_data"
	case IsInvalidInput(err):
		return "invalid"
	default:
		return "error"
	}
}

// IsInvalidInput reports whether err stems from the caller's input rather
// than from a collaborator.
func IsInvalidInput(err error) bool {
	return errors.Is(err, domain.ErrInvalidCoordinates) ||
		errors.Is(err, domain.ErrIncompleteProfile) ||
		errors.Is(err, domain.ErrMissingSample) ||
		errors.Is(err, domain.ErrSampleOutOfRange)
}
