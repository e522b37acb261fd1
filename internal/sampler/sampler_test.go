package sampler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/couchcryptid/terroir-match-service/internal/adapter/raster"
	"github.com/couchcryptid/terroir-match-service/internal/domain"
	"github.com/couchcryptid/terroir-match-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func uniform(v float64) domain.SoilSample {
	s := make(domain.SoilSample, len(domain.DepthBands))
	for _, b := range domain.DepthBands {
		s[b] = v
	}
	return s
}

type fakeRaster struct {
	mu       sync.Mutex
	soil     map[string]domain.SoilSample
	soilErr  map[string]error
	temp     float64
	diurnal  float64
	tempErr  error
	datasets []string
}

func (f *fakeRaster) SoilProfile(_ context.Context, ds raster.Dataset, _ domain.Coordinates) (domain.SoilSample, error) {
	f.mu.Lock()
	f.datasets = append(f.datasets, ds.Name)
	f.mu.Unlock()
	if err := f.soilErr[ds.Name]; err != nil {
		return nil, err
	}
	return f.soil[ds.Name], nil
}

func (f *fakeRaster) MeanTemperature(context.Context, domain.Coordinates) (float64, error) {
	return f.temp, f.tempErr
}

func (f *fakeRaster) DiurnalRange(context.Context, domain.Coordinates) (float64, error) {
	return f.diurnal, nil
}

type fakeElevation struct {
	alt float64
	err error
}

func (f fakeElevation) Elevation(context.Context, domain.Coordinates) (float64, error) {
	return f.alt, f.err
}

func newFakeRaster() *fakeRaster {
	return &fakeRaster{
		soil: map[string]domain.SoilSample{
			domain.ComponentSand:          uniform(0.3),
			domain.ComponentClay:          uniform(0.27),
			domain.ComponentOrganicCarbon: uniform(0.05),
		},
		temp:    12,
		diurnal: 10,
	}
}

func TestComposite_SamplePoint(t *testing.T) {
	r := newFakeRaster()
	c := NewComposite(r, fakeElevation{alt: 300}, discardLogger())

	s, err := c.SamplePoint(context.Background(), domain.Coordinates{Lat: 49.25, Lon: -119.53})
	require.NoError(t, err)

	assert.Equal(t, uniform(0.3), s.Sand)
	assert.Equal(t, uniform(0.27), s.Clay)
	assert.Equal(t, uniform(0.05), s.OrganicCarbon)
	assert.Equal(t, 300.0, s.Elevation)
	assert.Equal(t, 12.0, s.MeanTemp)
	assert.Equal(t, 10.0, s.DiurnalRange)
	assert.ElementsMatch(t, []string{"sand", "clay", "orgc"}, r.datasets)

	loc, err := s.Normalize()
	require.NoError(t, err)
	assert.Equal(t, domain.SoilContent{Clay: 27, Sand: 30, OrganicMatter: 5, Other: 38}, loc.Soil)
}

func TestComposite_SamplePoint_NoData(t *testing.T) {
	r := newFakeRaster()
	r.soilErr = map[string]error{domain.ComponentClay: fmt.Errorf("%w: clay", domain.ErrNoData)}
	c := NewComposite(r, fakeElevation{alt: 300}, discardLogger())

	_, err := c.SamplePoint(context.Background(), domain.Coordinates{Lat: 0, Lon: -140})
	require.ErrorIs(t, err, domain.ErrNoData)
	assert.Contains(t, err.Error(), "clay")
}

func TestComposite_SamplePoint_ElevationError(t *testing.T) {
	c := NewComposite(newFakeRaster(), fakeElevation{err: errors.New("timeout")}, discardLogger())

	_, err := c.SamplePoint(context.Background(), domain.Coordinates{Lat: 49.25, Lon: -119.53})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elevation: timeout")
}

func TestComposite_SamplePoint_TemperatureError(t *testing.T) {
	r := newFakeRaster()
	r.tempErr = errors.New("quota")
	c := NewComposite(r, fakeElevation{alt: 1}, discardLogger())

	_, err := c.SamplePoint(context.Background(), domain.Coordinates{Lat: 49.25, Lon: -119.53})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temperature")
}

// --- Cached ---

type countingSampler struct {
	calls atomic.Int32
	last  domain.Coordinates
	err   error
}

func (c *countingSampler) SamplePoint(_ context.Context, at domain.Coordinates) (domain.PointSample, error) {
	c.calls.Add(1)
	c.last = at
	if c.err != nil {
		return domain.PointSample{}, c.err
	}
	return domain.PointSample{Sand: uniform(0.3), Clay: uniform(0.2), OrganicCarbon: uniform(0.01), Elevation: 100}, nil
}

func TestCached_HitOnRoundedCoordinates(t *testing.T) {
	inner := &countingSampler{}
	metrics := observability.NewMetricsForTesting()
	c := NewCached(inner, 10, metrics)

	_, err := c.SamplePoint(context.Background(), domain.Coordinates{Lat: 49.2512, Lon: -119.5281})
	require.NoError(t, err)
	s, err := c.SamplePoint(context.Background(), domain.Coordinates{Lat: 49.2549, Lon: -119.5349})
	require.NoError(t, err)

	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, domain.Coordinates{Lat: 49.25, Lon: -119.53}, inner.last)
	assert.Equal(t, 100.0, s.Elevation)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SampleCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SampleCache.WithLabelValues("miss")))
}

func TestCached_DistinctPointsMiss(t *testing.T) {
	inner := &countingSampler{}
	c := NewCached(inner, 10, observability.NewMetricsForTesting())

	_, _ = c.SamplePoint(context.Background(), domain.Coordinates{Lat: 49.25, Lon: -119.53})
	_, _ = c.SamplePoint(context.Background(), domain.Coordinates{Lat: 49.26, Lon: -119.53})

	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCached_ErrorsNotCached(t *testing.T) {
	inner := &countingSampler{err: domain.ErrNoData}
	c := NewCached(inner, 10, observability.NewMetricsForTesting())

	_, err := c.SamplePoint(context.Background(), domain.Coordinates{Lat: 0, Lon: -140})
	require.ErrorIs(t, err, domain.ErrNoData)
	_, err = c.SamplePoint(context.Background(), domain.Coordinates{Lat: 0, Lon: -140})
	require.ErrorIs(t, err, domain.ErrNoData)

	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCached_ReturnedSampleIsIsolated(t *testing.T) {
	c := NewCached(&countingSampler{}, 10, observability.NewMetricsForTesting())
	at := domain.Coordinates{Lat: 49.25, Lon: -119.53}

	first, err := c.SamplePoint(context.Background(), at)
	require.NoError(t, err)
	first.Sand[domain.DepthSurface] = 0.99

	second, err := c.SamplePoint(context.Background(), at)
	require.NoError(t, err)
	assert.Equal(t, 0.3, second.Sand[domain.DepthSurface])
}
