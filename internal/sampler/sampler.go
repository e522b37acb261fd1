// Package sampler assembles the raw readings for a point from the remote
// raster and elevation services.
package sampler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/terroir-match-service/internal/adapter/raster"
	"github.com/couchcryptid/terroir-match-service/internal/domain"
	"golang.org/x/sync/errgroup"
)

// RasterReader reads soil and climate datasets at a point.
type RasterReader interface {
	SoilProfile(ctx context.Context, ds raster.Dataset, at domain.Coordinates) (domain.SoilSample, error)
	MeanTemperature(ctx context.Context, at domain.Coordinates) (float64, error)
	DiurnalRange(ctx context.Context, at domain.Coordinates) (float64, error)
}

// ElevationReader reads the terrain height at a point.
type ElevationReader interface {
	Elevation(ctx context.Context, at domain.Coordinates) (float64, error)
}

// Composite implements domain.PointSampler by issuing the six reads for a
// point concurrently.
type Composite struct {
	raster    RasterReader
	elevation ElevationReader
	logger    *slog.Logger
}

// NewComposite creates a sampler over the given readers.
func NewComposite(r RasterReader, e ElevationReader, logger *slog.Logger) *Composite {
	return &Composite{raster: r, elevation: e, logger: logger}
}

// SamplePoint returns every reading for the point, or the first error
// encountered. Remaining reads are canceled on failure.
func (c *Composite) SamplePoint(ctx context.Context, at domain.Coordinates) (domain.PointSample, error) {
	var s domain.PointSample
	g, gctx := errgroup.WithContext(ctx)

	soil := func(ds raster.Dataset, dst *domain.SoilSample) func() error {
		return func() error {
			v, err := c.raster.SoilProfile(gctx, ds, at)
			if err != nil {
				return fmt.Errorf("%s: %w", ds.Name, err)
			}
			*dst = v
			return nil
		}
	}
	g.Go(soil(raster.DatasetSand, &s.Sand))
	g.Go(soil(raster.DatasetClay, &s.Clay))
	g.Go(soil(raster.DatasetOrganicCarbon, &s.OrganicCarbon))

	g.Go(func() error {
		v, err := c.elevation.Elevation(gctx, at)
		if err != nil {
			return fmt.Errorf("elevation: %w", err)
		}
		s.Elevation = v
		return nil
	})
	g.Go(func() error {
		v, err := c.raster.MeanTemperature(gctx, at)
		if err != nil {
			return fmt.Errorf("temperature: %w", err)
		}
		s.MeanTemp = v
		return nil
	})
	g.Go(func() error {
		v, err := c.raster.DiurnalRange(gctx, at)
		if err != nil {
			return fmt.Errorf("diurnal range: %w", err)
		}
		s.DiurnalRange = v
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.PointSample{}, fmt.Errorf("sample %g,%g: %w", at.Lat, at.Lon, err)
	}
	c.logger.Debug("point sampled", "lat", at.Lat, "lon", at.Lon, "elevation", s.Elevation)
	return s, nil
}
