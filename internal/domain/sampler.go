package domain

import (
	"context"
	"fmt"
)

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks that both values are finite and within WGS-84 bounds.
func (c Coordinates) Validate() error {
	if !isFinite(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %g out of range", ErrInvalidCoordinates, c.Lat)
	}
	if !isFinite(c.Lon) || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %g out of range", ErrInvalidCoordinates, c.Lon)
	}
	return nil
}

// Rounded returns the coordinates rounded to the given number of decimals.
// Map clicks are rounded to 2 decimals (about 1 km) before sampling.
func (c Coordinates) Rounded(places int) Coordinates {
	return Coordinates{Lat: roundTo(c.Lat, places), Lon: roundTo(c.Lon, places)}
}

// PointSample holds the raw readings for one point, as consumed by Normalize.
type PointSample struct {
	Sand          SoilSample
	Clay          SoilSample
	OrganicCarbon SoilSample
	Elevation     float64
	MeanTemp      float64
	DiurnalRange  float64
}

// Normalize reduces the sample to a LocationProfile.
func (s PointSample) Normalize() (LocationProfile, error) {
	return Normalize(s.Sand, s.Clay, s.OrganicCarbon, s.Elevation, s.MeanTemp, s.DiurnalRange)
}

// PointSampler supplies raw readings for a point. Implementations return
// ErrNoData when the point is outside covered territory or over water.
type PointSampler interface {
	SamplePoint(ctx context.Context, at Coordinates) (PointSample, error)
}

// CatalogSource supplies the reference regions at startup.
type CatalogSource interface {
	LoadCatalog(ctx context.Context) (*Catalog, error)
}
