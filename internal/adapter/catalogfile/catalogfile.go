// Package catalogfile loads the reference region catalog from a JSON or YAML
// document, falling back to the catalog compiled into the binary.
package catalogfile

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/terroir-match-service/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed profiles.json
var defaultCatalog []byte

// Format selects the document decoder.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatForPath infers the format from a file extension. Anything other than
// .yaml or .yml is treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Source implements domain.CatalogSource.
type Source struct {
	path   string
	logger *slog.Logger
}

// NewSource creates a catalog source reading path, or the embedded catalog
// when path is empty.
func NewSource(path string, logger *slog.Logger) *Source {
	return &Source{path: path, logger: logger}
}

// LoadCatalog reads, decodes and validates the catalog document.
func (s *Source) LoadCatalog(ctx context.Context) (*domain.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		regions []domain.RegionProfile
		err     error
		origin  = s.path
	)
	if s.path == "" {
		origin = "embedded"
		regions, err = DefaultRegions()
	} else {
		regions, err = ReadRegions(s.path)
	}
	if err != nil {
		return nil, err
	}

	catalog, err := domain.NewCatalog(regions)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", origin, err)
	}
	s.logger.Info("catalog loaded", "source", origin, "regions", catalog.Len(), "countries", len(catalog.Countries()))
	return catalog, nil
}

// Default returns the embedded catalog.
func Default() (*domain.Catalog, error) {
	regions, err := DefaultRegions()
	if err != nil {
		return nil, err
	}
	return domain.NewCatalog(regions)
}

// DefaultRegions decodes the embedded catalog without validating it.
func DefaultRegions() ([]domain.RegionProfile, error) {
	return Decode(defaultCatalog, FormatJSON)
}

// ReadRegions reads and decodes a catalog file without validating it as a
// whole.
func ReadRegions(path string) ([]domain.RegionProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Decode(data, FormatForPath(path))
}

// Decode parses a catalog document into region profiles in document order.
// Every region must carry all numeric fields; consistency checks across
// regions are left to domain.NewCatalog.
func Decode(data []byte, format Format) ([]domain.RegionProfile, error) {
	var doc document
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: decode yaml: %w", domain.ErrInvalidCatalog, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: decode json: %w", domain.ErrInvalidCatalog, err)
		}
	}

	if doc.Profiles == nil {
		return nil, fmt.Errorf("%w: missing profiles list", domain.ErrInvalidCatalog)
	}

	regions := make([]domain.RegionProfile, 0, len(doc.Profiles))
	for i, f := range doc.Profiles {
		r, err := f.toRegion()
		if err != nil {
			return nil, fmt.Errorf("%w: profile %d: %w", domain.ErrInvalidCatalog, i, err)
		}
		regions = append(regions, r)
	}
	return regions, nil
}

// Document wire types. Numeric fields are pointers so an absent field is
// distinguishable from zero.

type document struct {
	Profiles []featureDoc `json:"profiles" yaml:"profiles"`
}

type featureDoc struct {
	Type       string        `json:"type" yaml:"type"`
	Properties propertiesDoc `json:"properties" yaml:"properties"`
	Geometry   *geometryDoc  `json:"geometry" yaml:"geometry"`
}

type propertiesDoc struct {
	Region          string              `json:"region" yaml:"region"`
	Country         string              `json:"country" yaml:"country"`
	MeanElevation   *float64            `json:"mean_elevation" yaml:"mean_elevation"`
	MeanTemp        *float64            `json:"mean_temp" yaml:"mean_temp"`
	AvgDiurnalRange *float64            `json:"avg_diurnal_range" yaml:"avg_diurnal_range"`
	Soil            *domain.SoilContent `json:"mean_soil_content_%" yaml:"mean_soil_content_%"`
	RedGrapes       []string            `json:"red_grapes" yaml:"red_grapes"`
	WhiteGrapes     []string            `json:"white_grapes" yaml:"white_grapes"`
	Image           string              `json:"image" yaml:"image"`
	Source          string              `json:"source" yaml:"source"`
}

type geometryDoc struct {
	Type        string        `json:"type" yaml:"type"`
	Coordinates [][][]float64 `json:"coordinates" yaml:"coordinates"`
}

func (f featureDoc) toRegion() (domain.RegionProfile, error) {
	p := f.Properties
	switch {
	case p.MeanElevation == nil:
		return domain.RegionProfile{}, fmt.Errorf("%q: mean_elevation missing", p.Region)
	case p.MeanTemp == nil:
		return domain.RegionProfile{}, fmt.Errorf("%q: mean_temp missing", p.Region)
	case p.AvgDiurnalRange == nil:
		return domain.RegionProfile{}, fmt.Errorf("%q: avg_diurnal_range missing", p.Region)
	case p.Soil == nil:
		return domain.RegionProfile{}, fmt.Errorf("%q: mean_soil_content_%% missing", p.Region)
	}

	r := domain.RegionProfile{
		ID:              p.Region,
		Country:         p.Country,
		MeanElevation:   *p.MeanElevation,
		MeanTemp:        *p.MeanTemp,
		AvgDiurnalRange: *p.AvgDiurnalRange,
		Soil:            *p.Soil,
		RedGrapes:       p.RedGrapes,
		WhiteGrapes:     p.WhiteGrapes,
		Image:           p.Image,
		Source:          p.Source,
	}
	// Only the outer ring is kept.
	if f.Geometry != nil && len(f.Geometry.Coordinates) > 0 {
		r.Geometry = f.Geometry.Coordinates[0]
	}
	return r, nil
}
