package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// RegionProfile describes the terroir of one reference wine region.
type RegionProfile struct {
	ID              string      `json:"region"`
	Country         string      `json:"country"`
	MeanElevation   float64     `json:"mean_elevation"`
	MeanTemp        float64     `json:"mean_temp"`
	AvgDiurnalRange float64     `json:"avg_diurnal_range"`
	Soil            SoilContent `json:"mean_soil_content_%"`
	RedGrapes       []string    `json:"red_grapes"`
	WhiteGrapes     []string    `json:"white_grapes"`
	Image           string      `json:"image,omitempty"`
	Source          string      `json:"source,omitempty"`

	// Geometry is the region outline as [lon, lat] pairs. Display only.
	Geometry [][]float64 `json:"geometry,omitempty"`
}

// Terroir returns the region's numeric fields as a LocationProfile so the two
// can be compared field for field.
func (r RegionProfile) Terroir() LocationProfile {
	return LocationProfile{
		MeanElevation:   r.MeanElevation,
		MeanTemp:        r.MeanTemp,
		AvgDiurnalRange: r.AvgDiurnalRange,
		Soil:            r.Soil,
	}
}

// LocationProfile describes the terroir of a single sampled point. It has the
// same numeric shape as a RegionProfile but no catalog identity.
type LocationProfile struct {
	MeanElevation   float64     `json:"mean_elevation"`
	MeanTemp        float64     `json:"mean_temp"`
	AvgDiurnalRange float64     `json:"avg_diurnal_range"`
	Soil            SoilContent `json:"mean_soil_content_%"`
}

// Validate reports ErrIncompleteProfile when any field is NaN or infinite.
// Missing readings are carried as NaN by producers that cannot fail earlier.
func (p LocationProfile) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"mean_elevation", p.MeanElevation},
		{"mean_temp", p.MeanTemp},
		{"avg_diurnal_range", p.AvgDiurnalRange},
		{"soil " + SoilClay, p.Soil.Clay},
		{"soil " + SoilSand, p.Soil.Sand},
		{"soil " + SoilOrganicMatter, p.Soil.OrganicMatter},
		{"soil " + SoilOther, p.Soil.Other},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrIncompleteProfile, f.name)
		}
	}
	return nil
}

// locationProfileWire is the JSON form accepted from callers. Pointer fields
// let the decoder tell an absent field from a legitimate zero.
type locationProfileWire struct {
	MeanElevation   *float64        `json:"mean_elevation"`
	MeanTemp        *float64        `json:"mean_temp"`
	AvgDiurnalRange *float64        `json:"avg_diurnal_range"`
	Soil            json.RawMessage `json:"mean_soil_content_%"`
}

// DecodeLocationProfile parses a LocationProfile from JSON. Any absent field
// yields ErrIncompleteProfile.
func DecodeLocationProfile(data []byte) (LocationProfile, error) {
	var w locationProfileWire
	if err := json.Unmarshal(data, &w); err != nil {
		return LocationProfile{}, fmt.Errorf("decode location profile: %w", err)
	}

	missing := func(name string) error {
		return fmt.Errorf("%w: %s is required", ErrIncompleteProfile, name)
	}
	switch {
	case w.MeanElevation == nil:
		return LocationProfile{}, missing("mean_elevation")
	case w.MeanTemp == nil:
		return LocationProfile{}, missing("mean_temp")
	case w.AvgDiurnalRange == nil:
		return LocationProfile{}, missing("avg_diurnal_range")
	case len(w.Soil) == 0 || string(w.Soil) == "null":
		return LocationProfile{}, missing("mean_soil_content_%")
	}

	var soil SoilContent
	if err := json.Unmarshal(w.Soil, &soil); err != nil {
		return LocationProfile{}, fmt.Errorf("%w: %w", ErrIncompleteProfile, err)
	}

	p := LocationProfile{
		MeanElevation:   *w.MeanElevation,
		MeanTemp:        *w.MeanTemp,
		AvgDiurnalRange: *w.AvgDiurnalRange,
		Soil:            soil,
	}
	if err := p.Validate(); err != nil {
		return LocationProfile{}, err
	}
	return p, nil
}
