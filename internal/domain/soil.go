package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Soil component keys as they appear in catalog documents and API payloads.
const (
	SoilClay          = "Clay"
	SoilSand          = "Sand"
	SoilOrganicMatter = "Organic Matter"
	SoilOther         = "Other"
)

// soilKeys lists the four soil components in a fixed order.
var soilKeys = []string{SoilClay, SoilSand, SoilOrganicMatter, SoilOther}

// errSoilComponent marks a soil mapping that does not carry exactly the four components.
var errSoilComponent = errors.New("soil content must have exactly Clay, Sand, Organic Matter and Other")

// SoilContent holds soil composition as percentages of the whole.
type SoilContent struct {
	Clay          float64 `json:"Clay" yaml:"Clay"`
	Sand          float64 `json:"Sand" yaml:"Sand"`
	OrganicMatter float64 `json:"Organic Matter" yaml:"Organic Matter"`
	Other         float64 `json:"Other" yaml:"Other"`
}

// Sum returns the total of all four percentages.
func (s SoilContent) Sum() float64 {
	return s.Clay + s.Sand + s.OrganicMatter + s.Other
}

// Map returns the percentages keyed by component name.
func (s SoilContent) Map() map[string]float64 {
	return map[string]float64{
		SoilClay:          s.Clay,
		SoilSand:          s.Sand,
		SoilOrganicMatter: s.OrganicMatter,
		SoilOther:         s.Other,
	}
}

// Validate checks that every percentage is finite and non-negative and that
// the four values sum to 100 within tolerance.
func (s SoilContent) Validate(tolerance float64) error {
	values := s.Map()
	for _, key := range soilKeys {
		v := values[key]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("soil %s is not a finite number", key)
		}
		if v < 0 {
			return fmt.Errorf("soil %s is negative (%g)", key, v)
		}
	}
	if sum := s.Sum(); math.Abs(sum-100) > tolerance {
		return fmt.Errorf("soil content sums to %.2f, want 100 ± %g", sum, tolerance)
	}
	return nil
}

// UnmarshalJSON requires all four components to be present. An absent key is
// an error rather than a silent zero.
func (s *SoilContent) UnmarshalJSON(data []byte) error {
	var raw map[string]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode soil content: %w", err)
	}
	return s.fromMap(raw)
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML catalog documents.
func (s *SoilContent) UnmarshalYAML(unmarshal func(any) error) error {
	var raw map[string]*float64
	if err := unmarshal(&raw); err != nil {
		return fmt.Errorf("decode soil content: %w", err)
	}
	return s.fromMap(raw)
}

func (s *SoilContent) fromMap(raw map[string]*float64) error {
	if len(raw) != len(soilKeys) {
		return fmt.Errorf("%w: got %d keys", errSoilComponent, len(raw))
	}
	vals := make([]float64, len(soilKeys))
	for i, key := range soilKeys {
		v, ok := raw[key]
		if !ok || v == nil {
			return fmt.Errorf("%w: %q missing", errSoilComponent, key)
		}
		vals[i] = *v
	}
	*s = SoilContent{Clay: vals[0], Sand: vals[1], OrganicMatter: vals[2], Other: vals[3]}
	return nil
}
