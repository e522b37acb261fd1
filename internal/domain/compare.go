package domain

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// ElevationWeight attenuates elevation differences, which are measured in
// meters and would otherwise dominate the percentage and degree features.
const ElevationWeight = 0.02

// ScorePrecision is the number of decimals a region score is rounded to.
const ScorePrecision = 2

// Weights scales each feature's absolute difference in the score.
type Weights struct {
	Elevation     float64
	Temperature   float64
	DiurnalRange  float64
	Clay          float64
	Sand          float64
	OrganicMatter float64
	Other         float64
}

// DefaultWeights are the hand-tuned weights used for every match. Diurnal
// range is carried on every profile but does not enter the score.
var DefaultWeights = Weights{
	Elevation:     ElevationWeight,
	Temperature:   1,
	DiurnalRange:  0,
	Clay:          1,
	Sand:          1,
	OrganicMatter: 1,
	Other:         1,
}

// ScoreRecord is the dissimilarity of one catalog region to a location.
// Lower is more similar.
type ScoreRecord struct {
	RegionID string  `json:"region"`
	Score    float64 `json:"score"`
}

// Comparison is the outcome of scoring a location against a catalog.
// Scores are in catalog order.
type Comparison struct {
	BestRegionID string        `json:"best_region"`
	Scores       []ScoreRecord `json:"scores"`
}

// Ranked returns the scores sorted ascending. Equal scores keep catalog order.
func (c Comparison) Ranked() []ScoreRecord {
	ranked := slices.Clone(c.Scores)
	slices.SortStableFunc(ranked, func(a, b ScoreRecord) int {
		return cmp.Compare(a.Score, b.Score)
	})
	return ranked
}

// Score returns the score recorded for regionID.
func (c Comparison) Score(regionID string) (float64, bool) {
	for _, s := range c.Scores {
		if s.RegionID == regionID {
			return s.Score, true
		}
	}
	return 0, false
}

// Compare scores loc against every region using DefaultWeights.
func Compare(loc LocationProfile, regions []RegionProfile) (Comparison, error) {
	return CompareWithWeights(loc, regions, DefaultWeights)
}

// CompareWithWeights scores loc against every region in the given order and
// picks the lowest score. A later region replaces the current best only when
// its score is strictly lower, so the first of several equal scores wins.
func CompareWithWeights(loc LocationProfile, regions []RegionProfile, w Weights) (Comparison, error) {
	if len(regions) == 0 {
		return Comparison{}, fmt.Errorf("%w: no regions to compare against", ErrInvalidCatalog)
	}
	if err := loc.Validate(); err != nil {
		return Comparison{}, err
	}

	out := Comparison{Scores: make([]ScoreRecord, 0, len(regions))}
	var best float64
	for i, region := range regions {
		s := Score(loc, region.Terroir(), w)
		if i == 0 || s < best {
			best = s
			out.BestRegionID = region.ID
		}
		out.Scores = append(out.Scores, ScoreRecord{RegionID: region.ID, Score: s})
	}
	return out, nil
}

// Score is the weighted sum of absolute feature differences between two
// profiles, rounded to ScorePrecision decimals.
func Score(a, b LocationProfile, w Weights) float64 {
	s := w.Elevation*math.Abs(a.MeanElevation-b.MeanElevation) +
		w.Temperature*math.Abs(a.MeanTemp-b.MeanTemp) +
		w.Clay*math.Abs(a.Soil.Clay-b.Soil.Clay) +
		w.OrganicMatter*math.Abs(a.Soil.OrganicMatter-b.Soil.OrganicMatter) +
		w.Other*math.Abs(a.Soil.Other-b.Soil.Other) +
		w.Sand*math.Abs(a.Soil.Sand-b.Soil.Sand)
	if w.DiurnalRange != 0 {
		s += w.DiurnalRange * math.Abs(a.AvgDiurnalRange-b.AvgDiurnalRange)
	}
	return roundTo(s, ScorePrecision)
}

// Delta is the signed per-feature difference (location minus region), used
// for display next to a match.
type Delta struct {
	MeanElevation   float64     `json:"mean_elevation"`
	MeanTemp        float64     `json:"mean_temp"`
	AvgDiurnalRange float64     `json:"avg_diurnal_range"`
	Soil            SoilContent `json:"mean_soil_content_%"`
}

// Diff returns loc minus region for every numeric feature, rounded to 2 decimals.
func Diff(loc LocationProfile, region RegionProfile) Delta {
	d := func(a, b float64) float64 { return roundTo(a-b, percentPrecision) }
	return Delta{
		MeanElevation:   d(loc.MeanElevation, region.MeanElevation),
		MeanTemp:        d(loc.MeanTemp, region.MeanTemp),
		AvgDiurnalRange: d(loc.AvgDiurnalRange, region.AvgDiurnalRange),
		Soil: SoilContent{
			Clay:          d(loc.Soil.Clay, region.Soil.Clay),
			Sand:          d(loc.Soil.Sand, region.Soil.Sand),
			OrganicMatter: d(loc.Soil.OrganicMatter, region.Soil.OrganicMatter),
			Other:         d(loc.Soil.Other, region.Soil.Other),
		},
	}
}
