package domain

import (
	"fmt"
	"math"
)

// DepthBand identifies one of the six fixed soil sampling depths by its raster
// band name.
type DepthBand string

// Depth bands of the OpenLandMap soil grids.
const (
	DepthSurface DepthBand = "b0"
	Depth10cm    DepthBand = "b10"
	Depth20cm    DepthBand = "b30"
	Depth60cm    DepthBand = "b60"
	Depth100cm   DepthBand = "b100"
	Depth200cm   DepthBand = "b200"
)

// DepthBands lists every depth band from the surface down.
var DepthBands = []DepthBand{DepthSurface, Depth10cm, Depth20cm, Depth60cm, Depth100cm, Depth200cm}

var depthLabels = map[DepthBand]string{
	DepthSurface: "Surface",
	Depth10cm:    "10cm",
	Depth20cm:    "20cm",
	Depth60cm:    "60cm",
	Depth100cm:   "100cm",
	Depth200cm:   "200cm",
}

// Label returns the human-readable depth used in soil tables.
func (d DepthBand) Label() string {
	if l, ok := depthLabels[d]; ok {
		return l
	}
	return string(d)
}

// SoilSample maps each depth band to a raw fraction in [0, 1] for one soil
// component.
type SoilSample map[DepthBand]float64

// Soil components as sampled from the raster sources.
const (
	ComponentSand          = "sand"
	ComponentClay          = "clay"
	ComponentOrganicCarbon = "orgc"
)

// Rounding precision at the two points of the reduction. Catalog profiles are
// built with the same precision so both sides of a comparison line up.
const (
	fractionPrecision = 3
	percentPrecision  = 2
)

// Normalize collapses per-depth soil samples and point readings into a
// LocationProfile. Each component is averaged across the six depth bands and
// rounded to 3 decimals; "Other" is the remainder of 1; all four are then
// scaled to percentages rounded to 2 decimals. The two rounding stages can
// leave the total a few hundredths away from 100, which is expected.
func Normalize(sand, clay, orgc SoilSample, elevation, temperature, diurnalRange float64) (LocationProfile, error) {
	sandMean, err := depthMean(ComponentSand, sand)
	if err != nil {
		return LocationProfile{}, err
	}
	clayMean, err := depthMean(ComponentClay, clay)
	if err != nil {
		return LocationProfile{}, err
	}
	orgMean, err := depthMean(ComponentOrganicCarbon, orgc)
	if err != nil {
		return LocationProfile{}, err
	}

	readings := []struct {
		name  string
		value float64
	}{
		{"elevation", elevation},
		{"temperature", temperature},
		{"diurnal range", diurnalRange},
	}
	for _, r := range readings {
		if !isFinite(r.value) {
			return LocationProfile{}, fmt.Errorf("%w: %s reading", ErrMissingSample, r.name)
		}
	}

	other := 1 - (sandMean + clayMean + orgMean)

	return LocationProfile{
		MeanElevation:   elevation,
		MeanTemp:        temperature,
		AvgDiurnalRange: diurnalRange,
		Soil: SoilContent{
			Clay:          roundTo(clayMean*100, percentPrecision),
			Sand:          roundTo(sandMean*100, percentPrecision),
			OrganicMatter: roundTo(orgMean*100, percentPrecision),
			Other:         roundTo(other*100, percentPrecision),
		},
	}, nil
}

// depthMean averages a component's six depth values, rounded to fractionPrecision.
func depthMean(component string, sample SoilSample) (float64, error) {
	var sum float64
	for _, band := range DepthBands {
		v, ok := sample[band]
		if !ok || math.IsNaN(v) {
			return 0, fmt.Errorf("%w: %s at %s", ErrMissingSample, component, band.Label())
		}
		if v < 0 || v > 1 {
			return 0, fmt.Errorf("%w: %s at %s is %g", ErrSampleOutOfRange, component, band.Label(), v)
		}
		sum += v
	}
	return roundTo(sum/float64(len(DepthBands)), fractionPrecision), nil
}

// roundTo rounds v to the given number of decimal places, halves away from zero.
func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
