// Package domain models wine-region terroir profiles and scores how closely a
// sampled point matches each reference region.
//
// # Profiles
//
// A [RegionProfile] describes a reference wine region (Bordeaux, Napa Valley,
// ...) by its mean elevation, mean annual temperature, average growing-season
// diurnal range, and mean soil composition. A [LocationProfile] has the same
// numeric shape but describes a single clicked point.
//
// Soil composition is four percentages: Clay, Sand, Organic Matter, and Other
// (the remainder). They sum to 100 within rounding.
//
// # Reduction
//
// Soil grids report a fraction per depth band (surface, 10, 30, 60, 100 and
// 200 cm; the 30 cm band is labelled "20cm" in soil tables). [Normalize]
// averages the six bands per component, rounds the mean to 3 decimals, derives
// Other = 1 − (sand + clay + organic), and converts to percentages rounded to
// 2 decimals. Reference profiles were built offline with the same reduction
// over region polygons, which is what makes the two comparable.
//
// # Scoring
//
//	score = 0.02·|Δelevation| + |Δtemp| + |Δclay| + |Δorganic| + |Δother| + |Δsand|
//
// rounded to 2 decimals. Lower is more similar. Elevation is attenuated because
// its range in meters dwarfs the other features. Diurnal range is displayed but
// not scored. Regions are scored in catalog order and the first region with
// the lowest score wins ties.
//
// # Failures
//
// Missing readings are never replaced by defaults because a default would skew
// the additive score for every region. See [ErrMissingSample],
// [ErrIncompleteProfile], [ErrInvalidCatalog] and [ErrNoData].
package domain
