package domain

import (
	"fmt"
	"slices"
	"strings"
)

// CatalogSoilTolerance is how far a region's soil percentages may stray from
// 100 in total. Reference profiles derive "Other" as the rounded remainder,
// so anything beyond a few hundredths points at a malformed record.
const CatalogSoilTolerance = 0.1

// Catalog is the validated, read-only set of reference regions. It is never
// mutated after NewCatalog returns and may be shared across goroutines.
type Catalog struct {
	regions []RegionProfile
	byID    map[string]int
}

// NewCatalog validates regions and returns an immutable catalog preserving
// their declared order.
func NewCatalog(regions []RegionProfile) (*Catalog, error) {
	if len(regions) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", ErrInvalidCatalog)
	}

	c := &Catalog{
		regions: make([]RegionProfile, len(regions)),
		byID:    make(map[string]int, len(regions)),
	}
	for i, r := range regions {
		if err := validateRegion(r); err != nil {
			return nil, fmt.Errorf("%w: region %d (%q): %w", ErrInvalidCatalog, i, r.ID, err)
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate region %q", ErrInvalidCatalog, r.ID)
		}
		c.byID[r.ID] = i
		c.regions[i] = cloneRegion(r)
	}
	return c, nil
}

func validateRegion(r RegionProfile) error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("region name is empty")
	}
	if err := r.Terroir().Validate(); err != nil {
		return err
	}
	return r.Soil.Validate(CatalogSoilTolerance)
}

func cloneRegion(r RegionProfile) RegionProfile {
	r.RedGrapes = slices.Clone(r.RedGrapes)
	r.WhiteGrapes = slices.Clone(r.WhiteGrapes)
	if r.Geometry != nil {
		g := make([][]float64, len(r.Geometry))
		for i, pt := range r.Geometry {
			g[i] = slices.Clone(pt)
		}
		r.Geometry = g
	}
	return r
}

// Len returns the number of regions.
func (c *Catalog) Len() int { return len(c.regions) }

// Regions returns a copy of every region in declared order.
func (c *Catalog) Regions() []RegionProfile {
	out := make([]RegionProfile, len(c.regions))
	for i, r := range c.regions {
		out[i] = cloneRegion(r)
	}
	return out
}

// Region looks up a region by id.
func (c *Catalog) Region(id string) (RegionProfile, bool) {
	i, ok := c.byID[id]
	if !ok {
		return RegionProfile{}, false
	}
	return cloneRegion(c.regions[i]), true
}

// Countries returns the distinct countries in the order they first appear.
func (c *Catalog) Countries() []string {
	var out []string
	for _, r := range c.regions {
		if !slices.Contains(out, r.Country) {
			out = append(out, r.Country)
		}
	}
	return out
}

// ByCountry returns the regions of one country in declared order. The match
// on country is case-insensitive.
func (c *Catalog) ByCountry(country string) []RegionProfile {
	var out []RegionProfile
	for _, r := range c.regions {
		if strings.EqualFold(r.Country, country) {
			out = append(out, cloneRegion(r))
		}
	}
	return out
}

// Compare scores loc against every region in declared order.
func (c *Catalog) Compare(loc LocationProfile) (Comparison, error) {
	if c == nil || len(c.regions) == 0 {
		return Comparison{}, fmt.Errorf("%w: catalog is empty", ErrInvalidCatalog)
	}
	return Compare(loc, c.regions)
}
