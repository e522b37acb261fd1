package raster

import "github.com/couchcryptid/terroir-match-service/internal/domain"

// Dataset identifies a raster image on the sampling gateway together with
// the bands to read and the factor converting raw pixel values to physical
// units.
type Dataset struct {
	Name  string
	Image string
	Bands []string
	Scale float64
}

func depthBandNames() []string {
	names := make([]string, len(domain.DepthBands))
	for i, b := range domain.DepthBands {
		names[i] = string(b)
	}
	return names
}

var (
	// DatasetSand is the sand mass fraction per depth band (%w to kg/kg).
	DatasetSand = Dataset{
		Name:  domain.ComponentSand,
		Image: "OpenLandMap/SOL/SOL_SAND-WFRACTION_USDA-3A1A1A_M/v02",
		Bands: depthBandNames(),
		Scale: 0.01,
	}

	// DatasetClay is the clay mass fraction per depth band (%w to kg/kg).
	DatasetClay = Dataset{
		Name:  domain.ComponentClay,
		Image: "OpenLandMap/SOL/SOL_CLAY-WFRACTION_USDA-3A1A1A_M/v02",
		Bands: depthBandNames(),
		Scale: 0.01,
	}

	// DatasetOrganicCarbon is the organic carbon content per depth band
	// (5 g/kg units to kg/kg).
	DatasetOrganicCarbon = Dataset{
		Name:  domain.ComponentOrganicCarbon,
		Image: "OpenLandMap/SOL/SOL_ORGANIC-CARBON_USDA-6A1C_M/v02",
		Bands: depthBandNames(),
		Scale: 0.005,
	}

	// DatasetMeanTemperature is WorldClim annual mean temperature (°C × 10).
	DatasetMeanTemperature = Dataset{
		Name:  "temperature",
		Image: "WORLDCLIM/V1/BIO",
		Bands: []string{"bio01"},
		Scale: 0.1,
	}

	// DatasetDiurnalRange is the monthly land surface day/night temperature
	// difference over the growing season, May through September.
	DatasetDiurnalRange = Dataset{
		Name:  "diurnal",
		Image: "OpenLandMap/CLM/CLM_LST_MOD11A2-DAYNIGHT_M/v01",
		Bands: []string{"may", "jun", "jul", "aug", "sep"},
		Scale: 0.02,
	}
)
