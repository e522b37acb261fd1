package domain

import (
	"context"
	"log/slog"
)

// EnrichWithPlace reverse-geocodes the matched point. If geocoder is nil or the
// lookup fails, the result is returned with Place.Source set accordingly
// (graceful degradation); a match never fails because of geocoding.
func EnrichWithPlace(ctx context.Context, result MatchResult, geocoder Geocoder, logger *slog.Logger) MatchResult {
	if geocoder == nil {
		return result
	}

	place, err := geocoder.ReverseGeocode(ctx, result.Coordinates.Lat, result.Coordinates.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"match_id", result.ID,
			"lat", result.Coordinates.Lat,
			"lon", result.Coordinates.Lon,
			"error", err,
		)
		result.Place.Source = "failed"
		return result
	}
	if place.FormattedAddress == "" {
		result.Place.Source = "original"
		return result
	}

	result.Place = Place{
		FormattedAddress: place.FormattedAddress,
		PlaceName:        place.PlaceName,
		Confidence:       place.Confidence,
		Source:           "reverse",
	}
	return result
}
