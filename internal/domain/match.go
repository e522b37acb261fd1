package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Place is the reverse-geocoded description of a matched point.
type Place struct {
	FormattedAddress string  `json:"formatted_address,omitempty"`
	PlaceName        string  `json:"place_name,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
	Source           string  `json:"source,omitempty"` // "reverse", "original", "failed"
}

// MatchResult is everything a presentation layer needs to show one query.
type MatchResult struct {
	ID          string          `json:"id"`
	RequestID   string          `json:"request_id,omitempty"`
	Coordinates Coordinates     `json:"coordinates,omitzero"`
	Place       Place           `json:"place,omitempty"`
	Location    LocationProfile `json:"location"`
	BestRegion  string          `json:"best_region"`
	BestScore   float64         `json:"best_score"`
	Scores      []ScoreRecord   `json:"scores"`
	Ranked      []ScoreRecord   `json:"ranked"`
	Delta       Delta           `json:"delta_to_best"`
	MatchedAt   time.Time       `json:"matched_at"`
}

// NewMatchResult assembles a result from a finished comparison. best is the
// catalog entry named by comparison.BestRegionID.
func NewMatchResult(at Coordinates, loc LocationProfile, comparison Comparison, best RegionProfile) MatchResult {
	bestScore, _ := comparison.Score(comparison.BestRegionID)
	return MatchResult{
		Coordinates: at,
		Location:    loc,
		BestRegion:  comparison.BestRegionID,
		BestScore:   bestScore,
		Scores:      comparison.Scores,
		Ranked:      comparison.Ranked(),
		Delta:       Diff(loc, best),
		MatchedAt:   clock.Now().UTC(),
	}
}

// MatchRequest asks for the best match at a point. It is the payload of
// messages on the batch request topic.
type MatchRequest struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Coordinates returns the requested point.
func (r MatchRequest) Coordinates() Coordinates {
	return Coordinates{Lat: r.Lat, Lon: r.Lon}
}

// InboundMessage represents an unprocessed message from the request topic.
type InboundMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ParseMatchRequest decodes a request message. Both coordinates are required;
// the message key stands in for a missing id.
func ParseMatchRequest(msg InboundMessage) (MatchRequest, error) {
	var wire struct {
		ID  string   `json:"id"`
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	}
	if err := json.Unmarshal(msg.Value, &wire); err != nil {
		return MatchRequest{}, fmt.Errorf("parse match request: %w", err)
	}
	if wire.Lat == nil || wire.Lon == nil {
		return MatchRequest{}, fmt.Errorf("parse match request: lat and lon are required")
	}

	req := MatchRequest{ID: strings.TrimSpace(wire.ID), Lat: *wire.Lat, Lon: *wire.Lon}
	if req.ID == "" {
		req.ID = string(msg.Key)
	}
	if err := req.Coordinates().Validate(); err != nil {
		return MatchRequest{}, fmt.Errorf("parse match request: %w", err)
	}
	return req, nil
}
