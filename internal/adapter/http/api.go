package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/terroir-match-service/internal/domain"
	"github.com/couchcryptid/terroir-match-service/internal/matcher"
)

// maxBodyBytes bounds POST payloads.
const maxBodyBytes = 1 << 20

// Matcher is the query surface the API serves.
type Matcher interface {
	Match(ctx context.Context, lat, lon float64) (domain.MatchResult, error)
	CompareProfile(loc domain.LocationProfile) (domain.MatchResult, error)
	Catalog() *domain.Catalog
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCountries(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string][]string{"countries": s.matcher.Catalog().Countries()})
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	catalog := s.matcher.Catalog()
	regions := catalog.Regions()
	if country := r.URL.Query().Get("country"); country != "" {
		regions = catalog.ByCountry(country)
	}
	if regions == nil {
		regions = []domain.RegionProfile{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string][]domain.RegionProfile{"regions": regions})
}

func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	region, ok := s.matcher.Catalog().Region(id)
	if !ok {
		sharedobs.WriteJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("region %q not found", id)})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, region)
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	lat, err := parseCoordinate(r, "lat")
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	lon, err := parseCoordinate(r, "lon")
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result, err := s.matcher.Match(r.Context(), lat, lon)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
		return
	}
	loc, err := domain.DecodeLocationProfile(body)
	if err != nil {
		status := http.StatusBadRequest
		if matcher.IsInvalidInput(err) {
			status = http.StatusUnprocessableEntity
		}
		sharedobs.WriteJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	result, err := s.matcher.CompareProfile(loc)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, result)
}

func parseCoordinate(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("query parameter %q is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("query parameter %q: not a number", name)
	}
	return v, nil
}

// writeError maps domain errors to HTTP statuses. Upstream failures are
// logged; the client only sees a generic message for them.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNoData):
		sharedobs.WriteJSON(w, http.StatusNotFound, errorResponse{Error: "No data available for this location"})
	case errors.Is(err, domain.ErrInvalidCoordinates):
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case matcher.IsInvalidInput(err):
		sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidCatalog):
		s.logger.Error("catalog unavailable", "error", err)
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "catalog unavailable"})
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("upstream timeout", "error", err)
		sharedobs.WriteJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "upstream timeout"})
	default:
		s.logger.Error("request failed", "error", err)
		sharedobs.WriteJSON(w, http.StatusBadGateway, errorResponse{Error: "upstream sampling failed"})
	}
}
