package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpadapter "github.com/couchcryptid/terroir-match-service/internal/adapter/http"
	"github.com/couchcryptid/terroir-match-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockMatcher struct {
	catalog *domain.Catalog
	result  domain.MatchResult
	err     error

	gotLat, gotLon float64
	gotProfile     domain.LocationProfile
}

func (m *mockMatcher) Match(_ context.Context, lat, lon float64) (domain.MatchResult, error) {
	m.gotLat, m.gotLon = lat, lon
	return m.result, m.err
}

func (m *mockMatcher) CompareProfile(loc domain.LocationProfile) (domain.MatchResult, error) {
	m.gotProfile = loc
	return m.result, m.err
}

func (m *mockMatcher) Catalog() *domain.Catalog { return m.catalog }

func testCatalog(t *testing.T) *domain.Catalog {
	t.Helper()
	soil := domain.SoilContent{Clay: 25, Sand: 35, OrganicMatter: 2, Other: 38}
	catalog, err := domain.NewCatalog([]domain.RegionProfile{
		{ID: "Bordeaux", Country: "France", MeanElevation: 50, MeanTemp: 13.5, AvgDiurnalRange: 10, Soil: soil},
		{ID: "Napa Valley", Country: "USA", MeanElevation: 220, MeanTemp: 15.2, AvgDiurnalRange: 17.4, Soil: soil},
		{ID: "Burgundy", Country: "France", MeanElevation: 287, MeanTemp: 11.2, AvgDiurnalRange: 11.6, Soil: soil},
	})
	require.NoError(t, err)
	return catalog
}

func newTestServer(t *testing.T, readyErr error, m *mockMatcher) *httpadapter.Server {
	t.Helper()
	if m == nil {
		m = &mockMatcher{}
	}
	if m.catalog == nil {
		m.catalog = testCatalog(t)
	}
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, m, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func serve(srv *httpadapter.Server, method, target string, body io.Reader) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, body))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(t, nil, nil), http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(newTestServer(t, nil, nil), http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode[map[string]string](t, rec)["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := serve(newTestServer(t, fmt.Errorf("catalog not loaded"), nil), http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "catalog not loaded", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(t, nil, nil), http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCountries(t *testing.T) {
	rec := serve(newTestServer(t, nil, nil), http.MethodGet, "/api/v1/countries", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"France", "USA"}, decode[map[string][]string](t, rec)["countries"])
}

func TestRegions(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	tests := []struct {
		target string
		want   []string
	}{
		{"/api/v1/regions", []string{"Bordeaux", "Napa Valley", "Burgundy"}},
		{"/api/v1/regions?country=france", []string{"Bordeaux", "Burgundy"}},
		{"/api/v1/regions?country=Chile", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := serve(srv, http.MethodGet, tt.target, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			body := decode[map[string][]domain.RegionProfile](t, rec)
			ids := []string{}
			for _, r := range body["regions"] {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestRegionByID(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec := serve(srv, http.MethodGet, "/api/v1/regions/Napa%20Valley", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	region := decode[domain.RegionProfile](t, rec)
	assert.Equal(t, "USA", region.Country)
	assert.Equal(t, 220.0, region.MeanElevation)

	rec = serve(srv, http.MethodGet, "/api/v1/regions/Atlantis", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMatch_Success(t *testing.T) {
	m := &mockMatcher{result: domain.MatchResult{
		ID:          "m-1",
		Coordinates: domain.Coordinates{Lat: 49.5, Lon: -119.59},
		BestRegion:  "Bordeaux",
		Scores:      []domain.ScoreRecord{{RegionID: "Bordeaux", Score: 13.9}},
	}}
	rec := serve(newTestServer(t, nil, m), http.MethodGet, "/api/v1/match?lat=49.4991&lon=-119.5937", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 49.4991, m.gotLat)
	assert.Equal(t, -119.5937, m.gotLon)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "Bordeaux", body["best_region"])
	assert.Contains(t, body, "delta_to_best")
}

func TestMatch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		status int
	}{
		{"missing lat", "/api/v1/match?lon=1", nil, http.StatusBadRequest},
		{"non-numeric lon", "/api/v1/match?lat=1&lon=east", nil, http.StatusBadRequest},
		{"out of range", "/api/v1/match?lat=91&lon=0", fmt.Errorf("%w: latitude", domain.ErrInvalidCoordinates), http.StatusBadRequest},
		{"no data", "/api/v1/match?lat=0&lon=-140", fmt.Errorf("sample: %w", domain.ErrNoData), http.StatusNotFound},
		{"missing sample", "/api/v1/match?lat=1&lon=1", domain.ErrMissingSample, http.StatusUnprocessableEntity},
		{"timeout", "/api/v1/match?lat=1&lon=1", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"upstream", "/api/v1/match?lat=1&lon=1", fmt.Errorf("raster gateway error: status 500"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestServer(t, nil, &mockMatcher{err: tt.err}), http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestMatch_NoDataMessage(t *testing.T) {
	rec := serve(newTestServer(t, nil, &mockMatcher{err: domain.ErrNoData}), http.MethodGet, "/api/v1/match?lat=0&lon=-140", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No data available for this location", decode[map[string]string](t, rec)["error"])
}

func TestCompare(t *testing.T) {
	m := &mockMatcher{result: domain.MatchResult{BestRegion: "Napa Valley"}}
	payload := `{"mean_elevation":210,"mean_temp":15,"avg_diurnal_range":17,
		"mean_soil_content_%":{"Clay":25,"Sand":38,"Organic Matter":2,"Other":35}}`

	rec := serve(newTestServer(t, nil, m), http.MethodPost, "/api/v1/compare", strings.NewReader(payload))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 210.0, m.gotProfile.MeanElevation)
	assert.Equal(t, 38.0, m.gotProfile.Soil.Sand)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "Napa Valley", body["best_region"])
	assert.NotContains(t, body, "coordinates")
}

func TestCompare_BadPayloads(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"mean_elevation":`, http.StatusBadRequest},
		{"missing field", `{"mean_elevation":1,"mean_temp":1,"mean_soil_content_%":{"Clay":1,"Sand":1,"Organic Matter":1,"Other":97}}`, http.StatusUnprocessableEntity},
		{"incomplete soil", `{"mean_elevation":1,"mean_temp":1,"avg_diurnal_range":1,"mean_soil_content_%":{"Clay":1}}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestServer(t, nil, nil), http.MethodPost, "/api/v1/compare", strings.NewReader(tt.body))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestCompare_WrongMethod(t *testing.T) {
	rec := serve(newTestServer(t, nil, nil), http.MethodGet, "/api/v1/compare", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
