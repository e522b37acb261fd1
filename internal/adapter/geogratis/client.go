// Package geogratis reads point elevations from the NRCan CDEM altitude API.
package geogratis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/terroir-match-service/internal/domain"
	"github.com/couchcryptid/terroir-match-service/internal/observability"
)

const dataset = "elevation"

// Client fetches elevations in meters above sea level.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an elevation client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

// Elevation returns the altitude at the point. Points outside the model's
// coverage yield domain.ErrNoData.
func (c *Client) Elevation(ctx context.Context, at domain.Coordinates) (float64, error) {
	start := time.Now()
	alt, err := c.altitude(ctx, at)
	c.metrics.SamplerDuration.WithLabelValues(dataset).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		c.metrics.SamplerRequests.WithLabelValues(dataset, "success").Inc()
	case errors.Is(err, domain.ErrNoData):
		c.metrics.SamplerRequests.WithLabelValues(dataset, "no_data").Inc()
	default:
		c.metrics.SamplerRequests.WithLabelValues(dataset, "error").Inc()
		c.logger.Warn("elevation lookup failed", "lat", at.Lat, "lon", at.Lon, "error", err)
	}
	if err != nil {
		return 0, err
	}
	return *alt, nil
}

func (c *Client) altitude(ctx context.Context, at domain.Coordinates) (*float64, error) {
	params := url.Values{
		"lat": {strconv.FormatFloat(at.Lat, 'f', -1, 64)},
		"lon": {strconv.FormatFloat(at.Lon, 'f', -1, 64)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/altitude?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("elevation API error: status %d: %s", resp.StatusCode, body)
	}

	var ar altitudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if ar.Altitude == nil {
		return nil, fmt.Errorf("%w: elevation at %g,%g", domain.ErrNoData, at.Lat, at.Lon)
	}
	return ar.Altitude, nil
}

type altitudeResponse struct {
	Altitude *float64 `json:"altitude"`
}
