// Package raster reads point samples from the raster sampling gateway that
// fronts the soil and climate image collections.
package raster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/terroir-match-service/internal/domain"
	"github.com/couchcryptid/terroir-match-service/internal/observability"
	"golang.org/x/time/rate"
)

// soilPrecision matches the precision of the published soil grids.
const soilPrecision = 5

// Client samples raster datasets at a point through the gateway's HTTP API.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	bufferMeters int
	limiter      *rate.Limiter
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewClient creates a gateway client. requestsPerSecond bounds the outbound
// request rate; bufferMeters is the sampling radius around each point.
func NewClient(baseURL string, timeout time.Duration, bufferMeters int, requestsPerSecond float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	burst := int(math.Ceil(requestsPerSecond))
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		bufferMeters: bufferMeters,
		limiter:      rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		metrics:      metrics,
		logger:       logger,
	}
}

// Sample returns the scaled band values of ds at the given point. Bands with
// no value at the point are absent from the result. Returns domain.ErrNoData
// when the gateway finds no pixel at all.
func (c *Client) Sample(ctx context.Context, ds Dataset, at domain.Coordinates) (map[string]float64, error) {
	start := time.Now()
	values, err := c.sample(ctx, ds, at)
	c.metrics.SamplerDuration.WithLabelValues(ds.Name).Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, domain.ErrNoData):
		c.metrics.SamplerRequests.WithLabelValues(ds.Name, "no_data").Inc()
	case err != nil:
		c.metrics.SamplerRequests.WithLabelValues(ds.Name, "error").Inc()
		c.logger.Warn("raster sample failed", "dataset", ds.Name, "lat", at.Lat, "lon", at.Lon, "error", err)
	default:
		c.metrics.SamplerRequests.WithLabelValues(ds.Name, "success").Inc()
	}
	return values, err
}

// SoilProfile samples a per-depth soil dataset.
func (c *Client) SoilProfile(ctx context.Context, ds Dataset, at domain.Coordinates) (domain.SoilSample, error) {
	values, err := c.Sample(ctx, ds, at)
	if err != nil {
		return nil, err
	}
	sample := make(domain.SoilSample, len(values))
	for band, v := range values {
		sample[domain.DepthBand(band)] = roundTo(v, soilPrecision)
	}
	return sample, nil
}

// MeanTemperature returns the annual mean air temperature in °C.
func (c *Client) MeanTemperature(ctx context.Context, at domain.Coordinates) (float64, error) {
	return c.bandMean(ctx, DatasetMeanTemperature, at)
}

// DiurnalRange returns the growing-season mean day/night temperature
// difference in °C.
func (c *Client) DiurnalRange(ctx context.Context, at domain.Coordinates) (float64, error) {
	return c.bandMean(ctx, DatasetDiurnalRange, at)
}

// bandMean averages every band of ds, rounded to 2 decimals. A missing band
// yields domain.ErrMissingSample.
func (c *Client) bandMean(ctx context.Context, ds Dataset, at domain.Coordinates) (float64, error) {
	values, err := c.Sample(ctx, ds, at)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, band := range ds.Bands {
		v, ok := values[band]
		if !ok {
			return 0, fmt.Errorf("%w: %s band %s", domain.ErrMissingSample, ds.Name, band)
		}
		sum += v
	}
	return roundTo(sum/float64(len(ds.Bands)), 2), nil
}

func (c *Client) sample(ctx context.Context, ds Dataset, at domain.Coordinates) (map[string]float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{
		"image":  {ds.Image},
		"bands":  {strings.Join(ds.Bands, ",")},
		"lat":    {strconv.FormatFloat(at.Lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(at.Lon, 'f', -1, 64)},
		"buffer": {strconv.Itoa(c.bufferMeters)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/sample?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", ds.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("raster gateway error: status %d: %s", resp.StatusCode, body)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("%w: %s at %g,%g", domain.ErrNoData, ds.Name, at.Lat, at.Lon)
	}

	props := fc.Features[0].Properties
	values := make(map[string]float64, len(ds.Bands))
	for _, band := range ds.Bands {
		raw, ok := props[band]
		if !ok || raw == nil {
			continue
		}
		values[band] = *raw * ds.Scale
	}
	return values, nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// GeoJSON response types.

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string              `json:"type"`
	Properties map[string]*float64 `json:"properties"`
}
