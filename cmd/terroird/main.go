package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/terroir-match-service/internal/adapter/catalogfile"
	"github.com/couchcryptid/terroir-match-service/internal/adapter/geogratis"
	httpadapter "github.com/couchcryptid/terroir-match-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/terroir-match-service/internal/adapter/kafka"
	"github.com/couchcryptid/terroir-match-service/internal/adapter/mapbox"
	"github.com/couchcryptid/terroir-match-service/internal/adapter/raster"
	"github.com/couchcryptid/terroir-match-service/internal/config"
	"github.com/couchcryptid/terroir-match-service/internal/domain"
	"github.com/couchcryptid/terroir-match-service/internal/matcher"
	"github.com/couchcryptid/terroir-match-service/internal/observability"
	"github.com/couchcryptid/terroir-match-service/internal/pipeline"
	"github.com/couchcryptid/terroir-match-service/internal/sampler"
)

// readinessChecks is ready only when every check passes.
type readinessChecks []sharedobs.ReadinessChecker

func (r readinessChecks) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var source domain.CatalogSource = catalogfile.NewSource(cfg.CatalogPath, logger)
	catalog, err := source.LoadCatalog(ctx)
	if err != nil {
		logger.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}

	rasterClient := raster.NewClient(cfg.SamplerBaseURL, cfg.SamplerTimeout, cfg.SamplerBufferMeters, cfg.SamplerRateLimit, metrics, logger)
	elevationClient := geogratis.NewClient(cfg.ElevationBaseURL, cfg.SamplerTimeout, metrics, logger)
	pointSampler := sampler.NewCached(sampler.NewComposite(rasterClient, elevationClient, logger), cfg.SampleCacheSize, metrics)

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	m := matcher.New(catalog, pointSampler, geocoder, metrics, logger)
	ready := readinessChecks{m}

	// Start the batch pipeline (feature-flagged via KAFKA_ENABLED).
	var (
		reader   *kafkaadapter.Reader
		writer   *kafkaadapter.Writer
		pipeDone = make(chan struct{})
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p := pipeline.New(reader, pipeline.NewTransformer(m, logger), writer, logger, metrics, cfg.BatchSize)
		ready = append(ready, p)

		go func() {
			defer close(pipeDone)
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		close(pipeDone)
		logger.Info("batch matching disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, m, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	select {
	case <-pipeDone:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
