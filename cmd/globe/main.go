package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/wildfire-globe-service/internal/adapter/firms"
	httpadapter "github.com/couchcryptid/wildfire-globe-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/wildfire-globe-service/internal/adapter/kafka"
	"github.com/couchcryptid/wildfire-globe-service/internal/adapter/openweather"
	"github.com/couchcryptid/wildfire-globe-service/internal/adapter/sqlite"
	"github.com/couchcryptid/wildfire-globe-service/internal/bootstrap"
	"github.com/couchcryptid/wildfire-globe-service/internal/config"
	"github.com/couchcryptid/wildfire-globe-service/internal/domain"
	"github.com/couchcryptid/wildfire-globe-service/internal/observability"
	"github.com/couchcryptid/wildfire-globe-service/internal/pipeline"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional hotspot sinks.
	var sinks []pipeline.HotspotSink
	var publisher *kafkaadapter.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		sinks = append(sinks, publisher)
		logger.Info("kafka hotspot sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaFireTopic)
	}
	var archive *sqlite.Archive
	if cfg.ArchiveDBPath != "" {
		archive, err = sqlite.Open(ctx, cfg.ArchiveDBPath, logger)
		if err != nil {
			logger.Error("failed to open hotspot archive", "path", cfg.ArchiveDBPath, "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, archive)
		logger.Info("sqlite hotspot archive enabled", "path", cfg.ArchiveDBPath)
	}

	sources := make([]domain.Satellite, 0, len(cfg.FirmsSources))
	for _, id := range cfg.FirmsSources {
		sources = append(sources, domain.SatelliteByID(id))
	}

	deps := bootstrap.Deps{
		LoadConfig: func(context.Context) (*config.ClientConfig, error) {
			cc := cfg.Client()
			return &cc, nil
		},
		NewFetcher: func(key string) pipeline.HotspotFetcher {
			logger.Info("fire overlay enabled", "sources", cfg.FirmsSources, "timeout", cfg.FirmsTimeout)
			return firms.NewClient(key, cfg.FirmsBaseURL, cfg.FirmsTimeout, metrics, logger)
		},
		NewWeather: func(key string) domain.WeatherSource {
			logger.Info("point inspector enabled", "cache_size", cfg.OpenWeatherCacheSize, "cache_ttl", cfg.OpenWeatherCacheTTL)
			client := openweather.NewClient(key, cfg.OpenWeatherBaseURL, cfg.OpenWeatherTimeout, metrics, logger)
			return openweather.NewCachedSource(client, cfg.OpenWeatherCacheSize, cfg.OpenWeatherCacheTTL, clockwork.NewRealClock(), metrics)
		},
		Sinks: sinks,
		Fire: pipeline.FireOptions{
			Sources:      sources,
			Debounce:     cfg.FireRefreshDebounce,
			InitialDelay: cfg.FireInitialDelay,
			HitRadiusKm:  cfg.FireHitRadiusKm,
		},
		GlobePitch:          cfg.GlobePitch,
		TerrainExaggeration: cfg.TerrainExaggeration,
		Logger:              logger,
		Metrics:             metrics,
	}

	state, err := bootstrap.Run(ctx, bootstrap.DefaultSteps(deps), logger)
	if err != nil {
		logger.Error("initialization failed", "error", err)
		os.Exit(1)
	}

	svc := httpadapter.Services{
		Client:    *state.Client,
		Map:       state.Map,
		Controls:  state.Controls,
		Fires:     state.Fires,
		Inspector: state.Inspector,
	}
	if archive != nil {
		svc.Archive = archive
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, state.Fires, metrics, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Initial fire load, then wait for shutdown.
	go func() {
		if err := state.Fires.Run(ctx); err != nil {
			logger.Error("fire overlay error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if archive != nil {
		if err := archive.Close(); err != nil {
			logger.Error("archive close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
