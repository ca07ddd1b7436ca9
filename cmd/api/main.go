// Package main provides the entrypoint for the aircast API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/aircast/aircast/internal/airquality/openweathermap"
	"github.com/aircast/aircast/internal/api"
	"github.com/aircast/aircast/internal/api/middleware"
	"github.com/aircast/aircast/internal/audit"
	"github.com/aircast/aircast/internal/config"
	"github.com/aircast/aircast/internal/database"
	"github.com/aircast/aircast/internal/forecast"
	"github.com/aircast/aircast/internal/historical"
	"github.com/aircast/aircast/internal/metrics"
	"github.com/aircast/aircast/internal/predictor"
	"github.com/aircast/aircast/internal/provider/resilience"
	"github.com/aircast/aircast/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "aircast-api"

func main() {
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	log = log.Level(level)

	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Environment).
		Msg("starting aircast API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Float64("sample_ratio", cfg.Telemetry.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	clientMetrics, err := resilience.NewClientMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}
	collector := metrics.NewCollector("aircast")

	registry := resilience.NewRegistry()

	// Live data provider
	owmHTTP := resilience.DefaultClientConfig(openweathermap.ProviderName)
	owmHTTP.Timeout = cfg.OpenWeatherMap.Timeout
	owmHTTP.Registry = registry
	owmHTTP.Metrics = clientMetrics
	owmHTTP.CircuitBreaker.OnStateChange = resilience.LogStateChanges(log)
	owm := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     cfg.OpenWeatherMap.APIKey,
		BaseURL:    cfg.OpenWeatherMap.BaseURL,
		GeoURL:     cfg.OpenWeatherMap.GeoURL,
		HTTPClient: resilience.NewClient(owmHTTP),
		Logger:     log,
	})
	if cfg.OpenWeatherMap.APIKey == "" {
		log.Warn().Msg("OPENWEATHERMAP_API_KEY not set - live data endpoints will fail")
	}

	// Historical table and trend model, loaded once
	dataset, pool, loadErr := loadDataset(ctx, cfg, registry, clientMetrics, log)
	if pool != nil {
		defer pool.Close()
	}
	if loadErr != nil {
		log.Error().Err(loadErr).Msg("dataset unavailable - forecasts will return 503")
	} else {
		info := dataset.ModelInfo()
		log.Info().
			Str("source", dataset.Source()).
			Int("records", dataset.Table().Len()).
			Int("cells", dataset.Table().CellCount()).
			Float64("grid_size", float64(dataset.Table().GridSize())).
			Str("model", info.Name).
			Str("model_version", info.Version).
			Msg("dataset loaded")
	}

	forecaster := forecast.NewService(forecast.ServiceConfig{
		Provider: owm,
		Dataset:  dataset,
		LoadErr:  loadErr,
		Metrics:  collector,
		Logger:   log,
	})

	publisher := newPublisher(ctx, cfg.Audit, log)
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close audit publisher")
		}
	}()

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		RequireTLS:  cfg.RequireTLS,
		Metrics:     httpMetrics,
		Collector:   collector,
		Forecaster:  forecaster,
		RawProvider: owm,
		Geocoder:    owm,
		Publisher:   publisher,
		Registry:    registry,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}

// loadDataset loads the trend model and the historical table. The returned
// pool is non-nil whenever a database connection was opened and must be
// closed by the caller.
func loadDataset(ctx context.Context, cfg *config.Config, registry *resilience.Registry, clientMetrics *resilience.ClientMetrics, log zerolog.Logger) (*forecast.Dataset, *pgxpool.Pool, error) {
	var model predictor.Predictor
	if cfg.Model.PredictorURL != "" {
		predHTTP := resilience.DefaultClientConfig("predictor")
		predHTTP.Registry = registry
		predHTTP.Metrics = clientMetrics
		predHTTP.CircuitBreaker.OnStateChange = resilience.LogStateChanges(log)
		model = predictor.NewRemoteModel(predictor.RemoteConfig{
			Endpoint:   cfg.Model.PredictorURL,
			HTTPClient: resilience.NewClient(predHTTP),
		})
		log.Info().Str("endpoint", cfg.Model.PredictorURL).Msg("using remote predictor")
	} else {
		linear, err := predictor.LoadLinearModelFile(cfg.Model.Path)
		if err != nil {
			return nil, nil, err
		}
		model = linear
	}

	var (
		src  historical.Source
		pool *pgxpool.Pool
	)
	switch cfg.Historical.Source {
	case config.SourcePostgres:
		var err error
		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")
		src = historical.NewPostgresSource(pool, cfg.Historical.Table)
	default:
		src = historical.NewCSVSource(cfg.Historical.Path)
	}

	dataset, err := forecast.LoadDataset(ctx, src, model)
	if err != nil {
		return nil, pool, err
	}
	return dataset, pool, nil
}

// newPublisher returns a Pub/Sub publisher when auditing is configured,
// falling back to a no-op publisher on any failure.
func newPublisher(ctx context.Context, cfg config.AuditConfig, log zerolog.Logger) audit.Publisher {
	if !cfg.Enabled() {
		return audit.NoopPublisher{}
	}

	publisher, err := audit.NewPubSubPublisher(ctx, audit.PubSubConfig{
		ProjectID: cfg.ProjectID,
		Topic:     cfg.Topic,
		Logger:    log,
	})
	if err != nil {
		log.Error().Err(err).Msg("audit publishing disabled")
		return audit.NoopPublisher{}
	}

	log.Info().
		Str("project", cfg.ProjectID).
		Str("topic", cfg.Topic).
		Msg("audit publishing enabled")
	return publisher
}
