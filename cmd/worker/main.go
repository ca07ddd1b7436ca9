// Package main provides the entrypoint for the aircast audit worker, which
// stores every published forecast event in PostgreSQL.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aircast/aircast/internal/api/middleware"
	"github.com/aircast/aircast/internal/api/models"
	"github.com/aircast/aircast/internal/api/response"
	"github.com/aircast/aircast/internal/config"
	"github.com/aircast/aircast/internal/database"
	"github.com/aircast/aircast/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "aircast-worker"

func main() {
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting aircast worker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if level, levelErr := zerolog.ParseLevel(cfg.LogLevel); levelErr == nil {
		log = log.Level(level)
	}
	if !cfg.Audit.Enabled() {
		log.Fatal().Msg("PUBSUB_PROJECT_ID must be set for the audit worker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConfig, err := database.ConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid database configuration")
	}
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	store := worker.NewPostgresStore(pool, cfg.Audit.Table)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to prepare audit table")
	}

	consumer, err := worker.NewConsumer(ctx, worker.ConsumerConfig{
		ProjectID:        cfg.Audit.ProjectID,
		SubscriptionName: cfg.Audit.Subscription,
		Store:            store,
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create audit consumer")
	}
	defer func() {
		if closeErr := consumer.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close audit consumer")
		}
	}()

	// Health endpoint for the container platform
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := consumer.Stats()
		response.JSON(w, r, http.StatusOK, models.Health{
			Status: models.HealthStatusOK,
			Time:   models.Timestamp(time.Now().UTC()),
			Details: map[string]interface{}{
				"version":  Version,
				"received": stats.Received,
				"stored":   stats.Stored,
				"rejected": stats.Rejected,
				"failed":   stats.Failed,
			},
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- consumer.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("shutting down worker")
	case err := <-consumerDone:
		log.Error().Err(err).Msg("audit consumer stopped")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
