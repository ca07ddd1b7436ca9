// Package api provides the HTTP API for aircast.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/aircast/aircast/internal/airquality"
	"github.com/aircast/aircast/internal/api/handler"
	"github.com/aircast/aircast/internal/api/middleware"
	"github.com/aircast/aircast/internal/api/response"
	"github.com/aircast/aircast/internal/audit"
	"github.com/aircast/aircast/internal/metrics"
	"github.com/aircast/aircast/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version    string
	BuildTime  string
	Logger     zerolog.Logger
	RequireTLS bool

	// Metrics records OpenTelemetry HTTP metrics; Collector serves the
	// Prometheus /metrics endpoint. Either may be nil.
	Metrics   *middleware.Metrics
	Collector *metrics.Collector

	Forecaster  handler.Forecaster
	RawProvider airquality.RawProvider
	Geocoder    airquality.Geocoder
	Publisher   audit.Publisher
	Registry    *resilience.Registry
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID) // Generate/propagate request ID first
	r.Use(middleware.Tracing()) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route matches "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.MethodNotAllowed(w, r, r.Method+" is not supported on "+r.URL.Path)
	})

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Forecaster, cfg.Registry)
	pollutionHandler := handler.NewPollutionHandler(cfg.Forecaster, cfg.RawProvider, cfg.Publisher, cfg.Logger)
	geocodeHandler := handler.NewGeocodeHandler(cfg.Geocoder, cfg.Logger)

	// Create rate limit middleware for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit)          // 30 req/min
	proxyRateLimit := middleware.RateLimitByIPAndEndpoint(middleware.ProxyRateLimit)       // 60 req/min per endpoint
	standardRateLimit := middleware.RateLimitByIPAndEndpoint(middleware.StandardRateLimit) // 100 req/min per endpoint

	if cfg.Collector != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Collector.Handler())
	}

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/pollution", func(r chi.Router) {
			// Live pass-through spends upstream quota
			r.With(proxyRateLimit).Get("/", pollutionHandler.Current)

			// Hybrid forecast - live fetch plus inference
			r.With(expensiveRateLimit).Get("/forecast", pollutionHandler.Forecast)

			r.With(standardRateLimit).Get("/cell", pollutionHandler.Cell)
		})

		r.With(proxyRateLimit).Get("/geocode", geocodeHandler.Search)
	})

	return r
}
