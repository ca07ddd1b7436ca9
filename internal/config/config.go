// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aircast/aircast/internal/airquality/openweathermap"
	"github.com/aircast/aircast/internal/database"
)

// Historical data sources.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// Config is the full service configuration.
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	OpenWeatherMap OpenWeatherMapConfig
	Model          ModelConfig
	Historical     HistoricalConfig
	Database       database.Config
	Telemetry      TelemetryConfig
	Audit          AuditConfig

	RequireTLS      bool
	ShutdownTimeout time.Duration
}

// OpenWeatherMapConfig configures the live data provider.
type OpenWeatherMapConfig struct {
	APIKey  string
	BaseURL string
	GeoURL  string
	Timeout time.Duration
}

// ModelConfig selects the trend model. A non-empty PredictorURL takes
// precedence over Path.
type ModelConfig struct {
	Path         string
	PredictorURL string
}

// HistoricalConfig selects where historical records are loaded from.
type HistoricalConfig struct {
	Source string
	Path   string
	Table  string
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
}

// AuditConfig configures forecast audit publishing and the worker that
// consumes it. Publishing is disabled when ProjectID is empty.
type AuditConfig struct {
	ProjectID    string
	Topic        string
	Subscription string
	Table        string
}

// Enabled reports whether audit events should be published.
func (a AuditConfig) Enabled() bool {
	return a.ProjectID != ""
}

// Load reads a .env file when present and then the environment. Files named
// in envFiles replace the default ".env".
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	cfg := &Config{
		Port:        getEnvOrDefault("APP_PORT", "8080"),
		Environment: getEnvOrDefault("APP_ENV", "development"),
		LogLevel:    strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		OpenWeatherMap: OpenWeatherMapConfig{
			APIKey:  os.Getenv("OPENWEATHERMAP_API_KEY"),
			BaseURL: getEnvOrDefault("OPENWEATHERMAP_BASE_URL", openweathermap.DefaultBaseURL),
			GeoURL:  getEnvOrDefault("OPENWEATHERMAP_GEO_URL", openweathermap.DefaultGeoURL),
		},
		Model: ModelConfig{
			Path:         getEnvOrDefault("MODEL_PATH", "data/pm25_model.json"),
			PredictorURL: os.Getenv("PREDICTOR_URL"),
		},
		Historical: HistoricalConfig{
			Source: strings.ToLower(getEnvOrDefault("HISTORICAL_SOURCE", SourceCSV)),
			Path:   getEnvOrDefault("HISTORICAL_PATH", "data/historical_pm25.csv"),
			Table:  getEnvOrDefault("HISTORICAL_TABLE", "historical_pm25"),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		},
		Audit: AuditConfig{
			ProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
			Topic:        getEnvOrDefault("PUBSUB_AUDIT_TOPIC", "pm25-forecasts"),
			Subscription: getEnvOrDefault("PUBSUB_AUDIT_SUBSCRIPTION", "pm25-forecasts-audit"),
			Table:        getEnvOrDefault("AUDIT_TABLE", "forecast_audit"),
		},
	}

	var err error
	if cfg.OpenWeatherMap.Timeout, err = getDuration("OPENWEATHERMAP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Telemetry.Enabled, err = getBool("OTEL_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.RequireTLS, err = getBool("REQUIRE_TLS", false); err != nil {
		return nil, err
	}
	if cfg.Telemetry.SampleRatio, err = getFloat("OTEL_SAMPLE_RATIO", 1); err != nil {
		return nil, err
	}

	switch cfg.Historical.Source {
	case SourceCSV:
	case SourcePostgres:
		if cfg.Database, err = database.ConfigFromEnv(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("invalid HISTORICAL_SOURCE %q: must be %q or %q", cfg.Historical.Source, SourceCSV, SourcePostgres)
	}

	return cfg, nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
