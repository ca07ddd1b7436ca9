package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aircast/aircast/internal/config"
)

var configKeys = []string{
	"APP_PORT", "APP_ENV", "LOG_LEVEL",
	"OPENWEATHERMAP_API_KEY", "OPENWEATHERMAP_BASE_URL", "OPENWEATHERMAP_GEO_URL", "OPENWEATHERMAP_TIMEOUT",
	"MODEL_PATH", "PREDICTOR_URL",
	"HISTORICAL_SOURCE", "HISTORICAL_PATH", "HISTORICAL_TABLE",
	"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SAMPLE_RATIO",
	"PUBSUB_PROJECT_ID", "PUBSUB_AUDIT_TOPIC", "PUBSUB_AUDIT_SUBSCRIPTION", "AUDIT_TABLE",
	"REQUIRE_TLS", "SHUTDOWN_TIMEOUT",
	"DB_HOST", "DB_PORT",
}

// clearEnv blanks every key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.OpenWeatherMap.APIKey)
	assert.Equal(t, "https://api.openweathermap.org/data/2.5", cfg.OpenWeatherMap.BaseURL)
	assert.Equal(t, "https://api.openweathermap.org/geo/1.0", cfg.OpenWeatherMap.GeoURL)
	assert.Equal(t, 10*time.Second, cfg.OpenWeatherMap.Timeout)
	assert.Equal(t, "data/pm25_model.json", cfg.Model.Path)
	assert.Empty(t, cfg.Model.PredictorURL)
	assert.Equal(t, config.SourceCSV, cfg.Historical.Source)
	assert.Equal(t, "data/historical_pm25.csv", cfg.Historical.Path)
	assert.Equal(t, "historical_pm25", cfg.Historical.Table)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRatio)
	assert.False(t, cfg.Audit.Enabled())
	assert.Equal(t, "pm25-forecasts", cfg.Audit.Topic)
	assert.Equal(t, "pm25-forecasts-audit", cfg.Audit.Subscription)
	assert.Equal(t, "forecast_audit", cfg.Audit.Table)
	assert.False(t, cfg.RequireTLS)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FromEnvFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	content := "APP_PORT=9090\nOPENWEATHERMAP_API_KEY=secret\nOTEL_ENABLED=true\nPUBSUB_PROJECT_ID=aircast-prod\nLOG_LEVEL=DEBUG\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "secret", cfg.OpenWeatherMap.APIKey)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.True(t, cfg.Audit.Enabled())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_PORT", "7070")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("APP_PORT=9090\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
}

func TestLoad_Postgres(t *testing.T) {
	clearEnv(t)
	t.Setenv("HISTORICAL_SOURCE", "Postgres")
	t.Setenv("DB_HOST", "db.internal")

	cfg, err := config.Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, config.SourcePostgres, cfg.Historical.Source)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown source", key: "HISTORICAL_SOURCE", value: "parquet"},
		{name: "bad bool", key: "OTEL_ENABLED", value: "sometimes"},
		{name: "bad duration", key: "OPENWEATHERMAP_TIMEOUT", value: "ten"},
		{name: "bad shutdown", key: "SHUTDOWN_TIMEOUT", value: "-"},
		{name: "bad sample ratio", key: "OTEL_SAMPLE_RATIO", value: "half"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := config.Load(missingEnvFile(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_InvalidDatabaseConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("HISTORICAL_SOURCE", "postgres")
	t.Setenv("DB_PORT", "x")

	_, err := config.Load(missingEnvFile(t))
	assert.ErrorContains(t, err, "DB_PORT")
}
