package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aircast/aircast/internal/api/handler"
	"github.com/aircast/aircast/internal/api/models"
	"github.com/aircast/aircast/internal/forecast"
	"github.com/aircast/aircast/internal/predictor"
	"github.com/aircast/aircast/internal/provider/resilience"
)

func readyStatus() forecast.Status {
	return forecast.Status{
		Ready:    true,
		Source:   "csv:data/historical_pm25.csv",
		Records:  5,
		Cells:    4,
		GridSize: 10,
		Model:    predictor.Info{Name: "pm25-trend", Version: "2024.1", Kind: "linear"},
		LoadedAt: time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC),
	}
}

func TestOpsHandler_HealthCheck(t *testing.T) {
	h := handler.NewOpsHandler("1.2.3", "2024-06-15T00:00:00Z", &fakeForecaster{}, nil)

	rec := serve(h.HealthCheck, "/v1/ops/health")

	require.Equal(t, http.StatusOK, rec.Code)
	var body models.Health
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, models.HealthStatusOK, body.Status)
	assert.Equal(t, "1.2.3", body.Details["version"])
}

func TestOpsHandler_ReadinessCheck(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		h := handler.NewOpsHandler("dev", "unknown", &fakeForecaster{status: readyStatus()}, nil)

		rec := serve(h.ReadinessCheck, "/v1/ops/ready")

		require.Equal(t, http.StatusOK, rec.Code)
		var body models.Health
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, models.HealthStatusOK, body.Status)
		assert.EqualValues(t, 5, body.Details["records"])
	})

	t.Run("dataset not loaded", func(t *testing.T) {
		status := forecast.Status{Ready: false, Error: "open data/historical_pm25.csv: no such file or directory"}
		h := handler.NewOpsHandler("dev", "unknown", &fakeForecaster{status: status}, nil)

		rec := serve(h.ReadinessCheck, "/v1/ops/ready")

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body models.Health
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, models.HealthStatusDegraded, body.Status)
		assert.Equal(t, status.Error, body.Details["error"])
	})
}

func TestOpsHandler_SystemStatus(t *testing.T) {
	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig("openweathermap")
	cfg.Registry = registry
	_ = resilience.NewClient(cfg)
	registry.RecordSuccess("openweathermap")

	h := handler.NewOpsHandler("dev", "unknown", &fakeForecaster{status: readyStatus()}, registry)

	rec := serve(h.SystemStatus, "/v1/ops/status")

	require.Equal(t, http.StatusOK, rec.Code)
	var body models.SystemStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

	assert.Equal(t, models.HealthStatusOK, body.Status)
	assert.Empty(t, body.ActiveDegradationFlags)

	assert.Equal(t, models.HealthStatusOK, body.Dataset.Status)
	assert.Equal(t, 5, body.Dataset.Records)
	assert.Equal(t, 4, body.Dataset.Cells)
	assert.Equal(t, 10.0, body.Dataset.GridSize)
	assert.Equal(t, "linear", body.Dataset.ModelKind)
	assert.Equal(t, "2024.1", body.Dataset.ModelVersion)
	require.NotNil(t, body.Dataset.LoadedAt)

	require.Len(t, body.Providers, 1)
	assert.Equal(t, "openweathermap", body.Providers[0].Provider)
	assert.Equal(t, models.HealthStatusOK, body.Providers[0].Status)
	assert.Equal(t, gobreaker.StateClosed.String(), body.Providers[0].CircuitState)
	assert.NotNil(t, body.Providers[0].LastSuccessAt)
}

func TestOpsHandler_SystemStatusDegraded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	cbConfig := resilience.CircuitBreakerConfig{
		Name:        "openweathermap",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	}
	client := resilience.NewClient(resilience.ClientConfig{
		Name:            "openweathermap",
		Timeout:         time.Second,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     50 * time.Millisecond,
		CircuitBreaker:  &cbConfig,
		Registry:        registry,
	})
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)
	resp, _ := client.Do(req)
	if resp != nil {
		resp.Body.Close()
	}

	status := forecast.Status{Ready: false, Error: "grid size undefined"}
	h := handler.NewOpsHandler("dev", "unknown", &fakeForecaster{status: status}, registry)

	rec := serve(h.SystemStatus, "/v1/ops/status")

	require.Equal(t, http.StatusOK, rec.Code)
	var body models.SystemStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

	assert.Equal(t, models.HealthStatusDegraded, body.Status)
	assert.Equal(t, []string{handler.FlagDatasetUnavailable, handler.FlagProviderDegraded}, body.ActiveDegradationFlags)
	assert.Equal(t, models.HealthStatusFail, body.Dataset.Status)
	require.NotNil(t, body.Dataset.Error)
	assert.Equal(t, "grid size undefined", *body.Dataset.Error)

	require.Len(t, body.Providers, 1)
	assert.Equal(t, models.HealthStatusFail, body.Providers[0].Status)
	assert.Equal(t, gobreaker.StateOpen.String(), body.Providers[0].CircuitState)
	assert.NotNil(t, body.Providers[0].Message)
}
