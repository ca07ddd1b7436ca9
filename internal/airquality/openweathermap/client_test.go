package openweathermap_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aircast/aircast/internal/airquality"
	"github.com/aircast/aircast/internal/airquality/openweathermap"
	"github.com/aircast/aircast/internal/provider/resilience"
)

func testHTTPClient(name string) *resilience.Client {
	cfg := resilience.DefaultClientConfig(name)
	cfg.MaxRetries = 1
	cfg.InitialInterval = 5 * time.Millisecond
	cfg.MaxInterval = 10 * time.Millisecond
	return resilience.NewClient(cfg)
}

func newClient(serverURL string) *openweathermap.Client {
	return openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     "****",
		BaseURL:    serverURL,
		GeoURL:     serverURL + "/geo",
		HTTPClient: testHTTPClient("test"),
	})
}

func TestClient_CurrentPM25(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/air_pollution", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("lat"), "51.507")
		assert.Contains(t, r.URL.Query().Get("lon"), "-0.127")
		assert.Equal(t, "****", r.URL.Query().Get("appid"))

		response := map[string]interface{}{
			"coord": map[string]float64{"lat": 51.5072, "lon": -0.1276},
			"list": []map[string]interface{}{
				{
					"main": map[string]int{"aqi": 2},
					"components": map[string]float64{
						"co":    201.94,
						"no2":   10.2,
						"o3":    68.66,
						"pm2_5": 12.5,
						"pm10":  15.1,
					},
					"dt": 1718000000,
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	obs, err := newClient(server.URL).CurrentPM25(context.Background(), 51.5072, -0.1276)
	require.NoError(t, err)
	require.NotNil(t, obs)

	assert.Equal(t, 12.5, obs.PM25)
	assert.Equal(t, 2, obs.AQI)
	assert.Equal(t, 51.5072, obs.Lat)
	assert.Equal(t, -0.1276, obs.Lon)
	assert.Equal(t, 15.1, obs.Components["pm10"])
	assert.Equal(t, time.Unix(1718000000, 0).UTC(), obs.ObservedAt)
	assert.False(t, obs.FetchedAt.IsZero())
}

func TestClient_CurrentPM25_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantNoData bool
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{}`},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"cod":401}`},
		{name: "malformed body", status: http.StatusOK, body: `{"list": [`},
		{name: "empty list", status: http.StatusOK, body: `{"list": []}`, wantNoData: true},
		{name: "missing pm2_5", status: http.StatusOK, body: `{"list": [{"components": {"pm10": 3.1}}]}`, wantNoData: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			obs, err := newClient(server.URL).CurrentPM25(context.Background(), 10, 10)
			assert.Nil(t, obs)
			assert.ErrorIs(t, err, airquality.ErrProviderUnavailable)
			if tt.wantNoData {
				assert.ErrorIs(t, err, airquality.ErrNoData)
			}
		})
	}
}

func TestClient_CurrentPM25_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	serverURL := server.URL
	server.Close()

	_, err := newClient(serverURL).CurrentPM25(context.Background(), 10, 10)
	assert.ErrorIs(t, err, airquality.ErrProviderUnavailable)
}

func TestClient_NotConfigured(t *testing.T) {
	client := openweathermap.NewClient(openweathermap.ClientConfig{
		HTTPClient: testHTTPClient("test-unconfigured"),
	})

	_, err := client.CurrentPM25(context.Background(), 10, 10)
	assert.ErrorIs(t, err, airquality.ErrNotConfigured)

	_, err = client.CurrentRaw(context.Background(), 10, 10)
	assert.ErrorIs(t, err, airquality.ErrNotConfigured)
}

func TestClient_CurrentRaw(t *testing.T) {
	payload := `{"coord":{"lon":-0.1276,"lat":51.5072},"list":[{"main":{"aqi":1},"components":{"pm2_5":0.5},"dt":1}]}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/air_pollution", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	raw, err := newClient(server.URL).CurrentRaw(context.Background(), 51.5072, -0.1276)
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(raw))
}

func TestClient_CurrentRaw_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer server.Close()

	_, err := newClient(server.URL).CurrentRaw(context.Background(), 1, 1)
	assert.ErrorIs(t, err, airquality.ErrProviderUnavailable)
}

func TestClient_Geocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geo/direct", r.URL.Path)
		assert.Equal(t, "São Paulo", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		response := []map[string]interface{}{
			{"name": "São Paulo", "lat": -23.5506507, "lon": -46.6333824, "country": "BR", "state": "São Paulo"},
		}
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	places, err := newClient(server.URL).Geocode(context.Background(), "São Paulo", 2)
	require.NoError(t, err)
	require.Len(t, places, 1)

	assert.Equal(t, "São Paulo", places[0].Name)
	assert.Equal(t, "BR", places[0].Country)
	assert.Equal(t, -23.5506507, places[0].Lat)
	assert.Equal(t, -46.6333824, places[0].Lon)
}

func TestClient_Name(t *testing.T) {
	client := openweathermap.NewClient(openweathermap.ClientConfig{})
	assert.Equal(t, openweathermap.ProviderName, client.Name())
}
