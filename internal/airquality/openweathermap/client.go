// Package openweathermap implements the OpenWeatherMap Air Pollution and
// Geocoding APIs.
package openweathermap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aircast/aircast/internal/airquality"
	"github.com/aircast/aircast/internal/provider/resilience"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "openweathermap"

	// DefaultBaseURL is the OpenWeatherMap data API base URL.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	// DefaultGeoURL is the OpenWeatherMap Geocoding API base URL.
	DefaultGeoURL = "https://api.openweathermap.org/geo/1.0"

	// componentPM25 is the pm2_5 key in the components object.
	componentPM25 = "pm2_5"

	maxBodyBytes = 1 << 20
)

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	// APIKey is the OpenWeatherMap API key. Requests fail with
	// airquality.ErrNotConfigured when empty.
	APIKey string

	// BaseURL is the data API base URL (optional).
	BaseURL string

	// GeoURL is the Geocoding API base URL (optional).
	GeoURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenWeatherMap API client.
type Client struct {
	apiKey     string
	baseURL    string
	geoURL     string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new OpenWeatherMap client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	geoURL := cfg.GeoURL
	if geoURL == "" {
		geoURL = DefaultGeoURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		geoURL:     geoURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// CurrentRaw fetches the current air pollution payload for a location without
// interpreting it.
func (c *Client) CurrentRaw(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	body, err := c.get(ctx, c.airPollutionURL(lat, lon))
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: response is not valid JSON", airquality.ErrProviderUnavailable)
	}
	return json.RawMessage(body), nil
}

// CurrentPM25 fetches the current PM2.5 concentration for a location, taken
// from list[0].components.pm2_5.
func (c *Client) CurrentPM25(ctx context.Context, lat, lon float64) (*airquality.Observation, error) {
	body, err := c.get(ctx, c.airPollutionURL(lat, lon))
	if err != nil {
		return nil, err
	}

	var resp airPollutionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", airquality.ErrProviderUnavailable, err)
	}

	return toObservation(&resp, lat, lon)
}

// Geocode resolves a place name via the direct geocoding endpoint.
func (c *Client) Geocode(ctx context.Context, query string, limit int) ([]airquality.Place, error) {
	if limit <= 0 {
		limit = 1
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("appid", c.apiKey)

	body, err := c.get(ctx, c.geoURL+"/direct?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp []geocodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", airquality.ErrProviderUnavailable, err)
	}

	places := make([]airquality.Place, 0, len(resp))
	for _, p := range resp {
		places = append(places, airquality.Place{
			Name:    p.Name,
			State:   p.State,
			Country: p.Country,
			Lat:     p.Lat,
			Lon:     p.Lon,
		})
	}
	return places, nil
}

func (c *Client) airPollutionURL(lat, lon float64) string {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	params.Set("appid", c.apiKey)
	return c.baseURL + "/air_pollution?" + params.Encode()
}

// get performs a GET and returns the body of a 2xx response. Every failure is
// wrapped in airquality.ErrProviderUnavailable except a missing API key.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, airquality.ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", airquality.ErrProviderUnavailable, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("provider", ProviderName).Msg("request failed")
		return nil, fmt.Errorf("%w: executing request: %v", airquality.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("provider", ProviderName).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("provider response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status code: %d", airquality.ErrProviderUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", airquality.ErrProviderUnavailable, err)
	}
	return body, nil
}

// toObservation converts the first list entry into a domain observation.
func toObservation(resp *airPollutionResponse, lat, lon float64) (*airquality.Observation, error) {
	if len(resp.List) == 0 {
		return nil, fmt.Errorf("%w: %w: empty list", airquality.ErrProviderUnavailable, airquality.ErrNoData)
	}

	entry := resp.List[0]
	pm25, ok := entry.Components[componentPM25]
	if !ok {
		return nil, fmt.Errorf("%w: %w: missing %s", airquality.ErrProviderUnavailable, airquality.ErrNoData, componentPM25)
	}

	obs := &airquality.Observation{
		Lat:        lat,
		Lon:        lon,
		PM25:       pm25,
		Components: entry.Components,
		AQI:        entry.Main.AQI,
		FetchedAt:  time.Now(),
	}
	if entry.Dt > 0 {
		obs.ObservedAt = time.Unix(entry.Dt, 0).UTC()
	}
	if resp.Coord != nil {
		obs.Lat = resp.Coord.Lat
		obs.Lon = resp.Coord.Lon
	}

	return obs, nil
}

// OpenWeatherMap API response structures.

type airPollutionResponse struct {
	Coord *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	List []struct {
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
		Components map[string]float64 `json:"components"`
		Dt         int64              `json:"dt"`
	} `json:"list"`
}

type geocodeResponse struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state"`
}
