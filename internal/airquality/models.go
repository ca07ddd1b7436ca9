// Package airquality provides live air pollution observations from external
// providers.
package airquality

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Provider errors.
var (
	ErrProviderUnavailable = errors.New("air quality provider unavailable")
	ErrNotConfigured       = errors.New("air quality provider not configured")
	ErrNoData              = errors.New("no air quality data for location")
)

// Observation is a live PM2.5 reading at a point.
type Observation struct {
	Lat float64
	Lon float64

	// PM25 is the fine particulate concentration in µg/m³.
	PM25 float64

	// Components holds every pollutant the provider reported, in µg/m³.
	Components map[string]float64

	// AQI is the provider's air quality index (1-5 for OpenWeatherMap).
	AQI int

	ObservedAt time.Time
	FetchedAt  time.Time
}

// Provider fetches live air pollution data.
type Provider interface {
	// CurrentPM25 returns the current PM2.5 reading for a location.
	CurrentPM25(ctx context.Context, lat, lon float64) (*Observation, error)

	// Name returns the provider name for logging.
	Name() string
}

// RawProvider returns the provider's payload untouched, for pass-through
// endpoints.
type RawProvider interface {
	CurrentRaw(ctx context.Context, lat, lon float64) (json.RawMessage, error)
}

// Place is a geocoding match.
type Place struct {
	Name    string
	State   string
	Country string
	Lat     float64
	Lon     float64
}

// Geocoder resolves place names to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, query string, limit int) ([]Place, error)
}
