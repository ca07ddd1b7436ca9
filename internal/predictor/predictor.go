// Package predictor provides the trend model that forecasts a grid cell's
// average PM2.5 for a given year and month.
package predictor

import (
	"context"
	"errors"
)

// Predictor errors.
var (
	ErrInvalidArtifact = errors.New("invalid model artifact")
	ErrNonFinite       = errors.New("model produced a non-finite prediction")
)

// Features are the inputs to the trend model.
type Features struct {
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
	Year      int     `json:"year"`
	Month     int     `json:"month"`
}

// Predictor maps features to a predicted average PM2.5 in the historical
// dataset's unit. Implementations must be safe for concurrent use.
type Predictor interface {
	Predict(ctx context.Context, f Features) (float64, error)
}

// Info describes a loaded model.
type Info struct {
	Name    string
	Version string
	Kind    string
}

// Describer is implemented by predictors that can report what they are.
type Describer interface {
	Describe() Info
}
