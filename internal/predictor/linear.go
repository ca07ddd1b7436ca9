package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
)

// Feature names accepted in a linear model artifact.
const (
	FeatureCenterLat = "center_lat"
	FeatureCenterLon = "center_lon"
	FeatureYear      = "year"
	FeatureMonth     = "month"
)

// linearArtifact is the on-disk JSON form of a LinearModel.
type linearArtifact struct {
	Name         string             `json:"name"`
	Version      string             `json:"version"`
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`
	MonthOffsets []float64          `json:"month_offsets,omitempty"`
}

// LinearModel is a regression over the four trend features, with optional
// per-month additive offsets for seasonality. It is immutable once loaded.
type LinearModel struct {
	name      string
	version   string
	intercept float64
	lat       float64
	lon       float64
	year      float64
	month     float64
	offsets   [12]float64
}

// LoadLinearModelFile reads a linear model artifact from disk.
func LoadLinearModelFile(path string) (*LinearModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model artifact: %w", err)
	}
	defer f.Close()

	return LoadLinearModel(f)
}

// LoadLinearModel decodes a linear model artifact.
func LoadLinearModel(r io.Reader) (*LinearModel, error) {
	var a linearArtifact
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}

	if len(a.Coefficients) == 0 {
		return nil, fmt.Errorf("%w: no coefficients", ErrInvalidArtifact)
	}

	m := &LinearModel{
		name:      a.Name,
		version:   a.Version,
		intercept: a.Intercept,
	}

	for name, v := range a.Coefficients {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: coefficient %q is not finite", ErrInvalidArtifact, name)
		}
		switch name {
		case FeatureCenterLat:
			m.lat = v
		case FeatureCenterLon:
			m.lon = v
		case FeatureYear:
			m.year = v
		case FeatureMonth:
			m.month = v
		default:
			return nil, fmt.Errorf("%w: unknown feature %q", ErrInvalidArtifact, name)
		}
	}

	if a.MonthOffsets != nil {
		if len(a.MonthOffsets) != 12 {
			return nil, fmt.Errorf("%w: month_offsets must have 12 entries, got %d", ErrInvalidArtifact, len(a.MonthOffsets))
		}
		copy(m.offsets[:], a.MonthOffsets)
	}

	return m, nil
}

// Predict evaluates the regression.
func (m *LinearModel) Predict(_ context.Context, f Features) (float64, error) {
	if f.Month < 1 || f.Month > 12 {
		return 0, fmt.Errorf("month %d out of range", f.Month)
	}

	y := m.intercept +
		m.lat*f.CenterLat +
		m.lon*f.CenterLon +
		m.year*float64(f.Year) +
		m.month*float64(f.Month) +
		m.offsets[f.Month-1]

	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, ErrNonFinite
	}
	return y, nil
}

// Describe reports the model identity.
func (m *LinearModel) Describe() Info {
	return Info{Name: m.name, Version: m.version, Kind: "linear"}
}
