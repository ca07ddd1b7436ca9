// Package audit publishes a record of every hybrid forecast so the stages
// behind each number can be inspected after the fact.
package audit

import (
	"time"

	"github.com/aircast/aircast/internal/forecast"
)

// EventTypeForecast identifies forecast events in message attributes.
const EventTypeForecast = "pm25.forecast"

// ForecastEvent is the audit record of one hybrid forecast. Concentrations
// are in µg/m³.
type ForecastEvent struct {
	RequestID         string    `json:"request_id,omitempty"`
	Lat               float64   `json:"lat"`
	Lon               float64   `json:"lon"`
	CellLat           float64   `json:"cell_lat"`
	CellLon           float64   `json:"cell_lon"`
	GridSize          float64   `json:"grid_size"`
	Year              int       `json:"year"`
	Month             int       `json:"month"`
	LivePM25          float64   `json:"live_pm25"`
	HistoricalAverage *float64  `json:"historical_average"`
	Anomaly           float64   `json:"anomaly"`
	BasePrediction    float64   `json:"base_prediction"`
	FinalPrediction   float64   `json:"final_prediction"`
	ComputedAt        time.Time `json:"computed_at"`
}

// NewForecastEvent builds an audit event from a forecast result.
func NewForecastEvent(requestID string, r *forecast.Result) ForecastEvent {
	return ForecastEvent{
		RequestID:         requestID,
		Lat:               r.Requested.Lat,
		Lon:               r.Requested.Lon,
		CellLat:           r.Cell.CenterLat,
		CellLon:           r.Cell.CenterLon,
		GridSize:          float64(r.GridSize),
		Year:              r.Year,
		Month:             r.Month,
		LivePM25:          r.LivePM25,
		HistoricalAverage: r.HistoricalAverage,
		Anomaly:           r.Anomaly,
		BasePrediction:    r.BasePrediction,
		FinalPrediction:   r.FinalPrediction,
		ComputedAt:        r.ComputedAt,
	}
}
