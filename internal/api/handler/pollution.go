// Package handler provides HTTP handlers for the aircast API.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/aircast/aircast/internal/airquality"
	"github.com/aircast/aircast/internal/api/middleware"
	"github.com/aircast/aircast/internal/api/models"
	"github.com/aircast/aircast/internal/api/response"
	"github.com/aircast/aircast/internal/audit"
	"github.com/aircast/aircast/internal/forecast"
	"github.com/aircast/aircast/internal/geogrid"
)

// Forecaster produces hybrid forecasts and cell reports.
type Forecaster interface {
	Predict(ctx context.Context, lat, lon float64) (*forecast.Result, error)
	Cell(lat, lon float64) (*forecast.CellReport, error)
	Status() forecast.Status
}

// PollutionHandler handles the live proxy, hybrid forecast and cell endpoints.
type PollutionHandler struct {
	forecaster Forecaster
	raw        airquality.RawProvider
	publisher  audit.Publisher
	logger     zerolog.Logger
}

// NewPollutionHandler creates a new PollutionHandler. A nil publisher
// disables audit events.
func NewPollutionHandler(forecaster Forecaster, raw airquality.RawProvider, publisher audit.Publisher, logger zerolog.Logger) *PollutionHandler {
	if publisher == nil {
		publisher = audit.NoopPublisher{}
	}
	return &PollutionHandler{
		forecaster: forecaster,
		raw:        raw,
		publisher:  publisher,
		logger:     logger,
	}
}

// Current handles GET /v1/pollution - pass-through of the provider's current
// air pollution payload.
func (h *PollutionHandler) Current(w http.ResponseWriter, r *http.Request) {
	lat, lon, fieldErrors := parseCoordinates(r)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid coordinates: "+fieldNames(fieldErrors), fieldErrors)
		return
	}

	body, err := h.raw.CurrentRaw(r.Context(), lat, lon)
	if err != nil {
		if errors.Is(err, airquality.ErrNotConfigured) {
			h.logger.Error().Err(err).Msg("live data provider not configured")
			response.InternalError(w, r, "live data provider is not configured")
			return
		}
		h.logger.Warn().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("live pollution fetch failed")
		response.BadGateway(w, r, "failed to fetch current air pollution data")
		return
	}

	response.RawJSON(w, r, http.StatusOK, body)
}

// Forecast handles GET /v1/pollution/forecast - hybrid PM2.5 forecast.
func (h *PollutionHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	lat, lon, fieldErrors := parseCoordinates(r)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid coordinates: "+fieldNames(fieldErrors), fieldErrors)
		return
	}

	result, err := h.forecaster.Predict(r.Context(), lat, lon)
	if err != nil {
		h.writeForecastError(w, r, err)
		return
	}

	requestID := middleware.GetRequestID(r.Context())
	if err := h.publisher.Publish(r.Context(), audit.NewForecastEvent(requestID, result)); err != nil {
		h.logger.Warn().Err(err).Str("request_id", requestID).Msg("failed to publish forecast audit event")
	}

	response.JSON(w, r, http.StatusOK, toPollutionForecast(result))
}

// Cell handles GET /v1/pollution/cell - the grid cell and historical coverage
// for a coordinate, without a live fetch.
func (h *PollutionHandler) Cell(w http.ResponseWriter, r *http.Request) {
	lat, lon, fieldErrors := parseCoordinates(r)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid coordinates: "+fieldNames(fieldErrors), fieldErrors)
		return
	}

	report, err := h.forecaster.Cell(lat, lon)
	if err != nil {
		h.writeForecastError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, toCellSummary(report))
}

func (h *PollutionHandler) writeForecastError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, geogrid.ErrInvalidCoordinates):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, forecast.ErrModelUnavailable):
		response.ModelUnavailable(w, r, "historical dataset or trend model is not loaded")
	case errors.Is(err, forecast.ErrLiveDataUnavailable):
		response.BadGateway(w, r, "live PM2.5 reading unavailable")
	case errors.Is(err, forecast.ErrNoHistoricalCoverage):
		response.NoHistoricalCoverage(w, r, "no historical data for the grid cell containing this location")
	case errors.Is(err, forecast.ErrModelInference):
		response.ModelInferenceFailure(w, r, "trend model failed to produce a prediction")
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("forecast request failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}

func toGridCell(cell geogrid.Cell, size geogrid.GridSize) models.GridCell {
	return models.GridCell{
		CenterLat: cell.CenterLat,
		CenterLon: cell.CenterLon,
		Row:       cell.Index.Row,
		Col:       cell.Index.Col,
		GridSize:  float64(size),
	}
}

func toPollutionForecast(res *forecast.Result) models.PollutionForecast {
	return models.PollutionForecast{
		Requested:         models.Point{Lat: res.Requested.Lat, Lon: res.Requested.Lon},
		Cell:              toGridCell(res.Cell, res.GridSize),
		Features:          models.ForecastFeatures{Year: res.Year, Month: res.Month},
		LivePM25:          res.LivePM25,
		HistoricalAverage: res.HistoricalAverage,
		Anomaly:           res.Anomaly,
		BasePrediction:    res.BasePrediction,
		FinalPrediction:   res.FinalPrediction,
		Unit:              models.UnitMicrogramsPerCubicMeter,
		ObservedAt:        models.TimestampPtr(res.ObservedAt),
		ComputedAt:        models.Timestamp(res.ComputedAt),
	}
}

func toCellSummary(report *forecast.CellReport) models.CellSummary {
	means := make(map[string]float64, len(report.MonthlyMeanUG))
	for m, v := range report.MonthlyMeanUG {
		means[strconv.Itoa(m)] = v
	}
	return models.CellSummary{
		Requested:    models.Point{Lat: report.Requested.Lat, Lon: report.Requested.Lon},
		Cell:         toGridCell(report.Cell, report.GridSize),
		Records:      report.Records,
		FirstYear:    report.FirstYear,
		LatestYear:   report.LatestYear,
		ForecastYear: report.ForecastYear,
		Months:       report.Months,
		MonthlyMean:  means,
		Unit:         models.UnitMicrogramsPerCubicMeter,
	}
}
