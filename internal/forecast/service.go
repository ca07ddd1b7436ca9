// Package forecast produces hybrid PM2.5 forecasts: a trend model's base
// prediction for a grid cell corrected by how far the current live reading
// deviates from that cell's historical monthly average.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aircast/aircast/internal/airquality"
	"github.com/aircast/aircast/internal/geogrid"
	"github.com/aircast/aircast/internal/historical"
	"github.com/aircast/aircast/internal/metrics"
	"github.com/aircast/aircast/internal/predictor"
)

const tracerName = "github.com/aircast/aircast/internal/forecast"

// Forecast errors. Every failed forecast returns exactly one of these,
// possibly wrapped, or geogrid.ErrInvalidCoordinates.
var (
	ErrModelUnavailable     = errors.New("forecast model unavailable")
	ErrLiveDataUnavailable  = errors.New("live data unavailable")
	ErrNoHistoricalCoverage = errors.New("no historical coverage for location")
	ErrModelInference       = errors.New("model inference failed")
)

// ServiceConfig holds configuration for the forecast service.
type ServiceConfig struct {
	// Provider supplies live PM2.5 observations.
	Provider airquality.Provider

	// Dataset is the startup-loaded state. Nil means loading failed and
	// every forecast returns ErrModelUnavailable.
	Dataset *Dataset

	// LoadErr is the reason Dataset is nil, reported by Status.
	LoadErr error

	// Clock returns the current time (optional, defaults to time.Now).
	Clock func() time.Time

	// Metrics records pipeline metrics (optional).
	Metrics *metrics.Collector

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service computes hybrid forecasts. It holds no mutable state and is safe
// for concurrent use.
type Service struct {
	provider airquality.Provider
	dataset  *Dataset
	loadErr  error
	clock    func() time.Time
	metrics  *metrics.Collector
	tracer   trace.Tracer
	logger   zerolog.Logger
}

// NewService creates a new forecast service.
func NewService(cfg ServiceConfig) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	loadErr := cfg.LoadErr
	if cfg.Dataset == nil && loadErr == nil {
		loadErr = errors.New("dataset not loaded")
	}

	if cfg.Dataset != nil {
		cfg.Metrics.SetDataset(cfg.Dataset.Table().Len(), cfg.Dataset.Table().CellCount(), cfg.Dataset.LoadedAt())
	}

	return &Service{
		provider: cfg.Provider,
		dataset:  cfg.Dataset,
		loadErr:  loadErr,
		clock:    clock,
		metrics:  cfg.Metrics,
		tracer:   otel.Tracer(tracerName),
		logger:   cfg.Logger,
	}
}

// Ready reports whether hybrid forecasts can be served.
func (s *Service) Ready() bool {
	return s.dataset != nil
}

// Predict runs the full pipeline for a coordinate: live fetch, grid
// resolution, historical lookup, anomaly, trend inference, blend. It returns
// either a complete Result or a single error.
func (s *Service) Predict(ctx context.Context, lat, lon float64) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "forecast.Predict",
		trace.WithAttributes(
			attribute.Float64("forecast.lat", lat),
			attribute.Float64("forecast.lon", lon),
		),
	)
	defer span.End()

	total := s.metrics.StartStage(metrics.StageTotal)
	result, err := s.predict(ctx, lat, lon)
	total.ObserveDuration()

	if err != nil {
		s.metrics.RecordForecast(outcomeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.metrics.RecordForecast(metrics.OutcomeSuccess)
	s.metrics.ObserveResult(result.Anomaly, result.FinalPrediction)
	span.SetAttributes(
		attribute.Float64("forecast.cell.lat", result.Cell.CenterLat),
		attribute.Float64("forecast.cell.lon", result.Cell.CenterLon),
		attribute.Float64("forecast.final", result.FinalPrediction),
	)
	return result, nil
}

func (s *Service) predict(ctx context.Context, lat, lon float64) (*Result, error) {
	if s.dataset == nil {
		return nil, ErrModelUnavailable
	}

	coord := geogrid.Coordinate{Lat: lat, Lon: lon}
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	month := int(now.Month())

	timer := s.metrics.StartStage(metrics.StageLiveFetch)
	obs, err := s.provider.CurrentPM25(ctx, lat, lon)
	timer.ObserveDuration()
	if err != nil {
		s.logger.Warn().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Str("provider", s.provider.Name()).
			Msg("live observation failed")
		return nil, fmt.Errorf("%w: %w", ErrLiveDataUnavailable, err)
	}
	if math.IsNaN(obs.PM25) || math.IsInf(obs.PM25, 0) {
		return nil, fmt.Errorf("%w: non-finite pm2_5", ErrLiveDataUnavailable)
	}

	table := s.dataset.Table()
	size := table.GridSize()
	cell := geogrid.Resolve(coord, size)

	timer = s.metrics.StartStage(metrics.StageLookup)
	coverage, err := table.Lookup(cell, month)
	timer.ObserveDuration()
	if err != nil {
		if errors.Is(err, historical.ErrNoCoverage) {
			return nil, fmt.Errorf("%w: cell (%g, %g)", ErrNoHistoricalCoverage, cell.CenterLat, cell.CenterLon)
		}
		return nil, err
	}

	anomaly := Anomaly(obs.PM25, coverage.Average)

	features := predictor.Features{
		CenterLat: cell.CenterLat,
		CenterLon: cell.CenterLon,
		Year:      coverage.LatestYear + 1,
		Month:     month,
	}

	timer = s.metrics.StartStage(metrics.StageInference)
	base, err := s.dataset.Predictor().Predict(ctx, features)
	timer.ObserveDuration()
	if err != nil {
		s.logger.Error().Err(err).
			Float64("center_lat", features.CenterLat).
			Float64("center_lon", features.CenterLon).
			Int("year", features.Year).
			Int("month", features.Month).
			Msg("trend model inference failed")
		return nil, fmt.Errorf("%w: %w", ErrModelInference, err)
	}
	if math.IsNaN(base) || math.IsInf(base, 0) {
		return nil, fmt.Errorf("%w: %w", ErrModelInference, predictor.ErrNonFinite)
	}

	result := &Result{
		Requested:       coord,
		Cell:            cell,
		GridSize:        size,
		Year:            features.Year,
		Month:           features.Month,
		LivePM25:        obs.PM25,
		Anomaly:         anomaly,
		BasePrediction:  ToMicrograms(base),
		FinalPrediction: Blend(base, anomaly),
		MonthRecords:    coverage.MonthRecords,
		ObservedAt:      obs.ObservedAt,
		ComputedAt:      now,
	}
	if coverage.Average != nil {
		avg := ToMicrograms(*coverage.Average)
		result.HistoricalAverage = &avg
	}

	s.logger.Debug().
		Float64("cell_lat", cell.CenterLat).
		Float64("cell_lon", cell.CenterLon).
		Float64("live", result.LivePM25).
		Float64("anomaly", result.Anomaly).
		Float64("base", result.BasePrediction).
		Float64("final", result.FinalPrediction).
		Msg("hybrid forecast computed")

	return result, nil
}

// Cell describes the grid cell that contains a coordinate and its historical
// coverage, without a live fetch.
func (s *Service) Cell(lat, lon float64) (*CellReport, error) {
	if s.dataset == nil {
		return nil, ErrModelUnavailable
	}

	coord := geogrid.Coordinate{Lat: lat, Lon: lon}
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	table := s.dataset.Table()
	cell := geogrid.Resolve(coord, table.GridSize())

	summary, err := table.Summary(cell)
	if err != nil {
		if errors.Is(err, historical.ErrNoCoverage) {
			return nil, fmt.Errorf("%w: cell (%g, %g)", ErrNoHistoricalCoverage, cell.CenterLat, cell.CenterLon)
		}
		return nil, err
	}

	report := &CellReport{
		Requested:     coord,
		Cell:          cell,
		GridSize:      table.GridSize(),
		Records:       summary.Records,
		FirstYear:     summary.FirstYear,
		LatestYear:    summary.LatestYear,
		ForecastYear:  summary.LatestYear + 1,
		Months:        summary.Months,
		MonthlyMeanUG: make(map[int]float64, len(summary.MonthlyMean)),
	}
	for m, v := range summary.MonthlyMean {
		report.MonthlyMeanUG[m] = ToMicrograms(v)
	}
	return report, nil
}

// Status reports the dataset state.
func (s *Service) Status() Status {
	if s.dataset == nil {
		st := Status{Ready: false}
		if s.loadErr != nil {
			st.Error = s.loadErr.Error()
		}
		return st
	}

	table := s.dataset.Table()
	return Status{
		Ready:    true,
		Source:   s.dataset.Source(),
		Records:  table.Len(),
		Cells:    table.CellCount(),
		GridSize: table.GridSize(),
		Model:    s.dataset.ModelInfo(),
		LoadedAt: s.dataset.LoadedAt(),
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrModelUnavailable):
		return metrics.OutcomeModelUnavailable
	case errors.Is(err, ErrLiveDataUnavailable):
		return metrics.OutcomeLiveUnavailable
	case errors.Is(err, ErrNoHistoricalCoverage):
		return metrics.OutcomeNoCoverage
	case errors.Is(err, ErrModelInference):
		return metrics.OutcomeInferenceFailure
	default:
		return metrics.OutcomeError
	}
}
