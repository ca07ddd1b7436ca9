// Package metrics exposes Prometheus metrics for the forecast pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Forecast outcomes used as the "outcome" label.
const (
	OutcomeSuccess          = "success"
	OutcomeModelUnavailable = "model_unavailable"
	OutcomeLiveUnavailable  = "live_unavailable"
	OutcomeNoCoverage       = "no_coverage"
	OutcomeInferenceFailure = "inference_failure"
	OutcomeError            = "error"
)

// Pipeline stages used as the "stage" label.
const (
	StageLiveFetch = "live_fetch"
	StageLookup    = "historical_lookup"
	StageInference = "inference"
	StageTotal     = "total"
)

// Collector holds the application metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry *prometheus.Registry

	ForecastsTotal  *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	FinalPM25       prometheus.Histogram
	AnomalyPM25     prometheus.Histogram
	DatasetRecords  prometheus.Gauge
	DatasetCells    prometheus.Gauge
	DatasetLoadedAt prometheus.Gauge
}

// NewCollector creates a collector backed by its own registry, which also
// carries the Go runtime and process collectors.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newCollector(namespace, reg)
}

// NewCollectorWithRegistry creates a collector on the given registry without
// the runtime collectors.
func NewCollectorWithRegistry(namespace string, reg *prometheus.Registry) *Collector {
	return newCollector(namespace, reg)
}

func newCollector(namespace string, reg *prometheus.Registry) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		ForecastsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecasts_total",
				Help:      "Total number of hybrid forecasts by outcome",
			},
			[]string{"outcome"},
		),

		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "forecast_stage_duration_seconds",
				Help:      "Duration of each forecast pipeline stage in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"stage"},
		),

		FinalPM25: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "forecast_final_pm25_micrograms",
				Help:      "Final blended PM2.5 forecast in µg/m³",
				Buckets:   []float64{5, 10, 15, 25, 35, 50, 75, 100, 150, 250},
			},
		),

		AnomalyPM25: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "forecast_anomaly_pm25_micrograms",
				Help:      "Live minus historical PM2.5 anomaly in µg/m³",
				Buckets:   []float64{-50, -25, -10, -5, 0, 5, 10, 25, 50},
			},
		),

		DatasetRecords: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dataset_records",
				Help:      "Number of historical records loaded",
			},
		),

		DatasetCells: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dataset_cells",
				Help:      "Number of distinct grid cells with historical coverage",
			},
		),

		DatasetLoadedAt: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dataset_loaded_timestamp_seconds",
				Help:      "Unix time the historical dataset was loaded",
			},
		),
	}
}

// Handler exposes the registry for scraping.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RecordForecast counts a forecast outcome.
func (c *Collector) RecordForecast(outcome string) {
	if c == nil {
		return
	}
	c.ForecastsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a pipeline stage took.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveResult records the anomaly and final value of a successful forecast.
func (c *Collector) ObserveResult(anomaly, final float64) {
	if c == nil {
		return
	}
	c.AnomalyPM25.Observe(anomaly)
	c.FinalPM25.Observe(final)
}

// SetDataset updates the dataset gauges.
func (c *Collector) SetDataset(records, cells int, loadedAt time.Time) {
	if c == nil {
		return
	}
	c.DatasetRecords.Set(float64(records))
	c.DatasetCells.Set(float64(cells))
	c.DatasetLoadedAt.Set(float64(loadedAt.Unix()))
}

// Timer measures a single stage.
type Timer struct {
	start     time.Time
	stage     string
	collector *Collector
}

// StartStage starts timing a stage.
func (c *Collector) StartStage(stage string) *Timer {
	return &Timer{start: time.Now(), stage: stage, collector: c}
}

// ObserveDuration records the elapsed time since the timer started.
func (t *Timer) ObserveDuration() time.Duration {
	d := time.Since(t.start)
	t.collector.ObserveStage(t.stage, d)
	return d
}
