package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	predictions  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	modelsLoaded prometheus.Gauge
	reloads      *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		predictions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linksight_predictions_total",
				Help: "Total predictions served, by model and result",
			},
			[]string{"model", "result"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "linksight_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		modelsLoaded: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "linksight_models_loaded",
				Help: "Number of model entries in the current registry snapshot",
			},
		),
		reloads: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linksight_registry_reloads_total",
				Help: "Registry rebuild attempts, by result",
			},
			[]string{"result"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linksight_prediction_cache_lookups_total",
				Help: "Prediction cache lookups, by outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linksight_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordPrediction records one served prediction.
func (r *Recorder) RecordPrediction(model, result string) {
	r.predictions.WithLabelValues(model, result).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordModelsLoaded records the current registry size.
func (r *Recorder) RecordModelsLoaded(n int) {
	r.modelsLoaded.Set(float64(n))
}

// RecordReload records a registry rebuild attempt.
func (r *Recorder) RecordReload(result string) {
	r.reloads.WithLabelValues(result).Inc()
}

// RecordCache records a prediction cache lookup outcome.
func (r *Recorder) RecordCache(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheLookups.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
