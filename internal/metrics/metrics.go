// Package metrics provides the centralized Prometheus metrics registry for the forecasting engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	TrainingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bracket_forecast",
		Name:      "trainings_total",
		Help:      "Total number of artifact training runs by status",
	}, []string{"status"})
	PredictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bracket_forecast",
		Name:      "predictions_total",
		Help:      "Total number of pairwise estimates produced by source",
	}, []string{"source"})
	PriorFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bracket_forecast",
		Name:      "prior_fallbacks_total",
		Help:      "Total number of classifier estimates replaced by the prior after a missing feature",
	})
	LeakageViolationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bracket_forecast",
		Name:      "leakage_violations_total",
		Help:      "Total number of dated records rejected for crossing the as-of cutoff",
	}, []string{"record"})
	SimulationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bracket_forecast",
		Name:      "simulations_total",
		Help:      "Total number of bracket simulations by status",
	}, []string{"status"})
	FeatureCacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bracket_forecast",
		Name:      "feature_cache_lookups_total",
		Help:      "Total number of feature store cache lookups by result",
	}, []string{"result"})
)

// Gauge metrics
var (
	ArtifactCutoff = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bracket_forecast",
		Name:      "artifact_cutoff_timestamp_seconds",
		Help:      "Training cutoff of the most recently trained artifact as a unix timestamp",
	})
)

// Histogram metrics
var (
	TrainingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bracket_forecast",
		Name:      "training_duration_seconds",
		Help:      "Duration of artifact training in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
	SimulationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bracket_forecast",
		Name:      "simulation_duration_seconds",
		Help:      "Duration of bracket simulations in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(TrainingsTotal)
		registry.MustRegister(PredictionsTotal)
		registry.MustRegister(PriorFallbacksTotal)
		registry.MustRegister(LeakageViolationsTotal)
		registry.MustRegister(SimulationsTotal)
		registry.MustRegister(FeatureCacheLookupsTotal)

		// Register gauge metrics
		registry.MustRegister(ArtifactCutoff)

		// Register histogram metrics
		registry.MustRegister(TrainingDuration)
		registry.MustRegister(SimulationDuration)

		// Register backtest metrics
		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(BacktestSeasonScore)
		registry.MustRegister(BacktestBracketPoints)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordTraining records a training run and its duration.
func RecordTraining(status string, durationSeconds float64) {
	TrainingsTotal.WithLabelValues(status).Inc()
	TrainingDuration.Observe(durationSeconds)
}

// RecordPrediction records a pairwise estimate from the given source.
func RecordPrediction(source string) {
	PredictionsTotal.WithLabelValues(source).Inc()
}

// RecordPriorFallback records a classifier estimate replaced by the prior.
func RecordPriorFallback() {
	PriorFallbacksTotal.Inc()
}

// RecordLeakageViolation records a rejected record of the given kind.
func RecordLeakageViolation(record string) {
	LeakageViolationsTotal.WithLabelValues(record).Inc()
}

// RecordSimulation records a bracket simulation and its duration.
func RecordSimulation(status string, durationSeconds float64) {
	SimulationsTotal.WithLabelValues(status).Inc()
	SimulationDuration.Observe(durationSeconds)
}

// UpdateArtifactCutoff updates the artifact cutoff gauge.
func UpdateArtifactCutoff(unixSeconds float64) {
	ArtifactCutoff.Set(unixSeconds)
}

// RecordFeatureCacheLookup records a feature store cache hit or miss.
func RecordFeatureCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	FeatureCacheLookupsTotal.WithLabelValues(result).Inc()
}
