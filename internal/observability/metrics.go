package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aqi"

// Metrics holds the Prometheus collectors for training and prediction. Each
// Metrics owns its registry, so commands can export it as a textfile and
// tests can create as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	// Training metrics.
	TrainingRows         *prometheus.GaugeVec // labels: partition={train,test}
	TrainingDuration     prometheus.Gauge
	EvaluationMAE        prometheus.Gauge
	EvaluationR2         prometheus.Gauge
	LastTrainedTimestamp prometheus.Gauge

	// Prediction metrics.
	Predictions        *prometheus.CounterVec // labels: category
	PredictionErrors   *prometheus.CounterVec // labels: kind={input,config,internal}
	PredictionDuration prometheus.Histogram
	DefaultedFeatures  *prometheus.CounterVec // labels: feature
}

// NewMetrics creates all metrics and registers them on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		TrainingRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_rows",
			Help:      "Rows in each partition of the last training run.",
		}, []string{"partition"}),
		TrainingDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Wall time of the last training run.",
		}),
		EvaluationMAE: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "evaluation_mae",
			Help:      "Mean absolute error on the evaluation partition.",
		}),
		EvaluationR2: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "evaluation_r2",
			Help:      "Coefficient of determination on the evaluation partition.",
		}),
		LastTrainedTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_trained_timestamp_seconds",
			Help:      "Unix time the current artifact was written.",
		}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Successful predictions by category.",
		}, []string{"category"}),
		PredictionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_errors_total",
			Help:      "Failed predictions by error kind.",
		}, []string{"kind"}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Duration of one prediction including artifact load.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		DefaultedFeatures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "defaulted_features_total",
			Help:      "Features filled from the default table rather than the observation.",
		}, []string{"feature"}),
	}

	m.Registry.MustRegister(
		m.TrainingRows,
		m.TrainingDuration,
		m.EvaluationMAE,
		m.EvaluationR2,
		m.LastTrainedTimestamp,
		m.Predictions,
		m.PredictionErrors,
		m.PredictionDuration,
		m.DefaultedFeatures,
	)

	return m
}

// WriteTextfile writes the current values in the node_exporter textfile
// format. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
