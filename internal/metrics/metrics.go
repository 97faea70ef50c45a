// Package metrics provides Prometheus metrics for the cover type predictor.
// It defines prediction, session and storage metrics exposed via the
// /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Prediction metrics
	PredictionsTotal  prometheus.Counter     // Successful predictions
	FailuresTotal     *prometheus.CounterVec // Failed predictions by stage
	PredictionLatency prometheus.Histogram   // Pipeline latency in seconds
	ClassPredictions  *prometheus.CounterVec // Predicted labels
	TopProbability    prometheus.Histogram   // Probability of the best class

	// Surface metrics
	FormRenders    prometheus.Counter // Form page renders
	WSSessions     prometheus.Gauge   // Open websocket sessions
	WSMessages     prometheus.Counter // Websocket messages evaluated
	RateLimited    prometheus.Counter // Requests rejected by the rate limiter
	HistoryErrors  prometheus.Counter // Failed history writes
	FeaturesLoaded prometheus.Gauge   // Width of the loaded feature schema
	ModelClasses   prometheus.Gauge   // Number of labels the model can emit
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of successful predictions",
		}),
		FailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of failed predictions by pipeline stage",
		}, []string{"stage"}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "Prediction pipeline latency in seconds",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		ClassPredictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "predicted_class_total",
			Help: "Predictions by decoded class label",
		}, []string{"label"}),
		TopProbability: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_top_probability",
			Help:    "Distribution of the highest class probability",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		FormRenders: factory.NewCounter(prometheus.CounterOpts{
			Name: "form_renders_total",
			Help: "Total number of form page renders",
		}),
		WSSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ws_sessions",
			Help: "Number of open websocket sessions",
		}),
		WSMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "ws_messages_total",
			Help: "Total number of websocket messages evaluated",
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		}),
		HistoryErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "history_errors_total",
			Help: "Total number of failed prediction history writes",
		}),
		FeaturesLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "features_loaded",
			Help: "Number of features in the loaded schema",
		}),
		ModelClasses: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_classes",
			Help: "Number of class labels known to the label encoder",
		}),
	}
}

// SetAssets records the shape of the loaded artifacts.
func (m *Metrics) SetAssets(features, classes int) {
	m.FeaturesLoaded.Set(float64(features))
	m.ModelClasses.Set(float64(classes))
}
