package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWrapper(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	if wrapper == nil {
		t.Fatal("NewWrapper returned nil")
	}
	if wrapper.m != metrics {
		t.Error("Wrapper does not contain correct metrics instance")
	}
}

func TestMetricsWrapper_PredictionCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	if v := testutil.ToFloat64(metrics.PredictionsTotal); v != 0 {
		t.Errorf("Expected initial counter value 0, got %f", v)
	}

	wrapper.PredictionsInc()
	wrapper.PredictionsInc()
	if v := testutil.ToFloat64(metrics.PredictionsTotal); v != 2 {
		t.Errorf("Expected predictions 2, got %f", v)
	}

	wrapper.FailuresInc("scaling")
	wrapper.FailuresInc("scaling")
	wrapper.FailuresInc("assembly")
	if v := testutil.ToFloat64(metrics.FailuresTotal.WithLabelValues("scaling")); v != 2 {
		t.Errorf("Expected scaling failures 2, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.FailuresTotal.WithLabelValues("assembly")); v != 1 {
		t.Errorf("Expected assembly failures 1, got %f", v)
	}

	wrapper.ClassPredictedInc("Krummholz")
	if v := testutil.ToFloat64(metrics.ClassPredictions.WithLabelValues("Krummholz")); v != 1 {
		t.Errorf("Expected Krummholz count 1, got %f", v)
	}
}

func TestMetricsWrapper_Histograms(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	wrapper.LatencyObserve(0.0002)
	wrapper.LatencyObserve(0.003)
	wrapper.TopProbabilityObserve(0.91)

	if count := testutil.CollectAndCount(metrics.PredictionLatency); count != 1 {
		t.Errorf("Expected one latency series, got %d", count)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	var samples uint64
	for _, mf := range families {
		if mf.GetName() == "prediction_latency_seconds" {
			samples = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	if samples != 2 {
		t.Errorf("Expected 2 latency samples, got %d", samples)
	}
}

func TestMetricsWrapper_SurfaceMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	wrapper.FormRenders().Inc()
	wrapper.WSMessages().Inc()
	wrapper.RateLimited().Inc()
	wrapper.HistoryErrors().Inc()

	for name, c := range map[string]prometheus.Counter{
		"form_renders":   metrics.FormRenders,
		"ws_messages":    metrics.WSMessages,
		"rate_limited":   metrics.RateLimited,
		"history_errors": metrics.HistoryErrors,
	} {
		if v := testutil.ToFloat64(c); v != 1 {
			t.Errorf("Expected %s 1, got %f", name, v)
		}
	}

	sessions := wrapper.WSSessions()
	sessions.Inc()
	sessions.Inc()
	sessions.Dec()
	if v := testutil.ToFloat64(metrics.WSSessions); v != 1 {
		t.Errorf("Expected 1 open session, got %f", v)
	}
	sessions.Set(0)
	if v := testutil.ToFloat64(metrics.WSSessions); v != 0 {
		t.Errorf("Expected 0 open sessions, got %f", v)
	}
}

func TestMetrics_SetAssets(t *testing.T) {
	metrics := NewWithRegistry(prometheus.NewRegistry())
	metrics.SetAssets(54, 7)

	if v := testutil.ToFloat64(metrics.FeaturesLoaded); v != 54 {
		t.Errorf("Expected 54 features, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.ModelClasses); v != 7 {
		t.Errorf("Expected 7 classes, got %f", v)
	}
}

func TestNewWithRegistry_DuplicateRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewWithRegistry(registry)

	defer func() {
		if recover() == nil {
			t.Error("Expected panic registering metrics twice on one registry")
		}
	}()
	NewWithRegistry(registry)
}
