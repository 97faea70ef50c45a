package metrics

import "github.com/prometheus/client_golang/prometheus"

// Interfaces for metrics to avoid circular imports
type MetricsCounter interface {
	Inc()
}

type MetricsGauge interface {
	Set(float64)
	Inc()
	Dec()
}

// MetricsWrapper adapts Metrics to the small interfaces the pipeline and
// the web server depend on.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) PredictionsInc() {
	w.m.PredictionsTotal.Inc()
}

func (w *MetricsWrapper) FailuresInc(stage string) {
	w.m.FailuresTotal.WithLabelValues(stage).Inc()
}

func (w *MetricsWrapper) LatencyObserve(v float64) {
	w.m.PredictionLatency.Observe(v)
}

func (w *MetricsWrapper) ClassPredictedInc(label string) {
	w.m.ClassPredictions.WithLabelValues(label).Inc()
}

func (w *MetricsWrapper) TopProbabilityObserve(v float64) {
	w.m.TopProbability.Observe(v)
}

func (w *MetricsWrapper) FormRenders() MetricsCounter {
	return &CounterWrapper{w.m.FormRenders}
}

func (w *MetricsWrapper) WSMessages() MetricsCounter {
	return &CounterWrapper{w.m.WSMessages}
}

func (w *MetricsWrapper) RateLimited() MetricsCounter {
	return &CounterWrapper{w.m.RateLimited}
}

func (w *MetricsWrapper) HistoryErrors() MetricsCounter {
	return &CounterWrapper{w.m.HistoryErrors}
}

func (w *MetricsWrapper) WSSessions() MetricsGauge {
	return &GaugeWrapper{w.m.WSSessions}
}

type CounterWrapper struct {
	c prometheus.Counter
}

func (cw *CounterWrapper) Inc() {
	cw.c.Inc()
}

type GaugeWrapper struct {
	g prometheus.Gauge
}

func (gw *GaugeWrapper) Set(v float64) {
	gw.g.Set(v)
}

func (gw *GaugeWrapper) Inc() {
	gw.g.Inc()
}

func (gw *GaugeWrapper) Dec() {
	gw.g.Dec()
}
