package ml

import "sync"

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu             sync.Mutex
	predictions    int
	failures       map[string]int
	latencySum     float64
	latencyCount   int
	classes        map[string]int
	topProbability []float64
}

func (m *MockMetrics) PredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) FailuresInc(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = make(map[string]int)
	}
	m.failures[stage]++
}

func (m *MockMetrics) LatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
	m.latencyCount++
}

func (m *MockMetrics) ClassPredictedInc(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.classes == nil {
		m.classes = make(map[string]int)
	}
	m.classes[label]++
}

func (m *MockMetrics) TopProbabilityObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topProbability = append(m.topProbability, v)
}

// Failures returns the failure count for stage.
func (m *MockMetrics) Failures(stage string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[stage]
}

// Predictions returns the number of successful predictions.
func (m *MockMetrics) Predictions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.predictions
}
