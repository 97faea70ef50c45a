package ml

import (
	"fmt"
	"math"
)

// linearModel holds the decision function shared by the linear classifiers:
// one coefficient row per class, or a single row for binary problems.
type linearModel struct {
	coef      [][]float64
	intercept []float64
	classes   []int
}

func newLinearModel(coef [][]float64, intercept []float64, classes []int) (linearModel, error) {
	if len(coef) == 0 || len(coef[0]) == 0 {
		return linearModel{}, fmt.Errorf("%w: classifier has no coefficients", ErrInvalidArtifact)
	}
	width := len(coef[0])
	for i, row := range coef {
		if len(row) != width {
			return linearModel{}, fmt.Errorf("%w: coefficient row %d has %d columns, want %d", ErrInvalidArtifact, i, len(row), width)
		}
	}
	if len(intercept) != len(coef) {
		return linearModel{}, fmt.Errorf("%w: %d intercepts for %d coefficient rows", ErrInvalidArtifact, len(intercept), len(coef))
	}

	nClasses := len(coef)
	if nClasses == 1 {
		nClasses = 2
	}
	if classes == nil {
		classes = make([]int, nClasses)
		for i := range classes {
			classes[i] = i
		}
	}
	if len(classes) != nClasses {
		return linearModel{}, fmt.Errorf("%w: %d classes for %d coefficient rows", ErrInvalidArtifact, len(classes), len(coef))
	}
	seen := make(map[int]bool, len(classes))
	for _, c := range classes {
		if c < 0 {
			return linearModel{}, fmt.Errorf("%w: negative class %d", ErrInvalidArtifact, c)
		}
		if seen[c] {
			return linearModel{}, fmt.Errorf("%w: duplicate class %d", ErrInvalidArtifact, c)
		}
		seen[c] = true
	}

	return linearModel{
		coef:      coef,
		intercept: intercept,
		classes:   append([]int(nil), classes...),
	}, nil
}

func (m linearModel) NumFeatures() int { return len(m.coef[0]) }

func (m linearModel) Classes() []int { return append([]int(nil), m.classes...) }

func (m linearModel) binary() bool { return len(m.coef) == 1 }

func (m linearModel) decision(x []float64) ([]float64, error) {
	if len(x) != m.NumFeatures() {
		return nil, fmt.Errorf("%w: classifier expects %d features, got %d", ErrDimensionMismatch, m.NumFeatures(), len(x))
	}
	z := make([]float64, len(m.coef))
	for k, row := range m.coef {
		sum := m.intercept[k]
		for j, w := range row {
			sum += w * x[j]
		}
		z[k] = sum
	}
	return z, nil
}

func (m linearModel) Predict(x []float64) (int, error) {
	z, err := m.decision(x)
	if err != nil {
		return 0, err
	}
	if m.binary() {
		if z[0] > 0 {
			return m.classes[1], nil
		}
		return m.classes[0], nil
	}
	return m.classes[argmax(z)], nil
}

// LinearSVC is a linear classifier without probability estimates.
type LinearSVC struct {
	linearModel
}

func NewLinearSVC(coef [][]float64, intercept []float64, classes []int) (*LinearSVC, error) {
	m, err := newLinearModel(coef, intercept, classes)
	if err != nil {
		return nil, err
	}
	return &LinearSVC{linearModel: m}, nil
}

// LogisticRegression estimates class probabilities with a softmax
// (multinomial) or normalized per-class sigmoids (one-vs-rest).
type LogisticRegression struct {
	linearModel
	ovr bool
}

func NewLogisticRegression(coef [][]float64, intercept []float64, classes []int, ovr bool) (*LogisticRegression, error) {
	m, err := newLinearModel(coef, intercept, classes)
	if err != nil {
		return nil, err
	}
	return &LogisticRegression{linearModel: m, ovr: ovr}, nil
}

func (l *LogisticRegression) PredictProba(x []float64) ([]float64, error) {
	z, err := l.decision(x)
	if err != nil {
		return nil, err
	}
	if l.binary() {
		p := sigmoid(z[0])
		return []float64{1 - p, p}, nil
	}
	if l.ovr {
		probs := make([]float64, len(z))
		var sum float64
		for k, v := range z {
			probs[k] = sigmoid(v)
			sum += probs[k]
		}
		for k := range probs {
			probs[k] /= sum
		}
		return probs, nil
	}
	return softmax(z), nil
}

func softmax(z []float64) []float64 {
	hi := z[argmax(z)]
	out := make([]float64, len(z))
	var sum float64
	for k, v := range z {
		out[k] = math.Exp(v - hi)
		sum += out[k]
	}
	for k := range out {
		out[k] /= sum
	}
	return out
}

// sigmoid converts a score to a probability
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
