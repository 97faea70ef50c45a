// Package ml runs a pre-trained classification pipeline: feature scaler,
// linear classifier and label decoder, loaded from JSON artifacts.
//
// Artifacts are immutable once decoded, so a single Pipeline can serve any
// number of concurrent requests without locking.
package ml

import "errors"

var (
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrUnknownClass      = errors.New("unknown class")
	ErrInvalidArtifact   = errors.New("invalid artifact")
)

// Scaler transforms a raw feature vector into the space the classifier was
// trained in.
type Scaler interface {
	// NumFeatures is the width the scaler was fitted on.
	NumFeatures() int
	// FeatureNames returns the fit-time column names, or nil if unknown.
	FeatureNames() []string
	Transform(x []float64) ([]float64, error)
}

// Classifier predicts one encoded class for a scaled vector.
type Classifier interface {
	NumFeatures() int
	// Classes lists the encoded class values, aligned with probability output.
	Classes() []int
	Predict(x []float64) (int, error)
}

// ProbabilityEstimator is implemented by classifiers that can report a
// distribution over Classes().
type ProbabilityEstimator interface {
	PredictProba(x []float64) ([]float64, error)
}

// MetricsInterface defines metrics methods needed by the pipeline
type MetricsInterface interface {
	PredictionsInc()
	FailuresInc(stage string)
	LatencyObserve(float64)
	ClassPredictedInc(label string)
	TopProbabilityObserve(float64)
}
