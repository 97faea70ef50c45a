package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Stage names the step of a prediction that failed.
type Stage string

const (
	StageAssembly    Stage = "assembly"
	StageScaling     Stage = "scaling"
	StagePrediction  Stage = "prediction"
	StageProbability Stage = "probability"
	StageDecoding    Stage = "decoding"
)

// StageError is the failure variant of an Outcome.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ClassProbability is one ranked entry of a prediction.
type ClassProbability struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Percent returns the probability scaled to 0..100.
func (c ClassProbability) Percent() float64 { return c.Probability * 100 }

// Prediction is the success variant of an Outcome.
type Prediction struct {
	Class int    `json:"class"`
	Label string `json:"label"`
	// Top is nil when the classifier cannot estimate probabilities.
	Top []ClassProbability `json:"top,omitempty"`
}

// HasProbabilities reports whether a ranked distribution was produced.
func (p *Prediction) HasProbabilities() bool { return p.Top != nil }

// Outcome carries exactly one of Prediction or Err.
type Outcome struct {
	ID         string        `json:"id"`
	Prediction *Prediction   `json:"prediction,omitempty"`
	Err        *StageError   `json:"-"`
	Latency    time.Duration `json:"-"`
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool { return o.Err == nil && o.Prediction != nil }

// Pipeline chains scaler, classifier and label encoder.
type Pipeline struct {
	scaler     Scaler
	classifier Classifier
	encoder    *LabelEncoder
	topK       int
	metrics    MetricsInterface

	predictions atomic.Int64
	failures    atomic.Int64
	startTime   time.Time
}

// NewPipeline checks that the three artifacts agree with each other.
func NewPipeline(scaler Scaler, classifier Classifier, encoder *LabelEncoder, topK int, metrics MetricsInterface) (*Pipeline, error) {
	if scaler == nil || classifier == nil || encoder == nil {
		return nil, errors.New("scaler, classifier and encoder are required")
	}
	if scaler.NumFeatures() != classifier.NumFeatures() {
		return nil, fmt.Errorf("%w: scaler has %d features, classifier expects %d",
			ErrDimensionMismatch, scaler.NumFeatures(), classifier.NumFeatures())
	}
	for _, c := range classifier.Classes() {
		if _, err := encoder.Inverse(c); err != nil {
			return nil, fmt.Errorf("classifier class not decodable: %w", err)
		}
	}
	if topK < 1 {
		topK = 1
	}
	return &Pipeline{
		scaler:     scaler,
		classifier: classifier,
		encoder:    encoder,
		topK:       topK,
		metrics:    metrics,
		startTime:  time.Now(),
	}, nil
}

// NumFeatures is the input width the pipeline expects.
func (p *Pipeline) NumFeatures() int { return p.scaler.NumFeatures() }

// SupportsProbabilities reports whether Run will rank classes.
func (p *Pipeline) SupportsProbabilities() bool {
	_, ok := p.classifier.(ProbabilityEstimator)
	return ok
}

// Labels returns every label the encoder knows.
func (p *Pipeline) Labels() []string { return p.encoder.Classes() }

// Run scales, predicts and decodes one vector. Failures are returned inside
// the Outcome, never as a panic or a separate error.
func (p *Pipeline) Run(ctx context.Context, x []float64) Outcome {
	start := time.Now()
	out := Outcome{ID: uuid.NewString()}

	pred, serr := p.run(ctx, x)
	out.Latency = time.Since(start)
	if p.metrics != nil {
		p.metrics.LatencyObserve(out.Latency.Seconds())
	}
	if serr != nil {
		return p.fail(out, serr)
	}

	out.Prediction = pred
	p.predictions.Add(1)
	if p.metrics != nil {
		p.metrics.PredictionsInc()
		p.metrics.ClassPredictedInc(pred.Label)
		if len(pred.Top) > 0 {
			p.metrics.TopProbabilityObserve(pred.Top[0].Probability)
		}
	}

	log.Debug().
		Str("id", out.ID).
		Str("label", pred.Label).
		Int("class", pred.Class).
		Dur("latency", out.Latency).
		Msg("prediction successful")

	return out
}

// Reject records a failure that happened before the pipeline was reached,
// such as an unparseable form value.
func (p *Pipeline) Reject(err error) Outcome {
	out := Outcome{ID: uuid.NewString()}
	var serr *StageError
	if !errors.As(err, &serr) {
		serr = &StageError{Stage: StageAssembly, Err: err}
	}
	return p.fail(out, serr)
}

func (p *Pipeline) fail(out Outcome, serr *StageError) Outcome {
	out.Err = serr
	p.failures.Add(1)
	if p.metrics != nil {
		p.metrics.FailuresInc(string(serr.Stage))
	}
	log.Warn().
		Str("id", out.ID).
		Str("stage", string(serr.Stage)).
		Err(serr.Err).
		Msg("prediction failed")
	return out
}

func (p *Pipeline) run(ctx context.Context, x []float64) (*Prediction, *StageError) {
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageAssembly, Err: err}
	}

	scaled, err := p.scaler.Transform(x)
	if err != nil {
		return nil, &StageError{Stage: StageScaling, Err: err}
	}

	class, err := p.classifier.Predict(scaled)
	if err != nil {
		return nil, &StageError{Stage: StagePrediction, Err: err}
	}

	label, err := p.encoder.Inverse(class)
	if err != nil {
		return nil, &StageError{Stage: StageDecoding, Err: err}
	}
	pred := &Prediction{Class: class, Label: label}

	est, ok := p.classifier.(ProbabilityEstimator)
	if !ok {
		return pred, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageProbability, Err: err}
	}
	probs, err := est.PredictProba(scaled)
	if err != nil {
		return nil, &StageError{Stage: StageProbability, Err: err}
	}
	top, serr := p.rank(probs)
	if serr != nil {
		return nil, serr
	}
	pred.Top = top
	return pred, nil
}

func (p *Pipeline) rank(probs []float64) ([]ClassProbability, *StageError) {
	classes := p.classifier.Classes()
	if len(probs) != len(classes) {
		return nil, &StageError{Stage: StageProbability, Err: fmt.Errorf("%w: %d probabilities for %d classes",
			ErrDimensionMismatch, len(probs), len(classes))}
	}
	for i, v := range probs {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return nil, &StageError{Stage: StageProbability, Err: fmt.Errorf("invalid probability %d: %f", i, v)}
		}
	}

	top := make([]ClassProbability, 0, min(p.topK, len(probs)))
	for _, i := range TopK(probs, p.topK) {
		label, err := p.encoder.Inverse(classes[i])
		if err != nil {
			return nil, &StageError{Stage: StageDecoding, Err: err}
		}
		top = append(top, ClassProbability{Label: label, Probability: probs[i]})
	}
	return top, nil
}

// TopK returns the indices of the k largest values, largest first. Ties keep
// index order.
func TopK(values []float64, k int) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] > values[idx[b]]
	})
	if k < 0 {
		k = 0
	}
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Predictions   int64   `json:"predictions"`
	Failures      int64   `json:"failures"`
	ErrorRate     float64 `json:"error_rate"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Stats returns prediction counters since start-up.
func (p *Pipeline) Stats() Stats {
	preds := p.predictions.Load()
	fails := p.failures.Load()
	var rate float64
	if total := preds + fails; total > 0 {
		rate = float64(fails) / float64(total)
	}
	return Stats{
		Predictions:   preds,
		Failures:      fails,
		ErrorRate:     rate,
		UptimeSeconds: time.Since(p.startTime).Seconds(),
	}
}
