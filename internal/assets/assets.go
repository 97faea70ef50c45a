// Package assets loads the model artifacts and the reference dataset once at
// start-up and exposes them as a single read-only value.
//
// There is no partial mode: if any file is missing or inconsistent, Load
// fails and the caller must not start serving.
package assets

import (
	"fmt"
	"slices"
	"time"

	"covertype/internal/features"
	"covertype/internal/ml"

	"github.com/rs/zerolog/log"
)

// Paths locates the four inputs.
type Paths struct {
	Model     string
	Scaler    string
	Encoder   string
	Reference string
}

// Options controls how the schema is derived from the reference header.
type Options struct {
	LabelColumn string
	Prefixes    features.Prefixes
}

// Assets is the immutable, process-wide state shared by every request.
type Assets struct {
	Paths      Paths
	Classifier ml.Classifier
	Scaler     ml.Scaler
	Encoder    *ml.LabelEncoder
	Schema     *features.Schema
	Reference  *Reference
	Form       *features.Form
	LoadedAt   time.Time
}

// Load reads every artifact, derives the schema and checks that all pieces
// agree on the feature layout.
func Load(paths Paths, opts Options) (*Assets, error) {
	start := time.Now()

	classifier, err := ml.LoadClassifier(paths.Model)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	scaler, err := ml.LoadScaler(paths.Scaler)
	if err != nil {
		return nil, fmt.Errorf("load scaler: %w", err)
	}
	encoder, err := ml.LoadLabelEncoder(paths.Encoder)
	if err != nil {
		return nil, fmt.Errorf("load label encoder: %w", err)
	}
	ref, err := ReadReference(paths.Reference, opts.LabelColumn)
	if err != nil {
		return nil, fmt.Errorf("load reference dataset: %w", err)
	}

	schema, err := features.NewSchema(ref.FeatureNames, opts.Prefixes)
	if err != nil {
		return nil, fmt.Errorf("derive schema: %w", err)
	}
	if err := checkLayout(schema, scaler, classifier, encoder); err != nil {
		return nil, err
	}

	form, err := features.NewForm(schema, ref.Means)
	if err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}

	a := &Assets{
		Paths:      paths,
		Classifier: classifier,
		Scaler:     scaler,
		Encoder:    encoder,
		Schema:     schema,
		Reference:  ref,
		Form:       form,
		LoadedAt:   time.Now(),
	}

	p := schema.Partition()
	log.Info().
		Int("features", schema.Len()).
		Int("numeric", len(p.Numeric)).
		Int("wilderness", len(p.Wilderness)).
		Int("soil", len(p.Soil)).
		Int("reference_rows", ref.Rows).
		Int("classes", encoder.Len()).
		Bool("probabilities", a.SupportsProbabilities()).
		Dur("elapsed", time.Since(start)).
		Msg("assets loaded")

	return a, nil
}

// SupportsProbabilities reports whether the classifier can rank classes.
func (a *Assets) SupportsProbabilities() bool {
	_, ok := a.Classifier.(ml.ProbabilityEstimator)
	return ok
}

// NewPipeline wires the loaded artifacts into an inference pipeline.
func (a *Assets) NewPipeline(topK int, metrics ml.MetricsInterface) (*ml.Pipeline, error) {
	return ml.NewPipeline(a.Scaler, a.Classifier, a.Encoder, topK, metrics)
}

func checkLayout(schema *features.Schema, scaler ml.Scaler, classifier ml.Classifier, encoder *ml.LabelEncoder) error {
	if scaler.NumFeatures() != schema.Len() {
		return fmt.Errorf("%w: scaler fitted on %d features, reference dataset has %d",
			ml.ErrDimensionMismatch, scaler.NumFeatures(), schema.Len())
	}
	if classifier.NumFeatures() != schema.Len() {
		return fmt.Errorf("%w: classifier expects %d features, reference dataset has %d",
			ml.ErrDimensionMismatch, classifier.NumFeatures(), schema.Len())
	}
	if names := scaler.FeatureNames(); names != nil && !slices.Equal(names, schema.Names()) {
		return fmt.Errorf("%w: scaler feature order differs from reference dataset columns", ml.ErrDimensionMismatch)
	}
	for _, c := range classifier.Classes() {
		if _, err := encoder.Inverse(c); err != nil {
			return fmt.Errorf("classifier class not decodable: %w", err)
		}
	}
	return nil
}
