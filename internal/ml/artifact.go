package ml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Artifact kinds.
const (
	KindStandardScaler     = "standard"
	KindMinMaxScaler       = "minmax"
	KindLogisticRegression = "logistic_regression"
	KindLinearSVC          = "linear_svc"
)

type scalerFile struct {
	Kind         string    `json:"kind"`
	Mean         []float64 `json:"mean"`
	Min          []float64 `json:"min"`
	Scale        []float64 `json:"scale"`
	FeatureNames []string  `json:"feature_names,omitempty"`
}

type classifierFile struct {
	Kind       string      `json:"kind"`
	Classes    []int       `json:"classes,omitempty"`
	Coef       [][]float64 `json:"coef"`
	Intercept  []float64   `json:"intercept"`
	MultiClass string      `json:"multi_class,omitempty"`
}

type encoderFile struct {
	Classes []string `json:"classes"`
}

// LoadScaler reads a scaler artifact.
func LoadScaler(path string) (Scaler, error) {
	var f scalerFile
	if err := readArtifact(path, &f); err != nil {
		return nil, err
	}
	switch f.Kind {
	case KindStandardScaler, "":
		return NewStandardScaler(f.Mean, f.Scale, f.FeatureNames)
	case KindMinMaxScaler:
		return NewMinMaxScaler(f.Min, f.Scale, f.FeatureNames)
	default:
		return nil, fmt.Errorf("%w: unsupported scaler kind %q in %s", ErrInvalidArtifact, f.Kind, path)
	}
}

// LoadClassifier reads a classifier artifact.
func LoadClassifier(path string) (Classifier, error) {
	var f classifierFile
	if err := readArtifact(path, &f); err != nil {
		return nil, err
	}
	switch f.Kind {
	case KindLogisticRegression:
		var ovr bool
		switch f.MultiClass {
		case "", "multinomial", "auto":
		case "ovr":
			ovr = true
		default:
			return nil, fmt.Errorf("%w: unsupported multi_class %q in %s", ErrInvalidArtifact, f.MultiClass, path)
		}
		return NewLogisticRegression(f.Coef, f.Intercept, f.Classes, ovr)
	case KindLinearSVC:
		return NewLinearSVC(f.Coef, f.Intercept, f.Classes)
	default:
		return nil, fmt.Errorf("%w: unsupported classifier kind %q in %s", ErrInvalidArtifact, f.Kind, path)
	}
}

// LoadLabelEncoder reads a label encoder artifact.
func LoadLabelEncoder(path string) (*LabelEncoder, error) {
	var f encoderFile
	if err := readArtifact(path, &f); err != nil {
		return nil, err
	}
	return NewLabelEncoder(f.Classes)
}

func readArtifact(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read artifact %s: %w", path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: failed to decode %s: %v", ErrInvalidArtifact, path, err)
	}
	return nil
}
