package ml

import "fmt"

// StandardScaler applies (x - mean) / scale per column.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
	names []string
}

// NewStandardScaler validates the fitted parameters. A zero scale is treated
// as one, matching how constant columns are handled at fit time.
func NewStandardScaler(mean, scale []float64, names []string) (*StandardScaler, error) {
	if len(mean) == 0 {
		return nil, fmt.Errorf("%w: standard scaler has no columns", ErrInvalidArtifact)
	}
	if len(scale) != len(mean) {
		return nil, fmt.Errorf("%w: scaler mean has %d columns, scale has %d", ErrInvalidArtifact, len(mean), len(scale))
	}
	if names != nil && len(names) != len(mean) {
		return nil, fmt.Errorf("%w: scaler has %d columns but %d feature names", ErrInvalidArtifact, len(mean), len(names))
	}

	s := &StandardScaler{
		Mean:  append([]float64(nil), mean...),
		Scale: append([]float64(nil), scale...),
		names: append([]string(nil), names...),
	}
	for i, v := range s.Scale {
		if v == 0 {
			s.Scale[i] = 1
		}
	}
	return s, nil
}

func (s *StandardScaler) NumFeatures() int { return len(s.Mean) }

func (s *StandardScaler) FeatureNames() []string {
	if len(s.names) == 0 {
		return nil
	}
	return append([]string(nil), s.names...)
}

func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("%w: scaler expects %d features, got %d", ErrDimensionMismatch, len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for j := range x {
		out[j] = (x[j] - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// MinMaxScaler applies x*scale + min per column.
type MinMaxScaler struct {
	Min   []float64
	Scale []float64
	names []string
}

func NewMinMaxScaler(min, scale []float64, names []string) (*MinMaxScaler, error) {
	if len(min) == 0 {
		return nil, fmt.Errorf("%w: min-max scaler has no columns", ErrInvalidArtifact)
	}
	if len(scale) != len(min) {
		return nil, fmt.Errorf("%w: scaler min has %d columns, scale has %d", ErrInvalidArtifact, len(min), len(scale))
	}
	if names != nil && len(names) != len(min) {
		return nil, fmt.Errorf("%w: scaler has %d columns but %d feature names", ErrInvalidArtifact, len(min), len(names))
	}
	return &MinMaxScaler{
		Min:   append([]float64(nil), min...),
		Scale: append([]float64(nil), scale...),
		names: append([]string(nil), names...),
	}, nil
}

func (s *MinMaxScaler) NumFeatures() int { return len(s.Min) }

func (s *MinMaxScaler) FeatureNames() []string {
	if len(s.names) == 0 {
		return nil
	}
	return append([]string(nil), s.names...)
}

func (s *MinMaxScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Min) {
		return nil, fmt.Errorf("%w: scaler expects %d features, got %d", ErrDimensionMismatch, len(s.Min), len(x))
	}
	out := make([]float64, len(x))
	for j := range x {
		out[j] = x[j]*s.Scale[j] + s.Min[j]
	}
	return out, nil
}
