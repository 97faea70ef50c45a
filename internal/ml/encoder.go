package ml

import "fmt"

// LabelEncoder maps encoded class indices back to their names.
type LabelEncoder struct {
	classes []string
}

func NewLabelEncoder(classes []string) (*LabelEncoder, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("%w: label encoder has no classes", ErrInvalidArtifact)
	}
	seen := make(map[string]bool, len(classes))
	for _, c := range classes {
		if seen[c] {
			return nil, fmt.Errorf("%w: duplicate label %q", ErrInvalidArtifact, c)
		}
		seen[c] = true
	}
	return &LabelEncoder{classes: append([]string(nil), classes...)}, nil
}

// Len returns the number of known labels.
func (e *LabelEncoder) Len() int { return len(e.classes) }

// Classes returns a copy of the labels in encoded order.
func (e *LabelEncoder) Classes() []string { return append([]string(nil), e.classes...) }

// Inverse decodes one class index.
func (e *LabelEncoder) Inverse(class int) (string, error) {
	if class < 0 || class >= len(e.classes) {
		return "", fmt.Errorf("%w: %d (encoder knows %d labels)", ErrUnknownClass, class, len(e.classes))
	}
	return e.classes[class], nil
}
