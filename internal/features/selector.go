package features

import (
	"fmt"
	"strings"
)

// Option is one choice of a categorical selector.
type Option struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// Selector is a single-choice control over a one-hot group.
type Selector struct {
	Role    Role     `json:"role"`
	Title   string   `json:"title"`
	Options []Option `json:"options"`
}

// NewSelector builds a selector over names, which must all share role.
func NewSelector(role Role, title string, names []string) *Selector {
	opts := make([]Option, len(names))
	for i, n := range names {
		opts[i] = Option{Name: n, Label: DisplayLabel(n)}
	}
	return &Selector{Role: role, Title: title, Options: opts}
}

// DisplayLabel turns a column name into a readable label. It does not change
// what gets encoded.
func DisplayLabel(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

// Empty reports whether the group has no members. Empty selectors are not
// rendered.
func (s *Selector) Empty() bool { return len(s.Options) == 0 }

// Default is the option chosen on first render.
func (s *Selector) Default() string {
	if s.Empty() {
		return ""
	}
	return s.Options[0].Name
}

// Resolve maps a submitted value to a member name. The raw column name and
// its display label are both accepted; an empty value picks the default.
func (s *Selector) Resolve(selected string) (string, error) {
	if s.Empty() {
		if selected != "" {
			return "", fmt.Errorf("%w: %q (no %s options)", ErrUnknownOption, selected, s.Role)
		}
		return "", nil
	}
	if selected == "" {
		return s.Default(), nil
	}
	for _, o := range s.Options {
		if o.Name == selected || o.Label == selected {
			return o.Name, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not a %s option", ErrUnknownOption, selected, s.Role)
}

// Encode writes the one-hot assignment for selected into values. Every
// member is overwritten, so a previous selection never survives.
func (s *Selector) Encode(selected string, values map[string]float64) error {
	name, err := s.Resolve(selected)
	if err != nil {
		return err
	}
	for _, o := range s.Options {
		if o.Name == name {
			values[o.Name] = 1
		} else {
			values[o.Name] = 0
		}
	}
	return nil
}
