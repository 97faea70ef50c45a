package features

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const displayPrecision = 4

// NumericField is an editable scalar input seeded with the reference mean.
type NumericField struct {
	Name    string  `json:"name"`
	Default float64 `json:"default"`
}

// Display is the default rendered with four decimals.
func (f NumericField) Display() string {
	return FormatNumber(f.Default)
}

// FormatNumber renders v the way numeric inputs show it.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', displayPrecision, 64)
}

// Parse converts submitted text into a value. Blank input or the untouched
// display string yield the full-precision default.
func (f NumericField) Parse(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == f.Display() {
		return f.Default, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: cannot parse %q: %w", f.Name, raw, err)
	}
	if err := checkFinite(f.Name, v); err != nil {
		return 0, err
	}
	return v, nil
}

func checkFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s=%v", ErrNotFinite, name, v)
	}
	return nil
}
