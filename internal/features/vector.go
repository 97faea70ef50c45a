package features

import "fmt"

// Vector is one assembled model input in schema order.
type Vector struct {
	schema *Schema
	values []float64
}

// NewVector orders values by schema. Every schema name must be present and
// no other names are allowed.
func NewVector(schema *Schema, values map[string]float64) (Vector, error) {
	if len(values) != schema.Len() {
		for name := range values {
			if _, ok := schema.Index(name); !ok {
				return Vector{}, fmt.Errorf("unexpected feature %s", name)
			}
		}
	}

	out := make([]float64, schema.Len())
	for i, c := range schema.columns {
		v, ok := values[c.Name]
		if !ok {
			return Vector{}, fmt.Errorf("%w: %s", ErrMissingValue, c.Name)
		}
		if err := checkFinite(c.Name, v); err != nil {
			return Vector{}, err
		}
		out[i] = v
	}
	return Vector{schema: schema, values: out}, nil
}

// Len returns the number of values.
func (v Vector) Len() int { return len(v.values) }

// Values returns a copy of the values in schema order.
func (v Vector) Values() []float64 {
	out := make([]float64, len(v.values))
	copy(out, v.values)
	return out
}

// Map returns the values keyed by feature name.
func (v Vector) Map() map[string]float64 {
	out := make(map[string]float64, len(v.values))
	if v.schema == nil {
		return out
	}
	for i, c := range v.schema.columns {
		out[c.Name] = v.values[i]
	}
	return out
}
