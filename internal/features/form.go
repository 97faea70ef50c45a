package features

import (
	"fmt"
	"sort"
)

// Input is one submission: numeric overrides plus the two categorical
// choices. Numeric names not present fall back to their defaults.
type Input struct {
	Numeric    map[string]float64 `json:"numeric,omitempty"`
	Wilderness string             `json:"wilderness,omitempty"`
	Soil       string             `json:"soil,omitempty"`
}

// Form describes every control needed to fill a vector for a schema.
type Form struct {
	schema     *Schema
	Numeric    []NumericField
	Wilderness *Selector
	Soil       *Selector
}

// NewForm builds the controls for schema. defaults must hold a value for
// every numeric feature.
func NewForm(schema *Schema, defaults map[string]float64) (*Form, error) {
	p := schema.Partition()

	fields := make([]NumericField, 0, len(p.Numeric))
	for _, name := range p.Numeric {
		d, ok := defaults[name]
		if !ok {
			return nil, fmt.Errorf("%w: no default for %s", ErrMissingValue, name)
		}
		if err := checkFinite(name, d); err != nil {
			return nil, fmt.Errorf("default for %s: %w", name, err)
		}
		fields = append(fields, NumericField{Name: name, Default: d})
	}

	return &Form{
		schema:     schema,
		Numeric:    fields,
		Wilderness: NewSelector(RoleWilderness, "Wilderness Area", p.Wilderness),
		Soil:       NewSelector(RoleSoil, "Soil Type", p.Soil),
	}, nil
}

// Schema returns the schema the form was built for.
func (f *Form) Schema() *Schema { return f.schema }

// DefaultInput is the state shown on first render.
func (f *Form) DefaultInput() Input {
	in := Input{
		Numeric:    make(map[string]float64, len(f.Numeric)),
		Wilderness: f.Wilderness.Default(),
		Soil:       f.Soil.Default(),
	}
	for _, nf := range f.Numeric {
		in.Numeric[nf.Name] = nf.Default
	}
	return in
}

// ParseRaw converts submitted text values into an Input. Missing keys keep
// their defaults; the returned error names the first offending field.
func (f *Form) ParseRaw(raw map[string]string, wilderness, soil string) (Input, error) {
	in := Input{
		Numeric:    make(map[string]float64, len(f.Numeric)),
		Wilderness: wilderness,
		Soil:       soil,
	}
	for _, nf := range f.Numeric {
		v, err := nf.Parse(raw[nf.Name])
		if err != nil {
			return Input{}, err
		}
		in.Numeric[nf.Name] = v
	}
	return in, nil
}

// Normalize resolves both selections and fills every numeric value, so the
// result can be rendered back without surprises.
func (f *Form) Normalize(in Input) (Input, error) {
	out := Input{Numeric: make(map[string]float64, len(f.Numeric))}

	if err := f.checkNumericKeys(in.Numeric); err != nil {
		return Input{}, err
	}
	for _, nf := range f.Numeric {
		v, ok := in.Numeric[nf.Name]
		if !ok {
			v = nf.Default
		}
		if err := checkFinite(nf.Name, v); err != nil {
			return Input{}, err
		}
		out.Numeric[nf.Name] = v
	}

	var err error
	if out.Wilderness, err = f.Wilderness.Resolve(in.Wilderness); err != nil {
		return Input{}, err
	}
	if out.Soil, err = f.Soil.Resolve(in.Soil); err != nil {
		return Input{}, err
	}
	return out, nil
}

// Assemble builds the model input for in, ordered by the schema.
func (f *Form) Assemble(in Input) (Vector, error) {
	norm, err := f.Normalize(in)
	if err != nil {
		return Vector{}, err
	}

	values := make(map[string]float64, f.schema.Len())
	for name, v := range norm.Numeric {
		values[name] = v
	}
	if err := f.Wilderness.Encode(norm.Wilderness, values); err != nil {
		return Vector{}, err
	}
	if err := f.Soil.Encode(norm.Soil, values); err != nil {
		return Vector{}, err
	}

	return NewVector(f.schema, values)
}

func (f *Form) checkNumericKeys(numeric map[string]float64) error {
	var unknown []string
	for name := range numeric {
		role, ok := f.schema.Role(name)
		if !ok || role != RoleNumeric {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("not numeric features: %v", unknown)
}
