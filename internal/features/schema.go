// Package features turns the reference dataset's column names into a typed
// schema and assembles model input vectors from user selections.
//
// Every column carries an explicit Role decided once, at schema construction,
// from its name prefix. Assembly never re-parses names.
package features

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptySchema   = errors.New("feature schema is empty")
	ErrDuplicateName = errors.New("duplicate feature name")
	ErrUnknownOption = errors.New("unknown categorical option")
	ErrNotFinite     = errors.New("value is not a finite number")
	ErrMissingValue  = errors.New("missing value for feature")
)

// Role is the semantic group of a feature column.
type Role int

const (
	RoleNumeric Role = iota
	RoleWilderness
	RoleSoil
)

func (r Role) String() string {
	switch r {
	case RoleNumeric:
		return "numeric"
	case RoleWilderness:
		return "wilderness"
	case RoleSoil:
		return "soil"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// MarshalText lets roles appear by name in JSON output.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (r *Role) UnmarshalText(text []byte) error {
	switch string(text) {
	case "numeric":
		*r = RoleNumeric
	case "wilderness":
		*r = RoleWilderness
	case "soil":
		*r = RoleSoil
	default:
		return fmt.Errorf("unknown feature role %q", text)
	}
	return nil
}

// Prefixes maps categorical roles to the column-name prefix that marks them.
type Prefixes struct {
	Wilderness string
	Soil       string
}

// RoleOf classifies a single column name.
func (p Prefixes) RoleOf(name string) Role {
	switch {
	case p.Soil != "" && strings.HasPrefix(name, p.Soil):
		return RoleSoil
	case p.Wilderness != "" && strings.HasPrefix(name, p.Wilderness):
		return RoleWilderness
	default:
		return RoleNumeric
	}
}

// Column is one entry of the schema.
type Column struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Schema is the ordered, role-tagged list of model inputs. It is immutable
// after NewSchema returns.
type Schema struct {
	columns []Column
	index   map[string]int
}

// NewSchema tags names with roles and validates them. Order is preserved.
func NewSchema(names []string, prefixes Prefixes) (*Schema, error) {
	if len(names) == 0 {
		return nil, ErrEmptySchema
	}

	s := &Schema{
		columns: make([]Column, 0, len(names)),
		index:   make(map[string]int, len(names)),
	}
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("feature %d has an empty name", i)
		}
		if _, dup := s.index[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		s.index[name] = i
		s.columns = append(s.columns, Column{Name: name, Role: prefixes.RoleOf(name)})
	}
	return s, nil
}

// Len returns the number of features.
func (s *Schema) Len() int { return len(s.columns) }

// Names returns a copy of the feature names in model order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.Name
	}
	return out
}

// Columns returns a copy of the role-tagged columns in model order.
func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Index returns the position of name and whether it exists.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Role returns the role of name.
func (s *Schema) Role(name string) (Role, bool) {
	i, ok := s.index[name]
	if !ok {
		return 0, false
	}
	return s.columns[i].Role, true
}

// Partition splits the schema into its three groups.
type Partition struct {
	Numeric    []string `json:"numeric"`
	Wilderness []string `json:"wilderness"`
	Soil       []string `json:"soil"`
}

// Partition returns the numeric, wilderness and soil names, each in schema
// order. The three slices are disjoint and together cover the schema.
func (s *Schema) Partition() Partition {
	var p Partition
	for _, c := range s.columns {
		switch c.Role {
		case RoleWilderness:
			p.Wilderness = append(p.Wilderness, c.Name)
		case RoleSoil:
			p.Soil = append(p.Soil, c.Name)
		default:
			p.Numeric = append(p.Numeric, c.Name)
		}
	}
	return p
}
