// Package dataset models raw measurement data and its tabular and gridded forms.
//
// A DataDict is a set of equally long, named quantities. A quantity that lists axes is
// dependent (measured); the quantities it lists are independent. Values are either real
// (Values) or complex (Complex), never both.
package dataset

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidData is returned for data dicts that violate the structural rules.
var ErrInvalidData = errors.New("invalid dataset")

// Field is one named quantity with its metadata.
type Field struct {
	Name    string
	Unit    string
	HasUnit bool
	Axes    []string
	Values  []float64
	Complex []complex128
}

// IsComplex reports whether the field holds complex values.
func (f Field) IsComplex() bool {
	return f.Complex != nil
}

// Len returns the number of records.
func (f Field) Len() int {
	if f.IsComplex() {
		return len(f.Complex)
	}
	return len(f.Values)
}

// DataDict is an ordered collection of fields sharing one record count.
type DataDict struct {
	fields []Field
	index  map[string]int
}

// New validates fields and builds a DataDict.
func New(fields ...Field) (*DataDict, error) {
	d := &DataDict{index: make(map[string]int, len(fields))}
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field %d has no name", ErrInvalidData, i)
		}
		if _, dup := d.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidData, f.Name)
		}
		if f.Values != nil && f.Complex != nil {
			return nil, fmt.Errorf("%w: field %q has both real and complex values", ErrInvalidData, f.Name)
		}
		if i > 0 && f.Len() != fields[0].Len() {
			return nil, fmt.Errorf("%w: field %q has %d records, want %d",
				ErrInvalidData, f.Name, f.Len(), fields[0].Len())
		}
		d.index[f.Name] = i
		d.fields = append(d.fields, f)
	}
	for _, f := range d.fields {
		for _, ax := range f.Axes {
			j, ok := d.index[ax]
			if !ok {
				return nil, fmt.Errorf("%w: %q depends on unknown axis %q", ErrInvalidData, f.Name, ax)
			}
			if len(d.fields[j].Axes) > 0 {
				return nil, fmt.Errorf("%w: axis %q of %q is itself dependent", ErrInvalidData, ax, f.Name)
			}
			if d.fields[j].IsComplex() {
				return nil, fmt.Errorf("%w: axis %q is complex", ErrInvalidData, ax)
			}
		}
	}
	return d, nil
}

// Fields returns the fields in definition order.
func (d *DataDict) Fields() []Field {
	return slices.Clone(d.fields)
}

// Field looks a quantity up by name.
func (d *DataDict) Field(name string) (Field, bool) {
	i, ok := d.index[name]
	if !ok {
		return Field{}, false
	}
	return d.fields[i], true
}

// Len returns the record count.
func (d *DataDict) Len() int {
	if len(d.fields) == 0 {
		return 0
	}
	return d.fields[0].Len()
}

// Axes returns the independent quantities in order of first reference.
func (d *DataDict) Axes() []string {
	var axes []string
	for _, f := range d.fields {
		for _, ax := range f.Axes {
			if !slices.Contains(axes, ax) {
				axes = append(axes, ax)
			}
		}
	}
	return axes
}

// Dependents returns every quantity that is not an axis.
func (d *DataDict) Dependents() []string {
	axes := d.Axes()
	var deps []string
	for _, f := range d.fields {
		if !slices.Contains(axes, f.Name) {
			deps = append(deps, f.Name)
		}
	}
	return deps
}

// Unit returns the unit recorded for name. ok is false when the quantity is unknown
// or carries no unit metadata.
func (d *DataDict) Unit(name string) (unit string, ok bool) {
	f, found := d.Field(name)
	if !found || !f.HasUnit {
		return "", false
	}
	return f.Unit, true
}
