package dataset

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrUnknownDimension is returned when a reduction names a dimension that is not present.
var ErrUnknownDimension = errors.New("unknown dimension")

// Column is a named run of real or complex values.
type Column struct {
	Name    string
	Values  []float64
	Complex []complex128
}

// IsComplex reports whether the column holds complex values.
func (c Column) IsComplex() bool {
	return c.Complex != nil
}

// Len returns the number of values.
func (c Column) Len() int {
	if c.IsComplex() {
		return len(c.Complex)
	}
	return len(c.Values)
}

// Format renders value i.
func (c Column) Format(i int) string {
	if c.IsComplex() {
		return strconv.FormatComplex(c.Complex[i], 'g', 6, 128)
	}
	return strconv.FormatFloat(c.Values[i], 'g', 6, 64)
}

// Table is the row-oriented form: one row per record, index columns for the
// independent quantities and value columns for the dependent ones.
type Table struct {
	Index   []Column
	Columns []Column
}

// ToTable converts a DataDict to a Table.
func ToTable(dd *DataDict) (*Table, error) {
	if dd == nil {
		return nil, fmt.Errorf("%w: nil data", ErrInvalidData)
	}
	t := &Table{}
	for _, name := range dd.Axes() {
		f, _ := dd.Field(name)
		t.Index = append(t.Index, columnOf(f))
	}
	for _, name := range dd.Dependents() {
		f, _ := dd.Field(name)
		t.Columns = append(t.Columns, columnOf(f))
	}
	return t, nil
}

func columnOf(f Field) Column {
	return Column{Name: f.Name, Values: slices.Clone(f.Values), Complex: slices.Clone(f.Complex)}
}

// Rows returns the row count.
func (t *Table) Rows() int {
	switch {
	case len(t.Index) > 0:
		return t.Index[0].Len()
	case len(t.Columns) > 0:
		return t.Columns[0].Len()
	}
	return 0
}

// Dims returns the index names and the value column names.
func (t *Table) Dims() (indep, dep []string) {
	for _, c := range t.Index {
		indep = append(indep, c.Name)
	}
	for _, c := range t.Columns {
		dep = append(dep, c.Name)
	}
	return indep, dep
}

// Mean averages the value columns over dim, grouping rows by the remaining index
// columns in order of first appearance. dim is dropped from the index.
func (t *Table) Mean(dim string) (*Table, error) {
	pos := slices.IndexFunc(t.Index, func(c Column) bool { return c.Name == dim })
	if pos < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDimension, dim)
	}
	keep := slices.Delete(slices.Clone(t.Index), pos, pos+1)

	var order []string
	rowsOf := make(map[string][]int)
	for r := 0; r < t.Rows(); r++ {
		k := rowKey(keep, r)
		if _, seen := rowsOf[k]; !seen {
			order = append(order, k)
		}
		rowsOf[k] = append(rowsOf[k], r)
	}

	out := &Table{}
	for _, c := range keep {
		nc := Column{Name: c.Name}
		for _, k := range order {
			nc.Values = append(nc.Values, c.Values[rowsOf[k][0]])
		}
		out.Index = append(out.Index, nc)
	}
	for _, c := range t.Columns {
		nc := Column{Name: c.Name}
		for _, k := range order {
			rows := rowsOf[k]
			if c.IsComplex() {
				var sum complex128
				for _, r := range rows {
					sum += c.Complex[r]
				}
				nc.Complex = append(nc.Complex, sum/complex(float64(len(rows)), 0))
				continue
			}
			var sum float64
			for _, r := range rows {
				sum += c.Values[r]
			}
			nc.Values = append(nc.Values, sum/float64(len(rows)))
		}
		out.Columns = append(out.Columns, nc)
	}
	return out, nil
}

func rowKey(index []Column, r int) string {
	parts := make([]string, len(index))
	for i, c := range index {
		parts[i] = strconv.FormatFloat(c.Values[r], 'g', -1, 64)
	}
	return strings.Join(parts, "\x00")
}

// SplitComplex replaces every complex value column z by z_real and z_imag.
func (t *Table) SplitComplex() *Table {
	return &Table{Index: t.Index, Columns: splitColumns(t.Columns)}
}

// RealSuffix and ImagSuffix name the parts of a split complex quantity.
const (
	RealSuffix = "_real"
	ImagSuffix = "_imag"
)

func splitColumns(cols []Column) []Column {
	out := make([]Column, 0, len(cols))
	for _, c := range cols {
		if !c.IsComplex() {
			out = append(out, c)
			continue
		}
		re := Column{Name: c.Name + RealSuffix, Values: make([]float64, len(c.Complex))}
		im := Column{Name: c.Name + ImagSuffix, Values: make([]float64, len(c.Complex))}
		for i, v := range c.Complex {
			re.Values[i] = real(v)
			im.Values[i] = imag(v)
		}
		out = append(out, re, im)
	}
	return out
}
