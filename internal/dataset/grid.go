package dataset

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrShapeMismatch is returned when records do not fill an axis-aligned grid exactly.
var ErrShapeMismatch = errors.New("data does not form a complete grid")

// Axis is a grid dimension with its sorted, unique coordinates.
type Axis struct {
	Name   string
	Values []float64
}

// Grid is the array-oriented form: variables are stored row-major over Axes.
type Grid struct {
	Axes []Axis
	Vars []Column
}

// Shape returns the length of each axis.
func (g *Grid) Shape() []int {
	shape := make([]int, len(g.Axes))
	for i, ax := range g.Axes {
		shape[i] = len(ax.Values)
	}
	return shape
}

// Size returns the number of cells.
func (g *Grid) Size() int {
	n := 1
	for _, s := range g.Shape() {
		n *= s
	}
	return n
}

// Dims returns axis names and variable names.
func (g *Grid) Dims() (indep, dep []string) {
	for _, ax := range g.Axes {
		indep = append(indep, ax.Name)
	}
	for _, v := range g.Vars {
		dep = append(dep, v.Name)
	}
	return indep, dep
}

// HasAxis reports whether name is one of the grid's axes.
func (g *Grid) HasAxis(name string) bool {
	return slices.ContainsFunc(g.Axes, func(ax Axis) bool { return ax.Name == name })
}

// ToGrid arranges the records of dd on the grid spanned by the unique values of its
// axes. Every cell must be filled exactly once.
func ToGrid(dd *DataDict) (*Grid, error) {
	if dd == nil {
		return nil, fmt.Errorf("%w: nil data", ErrInvalidData)
	}
	g := &Grid{}
	positions := make([]map[float64]int, 0)
	for _, name := range dd.Axes() {
		f, _ := dd.Field(name)
		if i := slices.IndexFunc(f.Values, math.IsNaN); i >= 0 {
			return nil, fmt.Errorf("%w: axis %q has no coordinate (NaN) at record %d", ErrShapeMismatch, name, i)
		}
		coords := slices.Clone(f.Values)
		slices.Sort(coords)
		coords = slices.Compact(coords)
		pos := make(map[float64]int, len(coords))
		for i, v := range coords {
			pos[v] = i
		}
		g.Axes = append(g.Axes, Axis{Name: name, Values: coords})
		positions = append(positions, pos)
	}

	n := dd.Len()
	size := g.Size()
	if size != n {
		return nil, fmt.Errorf("%w: %d records for shape %v", ErrShapeMismatch, n, g.Shape())
	}

	strides := strides(g.Shape())
	cellOf := make([]int, n)
	filled := make([]bool, size)
	for r := 0; r < n; r++ {
		cell := 0
		for i, ax := range g.Axes {
			f, _ := dd.Field(ax.Name)
			cell += positions[i][f.Values[r]] * strides[i]
		}
		if filled[cell] {
			return nil, fmt.Errorf("%w: record %d duplicates a grid point", ErrShapeMismatch, r)
		}
		filled[cell] = true
		cellOf[r] = cell
	}

	for _, name := range dd.Dependents() {
		f, _ := dd.Field(name)
		v := Column{Name: name}
		if f.IsComplex() {
			v.Complex = make([]complex128, size)
			for r, c := range cellOf {
				v.Complex[c] = f.Complex[r]
			}
		} else {
			v.Values = make([]float64, size)
			for r, c := range cellOf {
				v.Values[c] = f.Values[r]
			}
		}
		g.Vars = append(g.Vars, v)
	}
	return g, nil
}

// Mean averages every variable along dim and removes that axis.
func (g *Grid) Mean(dim string) (*Grid, error) {
	k := slices.IndexFunc(g.Axes, func(ax Axis) bool { return ax.Name == dim })
	if k < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDimension, dim)
	}
	shape := g.Shape()
	inStrides := strides(shape)
	outShape := slices.Delete(slices.Clone(shape), k, k+1)
	outStrides := strides(outShape)
	outSize := 1
	for _, s := range outShape {
		outSize *= s
	}
	depth := shape[k]

	// base maps an output cell to the input cell with index 0 along dim.
	base := make([]int, outSize)
	for o := range base {
		in, rem := 0, o
		j := 0
		for i := range shape {
			if i == k {
				continue
			}
			idx := rem / outStrides[j]
			rem %= outStrides[j]
			in += idx * inStrides[i]
			j++
		}
		base[o] = in
	}

	out := &Grid{Axes: slices.Delete(slices.Clone(g.Axes), k, k+1)}
	for _, v := range g.Vars {
		nv := Column{Name: v.Name}
		if v.IsComplex() {
			nv.Complex = make([]complex128, outSize)
			for o, b := range base {
				var sum complex128
				for d := 0; d < depth; d++ {
					sum += v.Complex[b+d*inStrides[k]]
				}
				nv.Complex[o] = sum / complex(float64(depth), 0)
			}
		} else {
			nv.Values = make([]float64, outSize)
			for o, b := range base {
				var sum float64
				for d := 0; d < depth; d++ {
					sum += v.Values[b+d*inStrides[k]]
				}
				nv.Values[o] = sum / float64(depth)
			}
		}
		out.Vars = append(out.Vars, nv)
	}
	return out, nil
}

// SplitComplex replaces every complex variable z by z_real and z_imag.
func (g *Grid) SplitComplex() *Grid {
	return &Grid{Axes: g.Axes, Vars: splitColumns(g.Vars)}
}

// strides returns row-major strides for shape.
func strides(shape []int) []int {
	st := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		st[i] = acc
		acc *= shape[i]
	}
	return st
}

// Coords returns the axis coordinates of flattened cell i.
func (g *Grid) Coords(i int) []float64 {
	shape := g.Shape()
	st := strides(shape)
	out := make([]float64, len(g.Axes))
	for k, ax := range g.Axes {
		out[k] = ax.Values[(i/st[k])%shape[k]]
	}
	return out
}
