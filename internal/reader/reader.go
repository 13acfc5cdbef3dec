// Package reader loads raw datasets from their data files.
//
// Data files are Arrow IPC files with one column per quantity. Real quantities are
// float64 columns; complex quantities are struct<real: float64, imag: float64> columns.
// Per-quantity metadata lives in the Arrow field metadata under the keys "unit" and
// "axes" (comma separated).
package reader

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/leapstack-labs/labbrowse/internal/dataset"
)

// Metadata keys on Arrow fields.
const (
	MetaUnit = "unit"
	MetaAxes = "axes"
)

// ErrUnsupportedColumn is returned for column types the reader cannot map.
var ErrUnsupportedColumn = errors.New("unsupported column type")

// Reader reads the raw dataset stored at path.
type Reader interface {
	Read(ctx context.Context, path string) (*dataset.DataDict, error)
}

// ArrowReader reads Arrow IPC data files.
type ArrowReader struct {
	mem memory.Allocator
}

// NewArrowReader creates a reader using the Go allocator.
func NewArrowReader() *ArrowReader {
	return &ArrowReader{mem: memory.NewGoAllocator()}
}

var complexType = arrow.StructOf(
	arrow.Field{Name: "real", Type: arrow.PrimitiveTypes.Float64},
	arrow.Field{Name: "imag", Type: arrow.PrimitiveTypes.Float64},
)

// Read implements Reader.
func (r *ArrowReader) Read(ctx context.Context, path string) (*dataset.DataDict, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer func() { _ = f.Close() }()

	fr, err := ipc.NewFileReader(f, ipc.WithAllocator(r.mem))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer func() { _ = fr.Close() }()

	schema := fr.Schema()
	fields := make([]dataset.Field, schema.NumFields())
	for j, af := range schema.Fields() {
		fields[j] = fieldFromSchema(af)
		if !arrow.TypeEqual(af.Type, arrow.PrimitiveTypes.Float64) && !arrow.TypeEqual(af.Type, complexType) {
			return nil, fmt.Errorf("%w: %s is %s", ErrUnsupportedColumn, af.Name, af.Type)
		}
		if arrow.TypeEqual(af.Type, complexType) {
			fields[j].Complex = []complex128{}
		} else {
			fields[j].Values = []float64{}
		}
	}

	for i := 0; i < fr.NumRecords(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := fr.Record(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read record batch %d: %w", i, err)
		}
		for j := range fields {
			appendColumn(&fields[j], rec.Column(j))
		}
	}

	dd, err := dataset.New(fields...)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return dd, nil
}

func fieldFromSchema(af arrow.Field) dataset.Field {
	f := dataset.Field{Name: af.Name}
	if i := af.Metadata.FindKey(MetaUnit); i >= 0 {
		f.Unit = af.Metadata.Values()[i]
		f.HasUnit = true
	}
	if i := af.Metadata.FindKey(MetaAxes); i >= 0 {
		for _, ax := range strings.Split(af.Metadata.Values()[i], ",") {
			if ax = strings.TrimSpace(ax); ax != "" {
				f.Axes = append(f.Axes, ax)
			}
		}
	}
	return f
}

// appendColumn copies one batch column into f. Nulls become NaN.
func appendColumn(f *dataset.Field, col arrow.Array) {
	switch c := col.(type) {
	case *array.Float64:
		for k := 0; k < c.Len(); k++ {
			f.Values = append(f.Values, float64At(c, k))
		}
	case *array.Struct:
		re := c.Field(0).(*array.Float64)
		im := c.Field(1).(*array.Float64)
		for k := 0; k < c.Len(); k++ {
			if c.IsNull(k) {
				f.Complex = append(f.Complex, complex(math.NaN(), math.NaN()))
				continue
			}
			f.Complex = append(f.Complex, complex(float64At(re, k), float64At(im, k)))
		}
	}
}

func float64At(c *array.Float64, k int) float64 {
	if c.IsNull(k) {
		return math.NaN()
	}
	return c.Value(k)
}

// WriteArrow stores dd at path in the format Read expects.
func WriteArrow(path string, dd *dataset.DataDict) error {
	mem := memory.NewGoAllocator()

	var afs []arrow.Field
	for _, f := range dd.Fields() {
		var keys, vals []string
		if f.HasUnit {
			keys, vals = append(keys, MetaUnit), append(vals, f.Unit)
		}
		if len(f.Axes) > 0 {
			keys, vals = append(keys, MetaAxes), append(vals, strings.Join(f.Axes, ","))
		}
		typ := arrow.DataType(arrow.PrimitiveTypes.Float64)
		if f.IsComplex() {
			typ = complexType
		}
		afs = append(afs, arrow.Field{Name: f.Name, Type: typ, Metadata: arrow.NewMetadata(keys, vals)})
	}
	schema := arrow.NewSchema(afs, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	for j, f := range dd.Fields() {
		if f.IsComplex() {
			sb := b.Field(j).(*array.StructBuilder)
			re := sb.FieldBuilder(0).(*array.Float64Builder)
			im := sb.FieldBuilder(1).(*array.Float64Builder)
			for _, v := range f.Complex {
				sb.Append(true)
				re.Append(real(v))
				im.Append(imag(v))
			}
			continue
		}
		b.Field(j).(*array.Float64Builder).AppendValues(f.Values, nil)
	}
	rec := b.NewRecord()
	defer rec.Release()

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create data file: %w", err)
	}
	w, err := ipc.NewFileWriter(out, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to create arrow writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		_ = w.Close()
		_ = out.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := w.Close(); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to finish data file: %w", err)
	}
	return out.Close()
}
