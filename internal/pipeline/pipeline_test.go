package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/labbrowse/internal/dataset"
	"github.com/leapstack-labs/labbrowse/internal/reader"
	"github.com/leapstack-labs/labbrowse/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	data  map[string]*dataset.DataDict
	err   error
	calls int
}

func (f *fakeReader) Read(_ context.Context, path string) (*dataset.DataDict, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	dd, ok := f.data[path]
	if !ok {
		return nil, errors.New("no such data file: " + path)
	}
	return dd, nil
}

type memRecorder struct {
	records []RunRecord
}

func (m *memRecorder) Record(_ context.Context, rec RunRecord) error {
	m.records = append(m.records, rec)
	return nil
}

// qubitSweep: 3 repetitions x 2 flux points, complex signal, no unit on repetition.
func qubitSweep(t *testing.T) *dataset.DataDict {
	t.Helper()
	dd, err := dataset.New(
		dataset.Field{Name: "repetition", Values: []float64{0, 0, 1, 1, 2, 2}},
		dataset.Field{Name: "flux", Unit: "mA", HasUnit: true, Values: []float64{-1, 1, -1, 1, -1, 1}},
		dataset.Field{Name: "signal", Unit: "V", HasUnit: true, Axes: []string{"repetition", "flux"},
			Complex: []complex128{1, 2i, 1, 2i, 1, 2i}},
	)
	require.NoError(t, err)
	return dd
}

func fixedClock() func() time.Time {
	t := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(25 * time.Millisecond)
		return t
	}
}

func TestRun_NoSelectionIsNotAnError(t *testing.T) {
	r := &fakeReader{}
	p := New(r, testutil.NewTestLogger(t))

	res, err := p.Run(context.Background(), "", DefaultOptions())
	require.NoError(t, err)
	assert.Nil(t, res.Data)
	assert.Equal(t, NoSelectionMessage, res.Status)
	assert.Zero(t, r.calls)
}

func TestRun_GridAverageDropsOneAxis(t *testing.T) {
	dd := qubitSweep(t)
	r := &fakeReader{data: map[string]*dataset.DataDict{"/d/x/data.arrow": dd}}
	rec := &memRecorder{}
	p := New(r, testutil.NewTestLogger(t), WithClock(fixedClock()), WithRecorder(rec))

	res, err := p.Run(context.Background(), "/d/x/data.arrow", Options{Operation: OpAverage, Dimension: "repetition", GridOnLoad: true})
	require.NoError(t, err)
	require.NotNil(t, res.Data)

	assert.Equal(t, dataset.KindGrid, res.Data.Kind)
	assert.Len(t, res.Data.Independent, len(dd.Axes())-1)
	assert.Equal(t, []string{"flux"}, res.Data.Independent)
	assert.Equal(t, []string{"signal_real", "signal_imag"}, res.Data.Dependent)
	assert.Equal(t, []float64{1, 0}, res.Data.Grid.Vars[0].Values)
	assert.Equal(t, []float64{0, 2}, res.Data.Grid.Vars[1].Values)

	assert.Equal(t, "Loaded data at 2024-01-15 12:00:00 (in 25 ms).", res.Status)
	assert.Equal(t, 25*time.Millisecond, res.Duration)

	require.Len(t, rec.records, 1)
	assert.Equal(t, "/d/x/data.arrow", rec.records[0].Path)
	assert.NoError(t, rec.records[0].Err)
}

func TestProcess_UnitsPropagate(t *testing.T) {
	out, err := Process(qubitSweep(t), Options{Operation: OpNone, Dimension: "repetition", GridOnLoad: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"repetition", "flux"}, out.Independent)
	assert.Equal(t, dataset.Unit{Symbol: "mA", Known: true}, out.Units["flux"])
	assert.Equal(t, dataset.UnknownUnit, out.Units["repetition"])
	// split parts have no metadata of their own in the raw data
	assert.Equal(t, dataset.UnknownUnit, out.Units["signal_real"])
	assert.Len(t, out.Units, 4)
}

func TestProcess_Table(t *testing.T) {
	t.Run("average over present dimension", func(t *testing.T) {
		out, err := Process(qubitSweep(t), Options{Operation: OpAverage, Dimension: "repetition"})
		require.NoError(t, err)
		assert.Equal(t, dataset.KindTable, out.Kind)
		assert.Equal(t, []string{"flux"}, out.Independent)
		assert.Equal(t, []string{"signal_real", "signal_imag"}, out.Dependent)
		assert.Equal(t, 2, out.Table.Rows())
		for _, c := range out.Table.Columns {
			assert.False(t, c.IsComplex(), c.Name)
		}
	})

	t.Run("absent dimension skips reduction", func(t *testing.T) {
		out, err := Process(qubitSweep(t), Options{Operation: OpAverage, Dimension: "temperature"})
		require.NoError(t, err)
		assert.Equal(t, []string{"repetition", "flux"}, out.Independent)
		assert.Equal(t, 6, out.Table.Rows())
	})

	t.Run("none never reduces", func(t *testing.T) {
		out, err := Process(qubitSweep(t), Options{Operation: OpNone, Dimension: "repetition"})
		require.NoError(t, err)
		assert.Equal(t, []string{"repetition", "flux"}, out.Independent)
		assert.Equal(t, 6, out.Table.Rows())
	})
}

func TestRun_ReaderFailurePropagates(t *testing.T) {
	boom := errors.New("corrupt file")
	rec := &memRecorder{}
	p := New(&fakeReader{err: boom}, testutil.NewTestLogger(t), WithRecorder(rec))

	res, err := p.Run(context.Background(), "/d/x/data.arrow", DefaultOptions())
	require.ErrorIs(t, err, boom)
	assert.Nil(t, res.Data)
	require.Len(t, rec.records, 1)
	assert.ErrorIs(t, rec.records[0].Err, boom)
}

func TestRun_GriddingFailurePropagates(t *testing.T) {
	dd, err := dataset.New(
		dataset.Field{Name: "x", Values: []float64{0, 1, 0}},
		dataset.Field{Name: "y", Values: []float64{0, 0, 1}},
		dataset.Field{Name: "z", Axes: []string{"x", "y"}, Values: []float64{1, 2, 3}},
	)
	require.NoError(t, err)
	p := New(&fakeReader{data: map[string]*dataset.DataDict{"f": dd}}, testutil.NewTestLogger(t))

	_, err = p.Run(context.Background(), "f", Options{GridOnLoad: true})
	assert.ErrorIs(t, err, dataset.ErrShapeMismatch)
}

func TestRun_ArrowFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.arrow")
	require.NoError(t, reader.WriteArrow(path, qubitSweep(t)))

	p := New(reader.NewArrowReader(), testutil.NewTestLogger(t))
	res, err := p.Run(context.Background(), path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"flux"}, res.Data.Independent)
	assert.Equal(t, "mA", res.Data.Units["flux"].String())
}

func TestParseOperation(t *testing.T) {
	for in, want := range map[string]Operation{"": OpNone, "None": OpNone, "Average": OpAverage, "average": OpAverage} {
		got, err := ParseOperation(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseOperation("median")
	assert.Error(t, err)
}
