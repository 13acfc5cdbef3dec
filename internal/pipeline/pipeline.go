// Package pipeline loads a selected dataset and turns it into a table or grid.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/leapstack-labs/labbrowse/internal/catalog"
	"github.com/leapstack-labs/labbrowse/internal/dataset"
	"github.com/leapstack-labs/labbrowse/internal/reader"
)

// NoSelectionMessage is the status reported when Run is called without a data file.
const NoSelectionMessage = "Please select data to load. If there is no data, try running in a higher directory."

// Operation is the pre-processing reduction.
type Operation string

const (
	OpNone    Operation = "none"
	OpAverage Operation = "average"
)

// ParseOperation accepts "none"/"average" case-insensitively; "" means none.
func ParseOperation(s string) (Operation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return OpNone, nil
	case "average":
		return OpAverage, nil
	}
	return "", fmt.Errorf("unknown pre-process operation %q (want none or average)", s)
}

// UnmarshalText parses any form accepted by ParseOperation.
func (o *Operation) UnmarshalText(b []byte) error {
	op, err := ParseOperation(string(b))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

// Options control one run.
type Options struct {
	Operation  Operation
	Dimension  string
	GridOnLoad bool
}

// DefaultOptions averages over "repetition" and grids on load.
func DefaultOptions() Options {
	return Options{Operation: OpAverage, Dimension: "repetition", GridOnLoad: true}
}

// Result is the outcome of a run. Data is nil when nothing was selected.
type Result struct {
	Data     *dataset.Processed
	Status   string
	LoadedAt time.Time
	Duration time.Duration
}

// RunRecord describes a finished run for a Recorder.
type RunRecord struct {
	Path     string
	Options  Options
	Started  time.Time
	Duration time.Duration
	Data     *dataset.Processed
	Err      error
}

// Recorder persists run records.
type Recorder interface {
	Record(ctx context.Context, rec RunRecord) error
}

// Pipeline reads datasets and processes them.
type Pipeline struct {
	reader   reader.Reader
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder records every run that reads a file.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline around r.
func New(r reader.Reader, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{reader: r, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run loads dataFile and processes it. An empty dataFile is not an error: the
// result carries NoSelectionMessage and no data. Reader and conversion errors are
// returned to the caller.
func (p *Pipeline) Run(ctx context.Context, dataFile string, opts Options) (Result, error) {
	if dataFile == "" {
		return Result{Status: NoSelectionMessage}, nil
	}

	t0 := p.now()
	data, err := p.load(ctx, dataFile, opts)
	t1 := p.now()
	dur := t1.Sub(t0)

	p.record(ctx, RunRecord{Path: dataFile, Options: opts, Started: t0, Duration: dur, Data: data, Err: err})
	if err != nil {
		p.logger.Error("load failed", "path", dataFile, "error", err)
		return Result{}, err
	}

	p.logger.Info("loaded data", "path", dataFile, "kind", data.Kind, "size", data.Size(), "duration", dur)
	return Result{
		Data:     data,
		Status:   fmt.Sprintf("Loaded data at %s (in %d ms).", t1.Format(catalog.DisplayLayout), dur.Milliseconds()),
		LoadedAt: t1,
		Duration: dur,
	}, nil
}

func (p *Pipeline) load(ctx context.Context, dataFile string, opts Options) (*dataset.Processed, error) {
	dd, err := p.reader.Read(ctx, dataFile)
	if err != nil {
		return nil, err
	}
	return Process(dd, opts)
}

func (p *Pipeline) record(ctx context.Context, rec RunRecord) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Record(ctx, rec); err != nil {
		p.logger.Warn("failed to record run", "path", rec.Path, "error", err)
	}
}

// Process converts dd according to opts. Complex quantities are always split into
// real and imaginary parts. The reduction is skipped when opts.Dimension is not an
// independent quantity.
func Process(dd *dataset.DataDict, opts Options) (*dataset.Processed, error) {
	var out *dataset.Processed
	reduce := opts.Operation == OpAverage

	if !opts.GridOnLoad {
		tbl, err := dataset.ToTable(dd)
		if err != nil {
			return nil, err
		}
		tbl = tbl.SplitComplex()
		indep, dep := tbl.Dims()
		if reduce && slices.Contains(indep, opts.Dimension) {
			if tbl, err = tbl.Mean(opts.Dimension); err != nil {
				return nil, err
			}
			indep = slices.DeleteFunc(indep, func(s string) bool { return s == opts.Dimension })
		}
		out = &dataset.Processed{Kind: dataset.KindTable, Table: tbl, Independent: indep, Dependent: dep}
	} else {
		g, err := dataset.ToGrid(dd)
		if err != nil {
			return nil, err
		}
		if reduce && g.HasAxis(opts.Dimension) {
			if g, err = g.Mean(opts.Dimension); err != nil {
				return nil, err
			}
		}
		g = g.SplitComplex()
		indep, dep := g.Dims()
		out = &dataset.Processed{Kind: dataset.KindGrid, Grid: g, Independent: indep, Dependent: dep}
	}

	out.Units = make(map[string]dataset.Unit, len(out.Independent)+len(out.Dependent))
	for _, name := range append(slices.Clone(out.Independent), out.Dependent...) {
		if u, ok := dd.Unit(name); ok {
			out.Units[name] = dataset.Unit{Symbol: u, Known: true}
		} else {
			out.Units[name] = dataset.UnknownUnit
		}
	}
	return out, nil
}
