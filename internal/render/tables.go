package render

import (
	"fmt"
	"math"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/labbrowse/internal/catalog"
	"github.com/leapstack-labs/labbrowse/internal/dataset"
	"github.com/leapstack-labs/labbrowse/internal/selection"
	"github.com/leapstack-labs/labbrowse/internal/state"
)

// DefaultMaxRows bounds how many rows Processed prints in text mode.
const DefaultMaxRows = 50

func (r *Renderer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	return t
}

type groupJSON struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Groups prints the date-group options.
func (r *Renderer) Groups(g catalog.Groups) error {
	opts := catalog.Options(g)
	if r.mode == ModeJSON {
		out := make([]groupJSON, 0, len(opts))
		for _, o := range opts {
			out = append(out, groupJSON{Date: o.Key.Label(), Count: len(g[o.Key])})
		}
		return r.JSON(out)
	}

	if len(opts) == 0 {
		r.Println(r.styles.Muted.Render("(no datasets found)"))
		return nil
	}
	t := r.newTable()
	t.AppendHeader(table.Row{"#", "Date", "Datasets"})
	for i, o := range opts {
		t.AppendRow(table.Row{i + 1, o.Key.Label(), len(g[o.Key])})
	}
	t.Render()
	return nil
}

type itemJSON struct {
	Label  string `json:"label"`
	Path   string `json:"path"`
	Active bool   `json:"active,omitempty"`
}

// Items prints the visible dataset list. The active path is highlighted.
func (r *Renderer) Items(items []selection.Item, active string) error {
	if r.mode == ModeJSON {
		out := make([]itemJSON, 0, len(items))
		for _, it := range items {
			out = append(out, itemJSON{Label: it.Label, Path: it.Path, Active: it.Path == active})
		}
		return r.JSON(out)
	}

	if len(items) == 0 {
		r.Println(r.styles.Muted.Render("(no datasets match)"))
		return nil
	}
	t := r.newTable()
	t.AppendHeader(table.Row{"#", "Dataset"})
	for i, it := range items {
		label := it.Label
		if it.Path == active {
			label = r.styles.Active.Render(label)
		}
		t.AppendRow(table.Row{i + 1, label})
	}
	t.Render()
	r.Printf("(%d datasets)\n", len(items))
	return nil
}

type processedJSON struct {
	Kind        string                `json:"kind"`
	Shape       []int                 `json:"shape,omitempty"`
	Independent []string              `json:"independent"`
	Dependent   []string              `json:"dependent"`
	Units       map[string]string     `json:"units"`
	Columns     map[string]jsonFloats `json:"columns"`
}

// jsonFloats encodes values at full precision and writes NaN and infinities, which
// JSON cannot represent, as null.
type jsonFloats []float64

func (fs jsonFloats) MarshalJSON() ([]byte, error) {
	b := make([]byte, 0, 2+len(fs)*8)
	b = append(b, '[')
	for i, v := range fs {
		if i > 0 {
			b = append(b, ',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			b = append(b, "null"...)
			continue
		}
		b = strconv.AppendFloat(b, v, 'g', -1, 64)
	}
	return append(b, ']'), nil
}

// Processed prints a pipeline result. Text output is truncated after maxRows rows;
// maxRows <= 0 prints everything.
func (r *Renderer) Processed(p *dataset.Processed, maxRows int) error {
	if p == nil {
		return nil
	}

	if r.mode == ModeJSON {
		out := processedJSON{
			Kind:        p.Kind.String(),
			Independent: p.Independent,
			Dependent:   p.Dependent,
			Units:       make(map[string]string, len(p.Units)),
			Columns:     columnsOf(p),
		}
		if p.Kind == dataset.KindGrid {
			out.Shape = p.Grid.Shape()
		}
		for name, u := range p.Units {
			out.Units[name] = u.String()
		}
		return r.JSON(out)
	}

	header, rows := flatten(p)
	r.Println(r.styles.Header2.Render(describe(p)))
	t := r.newTable()
	head := make(table.Row, len(header))
	for i, name := range header {
		head[i] = fmt.Sprintf("%s [%s]", name, unitOf(p, name))
	}
	t.AppendHeader(head)

	shown := len(rows)
	if maxRows > 0 && shown > maxRows {
		shown = maxRows
	}
	for _, row := range rows[:shown] {
		tr := make(table.Row, len(row))
		for i, v := range row {
			tr[i] = v
		}
		t.AppendRow(tr)
	}
	t.Render()
	if shown < len(rows) {
		r.Println(r.styles.Muted.Render(fmt.Sprintf("... %d more rows", len(rows)-shown)))
	}
	return nil
}

// columnsOf returns every quantity of p as a column of raw values. Grid axes are
// expanded to one coordinate per cell.
func columnsOf(p *dataset.Processed) map[string]jsonFloats {
	cols := make(map[string]jsonFloats)
	if p.Kind == dataset.KindGrid {
		g := p.Grid
		axes := make([]jsonFloats, len(g.Axes))
		for k := range axes {
			axes[k] = make(jsonFloats, g.Size())
		}
		for i := 0; i < g.Size(); i++ {
			for k, c := range g.Coords(i) {
				axes[k][i] = c
			}
		}
		for k, ax := range g.Axes {
			cols[ax.Name] = axes[k]
		}
		addColumns(cols, g.Vars)
		return cols
	}
	addColumns(cols, p.Table.Index)
	addColumns(cols, p.Table.Columns)
	return cols
}

// addColumns adds real columns as they are and complex ones as their two parts.
func addColumns(cols map[string]jsonFloats, cs []dataset.Column) {
	for _, c := range cs {
		if !c.IsComplex() {
			cols[c.Name] = jsonFloats(c.Values)
			continue
		}
		re := make(jsonFloats, len(c.Complex))
		im := make(jsonFloats, len(c.Complex))
		for i, z := range c.Complex {
			re[i], im[i] = real(z), imag(z)
		}
		cols[c.Name+dataset.RealSuffix] = re
		cols[c.Name+dataset.ImagSuffix] = im
	}
}

func describe(p *dataset.Processed) string {
	if p.Kind == dataset.KindGrid {
		return fmt.Sprintf("grid %v over %v", p.Grid.Shape(), p.Independent)
	}
	return fmt.Sprintf("table with %d rows", p.Table.Rows())
}

func unitOf(p *dataset.Processed, name string) string {
	if u, ok := p.Units[name]; ok {
		return u.String()
	}
	return dataset.UnknownUnit.String()
}

// flatten turns a table or grid into header names and formatted rows.
func flatten(p *dataset.Processed) ([]string, [][]string) {
	var header []string
	var rows [][]string

	switch p.Kind {
	case dataset.KindGrid:
		g := p.Grid
		for _, ax := range g.Axes {
			header = append(header, ax.Name)
		}
		for _, v := range g.Vars {
			header = append(header, v.Name)
		}
		for i := 0; i < g.Size(); i++ {
			row := make([]string, 0, len(header))
			for _, c := range g.Coords(i) {
				row = append(row, strconv.FormatFloat(c, 'g', 6, 64))
			}
			for _, v := range g.Vars {
				row = append(row, v.Format(i))
			}
			rows = append(rows, row)
		}
	default:
		cols := append(append([]dataset.Column{}, p.Table.Index...), p.Table.Columns...)
		for _, c := range cols {
			header = append(header, c.Name)
		}
		for i := 0; i < p.Table.Rows(); i++ {
			row := make([]string, 0, len(cols))
			for _, c := range cols {
				row = append(row, c.Format(i))
			}
			rows = append(rows, row)
		}
	}
	return header, rows
}

type runJSON struct {
	ID         string   `json:"id"`
	Path       string   `json:"path"`
	StartedAt  string   `json:"started_at"`
	DurationMs int64    `json:"duration_ms"`
	Operation  string   `json:"operation"`
	Dimension  string   `json:"dimension"`
	GridOnLoad bool     `json:"grid_on_load"`
	Kind       string   `json:"kind,omitempty"`
	Size       int      `json:"size,omitempty"`
	Dependent  []string `json:"dependent,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// History prints recorded load runs.
func (r *Renderer) History(runs []*state.LoadRun) error {
	if r.mode == ModeJSON {
		out := make([]runJSON, 0, len(runs))
		for _, run := range runs {
			out = append(out, runJSON{
				ID:         run.ID,
				Path:       run.Path,
				StartedAt:  run.StartedAt.Format(catalog.DisplayLayout),
				DurationMs: run.Duration.Milliseconds(),
				Operation:  run.Operation,
				Dimension:  run.Dimension,
				GridOnLoad: run.GridOnLoad,
				Kind:       run.Kind,
				Size:       run.Size,
				Dependent:  run.Dependent,
				Error:      run.Error,
			})
		}
		return r.JSON(out)
	}

	if len(runs) == 0 {
		r.Println(r.styles.Muted.Render("(no loads recorded)"))
		return nil
	}
	t := r.newTable()
	t.AppendHeader(table.Row{"Started", "Path", "ms", "Result"})
	for _, run := range runs {
		result := fmt.Sprintf("%s, %d cells", run.Kind, run.Size)
		if run.Failed() {
			result = r.styles.Error.Render(run.Error)
		}
		t.AppendRow(table.Row{
			run.StartedAt.Local().Format(catalog.DisplayLayout),
			run.Path,
			run.Duration.Milliseconds(),
			result,
		})
	}
	t.Render()
	return nil
}
