package dataset

// Kind tells which representation a Processed result carries.
type Kind int

const (
	KindTable Kind = iota
	KindGrid
)

func (k Kind) String() string {
	if k == KindGrid {
		return "grid"
	}
	return "table"
}

// Unit is a propagated unit. Known is false when the raw data had no unit metadata.
type Unit struct {
	Symbol string
	Known  bool
}

// UnknownUnit marks a quantity without unit metadata.
var UnknownUnit = Unit{}

func (u Unit) String() string {
	if !u.Known {
		return "?"
	}
	return u.Symbol
}

// Processed is the pipeline output handed to consumers. Exactly one of Table and Grid
// is set, matching Kind.
type Processed struct {
	Kind        Kind
	Table       *Table
	Grid        *Grid
	Independent []string
	Dependent   []string
	Units       map[string]Unit
}

// Size returns the number of rows (table) or cells (grid).
func (p *Processed) Size() int {
	if p.Kind == KindGrid {
		return p.Grid.Size()
	}
	return p.Table.Rows()
}
