package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRaggedColumns is returned when columns differ in length.
	ErrRaggedColumns = errors.New("columns have different lengths")
	// ErrNoColumns is returned when a dataset would have no columns.
	ErrNoColumns = errors.New("dataset has no columns")
)

// Column is a named, ordered sequence of values.
type Column struct {
	Name   string
	Values []Value
	kind   Kind
	counts map[Kind]int
}

// UnnamedColumn is the name given to columns with a blank header.
func UnnamedColumn(index int) string {
	return fmt.Sprintf("Unnamed: %d", index)
}

// NewColumn builds a column and infers its kind.
func NewColumn(name string, values []Value) Column {
	c := Column{Name: name, Values: values}
	c.counts = KindCounts(values)
	c.kind = majorityKind(c.counts)
	return c
}

// Kind returns the inferred majority kind of the column.
func (c Column) Kind() Kind {
	if c.kind == "" {
		return majorityKind(KindCounts(c.Values))
	}
	return c.kind
}

// Textual reports whether text checks apply to the column. Date columns are
// still raw strings, so they count.
func (c Column) Textual() bool {
	k := c.Kind()
	return k == KindText || k == KindDate
}

// Len returns the number of cells.
func (c Column) Len() int {
	return len(c.Values)
}

// NullCount counts null and blank cells.
func (c Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if v.Blank() {
			n++
		}
	}
	return n
}

// KindCounts returns how many non-blank values have each kind.
func (c Column) KindCounts() map[Kind]int {
	if c.counts == nil {
		return KindCounts(c.Values)
	}
	out := make(map[Kind]int, len(c.counts))
	for k, n := range c.counts {
		out[k] = n
	}
	return out
}

// KindCounts tallies kinds over non-blank values.
func KindCounts(values []Value) map[Kind]int {
	counts := make(map[Kind]int, 4)
	for _, v := range values {
		if v.Blank() {
			continue
		}
		counts[v.Kind()]++
	}
	return counts
}

// MajorityKind picks the most frequent kind, breaking ties by precedence.
// An empty tally yields text.
func MajorityKind(counts map[Kind]int) Kind {
	return majorityKind(counts)
}

func majorityKind(counts map[Kind]int) Kind {
	best, bestN := KindText, 0
	for _, k := range kindPrecedence {
		if n := counts[k]; n > bestN {
			best, bestN = k, n
		}
	}
	return best
}

// Dataset is an immutable table of named columns.
type Dataset struct {
	name    string
	columns []Column
	rows    int
}

// New builds a dataset from a header and row-major raw cells. Short rows are
// padded with nulls and cells beyond the header are dropped. Raw strings are
// parsed with Parse, so null tokens become null. Blank header cells are
// renamed with UnnamedColumn.
func New(name string, header []string, rows [][]string) *Dataset {
	cols := make([]Column, len(header))
	for j, h := range header {
		values := make([]Value, len(rows))
		for i, row := range rows {
			if j < len(row) {
				values[i] = Parse(row[j])
			} else {
				values[i] = Null()
			}
		}
		if strings.TrimSpace(h) == "" {
			h = UnnamedColumn(j)
		}
		cols[j] = NewColumn(h, values)
	}
	return &Dataset{name: name, columns: cols, rows: len(rows)}
}

// FromColumns builds a dataset from prepared columns. All columns must have
// the same length. Blank names are replaced as in New.
func FromColumns(name string, cols ...Column) (*Dataset, error) {
	if len(cols) == 0 {
		return nil, ErrNoColumns
	}
	rows := cols[0].Len()
	out := make([]Column, len(cols))
	for i, c := range cols {
		if c.Len() != rows {
			return nil, fmt.Errorf("column %q has %d values, want %d: %w", c.Name, c.Len(), rows, ErrRaggedColumns)
		}
		if strings.TrimSpace(c.Name) == "" {
			c.Name = UnnamedColumn(i)
		}
		if c.counts == nil {
			c = NewColumn(c.Name, c.Values)
		}
		out[i] = c
	}
	return &Dataset{name: name, columns: out, rows: rows}, nil
}

// MustFromColumns is FromColumns for tests and literals; it panics on error.
func MustFromColumns(name string, cols ...Column) *Dataset {
	ds, err := FromColumns(name, cols...)
	if err != nil {
		panic(err)
	}
	return ds
}

// Name returns the source name given at construction.
func (d *Dataset) Name() string { return d.name }

// NumRows returns the number of data rows.
func (d *Dataset) NumRows() int { return d.rows }

// NumColumns returns the number of columns.
func (d *Dataset) NumColumns() int { return len(d.columns) }

// Columns returns the columns in order.
func (d *Dataset) Columns() []Column { return d.columns }

// Column returns the i-th column.
func (d *Dataset) Column(i int) Column { return d.columns[i] }

// ColumnByName finds a column by exact name.
func (d *Dataset) ColumnByName(name string) (Column, bool) {
	for _, c := range d.columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the header in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Row returns the cells of row i across all columns.
func (d *Dataset) Row(i int) []Value {
	row := make([]Value, len(d.columns))
	for j, c := range d.columns {
		row[j] = c.Values[i]
	}
	return row
}

// Head returns a new dataset limited to the first n rows.
func (d *Dataset) Head(n int) *Dataset {
	if n < 0 || n >= d.rows {
		return d
	}
	cols := make([]Column, len(d.columns))
	for j, c := range d.columns {
		cols[j] = NewColumn(c.Name, c.Values[:n])
	}
	return &Dataset{name: d.name, columns: cols, rows: n}
}
