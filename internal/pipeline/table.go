// Package pipeline holds the transformation from one-minute NIST weather and
// ground-array readings to hourly means. Every operation takes tables and
// returns new tables; nothing here touches configuration, storage or the
// batch engine.
package pipeline

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrColumnNotFound is returned when a required column is absent.
	ErrColumnNotFound = errors.New("column not found")
	// ErrMisaligned is returned when weather and ground timestamps differ and alignment is enforced.
	ErrMisaligned = errors.New("weather and ground timestamps are not aligned")
	// ErrParse is returned for cells and timestamps that cannot be parsed.
	ErrParse = errors.New("parse error")
)

// Table is a time-indexed set of float64 columns. Missing values are NaN.
// Row order is kept as built; nothing is deduplicated or sorted implicitly.
type Table struct {
	Index   []time.Time
	Columns []string
	// data is column-major: data[col][row].
	data [][]float64
}

// NewTable returns an empty table with the given columns.
func NewTable(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{
		Index:   make([]time.Time, 0),
		Columns: cols,
		data:    make([][]float64, len(cols)),
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Index)
}

// AppendRow adds a row. values must hold one value per column.
func (t *Table) AppendRow(ts time.Time, values ...float64) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("row at %s has %d values, table has %d columns", ts, len(values), len(t.Columns))
	}
	t.Index = append(t.Index, ts)
	for i, v := range values {
		t.data[i] = append(t.data[i], v)
	}
	return nil
}

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the values of name. The slice is shared with the table.
func (t *Table) Column(name string) ([]float64, error) {
	i := t.ColumnIndex(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return t.data[i], nil
}

// Value returns the value at row, col.
func (t *Table) Value(row, col int) float64 {
	return t.data[col][row]
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []float64 {
	row := make([]float64, len(t.Columns))
	for c := range t.Columns {
		row[c] = t.data[c][i]
	}
	return row
}

// HasMissing reports whether row i holds a NaN.
func (t *Table) HasMissing(i int) bool {
	for c := range t.Columns {
		if math.IsNaN(t.data[c][i]) {
			return true
		}
	}
	return false
}

// Select returns a table holding only names, in the given order.
// Column data is shared with t.
func (t *Table) Select(names ...string) (*Table, error) {
	out := &Table{
		Index:   t.Index,
		Columns: make([]string, 0, len(names)),
		data:    make([][]float64, 0, len(names)),
	}
	for _, name := range names {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		out.Columns = append(out.Columns, name)
		out.data = append(out.data, col)
	}
	return out, nil
}

// Concat appends the rows of other, which must have the same columns in the same order.
func (t *Table) Concat(other *Table) error {
	if len(other.Columns) != len(t.Columns) {
		return fmt.Errorf("cannot concatenate tables with %d and %d columns", len(t.Columns), len(other.Columns))
	}
	for i, c := range t.Columns {
		if other.Columns[i] != c {
			return fmt.Errorf("cannot concatenate tables: column %d is %q, expected %q", i, other.Columns[i], c)
		}
	}
	t.Index = append(t.Index, other.Index...)
	for i := range t.data {
		t.data[i] = append(t.data[i], other.data[i]...)
	}
	return nil
}

// keep returns the rows whose flag is true.
func (t *Table) keep(flags []bool) *Table {
	out := NewTable(t.Columns...)
	for i, ok := range flags {
		if !ok {
			continue
		}
		out.Index = append(out.Index, t.Index[i])
		for c := range t.data {
			out.data[c] = append(out.data[c], t.data[c][i])
		}
	}
	return out
}

// withIndex returns a table sharing t's data under a new index.
func (t *Table) withIndex(index []time.Time) *Table {
	return &Table{Index: index, Columns: t.Columns, data: t.data}
}

// instantKey identifies a timestamp independently of its location.
func instantKey(ts time.Time) int64 {
	return ts.UnixNano()
}
