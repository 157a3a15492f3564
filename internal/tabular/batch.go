package tabular

import (
	"fmt"
	"sort"
	"strings"
)

// Column declares a named, typed column of a batch.
type Column struct {
	Name string
	Type Kind
}

// Batch is an ordered collection of rows sharing one column set. Rows keep
// their source order until explicitly sorted; within one batch every row has
// a cell for every column.
type Batch struct {
	cols  []Column
	index map[string]int
	rows  [][]Value
}

// NewBatch creates an empty batch with the given columns.
func NewBatch(cols ...Column) *Batch {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[c.Name] = i
	}
	return &Batch{cols: cols, index: index}
}

// Columns returns the column declarations in order.
func (b *Batch) Columns() []Column {
	return b.cols
}

// ColumnNames returns the column names in order.
func (b *Batch) ColumnNames() []string {
	names := make([]string, len(b.cols))
	for i, c := range b.cols {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether the batch has a column with the given name.
func (b *Batch) HasColumn(name string) bool {
	_, ok := b.index[name]
	return ok
}

// NumRows returns the number of rows.
func (b *Batch) NumRows() int {
	return len(b.rows)
}

// Empty reports whether the batch has no rows.
func (b *Batch) Empty() bool {
	return len(b.rows) == 0
}

// AppendRow appends a row. The number of values must match the column count
// and every non-null value must match its column's declared kind.
func (b *Batch) AppendRow(values ...Value) error {
	if len(values) != len(b.cols) {
		return fmt.Errorf("row has %d values, batch has %d columns", len(values), len(b.cols))
	}
	for i, v := range values {
		if !v.IsNull() && v.Kind() != b.cols[i].Type {
			return fmt.Errorf("column %q expects %s, got %s", b.cols[i].Name, b.cols[i].Type, v.Kind())
		}
		// Untyped nulls adopt the column kind.
		if v.IsNull() {
			values[i] = Null(b.cols[i].Type)
		}
	}
	b.rows = append(b.rows, values)
	return nil
}

// MustAppendRow appends a row and panics on a schema mismatch. For fixtures.
func (b *Batch) MustAppendRow(values ...Value) {
	if err := b.AppendRow(values...); err != nil {
		panic(err)
	}
}

// Value returns the cell at the given row and column. The second return is
// false when the column does not exist.
func (b *Batch) Value(row int, column string) (Value, bool) {
	i, ok := b.index[column]
	if !ok {
		return Value{}, false
	}
	return b.rows[row][i], true
}

// Row returns the cells of a row in column order. The returned slice is the
// backing storage; callers must not modify it.
func (b *Batch) Row(row int) []Value {
	return b.rows[row]
}

// Project returns a new batch with the named columns, in the given order,
// preserving row order. Unknown columns are an error.
func (b *Batch) Project(columns ...string) (*Batch, error) {
	indices := make([]int, len(columns))
	cols := make([]Column, len(columns))
	for i, name := range columns {
		idx, ok := b.index[name]
		if !ok {
			return nil, fmt.Errorf("project: unknown column %q", name)
		}
		indices[i] = idx
		cols[i] = b.cols[idx]
	}
	out := NewBatch(cols...)
	for _, row := range b.rows {
		values := make([]Value, len(indices))
		for i, idx := range indices {
			values[i] = row[idx]
		}
		out.rows = append(out.rows, values)
	}
	return out, nil
}

// Exclude returns a new batch without the named columns, preserving the order
// of the remaining columns and of the rows.
func (b *Batch) Exclude(columns ...string) (*Batch, error) {
	drop := make(map[string]bool, len(columns))
	for _, name := range columns {
		if _, ok := b.index[name]; !ok {
			return nil, fmt.Errorf("exclude: unknown column %q", name)
		}
		drop[name] = true
	}
	var keep []string
	for _, c := range b.cols {
		if !drop[c.Name] {
			keep = append(keep, c.Name)
		}
	}
	return b.Project(keep...)
}

// Filter returns a new batch with the rows for which keep returns true.
func (b *Batch) Filter(keep func(row int) bool) *Batch {
	out := NewBatch(b.cols...)
	for i, row := range b.rows {
		if keep(i) {
			out.rows = append(out.rows, row)
		}
	}
	return out
}

// SortBy sorts the rows ascending by the named columns, in order. The sort is
// stable so equal keys retain their source order.
func (b *Batch) SortBy(columns ...string) error {
	indices := make([]int, len(columns))
	for i, name := range columns {
		idx, ok := b.index[name]
		if !ok {
			return fmt.Errorf("sort: unknown column %q", name)
		}
		indices[i] = idx
	}
	sort.SliceStable(b.rows, func(i, j int) bool {
		for _, idx := range indices {
			vi, vj := b.rows[i][idx], b.rows[j][idx]
			if vi.Less(vj) {
				return true
			}
			if vj.Less(vi) {
				return false
			}
		}
		return false
	})
	return nil
}

// Key encodes the values of the given columns of a row into a join key.
func (b *Batch) Key(row int, columns []string) (string, error) {
	parts := make([]string, len(columns))
	for i, name := range columns {
		v, ok := b.Value(row, name)
		if !ok {
			return "", fmt.Errorf("key: unknown column %q", name)
		}
		parts[i] = v.KeyPart()
	}
	return strings.Join(parts, "\x1f"), nil
}

// DisplayKey renders the values of the given columns of a row for operator
// output, e.g. "735999123456789012" or "(active_energy_cons, 7359991, 2025-11-01)".
func (b *Batch) DisplayKey(row int, columns []string) string {
	if len(columns) == 1 {
		v, _ := b.Value(row, columns[0])
		return v.String()
	}
	parts := make([]string, len(columns))
	for i, name := range columns {
		v, _ := b.Value(row, name)
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
