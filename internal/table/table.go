package table

import (
	"fmt"
	"sort"
	"strconv"
)

// Table is an ordered set of named columns and rows.
// Cells hold string, float64, int, bool or nil (missing).
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// New creates an empty table with the given columns
func New(columns ...string) *Table {
	t := &Table{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range t.columns {
		t.index[c] = i
	}
	return t
}

// FromRecords builds a table whose first record is the header row
func FromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return New(), nil
	}
	t := New(records[0]...)
	if len(t.index) != len(t.columns) {
		return nil, fmt.Errorf("duplicate column in header %v", records[0])
	}
	for i, rec := range records[1:] {
		if len(rec) != len(t.columns) {
			return nil, fmt.Errorf("row %d: expected %d fields, got %d", i+1, len(t.columns), len(rec))
		}
		row := make([]any, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// Columns returns a copy of the column names in order
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// IsEmpty reports whether the table has neither columns nor rows
func (t *Table) IsEmpty() bool {
	return t == nil || (len(t.columns) == 0 && len(t.rows) == 0)
}

// HasColumn reports whether the column exists
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Append adds a row. The number of values must match the number of columns.
func (t *Table) Append(values ...any) {
	if len(values) != len(t.columns) {
		panic(fmt.Sprintf("table: append %d values to %d columns", len(values), len(t.columns)))
	}
	t.rows = append(t.rows, append([]any(nil), values...))
}

// Row returns a copy of row i
func (t *Table) Row(i int) []any {
	return append([]any(nil), t.rows[i]...)
}

// Value returns the cell at row i in the named column, or nil if the column is unknown
func (t *Table) Value(i int, column string) any {
	j, ok := t.index[column]
	if !ok {
		return nil
	}
	return t.rows[i][j]
}

// String returns the cell formatted as text
func (t *Table) String(i int, column string) string {
	return FormatCell(t.Value(i, column))
}

// ColumnValues returns the formatted values of one column
func (t *Table) ColumnValues(column string) []string {
	out := make([]string, len(t.rows))
	for i := range t.rows {
		out[i] = t.String(i, column)
	}
	return out
}

// Concat appends the rows of other. An empty receiver adopts other's columns.
func (t *Table) Concat(other *Table) error {
	if other.IsEmpty() {
		return nil
	}
	if len(t.columns) == 0 {
		*t = *New(other.columns...)
	}
	if len(other.columns) != len(t.columns) {
		return fmt.Errorf("concat: column mismatch %v vs %v", t.columns, other.columns)
	}
	for i, c := range other.columns {
		if t.columns[i] != c {
			return fmt.Errorf("concat: column mismatch %v vs %v", t.columns, other.columns)
		}
	}
	for _, row := range other.rows {
		t.rows = append(t.rows, append([]any(nil), row...))
	}
	return nil
}

// Select returns a new table with only the given columns, in the given order
func (t *Table) Select(columns ...string) (*Table, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		j, ok := t.index[c]
		if !ok {
			return nil, fmt.Errorf("select: unknown column %q", c)
		}
		idx[i] = j
	}
	out := New(columns...)
	for _, row := range t.rows {
		nr := make([]any, len(idx))
		for i, j := range idx {
			nr[i] = row[j]
		}
		out.rows = append(out.rows, nr)
	}
	return out, nil
}

// Rename returns a copy with columns renamed; names missing from the mapping are kept
func (t *Table) Rename(mapping map[string]string) *Table {
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		if n, ok := mapping[c]; ok {
			cols[i] = n
		} else {
			cols[i] = c
		}
	}
	out := New(cols...)
	for _, row := range t.rows {
		out.rows = append(out.rows, append([]any(nil), row...))
	}
	return out
}

// Filter returns the rows for which keep returns true
func (t *Table) Filter(keep func(i int) bool) *Table {
	out := New(t.columns...)
	for i, row := range t.rows {
		if keep(i) {
			out.rows = append(out.rows, append([]any(nil), row...))
		}
	}
	return out
}

// Apply replaces every cell of the column with fn(cell)
func (t *Table) Apply(column string, fn func(any) any) {
	j, ok := t.index[column]
	if !ok {
		return
	}
	for _, row := range t.rows {
		row[j] = fn(row[j])
	}
}

// SortBy stably sorts rows by the formatted values of the given columns
func (t *Table) SortBy(columns ...string) {
	idx := make([]int, 0, len(columns))
	for _, c := range columns {
		if j, ok := t.index[c]; ok {
			idx = append(idx, j)
		}
	}
	sort.SliceStable(t.rows, func(a, b int) bool {
		for _, j := range idx {
			va, vb := FormatCell(t.rows[a][j]), FormatCell(t.rows[b][j])
			if va != vb {
				return va < vb
			}
		}
		return false
	})
}

// InnerJoin joins right onto t using equality of the formatted values in the on columns.
// Rows follow t's order; right-hand columns already present in t are dropped.
func (t *Table) InnerJoin(right *Table, on ...string) (*Table, error) {
	for _, c := range on {
		if !t.HasColumn(c) || !right.HasColumn(c) {
			return nil, fmt.Errorf("join: column %q missing on one side", c)
		}
	}

	var extra []int
	cols := t.Columns()
	for j, c := range right.columns {
		if t.HasColumn(c) {
			continue
		}
		extra = append(extra, j)
		cols = append(cols, c)
	}

	key := func(tb *Table, row []any) string {
		k := ""
		for _, c := range on {
			k += FormatCell(row[tb.index[c]]) + "\x00"
		}
		return k
	}

	matches := make(map[string][]int, len(right.rows))
	for i, row := range right.rows {
		k := key(right, row)
		matches[k] = append(matches[k], i)
	}

	out := New(cols...)
	for _, row := range t.rows {
		for _, ri := range matches[key(t, row)] {
			nr := append([]any(nil), row...)
			for _, j := range extra {
				nr = append(nr, right.rows[ri][j])
			}
			out.rows = append(out.rows, nr)
		}
	}
	return out, nil
}

// FormatCell renders a cell value as text; nil renders as the empty string
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
