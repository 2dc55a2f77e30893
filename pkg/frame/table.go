package frame

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Table is an ordered set of named columns holding rows of loosely typed values.
//
// Cell values are nil, string, float64, int64, bool, civil.Date, time.Time, or raw JSON
// values ([]any, map[string]any) for semi-structured sources. A nil *Table behaves like an
// empty table without columns.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// Partitions maps a provenance label (usually a file name) to the table read from it.
type Partitions map[string]*Table

// Labels returns the partition labels in sorted order.
func (p Partitions) Labels() []string {
	labels := make([]string, 0, len(p))
	for l := range p {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

func New(columns ...string) *Table {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		t.addColumn(c)
	}
	return t
}

// FromRecords builds a table from records. The given columns come first, keys that only
// appear in the records are appended in the order they are first seen (sorted per record).
func FromRecords(columns []string, records []map[string]any) *Table {
	t := New(columns...)
	for _, r := range records {
		t.AppendRecord(r)
	}
	return t
}

func (t *Table) addColumn(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}

	t.columns = append(t.columns, name)
	t.index[name] = len(t.columns) - 1
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], nil)
	}

	return len(t.columns) - 1
}

func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.columns)
}

func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.index[name]
	return ok
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// Append adds a row with one value per column, in column order.
func (t *Table) Append(values ...any) error {
	if len(values) != len(t.columns) {
		return errors.Errorf("cannot append a row with %d values to a table with %d columns", len(values), len(t.columns))
	}
	t.rows = append(t.rows, slices.Clone(values))
	return nil
}

// AppendRecord adds a row from a record; unknown keys become new columns.
func (t *Table) AppendRecord(record map[string]any) {
	extra := make([]string, 0)
	for k := range record {
		if _, ok := t.index[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		t.addColumn(k)
	}

	row := make([]any, len(t.columns))
	for k, v := range record {
		row[t.index[k]] = v
	}
	t.rows = append(t.rows, row)
}

// Value returns the cell at the given row and column, nil when the column does not exist.
func (t *Table) Value(row int, column string) any {
	if t == nil {
		return nil
	}
	i, ok := t.index[column]
	if !ok {
		return nil
	}
	return t.rows[row][i]
}

// Set writes a cell, adding the column if needed.
func (t *Table) Set(row int, column string, value any) {
	i := t.addColumn(column)
	t.rows[row][i] = value
}

// SetColumn writes every cell of a column from fn, adding the column if needed.
func (t *Table) SetColumn(column string, fn func(row int) any) {
	i := t.addColumn(column)
	for r := range t.rows {
		t.rows[r][i] = fn(r)
	}
}

// Fill sets every cell of the column to the same value.
func (t *Table) Fill(column string, value any) {
	t.SetColumn(column, func(int) any { return value })
}

func (t *Table) Column(column string) []any {
	out := make([]any, t.Len())
	if t == nil {
		return out
	}
	i, ok := t.index[column]
	if !ok {
		return out
	}
	for r := range t.rows {
		out[r] = t.rows[r][i]
	}
	return out
}

func (t *Table) Record(row int) map[string]any {
	rec := make(map[string]any, len(t.columns))
	for i, c := range t.columns {
		rec[c] = t.rows[row][i]
	}
	return rec
}

func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, t.Len())
	for r := range out {
		out[r] = t.Record(r)
	}
	return out
}

// Clone returns a copy of the table; cell values are shared.
func (t *Table) Clone() *Table {
	if t == nil {
		return New()
	}
	out := New(t.columns...)
	out.rows = make([][]any, len(t.rows))
	for r, row := range t.rows {
		out.rows[r] = slices.Clone(row)
	}
	return out
}

// Rename returns a copy with columns renamed. A renamed column replaces any existing column
// that already carries the target name.
func (t *Table) Rename(mapping map[string]string) *Table {
	if t == nil {
		return New()
	}

	names := make([]string, len(t.columns))
	taken := make(map[string]bool, len(t.columns))
	for i, c := range t.columns {
		if to, ok := mapping[c]; ok && to != "" {
			names[i] = to
			taken[to] = true
			continue
		}
		names[i] = c
	}

	keep := make([]int, 0, len(t.columns))
	for i, c := range t.columns {
		_, renamed := mapping[c]
		if !renamed && taken[c] {
			continue
		}
		keep = append(keep, i)
	}

	out := New()
	for _, i := range keep {
		out.addColumn(names[i])
	}
	out.rows = make([][]any, len(t.rows))
	for r, row := range t.rows {
		newRow := make([]any, len(out.columns))
		for _, i := range keep {
			newRow[out.index[names[i]]] = row[i]
		}
		out.rows[r] = newRow
	}

	return out
}

// Select returns a table with exactly the given columns, failing on missing ones.
func (t *Table) Select(columns ...string) (*Table, error) {
	missing := make([]string, 0)
	for _, c := range columns {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Errorf("missing columns [%s], available columns: [%s]", strings.Join(missing, ", "), strings.Join(t.Columns(), ", "))
	}

	return t.Project(columns...), nil
}

// Project returns a table with exactly the given columns, filling missing ones with nil.
func (t *Table) Project(columns ...string) *Table {
	out := New(columns...)
	out.rows = make([][]any, t.Len())
	for r := range out.rows {
		row := make([]any, len(out.columns))
		for i, c := range out.columns {
			row[i] = t.Value(r, c)
		}
		out.rows[r] = row
	}
	return out
}

// Filter returns the rows for which keep returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	if t == nil {
		return New()
	}
	out := New(t.columns...)
	for r, row := range t.rows {
		if keep(r) {
			out.rows = append(out.rows, slices.Clone(row))
		}
	}
	return out
}

// Concat stacks tables on top of each other. The result carries the union of columns in the
// order they are first seen; cells of columns a table does not have are nil.
func Concat(tables ...*Table) *Table {
	out := New()
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.columns {
			out.addColumn(c)
		}
	}

	for _, t := range tables {
		if t == nil {
			continue
		}
		for r := range t.rows {
			row := make([]any, len(out.columns))
			for i, c := range t.columns {
				row[out.index[c]] = t.rows[r][i]
			}
			out.rows = append(out.rows, row)
		}
	}

	return out
}

// DropDuplicates removes rows that are identical in every column, keeping the first one.
func (t *Table) DropDuplicates() *Table {
	if t == nil {
		return New()
	}
	out := New(t.columns...)
	seen := make(map[string]struct{}, len(t.rows))
	for _, row := range t.rows {
		key := rowKey(row)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out.rows = append(out.rows, slices.Clone(row))
	}
	return out
}

// DropDuplicatesBy keeps the last row seen for every combination of the given columns.
func (t *Table) DropDuplicatesBy(columns ...string) *Table {
	if t == nil {
		return New()
	}
	last := make(map[string]int, len(t.rows))
	for r := range t.rows {
		last[t.Key(r, columns...)] = r
	}
	return t.Filter(func(r int) bool {
		return last[t.Key(r, columns...)] == r
	})
}

// SortBy returns a copy stably sorted by the given columns in ascending order, nil first.
func (t *Table) SortBy(columns ...string) *Table {
	out := t.Clone()
	idx := make([]int, 0, len(columns))
	for _, c := range columns {
		if i, ok := out.index[c]; ok {
			idx = append(idx, i)
		}
	}

	sort.SliceStable(out.rows, func(a, b int) bool {
		for _, i := range idx {
			if c := Compare(out.rows[a][i], out.rows[b][i]); c != 0 {
				return c < 0
			}
		}
		return false
	})

	return out
}

// Key returns a normalized string key built from the given columns of a row. Values are
// compared by their string form, so 2, 2.0 and "2" share a key.
func (t *Table) Key(row int, columns ...string) string {
	parts := make([]any, len(columns))
	for i, c := range columns {
		parts[i] = t.Value(row, c)
	}
	return KeyOf(parts...)
}

// KeyOf joins the normalized string form of values into a single key.
func KeyOf(values ...any) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		s, ok := ToString(v)
		if !ok {
			b.WriteByte(0x00)
			continue
		}
		b.WriteString(s)
	}
	return b.String()
}

func rowKey(row []any) string {
	var b strings.Builder
	for _, v := range row {
		fmt.Fprintf(&b, "%T=%v\x1f", v, v)
	}
	return b.String()
}
