package frame

// GroupSum groups rows by the given columns and sums the measure columns as float64. Group
// columns keep the first value seen for the group; groups come out in order of first
// appearance. Missing measure values count as 0.
func (t *Table) GroupSum(by []string, sums []string) *Table {
	out := New(append(append([]string{}, by...), sums...)...)
	if t == nil {
		return out
	}

	groups := make(map[string]int)
	for r := range t.rows {
		key := t.Key(r, by...)
		g, ok := groups[key]
		if !ok {
			row := make([]any, len(out.columns))
			for i, c := range by {
				row[i] = t.Value(r, c)
			}
			for i := range sums {
				row[len(by)+i] = 0.0
			}
			out.rows = append(out.rows, row)
			g = len(out.rows) - 1
			groups[key] = g
		}

		for i, c := range sums {
			out.rows[g][len(by)+i] = out.rows[g][len(by)+i].(float64) + t.Float(r, c)
		}
	}

	return out
}

// Unique returns the distinct non-missing values of a column in order of first appearance.
func (t *Table) Unique(column string) []any {
	seen := make(map[string]bool)
	out := make([]any, 0)
	for _, v := range t.Column(column) {
		s, ok := ToString(v)
		if !ok || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, v)
	}
	return out
}
