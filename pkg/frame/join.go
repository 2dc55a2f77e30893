package frame

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type JoinType string

const (
	LeftJoin  JoinType = "left"
	InnerJoin JoinType = "inner"
	OuterJoin JoinType = "outer"
)

// JoinCardinalityError is returned when a join declared many-to-one finds more than one row on
// the right side for a key.
type JoinCardinalityError struct {
	Keys  []string
	Value string
}

func (e *JoinCardinalityError) Error() string {
	return fmt.Sprintf("join on [%s] is not many-to-one: key '%s' appears more than once on the right side", strings.Join(e.Keys, ", "), strings.ReplaceAll(e.Value, "\x1f", "|"))
}

type JoinSpec struct {
	LeftOn  []string
	RightOn []string
	How     JoinType

	// ManyToOne makes the join fail with a JoinCardinalityError when a right key repeats.
	ManyToOne bool
}

// Join combines two tables on key columns compared by their normalized string form. Right
// columns that already exist on the left are skipped, and the right key columns are dropped
// unless they share names with the left keys. For outer joins, left key columns of rows that
// only exist on the right are filled from the right keys.
func Join(left, right *Table, spec JoinSpec) (*Table, error) {
	if len(spec.RightOn) == 0 {
		spec.RightOn = spec.LeftOn
	}
	if len(spec.LeftOn) != len(spec.RightOn) || len(spec.LeftOn) == 0 {
		return nil, errors.Errorf("join needs the same non-zero number of keys on both sides, got %d and %d", len(spec.LeftOn), len(spec.RightOn))
	}
	if spec.How == "" {
		spec.How = LeftJoin
	}
	if left == nil {
		left = New()
	}
	if right == nil {
		right = New()
	}

	for _, c := range spec.LeftOn {
		if !left.HasColumn(c) {
			return nil, errors.Errorf("join key '%s' is missing on the left side", c)
		}
	}
	for _, c := range spec.RightOn {
		if !right.HasColumn(c) {
			return nil, errors.Errorf("join key '%s' is missing on the right side", c)
		}
	}

	rightKeys := make(map[string]bool, len(spec.RightOn))
	for _, c := range spec.RightOn {
		rightKeys[c] = true
	}
	extra := make([]string, 0)
	for _, c := range right.columns {
		if rightKeys[c] || left.HasColumn(c) {
			continue
		}
		extra = append(extra, c)
	}

	lookup := make(map[string][]int, right.Len())
	for r := range right.rows {
		key := right.Key(r, spec.RightOn...)
		if spec.ManyToOne && len(lookup[key]) > 0 {
			return nil, &JoinCardinalityError{Keys: spec.RightOn, Value: key}
		}
		lookup[key] = append(lookup[key], r)
	}

	out := New(left.columns...)
	for _, c := range extra {
		out.addColumn(c)
	}

	matched := make(map[int]bool)
	for l := range left.rows {
		matches := lookup[left.Key(l, spec.LeftOn...)]
		if len(matches) == 0 {
			if spec.How == InnerJoin {
				continue
			}
			row := make([]any, len(out.columns))
			copy(row, left.rows[l])
			out.rows = append(out.rows, row)
			continue
		}

		for _, r := range matches {
			matched[r] = true
			row := make([]any, len(out.columns))
			copy(row, left.rows[l])
			for _, c := range extra {
				row[out.index[c]] = right.Value(r, c)
			}
			out.rows = append(out.rows, row)
		}
	}

	if spec.How == OuterJoin {
		for r := range right.rows {
			if matched[r] {
				continue
			}
			row := make([]any, len(out.columns))
			for i, c := range spec.LeftOn {
				row[out.index[c]] = right.Value(r, spec.RightOn[i])
			}
			for _, c := range extra {
				row[out.index[c]] = right.Value(r, c)
			}
			out.rows = append(out.rows, row)
		}
	}

	return out, nil
}
