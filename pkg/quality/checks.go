package quality

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/bruin-data/medallion/pkg/pipeline"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const (
	CheckNotNull        = "not_null"
	CheckUnique         = "unique"
	CheckNonNegative    = "non_negative"
	CheckAcceptedValues = "accepted_values"
)

// CheckError reports a check that ran and found violating rows.
type CheckError struct {
	Dataset string
	Check   string
	Failed  int
	Detail  string
}

func (e *CheckError) Error() string {
	msg := fmt.Sprintf("check '%s' failed on dataset '%s': %d rows violate it", e.Check, e.Dataset, e.Failed)
	if e.Detail != "" {
		msg += ", " + e.Detail
	}
	return msg
}

type columnCheck func(t *frame.Table, column string, value pipeline.ColumnCheckValue) (int, string, error)

var columnChecks = map[string]columnCheck{
	CheckNotNull:        notNull,
	CheckUnique:         unique,
	CheckNonNegative:    nonNegative,
	CheckAcceptedValues: acceptedValues,
}

// RunColumnCheck runs a column check against a table. It returns a *CheckError when rows
// violate the check and a plain error when the check cannot run at all.
func RunColumnCheck(dataset string, t *frame.Table, column string, check pipeline.ColumnCheck) error {
	fn, ok := columnChecks[check.Name]
	if !ok {
		return errors.Errorf("unknown column check '%s', available checks: %s", check.Name, strings.Join(checkNames(), ", "))
	}
	if !t.HasColumn(column) {
		return errors.Errorf("column '%s' does not exist in dataset '%s', available columns: [%s]", column, dataset, strings.Join(t.Columns(), ", "))
	}

	failed, detail, err := fn(t, column, check.Value)
	if err != nil {
		return errors.Wrapf(err, "failed to run check '%s' on column '%s'", check.Name, column)
	}
	if failed == 0 {
		return nil
	}

	return &CheckError{
		Dataset: dataset,
		Check:   fmt.Sprintf("%s:%s", column, check.Name),
		Failed:  failed,
		Detail:  detail,
	}
}

func checkNames() []string {
	names := lo.Keys(columnChecks)
	slices.Sort(names)
	return names
}

func notNull(t *frame.Table, column string, _ pipeline.ColumnCheckValue) (int, string, error) {
	nulls := 0
	for r := 0; r < t.Len(); r++ {
		if frame.IsMissing(t.Value(r, column)) {
			nulls++
		}
	}
	return nulls, "", nil
}

func unique(t *frame.Table, column string, _ pipeline.ColumnCheckValue) (int, string, error) {
	seen := make(map[string]int, t.Len())
	duplicates := 0
	for r := 0; r < t.Len(); r++ {
		v := t.Value(r, column)
		if frame.IsMissing(v) {
			continue
		}
		key := frame.KeyOf(v)
		seen[key]++
		if seen[key] > 1 {
			duplicates++
		}
	}

	examples := lo.Filter(lo.Keys(seen), func(k string, _ int) bool { return seen[k] > 1 })
	slices.Sort(examples)
	if len(examples) == 0 {
		return 0, "", nil
	}
	if len(examples) > 5 {
		examples = examples[:5]
	}
	return duplicates, "duplicated values include " + strings.Join(examples, ", "), nil
}

func nonNegative(t *frame.Table, column string, _ pipeline.ColumnCheckValue) (int, string, error) {
	negatives := 0
	for r := 0; r < t.Len(); r++ {
		f, ok, err := frame.ParseFloat(t.Value(r, column))
		if err != nil {
			return 0, "", err
		}
		if ok && f < 0 {
			negatives++
		}
	}
	return negatives, "", nil
}

func acceptedValues(t *frame.Table, column string, value pipeline.ColumnCheckValue) (int, string, error) {
	if value.StringArray == nil {
		return 0, "", errors.New("accepted_values needs a list of values")
	}

	accepted := lo.SliceToMap(*value.StringArray, func(v string) (string, struct{}) { return v, struct{}{} })
	rejected := 0
	for r := 0; r < t.Len(); r++ {
		s, ok := frame.ToString(t.Value(r, column))
		if !ok {
			continue
		}
		if _, found := accepted[s]; !found {
			rejected++
		}
	}
	return rejected, "accepted values are " + value.ToString(), nil
}
