package quality

import (
	"cloud.google.com/go/civil"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/bruin-data/medallion/pkg/pipeline"
	"github.com/expr-lang/expr"
	"github.com/pkg/errors"
)

// RunCustomCheck evaluates the check's boolean expression on every row, with the row's columns
// as variables, and fails when more rows than the check's Value evaluate to false.
// Dates are exposed as ISO strings so they compare lexically.
func RunCustomCheck(dataset string, t *frame.Table, check pipeline.CustomCheck) error {
	program, err := expr.Compile(check.Query, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return errors.Wrapf(err, "invalid expression for custom check '%s'", check.Name)
	}

	columns := t.Columns()
	env := make(map[string]any, len(columns))
	violations := 0
	for r := 0; r < t.Len(); r++ {
		for _, c := range columns {
			env[c] = exprValue(t.Value(r, c))
		}

		out, err := expr.Run(program, env)
		if err != nil {
			return errors.Wrapf(err, "custom check '%s' failed to evaluate on row %d of dataset '%s'", check.Name, r, dataset)
		}
		if ok, _ := out.(bool); !ok {
			violations++
		}
	}

	if int64(violations) <= check.Value {
		return nil
	}

	return &CheckError{
		Dataset: dataset,
		Check:   check.Name,
		Failed:  violations,
		Detail:  "expression: " + check.Query,
	}
}

func exprValue(v any) any {
	if d, ok := v.(civil.Date); ok {
		return d.String()
	}
	return v
}
