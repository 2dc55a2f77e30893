package frame

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/bruin-data/medallion/pkg/date"
	"github.com/pkg/errors"
)

// CoercionError is returned when a load-bearing value cannot be converted to its target type.
type CoercionError struct {
	Column string
	Row    int
	Value  any
	Kind   string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot convert value '%v' in column '%s' (row %d) to %s", e.Value, e.Column, e.Row, e.Kind)
}

// IsMissing reports whether a value counts as absent: nil, NaN or a blank string.
func IsMissing(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case float64:
		return math.IsNaN(val)
	case float32:
		return math.IsNaN(float64(val))
	}
	return false
}

// ToString renders a value as a string. Whole floats are rendered without a fractional part so
// that 72.0 and "72" agree. The boolean is false for missing values.
func ToString(v any) (string, bool) {
	if IsMissing(v) {
		return "", false
	}

	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return formatFloat(val), true
	case float32:
		return formatFloat(float64(val)), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case uint64:
		return strconv.FormatUint(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	case civil.Date:
		return val.String(), true
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano), true
	case json.Number:
		return val.String(), true
	case []byte:
		return string(val), true
	}

	return fmt.Sprint(v), true
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseFloat converts a value to float64. Numeric strings may use a decimal comma. The boolean
// is false for missing values.
func ParseFloat(v any) (float64, bool, error) {
	if IsMissing(v) {
		return 0, false, nil
	}

	switch val := v.(type) {
	case float64:
		return val, true, nil
	case float32:
		return float64(val), true, nil
	case int:
		return float64(val), true, nil
	case int64:
		return float64(val), true, nil
	case int32:
		return float64(val), true, nil
	case uint64:
		return float64(val), true, nil
	case bool:
		if val {
			return 1, true, nil
		}
		return 0, true, nil
	case json.Number:
		f, err := val.Float64()
		return f, err == nil, err
	case string:
		f, err := strconv.ParseFloat(decimalPoint(strings.TrimSpace(val)), 64)
		if err != nil {
			return 0, false, errors.Errorf("'%s' is not a number", val)
		}
		return f, true, nil
	}

	return 0, false, errors.Errorf("unsupported numeric value of type %T", v)
}

// decimalPoint turns a decimal comma into a point. Only a single comma followed by one or two
// digits is a decimal comma, so "2,99" parses while "1,000" stays unparsable.
func decimalPoint(s string) string {
	if strings.Contains(s, ".") {
		return s
	}
	whole, frac, found := strings.Cut(s, ",")
	if !found || whole == "" || len(frac) == 0 || len(frac) > 2 || strings.Trim(frac, "0123456789") != "" {
		return s
	}
	return whole + "." + frac
}

// maxExactFloat is the largest magnitude up to which every integer is representable as float64.
const maxExactFloat = 1 << 53

// ParseInt converts a value to int64. Integral strings are parsed exactly, other values go
// through their numeric form so "029" and "29.0" become 29. Values that cannot be represented
// exactly fail instead of wrapping or rounding.
func ParseInt(v any) (int64, bool, error) {
	switch val := v.(type) {
	case int64:
		return val, true, nil
	case int:
		return int64(val), true, nil
	case int32:
		return int64(val), true, nil
	case uint64:
		if val > math.MaxInt64 {
			return 0, false, errors.Errorf("'%d' is out of the integer range", val)
		}
		return int64(val), true, nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, true, nil
		}
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err == nil {
			return n, true, nil
		}
		if errors.Is(err, strconv.ErrRange) {
			return 0, false, errors.Errorf("'%s' is out of the integer range", val)
		}
	}

	f, ok, err := ParseFloat(v)
	if err != nil || !ok {
		return 0, ok, err
	}
	if f != math.Trunc(f) {
		return 0, false, errors.Errorf("'%v' is not a whole number", v)
	}
	if math.Abs(f) > maxExactFloat {
		return 0, false, errors.Errorf("'%v' cannot be represented exactly as an integer", v)
	}
	return int64(f), true, nil
}

// ParseDate converts a value to a calendar date, dropping any time component.
func ParseDate(v any) (civil.Date, bool, error) {
	if IsMissing(v) {
		return civil.Date{}, false, nil
	}

	switch val := v.(type) {
	case civil.Date:
		return val, true, nil
	case time.Time:
		return civil.DateOf(val), true, nil
	case string:
		t, err := date.ParseTime(strings.TrimSpace(val))
		if err != nil {
			return civil.Date{}, false, errors.Wrapf(err, "'%s' is not a date", val)
		}
		return civil.DateOf(t), true, nil
	}

	return civil.Date{}, false, errors.Errorf("unsupported date value of type %T", v)
}

// CoerceMeasure converts a numeric measure column to float64. Missing values become 0.0;
// unparsable values fail when strict and become 0.0 otherwise. An absent column is added
// filled with 0.0.
func (t *Table) CoerceMeasure(column string, strict bool) error {
	i := t.addColumn(column)
	for r := range t.rows {
		f, _, err := ParseFloat(t.rows[r][i])
		if err != nil {
			if strict {
				return &CoercionError{Column: column, Row: r, Value: t.rows[r][i], Kind: "number"}
			}
			f = 0
		}
		t.rows[r][i] = f
	}
	return nil
}

// CoerceAttribute converts a descriptive numeric column to float64, leaving missing or
// unparsable values nil.
func (t *Table) CoerceAttribute(column string) {
	i := t.addColumn(column)
	for r := range t.rows {
		f, ok, err := ParseFloat(t.rows[r][i])
		if err != nil || !ok {
			t.rows[r][i] = nil
			continue
		}
		t.rows[r][i] = f
	}
}

// CoerceCount converts a column to int64, defaulting missing or unparsable values to 0.
func (t *Table) CoerceCount(column string) {
	i := t.addColumn(column)
	for r := range t.rows {
		n, ok, err := ParseInt(t.rows[r][i])
		if err != nil || !ok {
			n = 0
		}
		t.rows[r][i] = n
	}
}

// CoerceInt converts a key column to int64 and fails on any missing or unparsable value.
func (t *Table) CoerceInt(column string) error {
	i := t.addColumn(column)
	for r := range t.rows {
		n, ok, err := ParseInt(t.rows[r][i])
		if err != nil || !ok {
			return &CoercionError{Column: column, Row: r, Value: t.rows[r][i], Kind: "integer"}
		}
		t.rows[r][i] = n
	}
	return nil
}

// CoerceDate converts a column to civil.Date. Unparsable values always fail; missing values
// fail only when the column is required and are left nil otherwise.
func (t *Table) CoerceDate(column string, required bool) error {
	i := t.addColumn(column)
	for r := range t.rows {
		d, ok, err := ParseDate(t.rows[r][i])
		if err != nil || (!ok && required) {
			return &CoercionError{Column: column, Row: r, Value: t.rows[r][i], Kind: "date"}
		}
		if !ok {
			t.rows[r][i] = nil
			continue
		}
		t.rows[r][i] = d
	}
	return nil
}

// CoerceBool converts a flag column to bool. Missing values become false; strings are parsed
// with strconv.ParseBool and numbers are true when non-zero.
func (t *Table) CoerceBool(column string) {
	i := t.addColumn(column)
	for r := range t.rows {
		t.rows[r][i] = parseBool(t.rows[r][i])
	}
}

func parseBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		return err == nil && b
	}
	f, ok, err := ParseFloat(v)
	return err == nil && ok && f != 0
}

// CoerceString converts a label column to strings, leaving missing values nil.
func (t *Table) CoerceString(column string) {
	i := t.addColumn(column)
	for r := range t.rows {
		s, ok := ToString(t.rows[r][i])
		if !ok {
			t.rows[r][i] = nil
			continue
		}
		t.rows[r][i] = s
	}
}

// Compare orders two cell values: nil sorts first, numbers numerically, dates and times
// chronologically and everything else by string form.
func Compare(a, b any) int {
	aMissing, bMissing := IsMissing(a), IsMissing(b)
	switch {
	case aMissing && bMissing:
		return 0
	case aMissing:
		return -1
	case bMissing:
		return 1
	}

	switch av := a.(type) {
	case civil.Date:
		if bv, ok := b.(civil.Date); ok {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			}
			return 0
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			}
			return 1
		}
	}

	af, aErr := numeric(a)
	bf, bErr := numeric(b)
	if aErr == nil && bErr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}

	as, _ := ToString(a)
	bs, _ := ToString(b)
	return strings.Compare(as, bs)
}

func numeric(v any) (float64, error) {
	switch v.(type) {
	case float64, float32, int, int64, int32, uint64:
		f, _, err := ParseFloat(v)
		return f, err
	}
	return 0, errors.New("not numeric")
}

// Float returns the cell as float64, 0 for missing or non-numeric values.
func (t *Table) Float(row int, column string) float64 {
	f, _, err := ParseFloat(t.Value(row, column))
	if err != nil {
		return 0
	}
	return f
}

// String returns the cell as a string, "" for missing values.
func (t *Table) String(row int, column string) string {
	s, _ := ToString(t.Value(row, column))
	return s
}

// Date returns the cell as a date and whether it was present and valid.
func (t *Table) Date(row int, column string) (civil.Date, bool) {
	d, ok, err := ParseDate(t.Value(row, column))
	if err != nil {
		return civil.Date{}, false
	}
	return d, ok
}
