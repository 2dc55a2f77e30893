package quality

import (
	"fmt"
	"strings"
	"time"

	"github.com/bruin-data/medallion/pkg/frame"
)

const issueTimeFormat = "2006-01-02 15:04:05"

// IssueLog renders every row of t as one line "<ts> | <issue> | col='value', ...". Numbers are
// written bare, missing values as null. An empty table renders as "".
func IssueLog(ts time.Time, issue string, t *frame.Table) string {
	if t.Empty() {
		return ""
	}

	stamp := ts.Format(issueTimeFormat)
	columns := t.Columns()

	var b strings.Builder
	for r := 0; r < t.Len(); r++ {
		pairs := make([]string, len(columns))
		for i, c := range columns {
			pairs[i] = c + "=" + issueValue(t.Value(r, c))
		}
		fmt.Fprintf(&b, "%s | %s | %s\n", stamp, issue, strings.Join(pairs, ", "))
	}

	return b.String()
}

func issueValue(v any) string {
	s, ok := frame.ToString(v)
	if !ok {
		return "null"
	}

	switch v.(type) {
	case float64, float32, int, int64, int32, uint64, bool:
		return s
	}
	return "'" + s + "'"
}
