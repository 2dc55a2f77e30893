package bronze

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/samber/lo"
)

// ExtractionError is returned when a semi-structured payload cannot be unwrapped into records.
type ExtractionError struct {
	Wrapper string
	Columns []string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("could not extract records wrapped in '%s' from payload, observed columns: [%s]", e.Wrapper, strings.Join(e.Columns, ", "))
}

const maxWrapDepth = 3

// strategy turns one payload value into records. The boolean reports whether the strategy
// recognised the payload shape.
type strategy func(payload any, wrapper string, fields []string, depth int) ([]map[string]any, bool)

var strategies []strategy

func init() {
	// fromWrapper recurses through extract, so the list cannot be a static initializer.
	strategies = []strategy{fromList, fromRecord, fromWrapper}
}

func fromList(payload any, _ string, _ []string, _ int) ([]map[string]any, bool) {
	switch list := payload.(type) {
	case []map[string]any:
		return list, true
	case []any:
		items := make([]map[string]any, 0, len(list))
		for _, el := range list {
			if m, ok := el.(map[string]any); ok {
				items = append(items, m)
			}
		}
		if len(items) == 0 && len(list) > 0 {
			return nil, false
		}
		return items, true
	}
	return nil, false
}

func fromRecord(payload any, _ string, fields []string, _ int) ([]map[string]any, bool) {
	m, ok := payload.(map[string]any)
	if !ok || len(fields) == 0 {
		return nil, false
	}
	for _, f := range fields {
		if _, ok := m[f]; !ok {
			return nil, false
		}
	}
	return []map[string]any{m}, true
}

func fromWrapper(payload any, wrapper string, fields []string, depth int) ([]map[string]any, bool) {
	m, ok := payload.(map[string]any)
	if !ok || wrapper == "" || depth >= maxWrapDepth {
		return nil, false
	}
	inner, ok := m[wrapper]
	if !ok {
		return nil, false
	}
	return extract(inner, wrapper, fields, depth+1)
}

// extract runs the strategies in order and stops at the first one that recognises the payload.
// String payloads are decoded as JSON and tried once more.
func extract(payload any, wrapper string, fields []string, depth int) ([]map[string]any, bool) {
	for _, s := range strategies {
		if items, ok := s(payload, wrapper, fields, depth); ok {
			return items, true
		}
	}

	if s, ok := payload.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, false
		}
		if _, stillString := decoded.(string); stillString {
			return nil, false
		}
		return extract(decoded, wrapper, fields, depth)
	}

	return nil, false
}

// ExtractRecords unwraps the records carried by a raw table. A table that already has every
// target field as a column is returned row by row. Otherwise the wrapper column, or every
// column when there is none, is searched for payloads. Records inherit the _source_file of
// their row.
func ExtractRecords(t *frame.Table, wrapper string, fields []string) ([]map[string]any, error) {
	if t.Empty() {
		return nil, nil
	}

	flat := true
	for _, f := range fields {
		if !t.HasColumn(f) {
			flat = false
			break
		}
	}
	if flat {
		return t.Records(), nil
	}

	candidates := []string{wrapper}
	if !t.HasColumn(wrapper) {
		candidates = make([]string, 0, len(t.Columns()))
		for _, c := range t.Columns() {
			if c != ColSourceFile {
				candidates = append(candidates, c)
			}
		}
	}

	records := make([]map[string]any, 0)
	found := false
	for r := 0; r < t.Len(); r++ {
		for _, c := range candidates {
			payload := t.Value(r, c)
			if c == wrapper {
				// the column itself is the wrapper, so its value is the wrapped payload
				payload = map[string]any{wrapper: payload}
			}

			items, ok := extract(payload, wrapper, fields, 0)
			if !ok {
				continue
			}
			found = true
			source := t.Value(r, ColSourceFile)
			for _, item := range items {
				rec := lo.Assign(item)
				if _, ok := rec[ColSourceFile]; !ok && source != nil {
					rec[ColSourceFile] = source
				}
				records = append(records, rec)
			}
			break
		}
	}

	if !found {
		return nil, &ExtractionError{Wrapper: wrapper, Columns: t.Columns()}
	}

	return records, nil
}
