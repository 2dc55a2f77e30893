package silver

import (
	"strconv"
	"strings"

	"github.com/bruin-data/medallion/pkg/frame"
)

const (
	ColIDProduct = "id_product"
	ColIDStore   = "id_store"
	ColStockout  = "stockout"
)

// NormalizeKey renders a natural key for joining: trimmed, and integral numbers in canonical
// decimal form so that "029", 29 and 29.0 agree. Missing values stay nil.
func NormalizeKey(v any) any {
	s, ok := frame.ToString(v)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, ok, err := frame.ParseInt(s); err == nil && ok {
		return strconv.FormatInt(n, 10)
	}
	return s
}

func normalizeKeys(t *frame.Table, columns ...string) {
	for _, c := range columns {
		t.SetColumn(c, func(r int) any {
			return NormalizeKey(t.Value(r, c))
		})
	}
}
