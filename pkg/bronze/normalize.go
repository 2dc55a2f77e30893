package bronze

import (
	"github.com/bruin-data/medallion/pkg/config"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/pkg/errors"
)

// field maps a configuration key to the canonical column its configured source column becomes.
type field struct {
	key       string
	canonical string
}

// renames resolves the configured source column of every field. A missing key is a
// configuration error.
func renames(section config.Section, fields []field) (map[string]string, error) {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		source, err := section.String(f.key)
		if err != nil {
			return nil, err
		}
		out[source] = f.canonical
	}
	return out, nil
}

func requireColumns(t *frame.Table, entity string, columns ...string) error {
	if _, err := t.Select(columns...); err != nil {
		return errors.Wrapf(err, "raw %s data does not carry the configured columns", entity)
	}
	return nil
}

func coerceLabels(t *frame.Table, columns ...string) {
	for _, c := range columns {
		if t.HasColumn(c) {
			t.CoerceString(c)
		}
	}
}

// withDisplayAddress derives store_address from street, postal code and city.
func withDisplayAddress(t *frame.Table) {
	t.SetColumn(ColStoreAddress, func(r int) any {
		return DisplayAddress(t.String(r, ColStreet), t.String(r, ColPostalCode), t.String(r, ColCity))
	})
}
