package silver

import (
	"strings"

	"github.com/bruin-data/medallion/pkg/bronze"
	"github.com/bruin-data/medallion/pkg/frame"
)

var (
	ProductColumns = []string{
		ColIDProduct, bronze.ColNumberProduct, bronze.ColProductName, bronze.ColProductGroup, bronze.ColPrice,
		bronze.ColMOQ, bronze.ColCustomerID, bronze.ColIngestTS, bronze.ColRowHash,
	}
	StoreColumns = []string{
		ColIDStore, bronze.ColNumberStore, bronze.ColStoreName, bronze.ColStreet, bronze.ColPostalCode,
		bronze.ColCity, bronze.ColCountry, bronze.ColState, bronze.ColStoreAddress, bronze.ColCustomerID,
		bronze.ColIngestTS, bronze.ColRowHash,
	}
)

// BuildProducts attaches surrogate ids to the merged product master.
func BuildProducts(products, mapping *frame.Table) (*frame.Table, error) {
	return buildDimension(products, mapping, "product", ProductColumns)
}

// BuildStores attaches surrogate ids to the merged store master.
func BuildStores(stores, mapping *frame.Table) (*frame.Table, error) {
	return buildDimension(stores, mapping, "store", StoreColumns)
}

// buildDimension left-joins merged rows to the mapping on (_customer_id, number_<entity>).
// Columns the upstream table lacks are filled with nil.
func buildDimension(raw, mapping *frame.Table, entity string, columns []string) (*frame.Table, error) {
	if raw.Empty() {
		return frame.New(columns...), nil
	}
	idCol, numberCol := MappingColumns(entity)

	left := raw.Project(columnsWithout(columns, idCol)...)
	left.SetColumn(bronze.ColCustomerID, func(r int) any { return trimmed(left.Value(r, bronze.ColCustomerID)) })
	normalizeKeys(left, numberCol)

	right := mapping.Clone()
	if right.Empty() {
		right = frame.New(idCol, numberCol, bronze.ColCustomerID)
	}
	right = right.Project(idCol, numberCol, bronze.ColCustomerID)
	right.SetColumn(bronze.ColCustomerID, func(r int) any { return trimmed(right.Value(r, bronze.ColCustomerID)) })
	normalizeKeys(right, numberCol)

	joined, err := frame.Join(left, right, frame.JoinSpec{
		LeftOn:    []string{bronze.ColCustomerID, numberCol},
		How:       frame.LeftJoin,
		ManyToOne: true,
	})
	if err != nil {
		return nil, err
	}

	return joined.Project(columns...), nil
}

func columnsWithout(columns []string, drop string) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if c != drop {
			out = append(out, c)
		}
	}
	return out
}

func trimmed(v any) any {
	s, ok := frame.ToString(v)
	if !ok {
		return nil
	}
	return strings.TrimSpace(s)
}
