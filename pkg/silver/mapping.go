package silver

import (
	"strconv"

	"github.com/bruin-data/medallion/pkg/bronze"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/pkg/errors"
)

const customerIDLength = 4

// CustomerTable is a customer's own natural-key mapping table.
type CustomerTable struct {
	CustomerID string
	Table      *frame.Table
}

// MappingColumns returns the id and natural number columns of an entity ("product" or "store").
func MappingColumns(entity string) (string, string) {
	return "id_" + entity, "number_" + entity
}

// UnionMapping combines the customers' surrogate id mappings of one entity into
// id_<entity>, number_<entity>, _customer_id. Every id and natural number must be numeric;
// natural numbers are normalized through their numeric form ("029" becomes "29"). The customer
// comes from the part; a part without one falls back to the first four digits of the id.
func UnionMapping(entity string, parts ...CustomerTable) (*frame.Table, error) {
	idCol, numberCol := MappingColumns(entity)
	out := frame.New(idCol, numberCol, bronze.ColCustomerID)

	for _, part := range parts {
		if part.Table.Empty() {
			continue
		}

		t, err := part.Table.Select(idCol, numberCol)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s mapping for customer '%s'", entity, part.CustomerID)
		}
		if err := t.CoerceInt(idCol); err != nil {
			return nil, err
		}
		if err := t.CoerceInt(numberCol); err != nil {
			return nil, err
		}

		for r := 0; r < t.Len(); r++ {
			id := t.Value(r, idCol).(int64)
			customer := part.CustomerID
			if customer == "" {
				customer = customerFromID(id)
			}
			if err := out.Append(id, strconv.FormatInt(t.Value(r, numberCol).(int64), 10), customer); err != nil {
				return nil, err
			}
		}
	}

	return out.DropDuplicates(), nil
}

func customerFromID(id int64) string {
	s := strconv.FormatInt(id, 10)
	if len(s) > customerIDLength {
		return s[:customerIDLength]
	}
	return s
}
