package gold

import (
	"github.com/bruin-data/medallion/pkg/bronze"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/bruin-data/medallion/pkg/silver"
)

const ColPriceCurrent = "price_current"

var (
	DimProductColumns = []string{
		silver.ColIDProduct, bronze.ColNumberProduct, bronze.ColProductName, bronze.ColProductGroup, bronze.ColMOQ, ColPriceCurrent,
	}
	DimStoreColumns = []string{
		silver.ColIDStore, bronze.ColNumberStore, bronze.ColStoreName, bronze.ColStreet, bronze.ColPostalCode,
		bronze.ColCity, bronze.ColCountry, bronze.ColState, bronze.ColStoreAddress,
	}
)

// BuildDimProduct keeps the latest version of every product by _ingest_ts and exposes its price
// as price_current.
func BuildDimProduct(products *frame.Table) (*frame.Table, error) {
	latest, err := latestByID(products, silver.ColIDProduct)
	if err != nil {
		return nil, err
	}

	out := latest.Rename(map[string]string{bronze.ColPrice: ColPriceCurrent}).Project(DimProductColumns...)
	out.CoerceString(bronze.ColNumberProduct)
	out.CoerceString(bronze.ColProductName)
	out.CoerceString(bronze.ColProductGroup)
	out.CoerceCount(bronze.ColMOQ)
	out.CoerceAttribute(ColPriceCurrent)

	return out.DropDuplicates(), nil
}

// BuildDimStore keeps the latest version of every store with both the split and the joined
// address.
func BuildDimStore(stores *frame.Table) (*frame.Table, error) {
	latest, err := latestByID(stores, silver.ColIDStore)
	if err != nil {
		return nil, err
	}

	out := latest.Project(DimStoreColumns...)
	for _, c := range DimStoreColumns[1:] {
		out.CoerceString(c)
	}

	return out.DropDuplicates(), nil
}

// latestByID drops rows without a surrogate id and keeps, per id, the last row after sorting by
// id and _ingest_ts.
func latestByID(t *frame.Table, idCol string) (*frame.Table, error) {
	if t.Empty() || !t.HasColumn(idCol) {
		return frame.New(idCol, bronze.ColIngestTS), nil
	}

	withID := t.Filter(func(r int) bool { return !frame.IsMissing(t.Value(r, idCol)) })
	if err := withID.CoerceInt(idCol); err != nil {
		return nil, err
	}

	return withID.SortBy(idCol, bronze.ColIngestTS).DropDuplicatesBy(idCol), nil
}
