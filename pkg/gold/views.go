package gold

import (
	"github.com/bruin-data/medallion/pkg/bronze"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/bruin-data/medallion/pkg/silver"
)

var (
	FeaturesMLColumns = []string{
		silver.ColIDProduct, silver.ColIDStore, bronze.ColTargetDate, bronze.ColSalesQty, silver.ColStockout,
	}
	AppViewColumns = []string{
		silver.ColIDProduct, silver.ColIDStore, bronze.ColTargetDate,
		bronze.ColSalesQty, bronze.ColReturnQty, bronze.ColDeliveryQty, silver.ColStockout, bronze.ColPrice,
		bronze.ColProductName, bronze.ColNumberProduct, bronze.ColMOQ,
		bronze.ColNumberStore, bronze.ColStoreName, bronze.ColStoreAddress,
	}
)

// BuildViewFeaturesML projects the fact to the features used for model training.
func BuildViewFeaturesML(fact *frame.Table) (*frame.Table, error) {
	if fact.Empty() {
		return frame.New(FeaturesMLColumns...), nil
	}

	out := fact.Project(FeaturesMLColumns...)
	if err := out.CoerceDate(bronze.ColTargetDate, true); err != nil {
		return nil, err
	}
	out.CoerceBool(silver.ColStockout)

	return out.SortBy(factOrder...), nil
}

// BuildViewApp joins the fact with product and store attributes. Fact rows are kept when a
// dimension has no matching id.
func BuildViewApp(fact, dimProduct, dimStore *frame.Table) (*frame.Table, error) {
	if fact.Empty() {
		return frame.New(AppViewColumns...), nil
	}

	out := fact.Project(FactColumns...)
	lookups := []struct {
		dim  *frame.Table
		key  string
		cols []string
	}{
		{dimProduct, silver.ColIDProduct, []string{bronze.ColProductName, bronze.ColNumberProduct, bronze.ColMOQ}},
		{dimStore, silver.ColIDStore, []string{bronze.ColNumberStore, bronze.ColStoreName, bronze.ColStoreAddress}},
	}
	for _, l := range lookups {
		var err error
		out, err = frame.Join(out, l.dim.Project(append([]string{l.key}, l.cols...)...), frame.JoinSpec{
			LeftOn:    []string{l.key},
			How:       frame.LeftJoin,
			ManyToOne: true,
		})
		if err != nil {
			return nil, err
		}
	}

	out = out.Project(AppViewColumns...)
	if err := out.CoerceDate(bronze.ColTargetDate, true); err != nil {
		return nil, err
	}
	out.CoerceBool(silver.ColStockout)

	return out.SortBy(factOrder...), nil
}
