package gold

import (
	"strings"

	"github.com/bruin-data/medallion/pkg/bronze"
	"github.com/bruin-data/medallion/pkg/config"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/bruin-data/medallion/pkg/silver"
	"github.com/pkg/errors"
)

var (
	FactColumns = []string{
		silver.ColIDProduct, silver.ColIDStore, bronze.ColTargetDate, bronze.ColSalesQty, bronze.ColReturnQty,
		bronze.ColDeliveryQty, silver.ColStockout, bronze.ColPrice,
	}

	factOrder = []string{silver.ColIDStore, silver.ColIDProduct, bronze.ColTargetDate}
)

// FactInputs are the upstream datasets of the daily store/product fact.
type FactInputs struct {
	SalesDaily       *frame.Table
	DimProduct       *frame.Table
	DimStore         *frame.Table
	BronzeDeliveries *frame.Table
	ProductMapping   *frame.Table
	StoreMapping     *frame.Table
	Rules            []config.AdjustmentRule
}

// BuildFactDaily builds the dense daily fact per (id_store, id_product) from the conformed
// sales fact, priced from the product dimension, plus delivery-only rows for pack products.
// Pack rows keep their observed delivery dates only.
func BuildFactDaily(in FactInputs) (*frame.Table, error) {
	base := frame.New(FactColumns...)
	if !in.SalesDaily.Empty() {
		priced, err := withPrice(in.SalesDaily, in.DimProduct)
		if err != nil {
			return nil, errors.Wrap(err, "failed to price the daily sales fact")
		}
		base = priced
	}

	dense, err := DenseCalendar(base)
	if err != nil {
		return nil, err
	}

	extras, err := PackDeliveries(in.BronzeDeliveries, in.Rules, in.ProductMapping, in.StoreMapping, in.DimProduct)
	if err != nil {
		return nil, errors.Wrap(err, "failed to materialize pack product deliveries")
	}

	return frame.Concat(dense, extras).Project(FactColumns...).SortBy(factOrder...), nil
}

// withPrice attaches the product's price_current as price.
func withPrice(fact, dimProduct *frame.Table) (*frame.Table, error) {
	prices := dimProduct.Project(silver.ColIDProduct, ColPriceCurrent).DropDuplicates()
	joined, err := frame.Join(fact.Project(columnsWithout(FactColumns, bronze.ColPrice)...), prices, frame.JoinSpec{
		LeftOn:    []string{silver.ColIDProduct},
		How:       frame.LeftJoin,
		ManyToOne: true,
	})
	if err != nil {
		return nil, err
	}

	return joined.Rename(map[string]string{ColPriceCurrent: bronze.ColPrice}).Project(FactColumns...), nil
}

// PackDeliveries aggregates bronze deliveries of pack products, the delivered side of a rule,
// per (id_store, id_product, target_date) under the pack's own surrogate id and price. The rows
// have no sales, returns or stockout.
func PackDeliveries(deliveries *frame.Table, rules []config.AdjustmentRule, productMapping, storeMapping, dimProduct *frame.Table) (*frame.Table, error) {
	if deliveries.Empty() || len(rules) == 0 {
		return frame.New(FactColumns...), nil
	}

	b := deliveries.Project(bronze.ColCustomerID, bronze.ColNumberStore, bronze.ColNumberProduct, bronze.ColTargetDate, bronze.ColDeliveryQty)
	trimKeys(b, bronze.ColNumberStore, bronze.ColNumberProduct)
	if err := b.CoerceDate(bronze.ColTargetDate, true); err != nil {
		return nil, err
	}
	if err := b.CoerceMeasure(bronze.ColDeliveryQty, true); err != nil {
		return nil, err
	}

	packs, err := frame.Join(b, silver.RulesTable(rules), frame.JoinSpec{
		LeftOn:    []string{bronze.ColCustomerID, bronze.ColNumberProduct},
		RightOn:   []string{bronze.ColCustomerID, silver.ColRuleDelivered},
		How:       frame.InnerJoin,
		ManyToOne: true,
	})
	if err != nil {
		return nil, err
	}
	if packs.Empty() {
		return frame.New(FactColumns...), nil
	}

	for _, entity := range []struct {
		name    string
		mapping *frame.Table
	}{{"product", productMapping}, {"store", storeMapping}} {
		idCol, numberCol := silver.MappingColumns(entity.name)
		m := entity.mapping.Project(idCol, numberCol, bronze.ColCustomerID)
		trimKeys(m, numberCol)
		packs, err = frame.Join(packs, m.DropDuplicatesBy(bronze.ColCustomerID, numberCol), frame.JoinSpec{
			LeftOn:    []string{bronze.ColCustomerID, numberCol},
			How:       frame.LeftJoin,
			ManyToOne: true,
		})
		if err != nil {
			return nil, err
		}
	}

	out := packs.GroupSum([]string{silver.ColIDStore, silver.ColIDProduct, bronze.ColTargetDate}, []string{bronze.ColDeliveryQty})
	out, err = withPrice(out, dimProduct)
	if err != nil {
		return nil, err
	}
	out.Fill(bronze.ColSalesQty, 0.0)
	out.Fill(bronze.ColReturnQty, 0.0)
	out.Fill(silver.ColStockout, false)

	return out.Project(FactColumns...), nil
}

// trimKeys trims the customer id and normalizes the given natural key columns.
func trimKeys(t *frame.Table, columns ...string) {
	t.SetColumn(bronze.ColCustomerID, func(r int) any {
		s, ok := frame.ToString(t.Value(r, bronze.ColCustomerID))
		if !ok {
			return nil
		}
		return strings.TrimSpace(s)
	})
	for _, c := range columns {
		t.SetColumn(c, func(r int) any { return silver.NormalizeKey(t.Value(r, c)) })
	}
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
