package silver

import (
	"strings"

	"github.com/bruin-data/medallion/pkg/bronze"
	"github.com/bruin-data/medallion/pkg/config"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/pkg/errors"
)

var (
	factKeys = []string{bronze.ColCustomerID, bronze.ColNumberStore, bronze.ColNumberProduct, bronze.ColTargetDate}

	SalesDailyColumns = []string{
		ColIDProduct, ColIDStore, bronze.ColTargetDate, bronze.ColSalesQty, bronze.ColReturnQty,
		bronze.ColDeliveryQty, ColStockout, bronze.ColCustomerID, bronze.ColNumberStore, bronze.ColNumberProduct,
	}
	UnmappedColumns = []string{
		bronze.ColCustomerID, bronze.ColNumberStore, bronze.ColNumberProduct, bronze.ColTargetDate, "missing",
	}
)

// Rule columns of a delivery-to-sales mapping dataset.
const (
	ColRuleDelivered = "number_product_delivery"
	ColRuleSales     = "number_product_sales"
	ColRuleFactor    = "factor"
)

// RulesFromTable reads delivery-to-sales rules from a mapping dataset with the columns
// _customer_id, number_product_delivery, number_product_sales and factor.
func RulesFromTable(t *frame.Table) ([]config.AdjustmentRule, error) {
	if t.Empty() {
		return nil, nil
	}
	if _, err := t.Select(bronze.ColCustomerID, ColRuleDelivered, ColRuleSales, ColRuleFactor); err != nil {
		return nil, errors.Wrap(err, "invalid delivery-to-sales mapping")
	}

	rules := make([]config.AdjustmentRule, 0, t.Len())
	for r := 0; r < t.Len(); r++ {
		factor, ok, err := frame.ParseFloat(t.Value(r, ColRuleFactor))
		if err != nil || !ok {
			return nil, &frame.CoercionError{Column: ColRuleFactor, Row: r, Value: t.Value(r, ColRuleFactor), Kind: "number"}
		}
		rules = append(rules, config.AdjustmentRule{
			CustomerID:       t.String(r, bronze.ColCustomerID),
			DeliveredProduct: t.String(r, ColRuleDelivered),
			SalesProduct:     t.String(r, ColRuleSales),
			Factor:           factor,
		})
	}
	return rules, nil
}

// RulesTable renders rules as a mapping dataset with normalized product numbers, the inverse of
// RulesFromTable.
func RulesTable(rules []config.AdjustmentRule) *frame.Table {
	t := frame.New(bronze.ColCustomerID, ColRuleDelivered, ColRuleSales, ColRuleFactor)
	for _, rule := range rules {
		_ = t.Append(strings.TrimSpace(rule.CustomerID), keyString(rule.DeliveredProduct), keyString(rule.SalesProduct), rule.Factor)
	}
	return t
}

type ruleKey struct {
	customer string
	product  string
}

// ruleIndex indexes rules by (customer, delivered product). A pair listed twice is an error.
func ruleIndex(rules []config.AdjustmentRule) (map[ruleKey]config.AdjustmentRule, error) {
	index := make(map[ruleKey]config.AdjustmentRule, len(rules))
	for _, rule := range rules {
		key := ruleKey{customer: strings.TrimSpace(rule.CustomerID), product: keyString(rule.DeliveredProduct)}
		if _, ok := index[key]; ok {
			return nil, &frame.JoinCardinalityError{
				Keys:  []string{bronze.ColCustomerID, ColRuleDelivered},
				Value: frame.KeyOf(key.customer, key.product),
			}
		}
		index[key] = rule
	}
	return index, nil
}

func keyString(v any) string {
	s, _ := frame.ToString(NormalizeKey(v))
	return s
}

// IsPackProduct reports whether deliveries of the product are redirected by one of the rules.
func IsPackProduct(rules []config.AdjustmentRule, customerID string, product any) bool {
	for _, rule := range rules {
		if strings.TrimSpace(rule.CustomerID) == strings.TrimSpace(customerID) && keyString(rule.DeliveredProduct) == keyString(product) {
			return true
		}
	}
	return false
}

// prepareMeasures normalizes the fact keys, drops rows without a date and sums the measure per
// (_customer_id, number_store, number_product, target_date).
func prepareMeasures(t *frame.Table, measure string) (*frame.Table, error) {
	if t.Empty() {
		return frame.New(append(factKeys, measure)...), nil
	}

	df := t.Project(append(factKeys, measure)...)
	df.SetColumn(bronze.ColCustomerID, func(r int) any { return trimmed(df.Value(r, bronze.ColCustomerID)) })
	normalizeKeys(df, bronze.ColNumberStore, bronze.ColNumberProduct)
	if err := df.CoerceDate(bronze.ColTargetDate, false); err != nil {
		return nil, err
	}
	if err := df.CoerceMeasure(measure, true); err != nil {
		return nil, err
	}
	df = df.Filter(func(r int) bool { return df.Value(r, bronze.ColTargetDate) != nil })

	return df.GroupSum(factKeys, []string{measure}), nil
}

// AdjustDeliveries redirects deliveries of pack products to the product they are sold as and
// scales their quantity by the rule's factor, then sums again on the adjusted product.
func AdjustDeliveries(deliveries *frame.Table, rules []config.AdjustmentRule) (*frame.Table, error) {
	if len(rules) == 0 || deliveries.Empty() {
		return deliveries, nil
	}
	index, err := ruleIndex(rules)
	if err != nil {
		return nil, err
	}

	adjusted := deliveries.Clone()
	for r := 0; r < adjusted.Len(); r++ {
		key := ruleKey{
			customer: adjusted.String(r, bronze.ColCustomerID),
			product:  adjusted.String(r, bronze.ColNumberProduct),
		}
		rule, ok := index[key]
		if !ok {
			continue
		}
		adjusted.Set(r, bronze.ColNumberProduct, keyString(rule.SalesProduct))
		adjusted.Set(r, bronze.ColDeliveryQty, adjusted.Float(r, bronze.ColDeliveryQty)*rule.Factor)
	}

	return adjusted.GroupSum(factKeys, []string{bronze.ColDeliveryQty}), nil
}

// BuildSalesDaily builds the conformed daily fact: sales and adjusted deliveries per store,
// product and day, the stockout flag, and surrogate ids. Rows whose natural keys have no
// surrogate id are kept with nil ids and also returned as the second table.
func BuildSalesDaily(sales, deliveries *frame.Table, rules []config.AdjustmentRule, productMapping, storeMapping *frame.Table) (*frame.Table, *frame.Table, error) {
	salesAgg, err := prepareMeasures(sales, bronze.ColSalesQty)
	if err != nil {
		return nil, nil, err
	}
	deliveryAgg, err := prepareMeasures(deliveries, bronze.ColDeliveryQty)
	if err != nil {
		return nil, nil, err
	}
	deliveryAgg, err = AdjustDeliveries(deliveryAgg, rules)
	if err != nil {
		return nil, nil, err
	}

	fact, err := frame.Join(salesAgg, deliveryAgg, frame.JoinSpec{LeftOn: factKeys, How: frame.OuterJoin})
	if err != nil {
		return nil, nil, err
	}
	if err := fact.CoerceMeasure(bronze.ColSalesQty, false); err != nil {
		return nil, nil, err
	}
	if err := fact.CoerceMeasure(bronze.ColDeliveryQty, false); err != nil {
		return nil, nil, err
	}
	fact.Fill(bronze.ColReturnQty, 0.0)

	fact = fact.SortBy(factKeys...)
	applyStockout(fact)

	for _, m := range []struct {
		entity  string
		mapping *frame.Table
	}{{"product", productMapping}, {"store", storeMapping}} {
		fact, err = attachIDs(fact, m.mapping, m.entity)
		if err != nil {
			return nil, nil, err
		}
	}

	unmapped := frame.New(UnmappedColumns...)
	for r := 0; r < fact.Len(); r++ {
		missing := make([]string, 0, 2)
		for _, id := range []string{ColIDProduct, ColIDStore} {
			if fact.Value(r, id) == nil {
				missing = append(missing, id)
			}
		}
		if len(missing) == 0 {
			continue
		}
		if err := unmapped.Append(
			fact.Value(r, bronze.ColCustomerID),
			fact.Value(r, bronze.ColNumberStore),
			fact.Value(r, bronze.ColNumberProduct),
			fact.Value(r, bronze.ColTargetDate),
			strings.Join(missing, ","),
		); err != nil {
			return nil, nil, err
		}
	}

	return fact.Project(SalesDailyColumns...), unmapped, nil
}

func attachIDs(fact, mapping *frame.Table, entity string) (*frame.Table, error) {
	idCol, numberCol := MappingColumns(entity)

	right := frame.New(idCol, numberCol, bronze.ColCustomerID)
	if !mapping.Empty() {
		right = mapping.Project(idCol, numberCol, bronze.ColCustomerID)
		right.SetColumn(bronze.ColCustomerID, func(r int) any { return trimmed(right.Value(r, bronze.ColCustomerID)) })
		normalizeKeys(right, numberCol)
	}

	return frame.Join(fact, right, frame.JoinSpec{
		LeftOn:    []string{bronze.ColCustomerID, numberCol},
		How:       frame.LeftJoin,
		ManyToOne: true,
	})
}

// applyStockout sets the stockout column of a fact sorted by its keys, one running balance per
// (_customer_id, number_store, number_product).
func applyStockout(fact *frame.Table) {
	flags := make([]any, fact.Len())
	start := 0
	for start < fact.Len() {
		end := start + 1
		group := fact.Key(start, bronze.ColCustomerID, bronze.ColNumberStore, bronze.ColNumberProduct)
		for end < fact.Len() && fact.Key(end, bronze.ColCustomerID, bronze.ColNumberStore, bronze.ColNumberProduct) == group {
			end++
		}

		days := make([]Day, 0, end-start)
		for r := start; r < end; r++ {
			days = append(days, Day{
				Sales:    fact.Float(r, bronze.ColSalesQty),
				Delivery: fact.Float(r, bronze.ColDeliveryQty),
				Return:   fact.Float(r, bronze.ColReturnQty),
			})
		}
		for i, s := range Stockout(days) {
			flags[start+i] = s
		}
		start = end
	}

	fact.SetColumn(ColStockout, func(r int) any { return flags[r] })
}

// Day holds the movements of one product in one store on one day.
type Day struct {
	Sales    float64
	Delivery float64
	Return   float64
}

// Stockout flags the days of a date-ordered series on which something was sold while the
// stock carried over from the previous day was exhausted. The balance never goes below zero and
// the first day is never flagged.
func Stockout(days []Day) []bool {
	flags := make([]bool, len(days))
	balance := 0.0
	for i, d := range days {
		previous := balance
		balance += d.Delivery + d.Return - d.Sales
		if balance < 0 {
			balance = 0
		}
		flags[i] = i > 0 && previous == 0 && d.Sales > 0
	}
	return flags
}
