package silver

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/bruin-data/medallion/pkg/bronze"
	"github.com/bruin-data/medallion/pkg/config"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) civil.Date {
	return civil.Date{Year: 2025, Month: 8, Day: d}
}

func TestStockout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		days     []Day
		expected []bool
	}{
		{
			name: "deliveries cover sales",
			days: []Day{
				{Sales: 173, Delivery: 0},
				{Sales: 0, Delivery: 4},
				{Sales: 48, Delivery: 4},
			},
			expected: []bool{false, false, false},
		},
		{
			name: "selling from an exhausted balance",
			days: []Day{
				{Sales: 5, Delivery: 5},
				{Sales: 2, Delivery: 0},
				{Sales: 0, Delivery: 0},
				{Sales: 1, Delivery: 3},
			},
			expected: []bool{false, true, false, true},
		},
		{
			name: "first day is never flagged",
			days: []Day{
				{Sales: 10},
			},
			expected: []bool{false},
		},
		{
			name: "balance never goes negative",
			days: []Day{
				{Sales: 0, Delivery: 2},
				{Sales: 50, Delivery: 0},
				{Sales: 0, Delivery: 1},
				{Sales: 1, Delivery: 0},
			},
			expected: []bool{false, false, false, false},
		},
		{
			name: "returns add to the balance",
			days: []Day{
				{Sales: 0, Return: 1},
				{Sales: 1},
				{Sales: 1},
			},
			expected: []bool{false, false, true},
		},
		{
			name:     "empty series",
			days:     []Day{},
			expected: []bool{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Stockout(tt.days))
		})
	}
}

func salesFixture(t *testing.T) (*frame.Table, *frame.Table, *frame.Table, *frame.Table) {
	t.Helper()

	sales := frame.New(bronze.ColTargetDate, bronze.ColNumberStore, bronze.ColNumberProduct, bronze.ColSalesQty, bronze.ColCustomerID)
	require.NoError(t, sales.Append(day(10), "2", "72", 100.0, "1001"))
	require.NoError(t, sales.Append(day(10), "2", "72", 73.0, "1001"))
	require.NoError(t, sales.Append(day(12), "2", "72", 48.0, "1001"))
	require.NoError(t, sales.Append(day(10), "5", "405", 1.0, "1001"))

	deliveries := frame.New(bronze.ColTargetDate, bronze.ColNumberStore, bronze.ColNumberProduct, bronze.ColDeliveryQty, bronze.ColCustomerID)
	require.NoError(t, deliveries.Append(day(11), "2", "29", 4.0, "1001"))
	require.NoError(t, deliveries.Append(day(12), "2", "29", 4.0, "1001"))
	require.NoError(t, deliveries.Append(day(12), "2", "72", 2.0, "1001"))

	products := frame.New(ColIDProduct, bronze.ColNumberProduct, bronze.ColCustomerID)
	require.NoError(t, products.Append(int64(10010003), "72", "1001"))
	require.NoError(t, products.Append(int64(10010002), "29", "1001"))

	stores := frame.New(ColIDStore, bronze.ColNumberStore, bronze.ColCustomerID)
	require.NoError(t, stores.Append(int64(100190001), "2", "1001"))

	return sales, deliveries, products, stores
}

var packRule = []config.AdjustmentRule{{CustomerID: "1001", DeliveredProduct: "29", SalesProduct: "72", Factor: 12}}

func TestBuildSalesDaily(t *testing.T) {
	t.Parallel()

	sales, deliveries, products, stores := salesFixture(t)

	fact, unmapped, err := BuildSalesDaily(sales, deliveries, packRule, products, stores)
	require.NoError(t, err)
	assert.Equal(t, SalesDailyColumns, fact.Columns())

	pair := fact.Filter(func(r int) bool { return fact.Value(r, bronze.ColNumberProduct) == "72" })
	require.Equal(t, 3, pair.Len())
	assert.Equal(t, []any{day(10), day(11), day(12)}, pair.Column(bronze.ColTargetDate))
	assert.Equal(t, []any{173.0, 0.0, 48.0}, pair.Column(bronze.ColSalesQty))
	assert.Equal(t, []any{0.0, 48.0, 50.0}, pair.Column(bronze.ColDeliveryQty))
	assert.Equal(t, []any{0.0, 0.0, 0.0}, pair.Column(bronze.ColReturnQty))
	assert.Equal(t, []any{false, false, false}, pair.Column(ColStockout))
	assert.Equal(t, []any{int64(10010003), int64(10010003), int64(10010003)}, pair.Column(ColIDProduct))
	assert.Equal(t, []any{int64(100190001), int64(100190001), int64(100190001)}, pair.Column(ColIDStore))

	assert.Equal(t, 0, fact.Filter(func(r int) bool { return fact.Value(r, bronze.ColNumberProduct) == "29" }).Len())

	require.Equal(t, 1, unmapped.Len())
	assert.Equal(t, "405", unmapped.Value(0, bronze.ColNumberProduct))
	assert.Equal(t, "id_product,id_store", unmapped.Value(0, "missing"))
}

func TestBuildSalesDaily_WithoutRules(t *testing.T) {
	t.Parallel()

	sales, deliveries, products, stores := salesFixture(t)

	fact, _, err := BuildSalesDaily(sales, deliveries, nil, products, stores)
	require.NoError(t, err)

	pack := fact.Filter(func(r int) bool { return fact.Value(r, bronze.ColNumberProduct) == "29" })
	require.Equal(t, 2, pack.Len())
	assert.Equal(t, []any{4.0, 4.0}, pack.Column(bronze.ColDeliveryQty))
	assert.Equal(t, []any{int64(10010002), int64(10010002)}, pack.Column(ColIDProduct))
}

func TestBuildSalesDaily_StockoutPerSeries(t *testing.T) {
	t.Parallel()

	sales := frame.New(bronze.ColTargetDate, bronze.ColNumberStore, bronze.ColNumberProduct, bronze.ColSalesQty, bronze.ColCustomerID)
	require.NoError(t, sales.Append(day(10), "2", "72", 5.0, "1001"))
	require.NoError(t, sales.Append(day(11), "2", "72", 3.0, "1001"))
	require.NoError(t, sales.Append(day(11), "2", "72", 3.0, "1002"))

	fact, _, err := BuildSalesDaily(sales, nil, nil, nil, nil)
	require.NoError(t, err)

	flags := make(map[string]any)
	for r := 0; r < fact.Len(); r++ {
		flags[fact.Key(r, bronze.ColCustomerID, bronze.ColTargetDate)] = fact.Value(r, ColStockout)
	}
	assert.Equal(t, false, flags[frame.KeyOf("1001", day(10))])
	assert.Equal(t, true, flags[frame.KeyOf("1001", day(11))])
	assert.Equal(t, false, flags[frame.KeyOf("1002", day(11))])
}

func TestBuildSalesDaily_Empty(t *testing.T) {
	t.Parallel()

	fact, unmapped, err := BuildSalesDaily(nil, nil, packRule, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, SalesDailyColumns, fact.Columns())
	assert.Equal(t, 0, fact.Len())
	assert.Equal(t, 0, unmapped.Len())
}

func TestAdjustDeliveries_DuplicateRule(t *testing.T) {
	t.Parallel()

	deliveries := frame.New(bronze.ColCustomerID, bronze.ColNumberStore, bronze.ColNumberProduct, bronze.ColTargetDate, bronze.ColDeliveryQty)
	require.NoError(t, deliveries.Append("1001", "2", "29", day(11), 4.0))

	rules := append([]config.AdjustmentRule{}, packRule...)
	rules = append(rules, config.AdjustmentRule{CustomerID: "1001", DeliveredProduct: "029", SalesProduct: "73", Factor: 6})

	_, err := AdjustDeliveries(deliveries, rules)
	var cardinality *frame.JoinCardinalityError
	require.ErrorAs(t, err, &cardinality)
}

func TestRulesFromTable(t *testing.T) {
	t.Parallel()

	tbl := frame.New(bronze.ColCustomerID, ColRuleDelivered, ColRuleSales, ColRuleFactor)
	require.NoError(t, tbl.Append(1001.0, 29.0, "72", "12"))

	rules, err := RulesFromTable(tbl)
	require.NoError(t, err)
	assert.Equal(t, packRule, rules)

	bad := frame.New(bronze.ColCustomerID, ColRuleDelivered, ColRuleSales, ColRuleFactor)
	require.NoError(t, bad.Append("1001", "29", "72", "zwölf"))
	_, err = RulesFromTable(bad)
	var coercion *frame.CoercionError
	require.ErrorAs(t, err, &coercion)

	roundTrip, err := RulesFromTable(RulesTable(rules))
	require.NoError(t, err)
	assert.Equal(t, rules, roundTrip)

	rules, err = RulesFromTable(nil)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestIsPackProduct(t *testing.T) {
	t.Parallel()

	assert.True(t, IsPackProduct(packRule, "1001", "029"))
	assert.False(t, IsPackProduct(packRule, "1002", "29"))
	assert.False(t, IsPackProduct(packRule, "1001", "72"))
}
