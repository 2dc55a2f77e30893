package flows

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bruin-data/medallion/pkg/bronze"
	"github.com/bruin-data/medallion/pkg/catalog"
	"github.com/bruin-data/medallion/pkg/config"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/bruin-data/medallion/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 3, 1, 6, 30, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Project: config.Project{Name: "pos", Workers: 2},
		Customers: []config.Customer{
			{ID: "1001", ERP: config.ERPCosmos},
			{ID: "1002", ERP: config.ERPCosmos},
			{ID: "1003", ERP: config.ERPGalaxy},
		},
		Quality: config.Quality{CheckEmptySalesLog: true},
		IngestionConfig: map[string]any{
			"erps": map[string]any{
				"cosmos": map[string]any{
					"columns": map[string]any{
						"sales": map[string]any{"date": "Datum", "store": "Kunde", "product": "Artikel", "qty": "VK-Menge"},
					},
				},
			},
		},
	}
}

func isRaw(name string) bool {
	return strings.HasPrefix(name, "raw_")
}

func inputNames(p *pipeline.Pipeline, asset string) []string {
	a := p.GetAssetByName(asset)
	if a == nil {
		return nil
	}
	return a.Inputs
}

func TestBuild_Wiring(t *testing.T) {
	t.Parallel()

	p, err := Build(testConfig(), func() time.Time { return fixedTime })
	require.NoError(t, err)
	require.NoError(t, p.Validate(isRaw))

	assert.Equal(t, []string{"bronze.sales_1001", "bronze.sales_1002", "bronze.deliveries_sales_1003"}, inputNames(p, "bronze.sales_all"))
	assert.Equal(t, []string{"bronze.deliveries_1001", "bronze.deliveries_1002", "bronze.deliveries_sales_1003"}, inputNames(p, "bronze.deliveries_all"))
	assert.Equal(t, []string{"bronze.products_1001", "bronze.products_1002", "bronze.products_1003_enriched"}, inputNames(p, "bronze.products_all"))
	assert.Equal(t, []string{"bronze.stores_1001", "bronze.stores_1002", "bronze.stores_1003"}, inputNames(p, "bronze.stores_all"))
	assert.Equal(t, []string{"empty_sales_log_1001", "empty_sales_log_1002"}, inputNames(p, "quality.empty_sales_log"))
	assert.Equal(t,
		[]string{"raw_1001_mapping_product", "raw_1002_mapping_product", "raw_1003_mapping_product"},
		inputNames(p, "silver.mapping_product_union"),
	)

	assert.Nil(t, p.GetAssetByName("quality.empty_sales_1003"), "galaxy customers have no sales files to check")
	assert.Equal(t, "gold.fact_daily_store_product", p.ProducerOf(FactDaily).Name)
	assert.Equal(t, "silver.sales_daily", p.ProducerOf(UnmappedKeysLog).Name)

	assert.Len(t, p.GetAssetsByTag(CustomerTag("1003")), 5)
	assert.Len(t, p.GetAssetsByTag(TagGold), 5)

	order, err := p.TopologicalOrder()
	require.NoError(t, err)
	position := make(map[string]int, len(order))
	for i, a := range order {
		position[a.Name] = i
	}
	assert.Less(t, position["bronze.products_1003_enriched"], position["bronze.products_all"])
	assert.Less(t, position["silver.sales_daily"], position[FactDaily])
	assert.Less(t, position[DimProduct], position[ViewAppDaily])
}

func TestBuild_RulesDataset(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.DeliveryToSalesDataset = "raw_1001_mapping_delivery2sales"

	p, err := Build(cfg, nil)
	require.NoError(t, err)
	assert.Contains(t, inputNames(p, SilverSalesDaily), "raw_1001_mapping_delivery2sales")
	assert.Contains(t, inputNames(p, FactDaily), "raw_1001_mapping_delivery2sales")

	err = p.Validate(func(name string) bool { return isRaw(name) && name != cfg.DeliveryToSalesDataset })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "raw_1001_mapping_delivery2sales")
}

func TestBuild_NoCustomers(t *testing.T) {
	t.Parallel()

	_, err := Build(&config.Config{Project: config.Project{Name: "pos"}}, nil)
	require.Error(t, err)
}

func TestBuild_OnlyGalaxy(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Customers = []config.Customer{{ID: "1003", ERP: config.ERPGalaxy}}

	p, err := Build(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, p.GetAssetByName("quality.empty_sales_log"))
	assert.Equal(t, []string{"bronze.deliveries_sales_1003"}, inputNames(p, "bronze.sales_all"))
}

func TestMerge_CallsClockOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	p, err := Build(testConfig(), func() time.Time {
		calls++
		return fixedTime.Add(time.Duration(calls) * time.Minute)
	})
	require.NoError(t, err)

	sales := func(customer string, qty float64) *catalog.Dataset {
		tbl := frame.New(bronze.SalesColumns...)
		_ = tbl.Append("2024-02-01", "7", "29", qty, customer, "a.csv")
		_ = tbl.Append("2024-02-02", "7", "29", qty, customer, "a.csv")
		return catalog.TableDataset(tbl)
	}

	merge := p.GetAssetByName("bronze.sales_all")
	out, err := merge.Transform(context.Background(), pipeline.Datasets{
		"bronze.sales_1001":            sales("1001", 3),
		"bronze.sales_1002":            sales("1002", 4),
		"bronze.deliveries_sales_1003": catalog.TableDataset(frame.New(bronze.DeliveriesSalesColumns...)),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	merged := out.Get("bronze.sales_all").Table
	require.Equal(t, 4, merged.Len())
	for r := range merged.Len() {
		assert.Equal(t, fixedTime.Add(time.Minute), merged.Value(r, bronze.ColIngestTS))
	}
}

func TestEmptySalesLog(t *testing.T) {
	t.Parallel()

	raw := frame.Partitions{
		"2024-02-01.csv": frame.New("Datum"),
		"2024-02-02.csv": frame.FromRecords([]string{"Datum"}, []map[string]any{{"Datum": "02.02.2024"}}),
	}

	tests := []struct {
		name    string
		enabled bool
		want    string
	}{
		{name: "empty files are listed", enabled: true, want: "2024-02-01.csv\n"},
		{name: "disabled check writes nothing", enabled: false, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig()
			cfg.Quality.CheckEmptySalesLog = tt.enabled
			p, err := Build(cfg, nil)
			require.NoError(t, err)

			check := p.GetAssetByName("quality.empty_sales_1001")
			out, err := check.Transform(context.Background(), pipeline.Datasets{
				"raw_1001_sales": {Partitions: raw},
			})
			require.NoError(t, err)

			join := p.GetAssetByName("quality.empty_sales_log")
			joined, err := join.Transform(context.Background(), pipeline.Datasets{
				"empty_sales_log_1001": out.Get("empty_sales_log_1001"),
				"empty_sales_log_1002": catalog.TextDataset(""),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, joined.Get(EmptySalesLog).Text)
		})
	}
}

func TestNormalizeAsset(t *testing.T) {
	t.Parallel()

	p, err := Build(testConfig(), nil)
	require.NoError(t, err)

	raw := frame.FromRecords([]string{"Datum", "Kunde", "Artikel", "VK-Menge"}, []map[string]any{
		{"Datum": "01.02.2024", "Kunde": "7", "Artikel": "29", "VK-Menge": "2,5"},
	})

	asset := p.GetAssetByName("bronze.sales_1001")
	out, err := asset.Transform(context.Background(), pipeline.Datasets{
		"raw_1001_sales": {Partitions: frame.Partitions{"a.csv": raw}},
	})
	require.NoError(t, err)

	sales := out.Get("bronze.sales_1001").Table
	require.Equal(t, 1, sales.Len())
	assert.Equal(t, "1001", sales.Value(0, bronze.ColCustomerID))
	assert.Equal(t, "a.csv", sales.Value(0, bronze.ColSourceFile))
	assert.InDelta(t, 2.5, sales.Float(0, bronze.ColSalesQty), 1e-9)

	_, err = p.GetAssetByName("bronze.deliveries_1001").Transform(context.Background(), pipeline.Datasets{
		"raw_1001_deliveries": {Partitions: frame.Partitions{"a.csv": raw}},
	})
	var missing *config.MissingKeyError
	require.ErrorAs(t, err, &missing)
}
