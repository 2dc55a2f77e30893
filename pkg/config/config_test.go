package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseParameters = `
project:
  name: pos
  schedule: "0 3 * * *"
customers:
  - id: 1001
    erp: cosmos
  - id: "1003"
    erp: galaxy
delivery_to_sales_map:
  - customer_id: "1001"
    delivered_product: "29"
    sales_product: "72"
    factor: 12
catalog:
  - name: raw_1001_sales
    type: partitioned
    path: data/01_raw/1001/sales
    format: csv
    delimiter: ";"
`

const baseIngestion = `
ingestion_config:
  erps:
    cosmos:
      columns:
        sales: {date: Datum, store: Kunde, product: Artikel, qty: VK-Menge}
        deliveries: {date: Datum, store: Kunde, product: Artikel, qty: LI-Menge, batch: Charge}
        products: {product: Artikel, name: Bezeichnung, group: Gruppe, price: Preis, moq: MOQ}
        stores: {store: Kunde, name: Name, street: Strasse, postal_code: PLZ, city: Ort, country: Land, state: Bundesland}
    galaxy:
      deliveries_sales:
        root_date: Datum
        root_store: FilialNummer
        history_array: ArtikelHistory
        fields: {product: ArtikelNummer, sales_qty: Verkauf, delivery_qty: Lieferung}
      prices: {wrapper: Verkaufspreise, product: ArtikelNummer, price: ArtikelPreis}
      products: {product: ArtikelNummer, name: ArtikelName, group: Warengruppe, moq: Mindestmenge}
      stores: {store: FilialNummer, name: FilialName, address_multiline: Adresse}
`

func projectFs(t *testing.T) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, filepath.Join("project", "conf", "base", "parameters.yml"), []byte(baseParameters), 0o644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join("project", "conf", "base", "ingestion.yml"), []byte(baseIngestion), 0o644))
	return fs
}

func TestLoad(t *testing.T) {
	t.Parallel()

	fs := projectFs(t)
	cfg, err := Load(fs, "project", "")
	require.NoError(t, err)

	assert.Equal(t, "pos", cfg.Project.Name)
	assert.Equal(t, DefaultWorkers, cfg.Project.Workers)
	assert.Equal(t, DefaultEnvironment, cfg.Environment)
	assert.True(t, cfg.Quality.CheckEmptySalesLog)
	assert.Equal(t, []Customer{{ID: "1001", ERP: ERPCosmos}, {ID: "1003", ERP: ERPGalaxy}}, cfg.Customers)
	assert.Equal(t, []AdjustmentRule{{CustomerID: "1001", DeliveredProduct: "29", SalesProduct: "72", Factor: 12}}, cfg.DeliveryToSalesMap)

	ds, ok := cfg.DatasetByName("raw_1001_sales")
	require.True(t, ok)
	assert.Equal(t, ";", ds.Delimiter)
	assert.Equal(t, filepath.Join("project", "data/01_raw/1001/sales"), cfg.ResolvePath(ds.Path))

	qty, err := cfg.Ingestion().String("erps", "cosmos", "columns", "sales", "qty")
	require.NoError(t, err)
	assert.Equal(t, "VK-Menge", qty)

	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvironmentOverlay(t *testing.T) {
	t.Parallel()

	fs := projectFs(t)
	overlay := "project:\n  workers: 8\nquality:\n  check_empty_sales_log: false\n"
	require.NoError(t, afero.WriteFile(fs, filepath.Join("project", "conf", "prod", "parameters.yml"), []byte(overlay), 0o644))

	cfg, err := Load(fs, "project", "prod")
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Project.Workers)
	assert.False(t, cfg.Quality.CheckEmptySalesLog)
	assert.Equal(t, "pos", cfg.Project.Name)
}

func TestLoad_MissingBaseDirectory(t *testing.T) {
	t.Parallel()

	_, err := Load(afero.NewMemMapFs(), "nowhere", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), filepath.Join("nowhere", "conf", "base"))
}

func TestConfig_ValidateMissingIngestionKey(t *testing.T) {
	t.Parallel()

	cfg, err := Load(projectFs(t), "project", "")
	require.NoError(t, err)

	cosmos := cfg.IngestionConfig["erps"].(map[string]any)["cosmos"].(map[string]any)
	sales := cosmos["columns"].(map[string]any)["sales"].(map[string]any)
	delete(sales, "qty")

	err = cfg.Validate()
	var missing *MissingKeyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "ingestion_config.erps.cosmos.columns.sales.qty", missing.Path)
}

func TestConfig_ValidateRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{
			name:   "bad schedule",
			modify: func(c *Config) { c.Project.Schedule = "every day" },
		},
		{
			name:   "unknown erp",
			modify: func(c *Config) { c.Customers[0].ERP = "nebula" },
		},
		{
			name:   "duplicate customer",
			modify: func(c *Config) { c.Customers = append(c.Customers, c.Customers[0]) },
		},
		{
			name:   "zero factor",
			modify: func(c *Config) { c.DeliveryToSalesMap[0].Factor = 0 },
		},
		{
			name:   "unknown dataset type",
			modify: func(c *Config) { c.Catalog[0].Type = "parquet" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := Load(projectFs(t), "project", "")
			require.NoError(t, err)
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSection(t *testing.T) {
	t.Parallel()

	s := NewSection("ingestion_config", map[string]any{
		"erps": map[string]any{
			"galaxy": map[string]any{
				"prices": map[string]any{"wrapper": "Verkaufspreise", "code": 7},
			},
		},
	})

	prices, err := s.Sub("erps", "galaxy", "prices")
	require.NoError(t, err)
	assert.Equal(t, "ingestion_config.erps.galaxy.prices", prices.Path())

	wrapper, err := prices.String("wrapper")
	require.NoError(t, err)
	assert.Equal(t, "Verkaufspreise", wrapper)

	code, err := prices.String("code")
	require.NoError(t, err)
	assert.Equal(t, "7", code)

	assert.Empty(t, prices.OptionalString("date"))
	assert.True(t, prices.Has("wrapper"))

	_, err = prices.String("product")
	var missing *MissingKeyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "ingestion_config.erps.galaxy.prices.product", missing.Path)

	_, err = s.Sub("erps", "cosmos")
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "ingestion_config.erps.cosmos", missing.Path)
}
