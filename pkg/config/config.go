package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

const (
	ERPCosmos = "cosmos"
	ERPGalaxy = "galaxy"

	DefaultEnvironment = "local"
	DefaultWorkers     = 4
)

type Config struct {
	Project                Project          `koanf:"project"`
	Customers              []Customer       `koanf:"customers" validate:"dive"`
	Quality                Quality          `koanf:"quality"`
	DeliveryToSalesMap     []AdjustmentRule `koanf:"delivery_to_sales_map" validate:"dive"`
	DeliveryToSalesDataset string           `koanf:"delivery_to_sales_dataset"`
	Catalog                []Dataset        `koanf:"catalog" validate:"dive"`
	Connections            Connections      `koanf:"connections"`
	IngestionConfig        map[string]any   `koanf:"ingestion_config"`

	// Root is the project directory the configuration was loaded from.
	Root string `koanf:"-"`
	// Environment is the name of the overlay directory under conf/.
	Environment string `koanf:"-"`
}

type Project struct {
	Name     string `koanf:"name" validate:"required"`
	Schedule string `koanf:"schedule"`
	Workers  int    `koanf:"workers" validate:"gte=1"`
}

type Customer struct {
	ID  string `koanf:"id" validate:"required"`
	ERP string `koanf:"erp" validate:"required,oneof=cosmos galaxy"`
}

type Quality struct {
	CheckEmptySalesLog bool `koanf:"check_empty_sales_log"`
}

// AdjustmentRule redirects deliveries of a pack product to the product it is sold as.
type AdjustmentRule struct {
	CustomerID       string  `koanf:"customer_id" validate:"required"`
	DeliveredProduct string  `koanf:"delivered_product" validate:"required"`
	SalesProduct     string  `koanf:"sales_product" validate:"required"`
	Factor           float64 `koanf:"factor" validate:"gt=0"`
}

// Dataset declares where a named dataset lives. Undeclared datasets are kept in memory.
type Dataset struct {
	Name      string `koanf:"name" validate:"required"`
	Type      string `koanf:"type" validate:"required,oneof=csv json partitioned text duckdb postgres memory"`
	Path      string `koanf:"path"`
	Table     string `koanf:"table"`
	Format    string `koanf:"format"`
	Delimiter string `koanf:"delimiter"`
	Append    bool   `koanf:"append"`
}

type Connections struct {
	DuckDB   DuckDBConnection   `koanf:"duckdb"`
	Postgres PostgresConnection `koanf:"postgres"`
}

type DuckDBConnection struct {
	Path string `koanf:"path"`
}

type PostgresConnection struct {
	URI string `koanf:"uri"`
}

// Ingestion returns the read-only view over the ingestion_config tree.
func (c *Config) Ingestion() Section {
	return NewSection("ingestion_config", c.IngestionConfig)
}

// CustomersOf returns the customers served by the given ERP family, in configuration order.
func (c *Config) CustomersOf(erp string) []Customer {
	out := make([]Customer, 0, len(c.Customers))
	for _, cust := range c.Customers {
		if cust.ERP == erp {
			out = append(out, cust)
		}
	}
	return out
}

// DatasetByName returns the catalog declaration of a dataset, if there is one.
func (c *Config) DatasetByName(name string) (Dataset, bool) {
	for _, d := range c.Catalog {
		if d.Name == name {
			return d, true
		}
	}
	return Dataset{}, false
}

// Validate checks the struct constraints, the schedule expression and that every configured
// customer has the ingestion keys its ERP family needs.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	if c.Project.Schedule != "" {
		if _, err := cron.ParseStandard(c.Project.Schedule); err != nil {
			return errors.Wrapf(err, "invalid schedule '%s'", c.Project.Schedule)
		}
	}

	seen := make(map[string]bool, len(c.Customers))
	for _, cust := range c.Customers {
		if seen[cust.ID] {
			return errors.Errorf("customer '%s' is configured more than once", cust.ID)
		}
		seen[cust.ID] = true
	}

	names := make(map[string]bool, len(c.Catalog))
	for _, d := range c.Catalog {
		if names[d.Name] {
			return errors.Errorf("dataset '%s' is declared more than once in the catalog", d.Name)
		}
		names[d.Name] = true
	}

	ingestion := c.Ingestion()
	for _, erp := range []string{ERPCosmos, ERPGalaxy} {
		if len(c.CustomersOf(erp)) == 0 {
			continue
		}
		for _, key := range RequiredIngestionKeys(erp) {
			if _, err := ingestion.String(key...); err != nil {
				return err
			}
		}
	}

	return nil
}

// RequiredIngestionKeys lists the ingestion_config keys the normalizers of an ERP family read.
func RequiredIngestionKeys(erp string) [][]string {
	switch erp {
	case ERPCosmos:
		return [][]string{
			{"erps", "cosmos", "columns", "sales", "date"},
			{"erps", "cosmos", "columns", "sales", "store"},
			{"erps", "cosmos", "columns", "sales", "product"},
			{"erps", "cosmos", "columns", "sales", "qty"},
			{"erps", "cosmos", "columns", "deliveries", "date"},
			{"erps", "cosmos", "columns", "deliveries", "store"},
			{"erps", "cosmos", "columns", "deliveries", "product"},
			{"erps", "cosmos", "columns", "deliveries", "qty"},
			{"erps", "cosmos", "columns", "deliveries", "batch"},
			{"erps", "cosmos", "columns", "products", "product"},
			{"erps", "cosmos", "columns", "products", "name"},
			{"erps", "cosmos", "columns", "products", "group"},
			{"erps", "cosmos", "columns", "products", "price"},
			{"erps", "cosmos", "columns", "products", "moq"},
			{"erps", "cosmos", "columns", "stores", "store"},
			{"erps", "cosmos", "columns", "stores", "name"},
			{"erps", "cosmos", "columns", "stores", "street"},
			{"erps", "cosmos", "columns", "stores", "postal_code"},
			{"erps", "cosmos", "columns", "stores", "city"},
			{"erps", "cosmos", "columns", "stores", "country"},
			{"erps", "cosmos", "columns", "stores", "state"},
		}
	case ERPGalaxy:
		return [][]string{
			{"erps", "galaxy", "deliveries_sales", "root_date"},
			{"erps", "galaxy", "deliveries_sales", "root_store"},
			{"erps", "galaxy", "deliveries_sales", "history_array"},
			{"erps", "galaxy", "deliveries_sales", "fields", "product"},
			{"erps", "galaxy", "deliveries_sales", "fields", "sales_qty"},
			{"erps", "galaxy", "deliveries_sales", "fields", "delivery_qty"},
			{"erps", "galaxy", "prices", "wrapper"},
			{"erps", "galaxy", "prices", "product"},
			{"erps", "galaxy", "prices", "price"},
			{"erps", "galaxy", "products", "product"},
			{"erps", "galaxy", "products", "name"},
			{"erps", "galaxy", "products", "group"},
			{"erps", "galaxy", "products", "moq"},
			{"erps", "galaxy", "stores", "store"},
			{"erps", "galaxy", "stores", "name"},
			{"erps", "galaxy", "stores", "address_multiline"},
		}
	}
	return nil
}
