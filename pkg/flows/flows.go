// Package flows generates the bronze, silver and gold assets of a project from its configuration.
package flows

import (
	"context"
	"time"

	"github.com/bruin-data/medallion/pkg/catalog"
	"github.com/bruin-data/medallion/pkg/config"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/bruin-data/medallion/pkg/pipeline"
	"github.com/bruin-data/medallion/pkg/quality"
	"github.com/pkg/errors"
)

const (
	TagBronze  = "bronze"
	TagSilver  = "silver"
	TagGold    = "gold"
	TagQuality = "quality"

	EmptySalesLog   = "99_EmptySalesLog"
	UnmappedKeysLog = "99_UnmappedKeysLog"

	ProductMappingUnion = "mapping_product_union"
	StoreMappingUnion   = "mapping_store_union"
)

// Clock stamps merged rows and issue logs.
type Clock func() time.Time

// CustomerTag selects every asset that reads the raw data of one customer.
func CustomerTag(customerID string) string {
	return "customer:" + customerID
}

// RawDataset is the name of a raw input of a customer, e.g. raw_1001_sales.
func RawDataset(customerID, entity string) string {
	return "raw_" + customerID + "_" + entity
}

// BronzeDataset is the name of a normalized table of a customer, e.g. bronze.sales_1001.
func BronzeDataset(entity, customerID string) string {
	return "bronze." + entity + "_" + customerID
}

// MergedDataset is the name of a cross-customer bronze table, e.g. bronze.sales_all.
func MergedDataset(entity string) string {
	return "bronze." + entity + "_all"
}

type builder struct {
	cfg   *config.Config
	clock Clock
}

// Build generates the pipeline of the project. The clock is called once per merge and once per
// issue log, so that every row written by one asset carries the same timestamp.
func Build(cfg *config.Config, clock Clock) (*pipeline.Pipeline, error) {
	if len(cfg.Customers) == 0 {
		return nil, errors.New("no customers are configured, there is nothing to build")
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	b := &builder{cfg: cfg, clock: clock}

	assets := b.bronzeAssets()
	assets = append(assets, b.silverAssets()...)
	assets = append(assets, b.goldAssets()...)

	p, err := pipeline.New(cfg.Project.Name, assets...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build the pipeline")
	}
	return p, nil
}

// tableOf returns the dataset as one table, concatenating partitions in label order.
func tableOf(ds *catalog.Dataset) *frame.Table {
	if ds.Table != nil {
		return ds.Table
	}
	if ds.Partitions != nil {
		parts := make([]*frame.Table, 0, len(ds.Partitions))
		for _, label := range ds.Partitions.Labels() {
			parts = append(parts, ds.Partitions[label])
		}
		return frame.Concat(parts...)
	}
	return frame.New()
}

func tables(inputs pipeline.Datasets, names ...string) []*frame.Table {
	out := make([]*frame.Table, 0, len(names))
	for _, name := range names {
		out = append(out, tableOf(inputs.Get(name)))
	}
	return out
}

// single wraps a transform producing one table into a pipeline transform.
func single(output string, fn func(inputs pipeline.Datasets) (*frame.Table, error)) pipeline.Transform {
	return func(_ context.Context, inputs pipeline.Datasets) (pipeline.Datasets, error) {
		t, err := fn(inputs)
		if err != nil {
			return nil, err
		}
		return pipeline.Datasets{output: catalog.TableDataset(t)}, nil
	}
}

func idChecks(column string) pipeline.Column {
	return pipeline.Column{
		Name: column,
		Checks: []pipeline.ColumnCheck{
			{Name: quality.CheckNotNull},
			{Name: quality.CheckUnique},
		},
	}
}
