package flows

import (
	"context"

	"github.com/bruin-data/medallion/pkg/bronze"
	"github.com/bruin-data/medallion/pkg/catalog"
	"github.com/bruin-data/medallion/pkg/config"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/bruin-data/medallion/pkg/pipeline"
	"github.com/bruin-data/medallion/pkg/quality"
	"github.com/bruin-data/medallion/pkg/silver"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const (
	SilverProducts   = "silver.products"
	SilverStores     = "silver.stores"
	SilverSalesDaily = "silver.sales_daily"

	unmappedIssue = "natural key without surrogate id"
)

func (b *builder) mappingUnionAsset(entity, output string) *pipeline.Asset {
	customers := lo.Map(b.cfg.Customers, func(c config.Customer, _ int) string { return c.ID })
	raws := lo.Map(customers, func(id string, _ int) string { return RawDataset(id, "mapping_"+entity) })

	return &pipeline.Asset{
		Name:        "silver." + output,
		Description: "Unions the " + entity + " surrogate id mappings of every customer.",
		Type:        pipeline.AssetTypeSilver,
		Inputs:      raws,
		Outputs:     []string{output},
		Tags:        []string{TagSilver},
		Transform: single(output, func(inputs pipeline.Datasets) (*frame.Table, error) {
			parts := make([]silver.CustomerTable, 0, len(customers))
			for i, id := range customers {
				parts = append(parts, silver.CustomerTable{CustomerID: id, Table: tableOf(inputs.Get(raws[i]))})
			}
			return silver.UnionMapping(entity, parts...)
		}),
	}
}

// rulesInputs lists the datasets the delivery-to-sales rules are read from, if any.
func (b *builder) rulesInputs() []string {
	if b.cfg.DeliveryToSalesDataset == "" {
		return nil
	}
	return []string{b.cfg.DeliveryToSalesDataset}
}

// rules combines the configured delivery-to-sales rules with the ones of the rules dataset.
func (b *builder) rules(inputs pipeline.Datasets) ([]config.AdjustmentRule, error) {
	rules := append([]config.AdjustmentRule{}, b.cfg.DeliveryToSalesMap...)
	if b.cfg.DeliveryToSalesDataset == "" {
		return rules, nil
	}

	fromData, err := silver.RulesFromTable(tableOf(inputs.Get(b.cfg.DeliveryToSalesDataset)))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read delivery-to-sales rules from '%s'", b.cfg.DeliveryToSalesDataset)
	}
	return append(rules, fromData...), nil
}

func (b *builder) salesDailyAsset() *pipeline.Asset {
	sales := MergedDataset("sales")
	deliveries := MergedDataset("deliveries")

	return &pipeline.Asset{
		Name:        SilverSalesDaily,
		Description: "Conformed daily sales and deliveries per store and product with the stockout flag.",
		Type:        pipeline.AssetTypeSilver,
		Inputs:      append([]string{sales, deliveries, ProductMappingUnion, StoreMappingUnion}, b.rulesInputs()...),
		Outputs:     []string{SilverSalesDaily, UnmappedKeysLog},
		Tags:        []string{TagSilver},
		Columns: []pipeline.Column{
			{Name: bronze.ColTargetDate, Checks: []pipeline.ColumnCheck{{Name: quality.CheckNotNull}}},
			{Name: bronze.ColDeliveryQty, Checks: []pipeline.ColumnCheck{{Name: quality.CheckNonNegative, Blocking: pipeline.Blocking(false)}}},
		},
		Transform: func(_ context.Context, inputs pipeline.Datasets) (pipeline.Datasets, error) {
			rules, err := b.rules(inputs)
			if err != nil {
				return nil, err
			}

			fact, unmapped, err := silver.BuildSalesDaily(
				tableOf(inputs.Get(sales)),
				tableOf(inputs.Get(deliveries)),
				rules,
				tableOf(inputs.Get(ProductMappingUnion)),
				tableOf(inputs.Get(StoreMappingUnion)),
			)
			if err != nil {
				return nil, err
			}

			return pipeline.Datasets{
				SilverSalesDaily: catalog.TableDataset(fact),
				UnmappedKeysLog:  catalog.TextDataset(quality.IssueLog(b.clock(), unmappedIssue, unmapped)),
			}, nil
		},
	}
}

func (b *builder) silverAssets() []*pipeline.Asset {
	return []*pipeline.Asset{
		b.mappingUnionAsset("product", ProductMappingUnion),
		b.mappingUnionAsset("store", StoreMappingUnion),
		{
			Name:        SilverProducts,
			Description: "Bronze products with their surrogate product id.",
			Type:        pipeline.AssetTypeSilver,
			Inputs:      []string{MergedDataset("products"), ProductMappingUnion},
			Outputs:     []string{SilverProducts},
			Tags:        []string{TagSilver},
			Transform: single(SilverProducts, func(inputs pipeline.Datasets) (*frame.Table, error) {
				return silver.BuildProducts(tableOf(inputs.Get(MergedDataset("products"))), tableOf(inputs.Get(ProductMappingUnion)))
			}),
		},
		{
			Name:        SilverStores,
			Description: "Bronze stores with their surrogate store id.",
			Type:        pipeline.AssetTypeSilver,
			Inputs:      []string{MergedDataset("stores"), StoreMappingUnion},
			Outputs:     []string{SilverStores},
			Tags:        []string{TagSilver},
			Transform: single(SilverStores, func(inputs pipeline.Datasets) (*frame.Table, error) {
				return silver.BuildStores(tableOf(inputs.Get(MergedDataset("stores"))), tableOf(inputs.Get(StoreMappingUnion)))
			}),
		},
		b.salesDailyAsset(),
	}
}
