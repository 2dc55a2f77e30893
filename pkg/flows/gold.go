package flows

import (
	"context"

	"github.com/bruin-data/medallion/pkg/bronze"
	"github.com/bruin-data/medallion/pkg/catalog"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/bruin-data/medallion/pkg/gold"
	"github.com/bruin-data/medallion/pkg/pipeline"
	"github.com/bruin-data/medallion/pkg/quality"
	"github.com/bruin-data/medallion/pkg/silver"
)

const (
	DimProduct      = "gold.dim_product"
	DimStore        = "gold.dim_store"
	FactDaily       = "gold.fact_daily_store_product"
	ViewFeaturesML  = "views.features_ml_daily"
	ViewAppDaily    = "views.app_view_daily"
	salesCheckQuery = "sales_qty >= 0"
)

func (b *builder) factAsset() *pipeline.Asset {
	deliveries := MergedDataset("deliveries")

	return &pipeline.Asset{
		Name:        FactDaily,
		Description: "Dense daily fact per store and product, priced from the product dimension.",
		Type:        pipeline.AssetTypeGold,
		Inputs: append(
			[]string{SilverSalesDaily, DimProduct, DimStore, deliveries, ProductMappingUnion, StoreMappingUnion},
			b.rulesInputs()...,
		),
		Outputs: []string{FactDaily},
		Tags:    []string{TagGold},
		Columns: []pipeline.Column{
			{Name: silver.ColIDStore, Checks: []pipeline.ColumnCheck{{Name: quality.CheckNotNull, Blocking: pipeline.Blocking(false)}}},
			{Name: silver.ColIDProduct, Checks: []pipeline.ColumnCheck{{Name: quality.CheckNotNull, Blocking: pipeline.Blocking(false)}}},
			{Name: bronze.ColTargetDate, Checks: []pipeline.ColumnCheck{{Name: quality.CheckNotNull}}},
		},
		CustomChecks: []pipeline.CustomCheck{
			{
				Name:        "sales are not negative",
				Description: "Daily sales should never go below zero.",
				Query:       salesCheckQuery,
				Blocking:    pipeline.Blocking(false),
			},
		},
		Transform: func(_ context.Context, inputs pipeline.Datasets) (pipeline.Datasets, error) {
			rules, err := b.rules(inputs)
			if err != nil {
				return nil, err
			}

			fact, err := gold.BuildFactDaily(gold.FactInputs{
				SalesDaily:       tableOf(inputs.Get(SilverSalesDaily)),
				DimProduct:       tableOf(inputs.Get(DimProduct)),
				DimStore:         tableOf(inputs.Get(DimStore)),
				BronzeDeliveries: tableOf(inputs.Get(deliveries)),
				ProductMapping:   tableOf(inputs.Get(ProductMappingUnion)),
				StoreMapping:     tableOf(inputs.Get(StoreMappingUnion)),
				Rules:            rules,
			})
			if err != nil {
				return nil, err
			}
			return pipeline.Datasets{FactDaily: catalog.TableDataset(fact)}, nil
		},
	}
}

func (b *builder) goldAssets() []*pipeline.Asset {
	return []*pipeline.Asset{
		{
			Name:        DimProduct,
			Description: "Latest version of every product with its current price.",
			Type:        pipeline.AssetTypeGold,
			Inputs:      []string{SilverProducts},
			Outputs:     []string{DimProduct},
			Tags:        []string{TagGold},
			Columns:     []pipeline.Column{idChecks(silver.ColIDProduct)},
			Transform: single(DimProduct, func(inputs pipeline.Datasets) (*frame.Table, error) {
				return gold.BuildDimProduct(tableOf(inputs.Get(SilverProducts)))
			}),
		},
		{
			Name:        DimStore,
			Description: "Latest version of every store.",
			Type:        pipeline.AssetTypeGold,
			Inputs:      []string{SilverStores},
			Outputs:     []string{DimStore},
			Tags:        []string{TagGold},
			Columns:     []pipeline.Column{idChecks(silver.ColIDStore)},
			Transform: single(DimStore, func(inputs pipeline.Datasets) (*frame.Table, error) {
				return gold.BuildDimStore(tableOf(inputs.Get(SilverStores)))
			}),
		},
		b.factAsset(),
		{
			Name:        ViewFeaturesML,
			Description: "Model training features.",
			Type:        pipeline.AssetTypeView,
			Inputs:      []string{FactDaily},
			Outputs:     []string{ViewFeaturesML},
			Tags:        []string{TagGold},
			Transform: single(ViewFeaturesML, func(inputs pipeline.Datasets) (*frame.Table, error) {
				return gold.BuildViewFeaturesML(tableOf(inputs.Get(FactDaily)))
			}),
		},
		{
			Name:        ViewAppDaily,
			Description: "Daily fact with product and store attributes for the application.",
			Type:        pipeline.AssetTypeView,
			Inputs:      []string{FactDaily, DimProduct, DimStore},
			Outputs:     []string{ViewAppDaily},
			Tags:        []string{TagGold},
			Transform: single(ViewAppDaily, func(inputs pipeline.Datasets) (*frame.Table, error) {
				return gold.BuildViewApp(
					tableOf(inputs.Get(FactDaily)),
					tableOf(inputs.Get(DimProduct)),
					tableOf(inputs.Get(DimStore)),
				)
			}),
		},
	}
}
