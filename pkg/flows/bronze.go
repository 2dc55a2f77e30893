package flows

import (
	"context"

	"github.com/bruin-data/medallion/pkg/bronze"
	"github.com/bruin-data/medallion/pkg/catalog"
	"github.com/bruin-data/medallion/pkg/config"
	"github.com/bruin-data/medallion/pkg/frame"
	"github.com/bruin-data/medallion/pkg/pipeline"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

type normalizer func(in bronze.Input, ingestion config.Section, customerID string) (*frame.Table, error)

type source struct {
	entity    string
	normalize normalizer
}

var (
	cosmosSources = []source{
		{entity: "sales", normalize: bronze.NormalizeCosmosSales},
		{entity: "deliveries", normalize: bronze.NormalizeCosmosDeliveries},
		{entity: "products", normalize: bronze.NormalizeCosmosProducts},
		{entity: "stores", normalize: bronze.NormalizeCosmosStores},
	}
	galaxySources = []source{
		{entity: "deliveries_sales", normalize: bronze.FlattenGalaxyDeliveriesSales},
		{entity: "prices", normalize: bronze.NormalizeGalaxyPrices},
		{entity: "products", normalize: bronze.NormalizeGalaxyProducts},
		{entity: "stores", normalize: bronze.ParseGalaxyStores},
	}
)

// inputOf hands a raw dataset to a normalizer, keeping file partitions apart.
func inputOf(ds *catalog.Dataset) bronze.Input {
	if ds.Partitions != nil {
		return bronze.PartitionedInput(ds.Partitions)
	}
	return bronze.TableInput(ds.Table)
}

func (b *builder) normalizeAsset(customerID string, src source) *pipeline.Asset {
	raw := RawDataset(customerID, src.entity)
	out := BronzeDataset(src.entity, customerID)
	ingestion := b.cfg.Ingestion()

	return &pipeline.Asset{
		Name:        out,
		Description: "Normalizes " + raw + " into the bronze " + src.entity + " schema.",
		Type:        pipeline.AssetTypeNormalize,
		Inputs:      []string{raw},
		Outputs:     []string{out},
		Tags:        []string{TagBronze, CustomerTag(customerID)},
		Transform: single(out, func(inputs pipeline.Datasets) (*frame.Table, error) {
			t, err := src.normalize(inputOf(inputs.Get(raw)), ingestion, customerID)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to normalize %s of customer '%s'", src.entity, customerID)
			}
			return t, nil
		}),
	}
}

func (b *builder) enrichAsset(customerID string) *pipeline.Asset {
	products := BronzeDataset("products", customerID)
	prices := BronzeDataset("prices", customerID)
	out := products + "_enriched"

	return &pipeline.Asset{
		Name:        out,
		Description: "Adds the latest price to every product of the customer.",
		Type:        pipeline.AssetTypeNormalize,
		Inputs:      []string{products, prices},
		Outputs:     []string{out},
		Tags:        []string{TagBronze, CustomerTag(customerID)},
		Transform: single(out, func(inputs pipeline.Datasets) (*frame.Table, error) {
			return bronze.EnrichProductsWithPrices(tableOf(inputs.Get(products)), tableOf(inputs.Get(prices))), nil
		}),
	}
}

func emptySalesOutput(customerID string) string {
	return "empty_sales_log_" + customerID
}

func (b *builder) emptySalesAsset(customerID string) *pipeline.Asset {
	raw := RawDataset(customerID, "sales")
	out := emptySalesOutput(customerID)
	enabled := b.cfg.Quality.CheckEmptySalesLog

	return &pipeline.Asset{
		Name:        "quality.empty_sales_" + customerID,
		Description: "Lists the raw sales files of the customer that contain no rows.",
		Type:        pipeline.AssetTypeLog,
		Inputs:      []string{raw},
		Outputs:     []string{out},
		Tags:        []string{TagBronze, TagQuality, CustomerTag(customerID)},
		Transform: func(_ context.Context, inputs pipeline.Datasets) (pipeline.Datasets, error) {
			ds := inputs.Get(raw)
			partitions := ds.Partitions
			if partitions == nil {
				partitions = frame.Partitions{raw: tableOf(ds)}
			}
			return pipeline.Datasets{out: catalog.TextDataset(bronze.EmptySalesLog(partitions, enabled))}, nil
		},
	}
}

func joinLogsAsset(customerIDs []string) *pipeline.Asset {
	inputs := lo.Map(customerIDs, func(id string, _ int) string { return emptySalesOutput(id) })

	return &pipeline.Asset{
		Name:        "quality.empty_sales_log",
		Description: "Concatenates the empty sales file logs of every customer.",
		Type:        pipeline.AssetTypeLog,
		Inputs:      inputs,
		Outputs:     []string{EmptySalesLog},
		Tags:        []string{TagBronze, TagQuality},
		Transform: func(_ context.Context, in pipeline.Datasets) (pipeline.Datasets, error) {
			logs := lo.Map(inputs, func(name string, _ int) string { return in.Get(name).Text })
			return pipeline.Datasets{EmptySalesLog: catalog.TextDataset(bronze.JoinLogs(logs...))}, nil
		},
	}
}

func (b *builder) mergeAsset(entity string, parts []string) *pipeline.Asset {
	out := MergedDataset(entity)

	return &pipeline.Asset{
		Name:        out,
		Description: "Merges the " + entity + " of every customer and stamps the ingestion time.",
		Type:        pipeline.AssetTypeMerge,
		Inputs:      parts,
		Outputs:     []string{out},
		Tags:        []string{TagBronze},
		Transform: single(out, func(inputs pipeline.Datasets) (*frame.Table, error) {
			return bronze.Merge(b.clock(), tables(inputs, parts...)...)
		}),
	}
}

// bronzeAssets generates the normalizers of every customer and the cross-customer merges.
// Galaxy customers deliver sales and deliveries in one dataset, which feeds both merges, and
// their products are only merged once enriched with prices.
func (b *builder) bronzeAssets() []*pipeline.Asset {
	assets := make([]*pipeline.Asset, 0)
	merges := map[string][]string{}

	cosmos := lo.Map(b.cfg.CustomersOf(config.ERPCosmos), func(c config.Customer, _ int) string { return c.ID })
	for _, id := range cosmos {
		for _, src := range cosmosSources {
			assets = append(assets, b.normalizeAsset(id, src))
			merges[src.entity] = append(merges[src.entity], BronzeDataset(src.entity, id))
		}
		assets = append(assets, b.emptySalesAsset(id))
	}

	for _, c := range b.cfg.CustomersOf(config.ERPGalaxy) {
		for _, src := range galaxySources {
			assets = append(assets, b.normalizeAsset(c.ID, src))
		}
		assets = append(assets, b.enrichAsset(c.ID))

		deliveriesSales := BronzeDataset("deliveries_sales", c.ID)
		merges["sales"] = append(merges["sales"], deliveriesSales)
		merges["deliveries"] = append(merges["deliveries"], deliveriesSales)
		merges["products"] = append(merges["products"], BronzeDataset("products", c.ID)+"_enriched")
		merges["stores"] = append(merges["stores"], BronzeDataset("stores", c.ID))
	}

	if len(cosmos) > 0 {
		assets = append(assets, joinLogsAsset(cosmos))
	}

	for _, entity := range []string{"sales", "deliveries", "products", "stores"} {
		assets = append(assets, b.mergeAsset(entity, merges[entity]))
	}

	return assets
}
