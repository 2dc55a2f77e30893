package bronze

import (
	"github.com/bruin-data/medallion/pkg/config"
	"github.com/bruin-data/medallion/pkg/frame"
)

func cosmosColumns(ingestion config.Section, entity string, fields []field) (map[string]string, error) {
	section, err := ingestion.Sub("erps", "cosmos", "columns", entity)
	if err != nil {
		return nil, err
	}
	return renames(section, fields)
}

// NormalizeCosmosSales turns raw Cosmos sales exports into canonical sales rows.
func NormalizeCosmosSales(in Input, ingestion config.Section, customerID string) (*frame.Table, error) {
	mapping, err := cosmosColumns(ingestion, "sales", []field{
		{"date", ColTargetDate},
		{"store", ColNumberStore},
		{"product", ColNumberProduct},
		{"qty", ColSalesQty},
	})
	if err != nil {
		return nil, err
	}

	df := concatWithSource(in)
	if df.Empty() {
		return frame.New(SalesColumns...), nil
	}

	df = df.Rename(mapping)
	if err := requireColumns(df, "sales", ColTargetDate, ColNumberStore, ColNumberProduct, ColSalesQty); err != nil {
		return nil, err
	}
	if err := df.CoerceDate(ColTargetDate, true); err != nil {
		return nil, err
	}
	if err := df.CoerceMeasure(ColSalesQty, true); err != nil {
		return nil, err
	}
	coerceLabels(df, ColNumberStore, ColNumberProduct)
	df.Fill(ColCustomerID, customerID)

	return df.Project(SalesColumns...), nil
}

// NormalizeCosmosDeliveries turns raw Cosmos delivery exports into canonical delivery rows.
func NormalizeCosmosDeliveries(in Input, ingestion config.Section, customerID string) (*frame.Table, error) {
	mapping, err := cosmosColumns(ingestion, "deliveries", []field{
		{"date", ColTargetDate},
		{"store", ColNumberStore},
		{"product", ColNumberProduct},
		{"qty", ColDeliveryQty},
		{"batch", ColDeliveryBatch},
	})
	if err != nil {
		return nil, err
	}

	df := concatWithSource(in)
	if df.Empty() {
		return frame.New(DeliveriesColumns...), nil
	}

	df = df.Rename(mapping)
	if err := requireColumns(df, "deliveries", ColTargetDate, ColNumberStore, ColNumberProduct, ColDeliveryQty); err != nil {
		return nil, err
	}
	if err := df.CoerceDate(ColTargetDate, true); err != nil {
		return nil, err
	}
	if err := df.CoerceMeasure(ColDeliveryQty, true); err != nil {
		return nil, err
	}
	coerceLabels(df, ColNumberStore, ColNumberProduct, ColDeliveryBatch)
	df.Fill(ColCustomerID, customerID)

	return df.Project(DeliveriesColumns...), nil
}

// NormalizeCosmosProducts turns the Cosmos product master into canonical product rows.
func NormalizeCosmosProducts(in Input, ingestion config.Section, customerID string) (*frame.Table, error) {
	mapping, err := cosmosColumns(ingestion, "products", []field{
		{"product", ColNumberProduct},
		{"name", ColProductName},
		{"group", ColProductGroup},
		{"price", ColPrice},
		{"moq", ColMOQ},
	})
	if err != nil {
		return nil, err
	}

	df := concatWithSource(in)
	if df.Empty() {
		return frame.New(ProductsColumns...), nil
	}

	df = df.Rename(mapping)
	if err := requireColumns(df, "products", ColNumberProduct); err != nil {
		return nil, err
	}
	df.CoerceAttribute(ColPrice)
	df.CoerceCount(ColMOQ)
	coerceLabels(df, ColNumberProduct, ColProductName, ColProductGroup)
	df.Fill(ColCustomerID, customerID)

	return df.Project(ProductsColumns...), nil
}

// NormalizeCosmosStores turns the Cosmos store master into canonical store rows.
func NormalizeCosmosStores(in Input, ingestion config.Section, customerID string) (*frame.Table, error) {
	mapping, err := cosmosColumns(ingestion, "stores", []field{
		{"store", ColNumberStore},
		{"name", ColStoreName},
		{"street", ColStreet},
		{"postal_code", ColPostalCode},
		{"city", ColCity},
		{"country", ColCountry},
		{"state", ColState},
	})
	if err != nil {
		return nil, err
	}

	df := concatWithSource(in)
	if df.Empty() {
		return frame.New(StoresColumns...), nil
	}

	df = df.Rename(mapping)
	if err := requireColumns(df, "stores", ColNumberStore); err != nil {
		return nil, err
	}
	coerceLabels(df, ColNumberStore, ColStoreName, ColStreet, ColPostalCode, ColCity, ColCountry, ColState)
	withDisplayAddress(df)
	df.Fill(ColCustomerID, customerID)

	return df.Project(StoresColumns...), nil
}
