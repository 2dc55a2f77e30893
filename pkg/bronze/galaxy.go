package bronze

import (
	"github.com/bruin-data/medallion/pkg/config"
	"github.com/bruin-data/medallion/pkg/frame"
)

// FlattenGalaxyDeliveriesSales explodes Galaxy store-day documents into one row per product
// history entry. When erps.galaxy.deliveries_sales.stores_array is configured, every document
// first fans out into its store elements; the store number and date are taken from the closest
// level that carries them.
func FlattenGalaxyDeliveriesSales(in Input, ingestion config.Section, customerID string) (*frame.Table, error) {
	section, err := ingestion.Sub("erps", "galaxy", "deliveries_sales")
	if err != nil {
		return nil, err
	}
	rootDate, err := section.String("root_date")
	if err != nil {
		return nil, err
	}
	rootStore, err := section.String("root_store")
	if err != nil {
		return nil, err
	}
	historyKey, err := section.String("history_array")
	if err != nil {
		return nil, err
	}
	fields, err := section.Sub("fields")
	if err != nil {
		return nil, err
	}
	productKey, err := fields.String("product")
	if err != nil {
		return nil, err
	}
	salesKey, err := fields.String("sales_qty")
	if err != nil {
		return nil, err
	}
	deliveryKey, err := fields.String("delivery_qty")
	if err != nil {
		return nil, err
	}
	batchKey := fields.OptionalString("delivery_batch")
	storesKey := section.OptionalString("stores_array")

	raw := concatWithSource(in)
	out := frame.New(DeliveriesSalesColumns...)
	if raw.Empty() {
		return out, nil
	}

	for r := 0; r < raw.Len(); r++ {
		doc := raw.Record(r)

		stores := []map[string]any{doc}
		if storesKey != "" {
			payload, ok := doc[storesKey]
			if !ok {
				return nil, &ExtractionError{Wrapper: storesKey, Columns: raw.Columns()}
			}
			items, ok := extract(map[string]any{storesKey: payload}, storesKey, []string{historyKey}, 0)
			if !ok {
				return nil, &ExtractionError{Wrapper: storesKey, Columns: raw.Columns()}
			}
			stores = items
		}

		for _, store := range stores {
			date := firstPresent(rootDate, store, doc)
			storeNumber := firstPresent(rootStore, store, doc)

			history, ok := store[historyKey]
			if !ok || frame.IsMissing(history) {
				continue
			}
			entries, ok := extract(map[string]any{historyKey: history}, historyKey, []string{productKey}, 0)
			if !ok {
				return nil, &ExtractionError{Wrapper: historyKey, Columns: raw.Columns()}
			}

			for _, entry := range entries {
				var batch any
				if batchKey != "" {
					batch = entry[batchKey]
				}
				if err := out.Append(
					date,
					storeNumber,
					entry[productKey],
					entry[salesKey],
					entry[deliveryKey],
					batch,
					customerID,
					doc[ColSourceFile],
				); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := out.CoerceDate(ColTargetDate, true); err != nil {
		return nil, err
	}
	if err := out.CoerceMeasure(ColSalesQty, true); err != nil {
		return nil, err
	}
	if err := out.CoerceMeasure(ColDeliveryQty, true); err != nil {
		return nil, err
	}
	coerceLabels(out, ColNumberStore, ColNumberProduct, ColDeliveryBatch)

	return out, nil
}

func firstPresent(key string, levels ...map[string]any) any {
	for _, l := range levels {
		if v, ok := l[key]; ok && !frame.IsMissing(v) {
			return v
		}
	}
	return nil
}

// NormalizeGalaxyPrices unwraps the Galaxy price list. Prices carry a date only when
// erps.galaxy.prices.date is configured or the records have a target_date field.
func NormalizeGalaxyPrices(in Input, ingestion config.Section, customerID string) (*frame.Table, error) {
	section, err := ingestion.Sub("erps", "galaxy", "prices")
	if err != nil {
		return nil, err
	}
	wrapper, err := section.String("wrapper")
	if err != nil {
		return nil, err
	}
	productKey, err := section.String("product")
	if err != nil {
		return nil, err
	}
	priceKey, err := section.String("price")
	if err != nil {
		return nil, err
	}
	dateKey := section.OptionalString("date")
	if dateKey == "" {
		dateKey = ColTargetDate
	}

	raw := concatWithSource(in)
	out := frame.New(PricesColumns...)
	if raw.Empty() {
		return out, nil
	}

	records, err := ExtractRecords(raw, wrapper, []string{productKey, priceKey})
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if err := out.Append(rec[dateKey], rec[productKey], rec[priceKey], customerID); err != nil {
			return nil, err
		}
	}

	if err := out.CoerceDate(ColTargetDate, false); err != nil {
		return nil, err
	}
	out.CoerceAttribute(ColPrice)
	coerceLabels(out, ColNumberProduct)

	return out, nil
}

// NormalizeGalaxyProducts turns the Galaxy product master into canonical product rows. The
// master may be a flat table or wrapped under erps.galaxy.products.wrapper.
func NormalizeGalaxyProducts(in Input, ingestion config.Section, customerID string) (*frame.Table, error) {
	section, err := ingestion.Sub("erps", "galaxy", "products")
	if err != nil {
		return nil, err
	}
	mapping, err := renames(section, []field{
		{"product", ColNumberProduct},
		{"name", ColProductName},
		{"group", ColProductGroup},
		{"moq", ColMOQ},
	})
	if err != nil {
		return nil, err
	}

	raw := concatWithSource(in)
	if raw.Empty() {
		return frame.New(GalaxyProductsColumns...), nil
	}

	productKey, _ := section.String("product")
	records, err := ExtractRecords(raw, section.OptionalString("wrapper"), []string{productKey})
	if err != nil {
		return nil, err
	}

	df := frame.FromRecords(nil, records).Rename(mapping)
	if err := requireColumns(df, "products", ColNumberProduct); err != nil {
		return nil, err
	}
	df.CoerceCount(ColMOQ)
	coerceLabels(df, ColNumberProduct, ColProductName, ColProductGroup)
	df.Fill(ColCustomerID, customerID)

	return df.Project(GalaxyProductsColumns...), nil
}

// ParseGalaxyStores turns the Galaxy store master into canonical store rows, splitting the
// multi-line address into its parts.
func ParseGalaxyStores(in Input, ingestion config.Section, customerID string) (*frame.Table, error) {
	section, err := ingestion.Sub("erps", "galaxy", "stores")
	if err != nil {
		return nil, err
	}
	mapping, err := renames(section, []field{
		{"store", ColNumberStore},
		{"name", ColStoreName},
		{"address_multiline", "address_multiline"},
	})
	if err != nil {
		return nil, err
	}

	raw := concatWithSource(in)
	if raw.Empty() {
		return frame.New(StoresColumns...), nil
	}

	storeKey, _ := section.String("store")
	records, err := ExtractRecords(raw, section.OptionalString("wrapper"), []string{storeKey})
	if err != nil {
		return nil, err
	}

	df := frame.FromRecords(nil, records).Rename(mapping)
	if err := requireColumns(df, "stores", ColNumberStore); err != nil {
		return nil, err
	}

	addresses := make([]Address, df.Len())
	for r := range addresses {
		addresses[r] = ParseAddress(df.String(r, "address_multiline"))
	}
	df.SetColumn(ColStreet, func(r int) any { return orNil(addresses[r].Street) })
	df.SetColumn(ColPostalCode, func(r int) any { return orNil(addresses[r].PostalCode) })
	df.SetColumn(ColCity, func(r int) any { return orNil(addresses[r].City) })
	df.SetColumn(ColCountry, func(r int) any { return orNil(addresses[r].Country) })
	df.SetColumn(ColState, func(r int) any { return orNil(addresses[r].State) })
	withDisplayAddress(df)
	coerceLabels(df, ColNumberStore, ColStoreName)
	df.Fill(ColCustomerID, customerID)

	return df.Project(StoresColumns...), nil
}

// EnrichProductsWithPrices adds a price to products from a prices table. A price already on the
// product wins; otherwise the latest dated price of the product is used, or the last one listed
// when prices carry no dates.
func EnrichProductsWithPrices(products, prices *frame.Table) *frame.Table {
	out := products.Clone()
	if out.Empty() {
		return out.Project(ProductsColumns...)
	}

	type candidate struct {
		price float64
		date  string
	}
	latest := make(map[string]candidate)
	for r := 0; r < prices.Len(); r++ {
		p, ok, err := frame.ParseFloat(prices.Value(r, ColPrice))
		if err != nil || !ok {
			continue
		}
		key := prices.Key(r, ColCustomerID, ColNumberProduct)
		date := prices.String(r, ColTargetDate)
		if current, seen := latest[key]; seen && date < current.date {
			continue
		}
		latest[key] = candidate{price: p, date: date}
	}

	if !out.HasColumn(ColPrice) {
		out.Fill(ColPrice, nil)
	}
	out.SetColumn(ColPrice, func(r int) any {
		existing := out.Value(r, ColPrice)
		if f, ok, err := frame.ParseFloat(existing); err == nil && ok {
			return f
		}
		if c, ok := latest[out.Key(r, ColCustomerID, ColNumberProduct)]; ok {
			return c.price
		}
		return nil
	})

	return out.Project(ProductsColumns...)
}
