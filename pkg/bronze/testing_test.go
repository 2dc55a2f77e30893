package bronze

import (
	"github.com/bruin-data/medallion/pkg/config"
)

func ingestionSection() config.Section {
	return config.NewSection("ingestion_config", map[string]any{
		"erps": map[string]any{
			"cosmos": map[string]any{
				"columns": map[string]any{
					"sales":      map[string]any{"date": "Datum", "store": "Kunde", "product": "Artikel", "qty": "VK-Menge"},
					"deliveries": map[string]any{"date": "Datum", "store": "Kunde", "product": "Artikel", "qty": "LI-Menge", "batch": "Charge"},
					"products":   map[string]any{"product": "Artikel", "name": "Bezeichnung", "group": "Gruppe", "price": "Preis", "moq": "MOQ"},
					"stores": map[string]any{
						"store": "Kunde", "name": "Name", "street": "Strasse", "postal_code": "PLZ",
						"city": "Ort", "country": "Land", "state": "Bundesland",
					},
				},
			},
			"galaxy": map[string]any{
				"deliveries_sales": map[string]any{
					"root_date":     "Datum",
					"root_store":    "FilialNummer",
					"history_array": "ArtikelHistory",
					"fields": map[string]any{
						"product":        "ArtikelNummer",
						"sales_qty":      "Verkauf",
						"delivery_qty":   "Lieferung",
						"delivery_batch": "Charge",
					},
				},
				"prices":   map[string]any{"wrapper": "Verkaufspreise", "product": "ArtikelNummer", "price": "ArtikelPreis"},
				"products": map[string]any{"product": "ArtikelNummer", "name": "ArtikelName", "group": "Warengruppe", "moq": "Mindestmenge"},
				"stores":   map[string]any{"store": "FilialNummer", "name": "FilialName", "address_multiline": "Adresse"},
			},
		},
	})
}
