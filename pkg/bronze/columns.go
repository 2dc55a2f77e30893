package bronze

const (
	ColTargetDate    = "target_date"
	ColNumberStore   = "number_store"
	ColNumberProduct = "number_product"
	ColSalesQty      = "sales_qty"
	ColDeliveryQty   = "delivery_qty"
	ColReturnQty     = "return_qty"
	ColDeliveryBatch = "delivery_batch"
	ColProductName   = "product_name"
	ColProductGroup  = "product_group"
	ColPrice         = "price"
	ColMOQ           = "moq"
	ColStoreName     = "store_name"
	ColStreet        = "street"
	ColPostalCode    = "postal_code"
	ColCity          = "city"
	ColCountry       = "country"
	ColState         = "state"
	ColStoreAddress  = "store_address"

	ColCustomerID = "_customer_id"
	ColSourceFile = "_source_file"
	ColIngestTS   = "_ingest_ts"
	ColRowHash    = "_row_hash"
)

// Output column sets of the normalizers. Empty inputs still produce tables with these columns.
var (
	SalesColumns           = []string{ColTargetDate, ColNumberStore, ColNumberProduct, ColSalesQty, ColCustomerID, ColSourceFile}
	DeliveriesColumns      = []string{ColTargetDate, ColNumberStore, ColNumberProduct, ColDeliveryQty, ColDeliveryBatch, ColCustomerID, ColSourceFile}
	DeliveriesSalesColumns = []string{ColTargetDate, ColNumberStore, ColNumberProduct, ColSalesQty, ColDeliveryQty, ColDeliveryBatch, ColCustomerID, ColSourceFile}
	ProductsColumns        = []string{ColNumberProduct, ColProductName, ColProductGroup, ColPrice, ColMOQ, ColCustomerID}
	GalaxyProductsColumns  = []string{ColNumberProduct, ColProductName, ColProductGroup, ColMOQ, ColCustomerID}
	PricesColumns          = []string{ColTargetDate, ColNumberProduct, ColPrice, ColCustomerID}
	StoresColumns          = []string{ColNumberStore, ColStoreName, ColStreet, ColPostalCode, ColCity, ColCountry, ColState, ColStoreAddress, ColCustomerID}
)

var (
	labelColumns = []string{
		ColNumberStore, ColNumberProduct, ColCustomerID, ColDeliveryBatch, ColProductName, ColProductGroup,
		ColStoreName, ColStreet, ColPostalCode, ColCity, ColCountry, ColState, ColStoreAddress, ColSourceFile,
	}
	measureColumns = []string{ColSalesQty, ColDeliveryQty, ColReturnQty}
)
