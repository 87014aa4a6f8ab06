package core

// Date layouts used across the generated datasets.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05.000"
)

// Dataset names.
const (
	DatasetCustomers = "customer"
	DatasetOrders    = "orders"
	DatasetLines     = "order_lines"
	DatasetReturns   = "returns"
	DatasetInventory = "monthly_inventory"
	DatasetProducts  = "product"
)

// OrdersMarker is the side-channel watermark marker for the orders dataset,
// kept because the persisted orders schema has no reliably parsable date
// column in every deployment.
const OrdersMarker = "orders_last_date.txt"

// Customers describes the customer dimension dataset.
var Customers = DatasetSpec{
	Name:       DatasetCustomers,
	File:       "customer.csv",
	IDColumn:   "customer_id",
	IDPrefix:   "C",
	DateColumn: "customer_created_date",
	Columns: []string{
		"customer_id",
		"ls__customer_id__customer_name",
		"customer_city",
		"geo__customer_city__city_pushpin_longitude",
		"geo__customer_city__city_pushpin_latitude",
		"customer_country",
		"customer_email",
		"customer_state",
		"customer_created_date",
		"wdf__client_id",
	},
}

// Orders describes the orders dimension dataset.
var Orders = DatasetSpec{
	Name:       DatasetOrders,
	File:       "orders.csv",
	IDColumn:   "order_id",
	IDPrefix:   "O",
	DateColumn: "order_date",
	Columns: []string{
		"order_id",
		"wdf__client_id",
		"order_status",
		"order_date",
		"customer_id",
	},
}

// OrderLines describes the order lines fact dataset.
var OrderLines = DatasetSpec{
	Name:       DatasetLines,
	File:       "order_lines.csv",
	IDColumn:   "order_line_id",
	IDPrefix:   "L",
	DateColumn: "order_date",
	Columns: []string{
		"order_line_id",
		"order__order_id",
		"product__product_id",
		"customer__customer_id",
		"order_unit_price",
		"order_unit_quantity",
		"wdf__client_id",
		"order_unit_discount",
		"order_unit_cost",
		"date",
		"order_date",
		"customer_age",
	},
}

// Returns describes the returns fact dataset.
var Returns = DatasetSpec{
	Name:       DatasetReturns,
	File:       "returns.csv",
	IDColumn:   "return_id",
	IDPrefix:   "R",
	DateColumn: "return_date",
	Columns: []string{
		"return_id",
		"order__order_id",
		"product__product_id",
		"customer__customer_id",
		"return_unit_cost",
		"return_unit_quantity",
		"wdf__client_id",
		"return_unit_paid_amount",
		"date",
		"return_date",
	},
}

// MonthlyInventory describes the monthly inventory fact dataset.
var MonthlyInventory = DatasetSpec{
	Name:       DatasetInventory,
	File:       "monthly_inventory.csv",
	IDColumn:   "monthly_inventory_id",
	IDPrefix:   "M",
	DateColumn: "date",
	Columns: []string{
		"monthly_inventory_id",
		"product__product_id",
		"inventory_month",
		"monthly_quantity_eom",
		"wdf__client_id",
		"monthly_quantity_bom",
		"date",
	},
}

// Products describes the read-only product reference dataset. It is never
// generated, only consulted for valid product identifiers.
var Products = DatasetSpec{
	Name:     DatasetProducts,
	File:     "product.csv",
	IDColumn: "product_id",
}

// NumericColumns lists generated columns whose canonical type is float64.
// Used when inferring a schema for a dataset that starts out empty.
var NumericColumns = map[string]bool{
	"order_unit_price":        true,
	"order_unit_quantity":     true,
	"order_unit_discount":     true,
	"order_unit_cost":         true,
	"return_unit_cost":        true,
	"return_unit_quantity":    true,
	"return_unit_paid_amount": true,
	"monthly_quantity_eom":    true,
	"monthly_quantity_bom":    true,
	"geo__customer_city__city_pushpin_longitude": true,
	"geo__customer_city__city_pushpin_latitude":  true,
}

// AllSpecs returns the generated dataset specs in dependency order.
func AllSpecs() []DatasetSpec {
	return []DatasetSpec{Customers, Orders, OrderLines, Returns, MonthlyInventory}
}

// SpecByName looks up a dataset spec, generated or reference, by name.
func SpecByName(name string) (DatasetSpec, bool) {
	for _, spec := range append(AllSpecs(), Products) {
		if spec.Name == name {
			return spec, true
		}
	}
	return DatasetSpec{}, false
}

// FileFor maps a dataset name to its storage file name. Unknown names map to
// "<name>.csv" so ad-hoc datasets still resolve somewhere sensible.
func FileFor(dataset string) string {
	if spec, ok := SpecByName(dataset); ok {
		return spec.File
	}
	return dataset + ".csv"
}
