package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable item. Names are bilingual; at least one of the two
// must be present. stock_qty is the denormalized ledger balance and is never
// written through product updates.
type Product struct {
	ID               int64               `json:"id"`
	ShortCode        string              `json:"short_code"`
	URName           string              `json:"ur_name"`
	ENName           string              `json:"en_name"`
	Company          string              `json:"company"`
	Barcode          string              `json:"barcode"`
	BasePrice        decimal.Decimal     `json:"base_price"`
	SellPrice        decimal.Decimal     `json:"sell_price"`
	StockQty         decimal.Decimal     `json:"stock_qty"`
	ReorderThreshold decimal.Decimal     `json:"reorder_threshold"`
	CategoryID       int64               `json:"category_id"`
	Unit             string              `json:"unit"`
	CustomPacking    bool                `json:"custom_packing"`
	PackingSize      decimal.NullDecimal `json:"packing_size"`
	SupplyPackQty    decimal.Decimal     `json:"supply_pack_qty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// Balance is the read-only stock view served to availability checks.
type Balance struct {
	ProductID        int64           `json:"product_id"`
	StockQty         decimal.Decimal `json:"stock_qty"`
	ReorderThreshold decimal.Decimal `json:"reorder_threshold"`
}

// Category groups products.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductInput carries a new product. InitialStock, when nonzero, is booked
// as an opening ledger movement rather than written to stock_qty directly.
type ProductInput struct {
	ShortCode        string
	URName           string
	ENName           string
	Company          string
	Barcode          string
	BasePrice        decimal.Decimal
	SellPrice        decimal.Decimal
	InitialStock     decimal.Decimal
	ReorderThreshold decimal.Decimal
	CategoryID       int64
	Unit             string
	CustomPacking    bool
	PackingSize      decimal.NullDecimal
	SupplyPackQty    decimal.Decimal
	CreatedBy        int64
}

// ProductUpdate carries an update. Stock is deliberately absent; balances
// only ever change through ledger movements.
type ProductUpdate struct {
	ShortCode        string
	URName           string
	ENName           string
	Company          string
	Barcode          string
	BasePrice        decimal.Decimal
	SellPrice        decimal.Decimal
	ReorderThreshold decimal.Decimal
	CategoryID       int64
	Unit             string
	CustomPacking    bool
	PackingSize      decimal.NullDecimal
	SupplyPackQty    decimal.Decimal
}

// ListFilter narrows product listings.
type ListFilter struct {
	Search     string
	CategoryID int64
	Limit      int
	Offset     int
}
