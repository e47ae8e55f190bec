package sales

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Sale is a committed point-of-sale transaction. charged_total is always
// total_before_discounts - discount + tax; tax is stored as supplied but the
// engine itself accumulates it as zero.
type Sale struct {
	ID                   int64           `json:"id"`
	CreatedAt            time.Time       `json:"created_at"`
	CreatedBy            int64           `json:"created_by,omitempty"`
	TotalBeforeDiscounts decimal.Decimal `json:"total_before_discounts"`
	Discount             decimal.Decimal `json:"discount"`
	Tax                  decimal.Decimal `json:"tax"`
	ChargedTotal         decimal.Decimal `json:"charged_total"`
	PaymentMethod        string          `json:"payment_method,omitempty"`
	Note                 string          `json:"note,omitempty"`
	Items                []SaleItem      `json:"items,omitempty"`
}

// SaleItem is one product/qty/price line within a sale. Each item drives
// exactly one consuming stock movement referencing the sale id.
//
// line_charged mirrors line_total and line_cost_total is stored as zero;
// both columns are kept for compatibility with the existing schema.
type SaleItem struct {
	ID               int64           `json:"id"`
	SaleID           int64           `json:"sale_id"`
	ProductID        int64           `json:"product_id"`
	Qty              decimal.Decimal `json:"qty"`
	InputUnit        string          `json:"input_unit,omitempty"`
	PricePerUnit     decimal.Decimal `json:"price_per_unit"`
	BasePricePerUnit decimal.Decimal `json:"base_price_per_unit"`
	LineTotal        decimal.Decimal `json:"line_total"`
	LineCostTotal    decimal.Decimal `json:"line_cost_total"`
	LineDiscount     decimal.Decimal `json:"line_discount"`
	LineCharged      decimal.Decimal `json:"line_charged"`
	CreatedAt        time.Time       `json:"created_at"`
}

// SaleItemInput describes one requested line.
type SaleItemInput struct {
	ProductID        int64
	Qty              decimal.Decimal
	PricePerUnit     decimal.Decimal
	BasePricePerUnit decimal.Decimal
	InputUnit        string
	LineDiscount     decimal.Decimal
}

// CreateSaleInput describes a sale to persist.
type CreateSaleInput struct {
	CreatedBy     int64
	Items         []SaleItemInput
	PaymentMethod string
	Note          string
}

// ListFilter narrows sale listings.
type ListFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}

// ErrInvalidItemQty indicates a non-positive line quantity.
var ErrInvalidItemQty = errors.New("sales: item qty must be positive")

// ErrInvalidItemProduct indicates a missing line product id.
var ErrInvalidItemProduct = errors.New("sales: item product required")
