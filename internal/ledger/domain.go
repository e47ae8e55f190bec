package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Movement reasons written by this module. The column is free text, so
// callers may introduce further classifications (e.g. manual adjustments).
const (
	ReasonPurchaseReceipt = "purchase_receipt"
	ReasonSale            = "sale"
	ReasonInitialStock    = "initial_stock"
	ReasonAdjustment      = "adjustment"
)

// Movement is one immutable ledger entry. Positive qty is inbound, negative
// is outbound. Rows are never updated or deleted; corrections are made by
// inserting a compensating movement.
type Movement struct {
	ID          int64               `json:"id"`
	ProductID   int64               `json:"product_id"`
	Qty         decimal.Decimal     `json:"qty"`
	Reason      string              `json:"reason"`
	ReferenceID string              `json:"reference_id,omitempty"`
	RelatedDoc  string              `json:"related_doc,omitempty"`
	Unit        string              `json:"unit,omitempty"`
	CostTotal   decimal.NullDecimal `json:"cost_total,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	CreatedBy   int64               `json:"created_by,omitempty"`
}

// MovementInput describes a movement to record.
type MovementInput struct {
	ProductID   int64
	Qty         decimal.Decimal
	Reason      string
	ReferenceID string
	RelatedDoc  string
	Unit        string
	CostTotal   decimal.NullDecimal
	CreatedBy   int64
}

// ReceiveInput describes a "packs received" action. NumPacks is converted to
// base units through the product's supply_pack_qty.
type ReceiveInput struct {
	ProductID   int64
	NumPacks    int64
	CostTotal   decimal.NullDecimal
	ReferenceID string
	CreatedBy   int64
}

// MovementFilter narrows movement history queries.
type MovementFilter struct {
	ProductID int64
	Reason    string
	Limit     int
}

// ErrInvalidProduct indicates a missing or non-positive product id.
var ErrInvalidProduct = errors.New("ledger: product required")

// ErrReasonRequired indicates an empty movement reason.
var ErrReasonRequired = errors.New("ledger: reason required")

// ErrInvalidPackCount indicates a non-positive pack count.
var ErrInvalidPackCount = errors.New("ledger: num packs must be positive")
