package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/karyana-pos/karyana-pos/internal/ledger"
	"github.com/karyana-pos/karyana-pos/internal/observability"
	"github.com/karyana-pos/karyana-pos/internal/shared"
)

// LedgerPort is the slice of the stock ledger the sale engine needs: a
// consuming movement recorded inside the sale's own transaction.
type LedgerPort interface {
	ConsumeForSaleIn(ctx context.Context, tx ledger.TxRepository, productID int64, qty decimal.Decimal, saleID int64, createdBy int64) (int64, error)
}

// AuditPort abstracts the best-effort audit sink.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service persists multi-line sales. A sale never exists without its stock
// having been deducted, and stock is never deducted without a persisted sale.
type Service struct {
	repo    RepositoryPort
	ledger  LedgerPort
	audit   AuditPort
	metrics *observability.Metrics
}

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, id int64) (Sale, error)
	ListSales(ctx context.Context, filter ListFilter) ([]Sale, error)
}

// NewService builds Service. Metrics may be nil.
func NewService(repo RepositoryPort, ledgerSvc LedgerPort, audit AuditPort, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, ledger: ledgerSvc, audit: audit, metrics: metrics}
}

// CreateSale persists the sale header, its items, and one consuming stock
// movement per item inside a single transaction. Totals are computed before
// any write begins; an empty item list yields a degenerate zero-total sale.
func (s *Service) CreateSale(ctx context.Context, input CreateSaleInput) (int64, error) {
	for _, it := range input.Items {
		if it.ProductID <= 0 {
			return 0, ErrInvalidItemProduct
		}
		if !it.Qty.IsPositive() {
			return 0, ErrInvalidItemQty
		}
	}

	totalBefore := decimal.Zero
	totalDiscount := decimal.Zero
	totalTax := decimal.Zero // tax handling left to caller
	for _, it := range input.Items {
		totalBefore = totalBefore.Add(it.Qty.Mul(it.PricePerUnit))
		totalDiscount = totalDiscount.Add(it.LineDiscount)
	}
	charged := totalBefore.Sub(totalDiscount).Add(totalTax)

	now := time.Now().UTC()
	var saleID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		saleID, err = tx.InsertSale(ctx, Sale{
			CreatedAt:            now,
			CreatedBy:            input.CreatedBy,
			TotalBeforeDiscounts: totalBefore,
			Discount:             totalDiscount,
			Tax:                  totalTax,
			ChargedTotal:         charged,
			PaymentMethod:        input.PaymentMethod,
			Note:                 input.Note,
		})
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		for _, it := range input.Items {
			lineTotal := it.Qty.Mul(it.PricePerUnit).Sub(it.LineDiscount)
			if _, err := tx.InsertSaleItem(ctx, SaleItem{
				SaleID:           saleID,
				ProductID:        it.ProductID,
				Qty:              it.Qty,
				InputUnit:        it.InputUnit,
				PricePerUnit:     it.PricePerUnit,
				BasePricePerUnit: it.BasePricePerUnit,
				LineTotal:        lineTotal,
				LineCostTotal:    decimal.Zero,
				LineDiscount:     it.LineDiscount,
				LineCharged:      lineTotal,
				CreatedAt:        now,
			}); err != nil {
				return fmt.Errorf("insert sale item: %w", err)
			}
			if _, err := s.ledger.ConsumeForSaleIn(ctx, tx.Ledger(), it.ProductID, it.Qty, saleID, input.CreatedBy); err != nil {
				return fmt.Errorf("consume stock: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	// Counted only after commit; rolled-back movements never show up.
	for range input.Items {
		s.metrics.CountMovement(ledger.ReasonSale)
	}

	// Audit sits outside the atomicity boundary: losing an audit row is
	// acceptable, failing a committed sale is not.
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			EntityType: "sale",
			Action:     "create",
			Details:    fmt.Sprintf("sale_id=%d, created_by=%d", saleID, input.CreatedBy),
			At:         now,
		})
	}
	return saleID, nil
}

// GetSale loads one sale with its items.
func (s *Service) GetSale(ctx context.Context, id int64) (Sale, error) {
	return s.repo.GetSale(ctx, id)
}

// ListSales lists sale headers, newest first.
func (s *Service) ListSales(ctx context.Context, filter ListFilter) ([]Sale, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.ListSales(ctx, filter)
}
