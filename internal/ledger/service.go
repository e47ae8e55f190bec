package ledger

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/karyana-pos/karyana-pos/internal/observability"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
}

// Service is the single write path for stock balances. Every mutation of
// products.stock_qty goes through here, paired with its movement row inside
// one transaction.
type Service struct {
	repo    RepositoryPort
	metrics *observability.Metrics
}

// NewService builds Service. Metrics may be nil.
func NewService(repo RepositoryPort, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, metrics: metrics}
}

// RecordMovement records a movement inside its own transaction. The movement
// insert and the balance update commit together or not at all.
func (s *Service) RecordMovement(ctx context.Context, input MovementInput) (int64, error) {
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		id, err = s.RecordMovementIn(ctx, tx, input)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.metrics.CountMovement(input.Reason)
	return id, nil
}

// RecordMovementIn records a movement inside a caller-supplied transaction.
// The caller owns commit and rollback; sibling calls sharing the same tx are
// mutually atomic.
//
// Zero qty is permitted but meaningless, and the resulting balance is not
// bounded: going negative is a caller-level business rule, not a ledger one.
func (s *Service) RecordMovementIn(ctx context.Context, tx TxRepository, input MovementInput) (int64, error) {
	if input.ProductID <= 0 {
		return 0, ErrInvalidProduct
	}
	if strings.TrimSpace(input.Reason) == "" {
		return 0, ErrReasonRequired
	}
	now := time.Now().UTC()
	id, err := tx.InsertMovement(ctx, Movement{
		ProductID:   input.ProductID,
		Qty:         input.Qty,
		Reason:      input.Reason,
		ReferenceID: input.ReferenceID,
		RelatedDoc:  input.RelatedDoc,
		Unit:        input.Unit,
		CostTotal:   input.CostTotal,
		CreatedAt:   now,
		CreatedBy:   input.CreatedBy,
	})
	if err != nil {
		return 0, err
	}
	if err := tx.ApplyBalanceDelta(ctx, input.ProductID, input.Qty, now); err != nil {
		return 0, err
	}
	return id, nil
}

// ConsumeForSaleIn records an outbound movement for one sale line. It always
// joins the caller's transaction: the sale engine must supply the tx that
// also carries the sale header and items.
func (s *Service) ConsumeForSaleIn(ctx context.Context, tx TxRepository, productID int64, qty decimal.Decimal, saleID int64, createdBy int64) (int64, error) {
	return s.RecordMovementIn(ctx, tx, MovementInput{
		ProductID:   productID,
		Qty:         qty.Neg(),
		Reason:      ReasonSale,
		ReferenceID: strconv.FormatInt(saleID, 10),
		CreatedBy:   createdBy,
	})
}

// ReceivePacks converts "packs received" into base units using the product's
// supply_pack_qty (1 when unset) and records the inbound movement. It opens
// its own transaction and is not composable with caller transactions.
func (s *Service) ReceivePacks(ctx context.Context, input ReceiveInput) (int64, error) {
	if input.NumPacks <= 0 {
		return 0, ErrInvalidPackCount
	}
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		packQty, err := tx.GetSupplyPackQty(ctx, input.ProductID)
		if err != nil {
			return err
		}
		id, err = s.RecordMovementIn(ctx, tx, MovementInput{
			ProductID:   input.ProductID,
			Qty:         packQty.Mul(decimal.NewFromInt(input.NumPacks)),
			Reason:      ReasonPurchaseReceipt,
			ReferenceID: input.ReferenceID,
			CostTotal:   input.CostTotal,
			CreatedBy:   input.CreatedBy,
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	s.metrics.CountMovement(ReasonPurchaseReceipt)
	return id, nil
}

// ListMovements returns movement history, newest first.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.ListMovements(ctx, filter)
}
