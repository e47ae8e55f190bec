package ledger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/karyana-pos/karyana-pos/internal/observability"
	"github.com/karyana-pos/karyana-pos/internal/shared"
)

type memoryRepo struct {
	movements   []Movement
	balances    map[int64]decimal.Decimal
	packQty     map[int64]decimal.Decimal
	nextID      int64
	failBalance error
	failInsert  error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		balances: make(map[int64]decimal.Decimal),
		packQty:  make(map[int64]decimal.Decimal),
	}
}

type memoryTx struct {
	repo     *memoryRepo
	pending  []Movement
	deltas   map[int64]decimal.Decimal
	assigned int64
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: r, deltas: make(map[int64]decimal.Decimal), assigned: r.nextID}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.movements = append(r.movements, tx.pending...)
	for pid, delta := range tx.deltas {
		r.balances[pid] = r.balances[pid].Add(delta)
	}
	r.nextID = tx.assigned
	return nil
}

func (r *memoryRepo) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	out := []Movement{}
	for _, m := range r.movements {
		if filter.ProductID != 0 && m.ProductID != filter.ProductID {
			continue
		}
		if filter.Reason != "" && m.Reason != filter.Reason {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	if tx.repo.failInsert != nil {
		return 0, tx.repo.failInsert
	}
	tx.assigned++
	m.ID = tx.assigned
	tx.pending = append(tx.pending, m)
	return m.ID, nil
}

func (tx *memoryTx) ApplyBalanceDelta(ctx context.Context, productID int64, delta decimal.Decimal, at time.Time) error {
	if tx.repo.failBalance != nil {
		return tx.repo.failBalance
	}
	tx.deltas[productID] = tx.deltas[productID].Add(delta)
	return nil
}

func (tx *memoryTx) GetSupplyPackQty(ctx context.Context, productID int64) (decimal.Decimal, error) {
	qty, ok := tx.repo.packQty[productID]
	if !ok {
		return decimal.Decimal{}, shared.ErrNotFound
	}
	return qty, nil
}

func ledgerSum(movements []Movement, productID int64) decimal.Decimal {
	sum := decimal.Zero
	for _, m := range movements {
		if m.ProductID == productID {
			sum = sum.Add(m.Qty)
		}
	}
	return sum
}

func TestRecordMovementBalanceEqualsLedgerSum(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	for _, qty := range []string{"10", "-3", "2.5", "-0.5"} {
		_, err := svc.RecordMovement(ctx, MovementInput{ProductID: 1, Qty: decimal.RequireFromString(qty), Reason: "adjustment"})
		require.NoError(t, err)
	}

	require.True(t, repo.balances[1].Equal(decimal.RequireFromString("9")))
	require.True(t, repo.balances[1].Equal(ledgerSum(repo.movements, 1)))
}

func TestRecordMovementZeroQtyPermitted(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	id, err := svc.RecordMovement(context.Background(), MovementInput{ProductID: 1, Qty: decimal.Zero, Reason: "adjustment"})
	require.NoError(t, err)
	require.NotZero(t, id)
	require.True(t, repo.balances[1].IsZero())
}

func TestRecordMovementNegativeBalancePermitted(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.RecordMovement(ctx, MovementInput{ProductID: 7, Qty: decimal.NewFromInt(2), Reason: "adjustment"})
	require.NoError(t, err)
	_, err = svc.RecordMovement(ctx, MovementInput{ProductID: 7, Qty: decimal.NewFromInt(-5), Reason: "adjustment"})
	require.NoError(t, err)

	require.True(t, repo.balances[7].Equal(decimal.NewFromInt(-3)))
}

func TestRecordMovementValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	_, err := svc.RecordMovement(ctx, MovementInput{ProductID: 0, Qty: decimal.NewFromInt(1), Reason: "adjustment"})
	require.ErrorIs(t, err, ErrInvalidProduct)

	_, err = svc.RecordMovement(ctx, MovementInput{ProductID: 1, Qty: decimal.NewFromInt(1), Reason: "  "})
	require.ErrorIs(t, err, ErrReasonRequired)
}

func TestRecordMovementRollsBackOnBalanceFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.failBalance = errors.New("disk full")
	svc := NewService(repo, nil)

	_, err := svc.RecordMovement(context.Background(), MovementInput{ProductID: 1, Qty: decimal.NewFromInt(5), Reason: "adjustment"})
	require.Error(t, err)
	require.Empty(t, repo.movements)
	require.Empty(t, repo.balances)
}

func TestConsumeForSaleRecordsNegativeQty(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	err := repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		_, err := svc.ConsumeForSaleIn(ctx, tx, 3, decimal.RequireFromString("2.5"), 41, 9)
		return err
	})
	require.NoError(t, err)

	require.Len(t, repo.movements, 1)
	m := repo.movements[0]
	require.True(t, m.Qty.Equal(decimal.RequireFromString("-2.5")))
	require.Equal(t, ReasonSale, m.Reason)
	require.Equal(t, "41", m.ReferenceID)
	require.Equal(t, int64(9), m.CreatedBy)
	require.True(t, repo.balances[3].Equal(decimal.RequireFromString("-2.5")))
}

func TestReceivePacksConversion(t *testing.T) {
	repo := newMemoryRepo()
	repo.packQty[1] = decimal.NewFromInt(1)
	repo.packQty[2] = decimal.RequireFromString("2.5")
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.ReceivePacks(ctx, ReceiveInput{ProductID: 1, NumPacks: 10})
	require.NoError(t, err)
	require.True(t, repo.balances[1].Equal(decimal.NewFromInt(10)))

	_, err = svc.ReceivePacks(ctx, ReceiveInput{ProductID: 2, NumPacks: 10})
	require.NoError(t, err)
	require.True(t, repo.balances[2].Equal(decimal.RequireFromString("25")))

	movements, err := svc.ListMovements(ctx, MovementFilter{ProductID: 2})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.Equal(t, ReasonPurchaseReceipt, movements[0].Reason)
}

func TestReceivePacksRejectsNonPositiveCount(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.ReceivePacks(context.Background(), ReceiveInput{ProductID: 1, NumPacks: 0})
	require.ErrorIs(t, err, ErrInvalidPackCount)
}

func TestReceivePacksUnknownProduct(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.ReceivePacks(context.Background(), ReceiveInput{ProductID: 99, NumPacks: 1})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestMovementsFeedPrometheusCounter(t *testing.T) {
	metrics := observability.NewMetrics()
	repo := newMemoryRepo()
	repo.packQty[7] = decimal.NewFromInt(5)
	svc := NewService(repo, metrics)
	ctx := context.Background()

	_, err := svc.RecordMovement(ctx, MovementInput{ProductID: 7, Qty: decimal.NewFromInt(2), Reason: ReasonAdjustment})
	require.NoError(t, err)
	_, err = svc.ReceivePacks(ctx, ReceiveInput{ProductID: 7, NumPacks: 3})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	require.Contains(t, body, `karyana_stock_movements_total{reason="adjustment"} 1`)
	require.Contains(t, body, `karyana_stock_movements_total{reason="purchase_receipt"} 1`)
}

func TestFailedMovementNotCounted(t *testing.T) {
	metrics := observability.NewMetrics()
	repo := newMemoryRepo()
	repo.failBalance = errors.New("balance write refused")
	svc := NewService(repo, metrics)

	_, err := svc.RecordMovement(context.Background(), MovementInput{ProductID: 7, Qty: decimal.NewFromInt(2), Reason: ReasonAdjustment})
	require.Error(t, err)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NotContains(t, rr.Body.String(), `karyana_stock_movements_total{reason="adjustment"}`)
}
