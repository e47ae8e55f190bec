package sales

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/karyana-pos/karyana-pos/internal/ledger"
	"github.com/karyana-pos/karyana-pos/internal/observability"
	"github.com/karyana-pos/karyana-pos/internal/shared"
)

type memoryStore struct {
	sales     []Sale
	items     []SaleItem
	movements []ledger.Movement
	balances  map[int64]decimal.Decimal

	failConsumeProduct int64
	nextSaleID         int64
	nextItemID         int64
	nextMovementID     int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{balances: map[int64]decimal.Decimal{}}
}

type memorySalesTx struct {
	store     *memoryStore
	sales     []Sale
	items     []SaleItem
	movements []ledger.Movement
	deltas    map[int64]decimal.Decimal
}

func (s *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memorySalesTx{store: s, deltas: map[int64]decimal.Decimal{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.sales = append(s.sales, tx.sales...)
	s.items = append(s.items, tx.items...)
	s.movements = append(s.movements, tx.movements...)
	for pid, delta := range tx.deltas {
		s.balances[pid] = s.balances[pid].Add(delta)
	}
	return nil
}

func (s *memoryStore) GetSale(ctx context.Context, id int64) (Sale, error) {
	for _, sale := range s.sales {
		if sale.ID == id {
			for _, item := range s.items {
				if item.SaleID == id {
					sale.Items = append(sale.Items, item)
				}
			}
			return sale, nil
		}
	}
	return Sale{}, shared.ErrNotFound
}

func (s *memoryStore) ListSales(ctx context.Context, filter ListFilter) ([]Sale, error) {
	out := make([]Sale, len(s.sales))
	copy(out, s.sales)
	return out, nil
}

func (tx *memorySalesTx) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	tx.store.nextSaleID++
	sale.ID = tx.store.nextSaleID
	tx.sales = append(tx.sales, sale)
	return sale.ID, nil
}

func (tx *memorySalesTx) InsertSaleItem(ctx context.Context, item SaleItem) (int64, error) {
	tx.store.nextItemID++
	item.ID = tx.store.nextItemID
	tx.items = append(tx.items, item)
	return item.ID, nil
}

func (tx *memorySalesTx) Ledger() ledger.TxRepository {
	return &memoryLedgerTx{salesTx: tx}
}

type memoryLedgerTx struct {
	salesTx *memorySalesTx
}

func (l *memoryLedgerTx) InsertMovement(ctx context.Context, m ledger.Movement) (int64, error) {
	l.salesTx.store.nextMovementID++
	m.ID = l.salesTx.store.nextMovementID
	l.salesTx.movements = append(l.salesTx.movements, m)
	return m.ID, nil
}

func (l *memoryLedgerTx) ApplyBalanceDelta(ctx context.Context, productID int64, delta decimal.Decimal, at time.Time) error {
	if l.salesTx.store.failConsumeProduct == productID {
		return errors.New("simulated db failure")
	}
	l.salesTx.deltas[productID] = l.salesTx.deltas[productID].Add(delta)
	return nil
}

func (l *memoryLedgerTx) GetSupplyPackQty(ctx context.Context, productID int64) (decimal.Decimal, error) {
	return decimal.NewFromInt(1), nil
}

type auditRecorder struct {
	logs []shared.AuditLog
	err  error
}

func (a *auditRecorder) Record(ctx context.Context, log shared.AuditLog) error {
	if a.err != nil {
		return a.err
	}
	a.logs = append(a.logs, log)
	return nil
}

func newTestService(store *memoryStore, audit AuditPort) *Service {
	return NewService(store, ledger.NewService(nil, nil), audit, nil)
}

func TestCreateSaleDeductsStockAndComputesTotals(t *testing.T) {
	store := newMemoryStore()
	store.balances[1] = decimal.NewFromInt(15)
	svc := newTestService(store, nil)

	saleID, err := svc.CreateSale(context.Background(), CreateSaleInput{
		CreatedBy:     4,
		PaymentMethod: "cash",
		Items: []SaleItemInput{{
			ProductID:        1,
			Qty:              decimal.NewFromInt(3),
			PricePerUnit:     decimal.RequireFromString("45.0"),
			BasePricePerUnit: decimal.RequireFromString("30.0"),
		}},
	})
	require.NoError(t, err)
	require.NotZero(t, saleID)

	require.True(t, store.balances[1].Equal(decimal.NewFromInt(12)))

	require.Len(t, store.sales, 1)
	sale := store.sales[0]
	require.True(t, sale.ChargedTotal.Equal(decimal.RequireFromString("135.0")))
	require.True(t, sale.TotalBeforeDiscounts.Equal(decimal.RequireFromString("135.0")))
	require.True(t, sale.Tax.IsZero())
	require.Equal(t, "cash", sale.PaymentMethod)

	require.Len(t, store.movements, 1)
	m := store.movements[0]
	require.Equal(t, ledger.ReasonSale, m.Reason)
	require.True(t, m.Qty.Equal(decimal.NewFromInt(-3)))
	require.Equal(t, "1", m.ReferenceID)
}

func TestCreateSaleLineFields(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, nil)

	_, err := svc.CreateSale(context.Background(), CreateSaleInput{
		Items: []SaleItemInput{
			{ProductID: 1, Qty: decimal.NewFromInt(2), PricePerUnit: decimal.NewFromInt(50), LineDiscount: decimal.NewFromInt(10)},
			{ProductID: 2, Qty: decimal.NewFromInt(1), PricePerUnit: decimal.NewFromInt(20)},
		},
	})
	require.NoError(t, err)

	require.Len(t, store.items, 2)
	first := store.items[0]
	require.True(t, first.LineTotal.Equal(decimal.NewFromInt(90)))
	require.True(t, first.LineCharged.Equal(first.LineTotal))
	require.True(t, first.LineCostTotal.IsZero())

	sale := store.sales[0]
	require.True(t, sale.TotalBeforeDiscounts.Equal(decimal.NewFromInt(120)))
	require.True(t, sale.Discount.Equal(decimal.NewFromInt(10)))
	require.True(t, sale.ChargedTotal.Equal(decimal.NewFromInt(110)))
}

func TestCreateSaleAllOrNothing(t *testing.T) {
	store := newMemoryStore()
	store.balances[1] = decimal.NewFromInt(10)
	store.balances[2] = decimal.NewFromInt(10)
	store.failConsumeProduct = 3
	svc := newTestService(store, nil)

	_, err := svc.CreateSale(context.Background(), CreateSaleInput{
		Items: []SaleItemInput{
			{ProductID: 1, Qty: decimal.NewFromInt(1), PricePerUnit: decimal.NewFromInt(5)},
			{ProductID: 2, Qty: decimal.NewFromInt(1), PricePerUnit: decimal.NewFromInt(5)},
			{ProductID: 3, Qty: decimal.NewFromInt(1), PricePerUnit: decimal.NewFromInt(5)},
		},
	})
	require.Error(t, err)

	require.Empty(t, store.sales)
	require.Empty(t, store.items)
	require.Empty(t, store.movements)
	require.True(t, store.balances[1].Equal(decimal.NewFromInt(10)))
	require.True(t, store.balances[2].Equal(decimal.NewFromInt(10)))
}

func TestCreateSaleNegativeStockPermitted(t *testing.T) {
	store := newMemoryStore()
	store.balances[1] = decimal.NewFromInt(1)
	svc := newTestService(store, nil)

	_, err := svc.CreateSale(context.Background(), CreateSaleInput{
		Items: []SaleItemInput{{ProductID: 1, Qty: decimal.NewFromInt(4), PricePerUnit: decimal.NewFromInt(5)}},
	})
	require.NoError(t, err)
	require.True(t, store.balances[1].Equal(decimal.NewFromInt(-3)))
}

func TestCreateSaleEmptyItemsDegenerate(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, nil)

	saleID, err := svc.CreateSale(context.Background(), CreateSaleInput{PaymentMethod: "cash"})
	require.NoError(t, err)
	require.NotZero(t, saleID)

	sale := store.sales[0]
	require.True(t, sale.ChargedTotal.IsZero())
	require.Empty(t, store.items)
	require.Empty(t, store.movements)
}

func TestCreateSaleValidatesItems(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	_, err := svc.CreateSale(ctx, CreateSaleInput{
		Items: []SaleItemInput{{ProductID: 1, Qty: decimal.Zero, PricePerUnit: decimal.NewFromInt(5)}},
	})
	require.ErrorIs(t, err, ErrInvalidItemQty)

	_, err = svc.CreateSale(ctx, CreateSaleInput{
		Items: []SaleItemInput{{ProductID: 0, Qty: decimal.NewFromInt(1)}},
	})
	require.ErrorIs(t, err, ErrInvalidItemProduct)

	require.Empty(t, store.sales)
}

func TestCreateSaleAuditBestEffort(t *testing.T) {
	store := newMemoryStore()
	audit := &auditRecorder{err: errors.New("audit sink down")}
	svc := newTestService(store, audit)

	saleID, err := svc.CreateSale(context.Background(), CreateSaleInput{
		Items: []SaleItemInput{{ProductID: 1, Qty: decimal.NewFromInt(1), PricePerUnit: decimal.NewFromInt(5)}},
	})
	require.NoError(t, err)
	require.NotZero(t, saleID)
	require.Len(t, store.sales, 1)
}

func TestCreateSaleAuditRecorded(t *testing.T) {
	store := newMemoryStore()
	audit := &auditRecorder{}
	svc := newTestService(store, audit)

	saleID, err := svc.CreateSale(context.Background(), CreateSaleInput{
		CreatedBy: 2,
		Items:     []SaleItemInput{{ProductID: 1, Qty: decimal.NewFromInt(1), PricePerUnit: decimal.NewFromInt(5)}},
	})
	require.NoError(t, err)
	require.Len(t, audit.logs, 1)
	require.Equal(t, "sale", audit.logs[0].EntityType)
	require.Equal(t, "create", audit.logs[0].Action)
	require.Contains(t, audit.logs[0].Details, "sale_id=1")
	_ = saleID
}

func TestCreateSaleCountsMovements(t *testing.T) {
	metrics := observability.NewMetrics()
	store := newMemoryStore()
	store.balances[1] = decimal.NewFromInt(10)
	store.balances[2] = decimal.NewFromInt(10)
	svc := NewService(store, ledger.NewService(nil, nil), nil, metrics)

	_, err := svc.CreateSale(context.Background(), CreateSaleInput{
		Items: []SaleItemInput{
			{ProductID: 1, Qty: decimal.NewFromInt(2), PricePerUnit: decimal.NewFromInt(40)},
			{ProductID: 2, Qty: decimal.NewFromInt(1), PricePerUnit: decimal.NewFromInt(25)},
		},
	})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, rr.Body.String(), `karyana_stock_movements_total{reason="sale"} 2`)
}

func TestRolledBackSaleCountsNothing(t *testing.T) {
	metrics := observability.NewMetrics()
	store := newMemoryStore()
	store.failConsumeProduct = 1
	svc := NewService(store, ledger.NewService(nil, nil), nil, metrics)

	_, err := svc.CreateSale(context.Background(), CreateSaleInput{
		Items: []SaleItemInput{{ProductID: 1, Qty: decimal.NewFromInt(2), PricePerUnit: decimal.NewFromInt(40)}},
	})
	require.Error(t, err)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NotContains(t, rr.Body.String(), `karyana_stock_movements_total{reason="sale"}`)
}
