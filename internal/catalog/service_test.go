package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/karyana-pos/karyana-pos/internal/ledger"
	"github.com/karyana-pos/karyana-pos/internal/shared"
)

type memoryCatalog struct {
	products   map[int64]Product
	categories map[int64]Category
	movements  []ledger.Movement
	nextID     int64
}

func newMemoryCatalog() *memoryCatalog {
	return &memoryCatalog{products: map[int64]Product{}, categories: map[int64]Category{}}
}

type memoryCatalogTx struct {
	store     *memoryCatalog
	products  []Product
	movements []ledger.Movement
	deltas    map[int64]decimal.Decimal
}

func (m *memoryCatalog) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryCatalogTx{store: m, deltas: map[int64]decimal.Decimal{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for _, p := range tx.products {
		m.products[p.ID] = p
	}
	m.movements = append(m.movements, tx.movements...)
	for pid, delta := range tx.deltas {
		p := m.products[pid]
		p.StockQty = p.StockQty.Add(delta)
		m.products[pid] = p
	}
	return nil
}

func (tx *memoryCatalogTx) InsertProduct(ctx context.Context, p Product) (int64, error) {
	tx.store.nextID++
	p.ID = tx.store.nextID
	tx.products = append(tx.products, p)
	return p.ID, nil
}

func (tx *memoryCatalogTx) Ledger() ledger.TxRepository {
	return &memoryCatalogLedger{tx: tx}
}

type memoryCatalogLedger struct {
	tx *memoryCatalogTx
}

func (l *memoryCatalogLedger) InsertMovement(ctx context.Context, m ledger.Movement) (int64, error) {
	m.ID = int64(len(l.tx.store.movements)+len(l.tx.movements)) + 1
	l.tx.movements = append(l.tx.movements, m)
	return m.ID, nil
}

func (l *memoryCatalogLedger) ApplyBalanceDelta(ctx context.Context, productID int64, delta decimal.Decimal, at time.Time) error {
	l.tx.deltas[productID] = l.tx.deltas[productID].Add(delta)
	return nil
}

func (l *memoryCatalogLedger) GetSupplyPackQty(ctx context.Context, productID int64) (decimal.Decimal, error) {
	return decimal.NewFromInt(1), nil
}

func (m *memoryCatalog) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memoryCatalog) ListProducts(ctx context.Context, filter ListFilter) ([]Product, error) {
	var out []Product
	for _, p := range m.products {
		if filter.Search != "" &&
			!strings.Contains(p.URName, filter.Search) &&
			!strings.Contains(p.ENName, filter.Search) &&
			!strings.Contains(p.Barcode, filter.Search) &&
			!strings.Contains(p.ShortCode, filter.Search) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryCatalog) UpdateProduct(ctx context.Context, id int64, u ProductUpdate) error {
	p, ok := m.products[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.ShortCode = u.ShortCode
	p.URName = u.URName
	p.ENName = u.ENName
	p.Company = u.Company
	p.Barcode = u.Barcode
	p.BasePrice = u.BasePrice
	p.SellPrice = u.SellPrice
	p.ReorderThreshold = u.ReorderThreshold
	p.CategoryID = u.CategoryID
	p.Unit = u.Unit
	p.CustomPacking = u.CustomPacking
	p.PackingSize = u.PackingSize
	p.SupplyPackQty = u.SupplyPackQty
	m.products[id] = p
	return nil
}

func (m *memoryCatalog) DeleteProduct(ctx context.Context, id int64) error {
	if _, ok := m.products[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memoryCatalog) GetBalance(ctx context.Context, id int64) (Balance, error) {
	p, ok := m.products[id]
	if !ok {
		return Balance{}, shared.ErrNotFound
	}
	return Balance{ProductID: id, StockQty: p.StockQty, ReorderThreshold: p.ReorderThreshold}, nil
}

func (m *memoryCatalog) CreateCategory(ctx context.Context, name string) (int64, error) {
	m.nextID++
	m.categories[m.nextID] = Category{ID: m.nextID, Name: name, CreatedAt: time.Now()}
	return m.nextID, nil
}

func (m *memoryCatalog) GetCategory(ctx context.Context, id int64) (Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return Category{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *memoryCatalog) UpdateCategory(ctx context.Context, id int64, name string) error {
	c, ok := m.categories[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.Name = name
	m.categories[id] = c
	return nil
}

func (m *memoryCatalog) DeleteCategory(ctx context.Context, id int64) error {
	if _, ok := m.categories[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *memoryCatalog) ListCategories(ctx context.Context, limit, offset int) ([]Category, error) {
	var out []Category
	for _, c := range m.categories {
		out = append(out, c)
	}
	return out, nil
}

func newCatalogService(store *memoryCatalog) *Service {
	return NewService(store, ledger.NewService(nil, nil), nil, nil)
}

func TestCreateProductBooksOpeningStock(t *testing.T) {
	store := newMemoryCatalog()
	svc := newCatalogService(store)

	id, err := svc.CreateProduct(context.Background(), ProductInput{
		ENName:       "Basmati Rice",
		SellPrice:    decimal.NewFromInt(250),
		InitialStock: decimal.NewFromInt(10),
		CreatedBy:    1,
	})
	require.NoError(t, err)

	p := store.products[id]
	require.True(t, p.StockQty.Equal(decimal.NewFromInt(10)))

	require.Len(t, store.movements, 1)
	m := store.movements[0]
	require.Equal(t, ledger.ReasonInitialStock, m.Reason)
	require.Equal(t, id, m.ProductID)
	require.True(t, m.Qty.Equal(decimal.NewFromInt(10)))
}

func TestCreateProductZeroStockNoMovement(t *testing.T) {
	store := newMemoryCatalog()
	svc := newCatalogService(store)

	id, err := svc.CreateProduct(context.Background(), ProductInput{URName: "چینی"})
	require.NoError(t, err)

	require.Empty(t, store.movements)
	require.True(t, store.products[id].StockQty.IsZero())
}

func TestCreateProductDefaults(t *testing.T) {
	store := newMemoryCatalog()
	svc := newCatalogService(store)

	id, err := svc.CreateProduct(context.Background(), ProductInput{ENName: "Sugar"})
	require.NoError(t, err)

	p := store.products[id]
	require.Equal(t, "kg", p.Unit)
	require.True(t, p.SupplyPackQty.Equal(decimal.NewFromInt(1)))
}

func TestCreateProductValidation(t *testing.T) {
	store := newMemoryCatalog()
	svc := newCatalogService(store)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, ProductInput{})
	require.ErrorIs(t, err, ErrNameRequired)

	_, err = svc.CreateProduct(ctx, ProductInput{ENName: "X", SellPrice: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, ErrNegativePrice)

	_, err = svc.CreateProduct(ctx, ProductInput{ENName: "X", SupplyPackQty: decimal.RequireFromString("0.5")})
	require.ErrorIs(t, err, ErrInvalidPackQty)

	require.Empty(t, store.products)
}

func TestCreateProductNormalizesNames(t *testing.T) {
	store := newMemoryCatalog()
	svc := newCatalogService(store)

	// decomposed A + combining ring becomes the single precomposed rune
	id, err := svc.CreateProduct(context.Background(), ProductInput{ENName: "Ångström"})
	require.NoError(t, err)
	require.Equal(t, "Ångström", store.products[id].ENName)
}

func TestUpdateProductLeavesStockAlone(t *testing.T) {
	store := newMemoryCatalog()
	svc := newCatalogService(store)
	ctx := context.Background()

	id, err := svc.CreateProduct(ctx, ProductInput{ENName: "Flour", InitialStock: decimal.NewFromInt(7)})
	require.NoError(t, err)

	err = svc.UpdateProduct(ctx, id, ProductUpdate{ENName: "Wheat Flour", SellPrice: decimal.NewFromInt(120)})
	require.NoError(t, err)

	p := store.products[id]
	require.Equal(t, "Wheat Flour", p.ENName)
	require.True(t, p.StockQty.Equal(decimal.NewFromInt(7)))
}

func TestGetBalanceIsReadOnly(t *testing.T) {
	store := newMemoryCatalog()
	svc := newCatalogService(store)
	ctx := context.Background()

	id, err := svc.CreateProduct(ctx, ProductInput{ENName: "Tea", InitialStock: decimal.NewFromInt(3)})
	require.NoError(t, err)

	first, err := svc.GetBalance(ctx, id)
	require.NoError(t, err)
	second, err := svc.GetBalance(ctx, id)
	require.NoError(t, err)

	require.True(t, first.StockQty.Equal(second.StockQty))
	require.Len(t, store.movements, 1)
}

func TestGetBalanceUnknownProduct(t *testing.T) {
	svc := newCatalogService(newMemoryCatalog())
	_, err := svc.GetBalance(context.Background(), 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCategoryLifecycle(t *testing.T) {
	store := newMemoryCatalog()
	svc := newCatalogService(store)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, "   ")
	require.ErrorIs(t, err, ErrNameBlank)

	id, err := svc.CreateCategory(ctx, "Grains")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateCategory(ctx, id, "Dry Goods"))
	c, err := svc.GetCategory(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Dry Goods", c.Name)

	require.NoError(t, svc.DeleteCategory(ctx, id))
	_, err = svc.GetCategory(ctx, id)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
