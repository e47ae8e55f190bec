package sales

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/karyana-pos/karyana-pos/internal/ledger"
	"github.com/karyana-pos/karyana-pos/internal/platform/db"
	"github.com/karyana-pos/karyana-pos/internal/shared"
)

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service. Ledger
// hands out a ledger view bound to the same transaction, so sale rows and
// stock movements commit as one unit.
type TxRepository interface {
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	InsertSaleItem(ctx context.Context, item SaleItem) (int64, error)
	Ledger() ledger.TxRepository
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a transaction the repository owns.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("sales repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// GetSale loads a sale header with its items.
func (r *Repository) GetSale(ctx context.Context, id int64) (Sale, error) {
	if r == nil {
		return Sale{}, errors.New("sales repository not initialised")
	}
	var sale Sale
	err := r.pool.QueryRow(ctx, `SELECT id, created_at, COALESCE(created_by, 0), total_before_discounts, discount, tax, charged_total, COALESCE(payment_method, ''), COALESCE(note, '')
FROM sales WHERE id = $1`, id).
		Scan(&sale.ID, &sale.CreatedAt, &sale.CreatedBy, &sale.TotalBeforeDiscounts, &sale.Discount, &sale.Tax, &sale.ChargedTotal, &sale.PaymentMethod, &sale.Note)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, shared.ErrNotFound
		}
		return Sale{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, sale_id, product_id, qty, COALESCE(input_unit, ''), price_per_unit, base_price_per_unit, line_total, line_cost_total, line_discount, line_charged, created_at
FROM sale_items WHERE sale_id = $1 ORDER BY id ASC`, id)
	if err != nil {
		return Sale{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.Qty, &item.InputUnit, &item.PricePerUnit, &item.BasePricePerUnit, &item.LineTotal, &item.LineCostTotal, &item.LineDiscount, &item.LineCharged, &item.CreatedAt); err != nil {
			return Sale{}, err
		}
		sale.Items = append(sale.Items, item)
	}
	return sale, rows.Err()
}

// ListSales returns sale headers, newest first.
func (r *Repository) ListSales(ctx context.Context, filter ListFilter) ([]Sale, error) {
	if r == nil {
		return nil, errors.New("sales repository not initialised")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, created_at, COALESCE(created_by, 0), total_before_discounts, discount, tax, charged_total, COALESCE(payment_method, ''), COALESCE(note, '')
FROM sales
WHERE created_at BETWEEN COALESCE($1::timestamptz, '-infinity') AND COALESCE($2::timestamptz, 'infinity')
ORDER BY created_at DESC, id DESC
LIMIT $3`, nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []Sale{}
	for rows.Next() {
		var sale Sale
		if err := rows.Scan(&sale.ID, &sale.CreatedAt, &sale.CreatedBy, &sale.TotalBeforeDiscounts, &sale.Discount, &sale.Tax, &sale.ChargedTotal, &sale.PaymentMethod, &sale.Note); err != nil {
			return nil, err
		}
		result = append(result, sale)
	}
	return result, rows.Err()
}

func (r *txRepository) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales (created_at, created_by, total_before_discounts, discount, tax, charged_total, payment_method, note)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		sale.CreatedAt, nullInt(sale.CreatedBy), sale.TotalBeforeDiscounts, sale.Discount, sale.Tax, sale.ChargedTotal, nullText(sale.PaymentMethod), nullText(sale.Note)).Scan(&id)
	return id, err
}

func (r *txRepository) InsertSaleItem(ctx context.Context, item SaleItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sale_items (sale_id, product_id, qty, input_unit, price_per_unit, base_price_per_unit, line_total, line_cost_total, line_discount, line_charged, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
		item.SaleID, item.ProductID, item.Qty, nullText(item.InputUnit), item.PricePerUnit, item.BasePricePerUnit, item.LineTotal, item.LineCostTotal, item.LineDiscount, item.LineCharged, item.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepository) Ledger() ledger.TxRepository {
	return ledger.NewTxRepository(r.tx)
}

func nullText(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
