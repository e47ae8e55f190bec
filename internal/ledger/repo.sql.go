package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/karyana-pos/karyana-pos/internal/platform/db"
	"github.com/karyana-pos/karyana-pos/internal/shared"
)

// Repository persists the stock ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations the service composes.
type TxRepository interface {
	InsertMovement(ctx context.Context, m Movement) (int64, error)
	ApplyBalanceDelta(ctx context.Context, productID int64, delta decimal.Decimal, at time.Time) error
	GetSupplyPackQty(ctx context.Context, productID int64) (decimal.Decimal, error)
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository binds a ledger view onto an existing transaction, letting
// other modules (the sale engine, product creation) record movements inside
// their own atomic unit.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

// WithTx executes the callback inside a transaction the repository owns.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// ListMovements returns movement rows, newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if r == nil {
		return nil, errors.New("ledger repository not initialised")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, qty, reason, COALESCE(reference_id, ''), COALESCE(related_doc, ''), COALESCE(unit, ''), cost_total, created_at, COALESCE(created_by, 0)
FROM stock_movements
WHERE ($1 = 0 OR product_id = $1) AND ($2 = '' OR reason = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3`, filter.ProductID, filter.Reason, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movements := []Movement{}
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Qty, &m.Reason, &m.ReferenceID, &m.RelatedDoc, &m.Unit, &m.CostTotal, &m.CreatedAt, &m.CreatedBy); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (r *txRepository) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_movements (product_id, qty, reason, reference_id, related_doc, unit, cost_total, created_at, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		m.ProductID, m.Qty, m.Reason, nullText(m.ReferenceID), nullText(m.RelatedDoc), nullText(m.Unit), m.CostTotal, m.CreatedAt, nullInt(m.CreatedBy)).Scan(&id)
	return id, err
}

func (r *txRepository) ApplyBalanceDelta(ctx context.Context, productID int64, delta decimal.Decimal, at time.Time) error {
	// The increment is evaluated server-side so concurrent movements on the
	// same product cannot overwrite each other's delta.
	_, err := r.tx.Exec(ctx, `UPDATE products SET stock_qty = stock_qty + $1, updated_at = $2 WHERE id = $3`, delta, at, productID)
	return err
}

func (r *txRepository) GetSupplyPackQty(ctx context.Context, productID int64) (decimal.Decimal, error) {
	var packQty decimal.Decimal
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(supply_pack_qty, 1) FROM products WHERE id = $1`, productID).Scan(&packQty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Decimal{}, shared.ErrNotFound
		}
		return decimal.Decimal{}, err
	}
	return packQty, nil
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
