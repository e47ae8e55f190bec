package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/karyana-pos/karyana-pos/internal/ledger"
	"github.com/karyana-pos/karyana-pos/internal/platform/db"
	"github.com/karyana-pos/karyana-pos/internal/shared"
)

const productColumns = `id, COALESCE(short_code, ''), COALESCE(ur_name, ''), COALESCE(en_name, ''),
	COALESCE(company, ''), COALESCE(barcode, ''), base_price, sell_price, stock_qty, reorder_threshold,
	COALESCE(category_id, 0), COALESCE(unit, ''), custom_packing, packing_size, supply_pack_qty,
	created_at, updated_at`

// Repository is the pgx-backed product store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository is the transactional slice of the store used during product
// creation, with access to ledger writes bound to the same transaction.
type TxRepository interface {
	InsertProduct(ctx context.Context, p Product) (int64, error)
	Ledger() ledger.TxRepository
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx runs fn inside a single database transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) InsertProduct(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO products
		(short_code, ur_name, en_name, company, barcode, base_price, sell_price, stock_qty, reorder_threshold,
		 category_id, unit, custom_packing, packing_size, supply_pack_qty, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		nullText(p.ShortCode), nullText(p.URName), nullText(p.ENName), nullText(p.Company), nullText(p.Barcode),
		p.BasePrice, p.SellPrice, p.StockQty, p.ReorderThreshold,
		nullInt(p.CategoryID), nullText(p.Unit), p.CustomPacking, p.PackingSize, p.SupplyPackQty,
		p.CreatedAt, p.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return id, nil
}

func (r *txRepository) Ledger() ledger.TxRepository {
	return ledger.NewTxRepository(r.tx)
}

// GetProduct loads one product.
func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// ListProducts lists products ordered by name, optionally filtered by a
// search term across both names, the barcode, and the short code.
func (r *Repository) ListProducts(ctx context.Context, filter ListFilter) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	args := []any{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(` AND (ur_name ILIKE $%d OR en_name ILIKE $%d OR barcode ILIKE $%d OR short_code ILIKE $%d)`,
			len(args), len(args), len(args), len(args))
	}
	if filter.CategoryID > 0 {
		args = append(args, filter.CategoryID)
		query += fmt.Sprintf(` AND category_id = $%d`, len(args))
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(` ORDER BY ur_name, en_name LIMIT $%d`, len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(` OFFSET $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// UpdateProduct rewrites catalog attributes. stock_qty is absent from the
// SET list on purpose.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, u ProductUpdate) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET
		short_code = $1, ur_name = $2, en_name = $3, company = $4, barcode = $5,
		base_price = $6, sell_price = $7, reorder_threshold = $8, category_id = $9,
		unit = $10, custom_packing = $11, packing_size = $12, supply_pack_qty = $13, updated_at = $14
		WHERE id = $15`,
		nullText(u.ShortCode), nullText(u.URName), nullText(u.ENName), nullText(u.Company), nullText(u.Barcode),
		u.BasePrice, u.SellPrice, u.ReorderThreshold, nullInt(u.CategoryID),
		nullText(u.Unit), u.CustomPacking, u.PackingSize, u.SupplyPackQty, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteProduct hard-deletes a product row.
func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetBalance reads the cached balance columns for one product.
func (r *Repository) GetBalance(ctx context.Context, id int64) (Balance, error) {
	b := Balance{ProductID: id}
	err := r.pool.QueryRow(ctx, `SELECT stock_qty, reorder_threshold FROM products WHERE id = $1`, id).
		Scan(&b.StockQty, &b.ReorderThreshold)
	if errors.Is(err, pgx.ErrNoRows) {
		return Balance{}, shared.ErrNotFound
	}
	if err != nil {
		return Balance{}, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// CreateCategory inserts a category.
func (r *Repository) CreateCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO categories (name, created_at) VALUES ($1, $2) RETURNING id`,
		name, time.Now().UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}
	return id, nil
}

// GetCategory loads one category.
func (r *Repository) GetCategory(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, `SELECT id, name, created_at FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, shared.ErrNotFound
	}
	if err != nil {
		return Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// UpdateCategory renames a category.
func (r *Repository) UpdateCategory(ctx context.Context, id int64, name string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE categories SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteCategory removes a category.
func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListCategories lists categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context, limit, offset int) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM categories ORDER BY name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.ShortCode, &p.URName, &p.ENName, &p.Company, &p.Barcode,
		&p.BasePrice, &p.SellPrice, &p.StockQty, &p.ReorderThreshold,
		&p.CategoryID, &p.Unit, &p.CustomPacking, &p.PackingSize, &p.SupplyPackQty,
		&p.CreatedAt, &p.UpdatedAt)
	return p, err
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
