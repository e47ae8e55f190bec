package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const verifyConcurrency = 4

// BalanceDrift reports a product whose cached balance disagrees with the
// sum of its movements.
type BalanceDrift struct {
	ProductID int64
	Cached    decimal.Decimal
	Computed  decimal.Decimal
}

// RunLedgerVerify recomputes the movement sum per product and compares it
// against the cached stock_qty column. Drift means a write bypassed the
// ledger; the job reports it and leaves repair to an operator.
func RunLedgerVerify(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) ([]BalanceDrift, error) {
	if pool == nil {
		return nil, nil
	}

	rows, err := pool.Query(ctx, `SELECT id, stock_qty FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	type cachedBalance struct {
		id  int64
		qty decimal.Decimal
	}
	var products []cachedBalance
	for rows.Next() {
		var p cachedBalance
		if err := rows.Scan(&p.id, &p.qty); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		drifts []BalanceDrift
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(verifyConcurrency)
	for _, p := range products {
		g.Go(func() error {
			var computed decimal.Decimal
			err := pool.QueryRow(ctx,
				`SELECT COALESCE(SUM(qty), 0) FROM stock_movements WHERE product_id = $1`, p.id,
			).Scan(&computed)
			if err != nil {
				return fmt.Errorf("sum movements for product %d: %w", p.id, err)
			}
			if !computed.Equal(p.qty) {
				mu.Lock()
				drifts = append(drifts, BalanceDrift{ProductID: p.id, Cached: p.qty, Computed: computed})
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if logger != nil {
		if len(drifts) == 0 {
			logger.Info("ledger verify clean", slog.Int("products", len(products)))
		} else {
			for _, d := range drifts {
				logger.Warn("ledger balance drift",
					slog.Int64("product_id", d.ProductID),
					slog.String("cached", d.Cached.String()),
					slog.String("computed", d.Computed.String()))
			}
		}
	}
	return drifts, nil
}
