package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/karyana-pos/karyana-pos/internal/platform/db"
	"github.com/karyana-pos/karyana-pos/internal/shared"
)

// Repository is the pgx-backed settings store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get loads one value.
func (r *Repository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", shared.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

// Set upserts one key.
func (r *Repository) Set(ctx context.Context, key, value string) error {
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `INSERT INTO settings (key, value, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value, now)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

// All loads every key-value pair.
func (r *Repository) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}

// InsertMissing writes defaults for absent keys only, in one transaction.
func (r *Repository) InsertMissing(ctx context.Context, defaults map[string]string) error {
	now := time.Now().UTC()
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for key, value := range defaults {
			if _, err := tx.Exec(ctx, `INSERT INTO settings (key, value, created_at, updated_at)
				VALUES ($1, $2, $3, $3) ON CONFLICT (key) DO NOTHING`,
				key, value, now); err != nil {
				return fmt.Errorf("insert default %q: %w", key, err)
			}
		}
		return nil
	})
}

var _ RepositoryPort = (*Repository)(nil)
