package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunAuditCleanup deletes audit log rows older than the retention window.
func RunAuditCleanup(ctx context.Context, pool *pgxpool.Pool, retention time.Duration, logger *slog.Logger) error {
	if pool == nil || retention <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-retention)
	tag, err := pool.Exec(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("trim audit logs: %w", err)
	}
	if logger != nil {
		logger.Info("audit cleanup done",
			slog.Int64("deleted", tag.RowsAffected()),
			slog.Time("cutoff", cutoff))
	}
	return nil
}
