package shared

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	EntityType string
	Action     string
	Details    string
	At         time.Time
}

// Execer is satisfied by both *pgxpool.Pool and pgx.Tx, so an audit entry can
// either join a caller's transaction or go through the shared pool.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditLogger writes records into audit_logs. Callers treat it as a
// best-effort sink: failures are logged or dropped, never propagated into
// the operation being described.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry using the logger's own pool handle.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	return l.record(ctx, l.pool, log)
}

// RecordIn persists the log entry inside a caller-supplied transaction, so
// the audit row commits or rolls back with the operation it describes.
func (l *AuditLogger) RecordIn(ctx context.Context, tx Execer, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if tx == nil {
		return errors.New("audit tx required")
	}
	return l.record(ctx, tx, log)
}

func (l *AuditLogger) record(ctx context.Context, db Execer, log AuditLog) error {
	if log.EntityType == "" || log.Action == "" {
		return errors.New("audit log requires entity_type/action")
	}
	at := log.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := db.Exec(ctx, `INSERT INTO audit_logs (entity_type, action, details, created_at) VALUES ($1, $2, $3, $4)`,
		log.EntityType, log.Action, log.Details, at)
	return err
}
