package shared

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type execRecorder struct {
	sql  []string
	args [][]any
	err  error
}

func (e *execRecorder) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if e.err != nil {
		return pgconn.CommandTag{}, e.err
	}
	e.sql = append(e.sql, sql)
	e.args = append(e.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestRecordInWritesThroughCallerTx(t *testing.T) {
	logger := &AuditLogger{}
	tx := &execRecorder{}

	err := logger.RecordIn(context.Background(), tx, AuditLog{
		EntityType: "user",
		Action:     "password_reset",
		Details:    "user_id=9",
	})
	require.NoError(t, err)
	require.Len(t, tx.sql, 1)
	require.Contains(t, tx.sql[0], "INSERT INTO audit_logs")
	require.Equal(t, "user", tx.args[0][0])
	require.Equal(t, "password_reset", tx.args[0][1])
}

func TestRecordInPropagatesTxError(t *testing.T) {
	logger := &AuditLogger{}
	tx := &execRecorder{err: errors.New("tx aborted")}

	err := logger.RecordIn(context.Background(), tx, AuditLog{EntityType: "user", Action: "update"})
	require.Error(t, err)
}

func TestRecordInRejectsNilTx(t *testing.T) {
	logger := &AuditLogger{}
	require.Error(t, logger.RecordIn(context.Background(), nil, AuditLog{EntityType: "user", Action: "update"}))
}

func TestRecordRequiresEntityAndAction(t *testing.T) {
	logger := &AuditLogger{}
	err := logger.RecordIn(context.Background(), &execRecorder{}, AuditLog{Details: "no entity"})
	require.Error(t, err)
}
