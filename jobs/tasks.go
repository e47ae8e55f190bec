package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerVerify recomputes movement sums and reports balance drift.
	TaskLedgerVerify = "ledger:verify"
	// TaskAuditCleanup trims old audit log rows.
	TaskAuditCleanup = "audit:cleanup"
)

// NewLedgerVerifyTask constructs the ledger verification task.
func NewLedgerVerifyTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerVerify, nil)
}

// NewAuditCleanupTask constructs the audit retention task.
func NewAuditCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskAuditCleanup, nil)
}
