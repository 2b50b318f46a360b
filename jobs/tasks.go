package jobs

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity is the task type for the nightly ledger integrity check.
	TaskLedgerIntegrity = "ledger:integrity"
)
