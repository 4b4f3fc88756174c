package port

import "context"

// Ingest outcomes recorded in the audit log.
const (
	OutcomeWritten  = "written"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
)

// AuditEntry represents one worksheet's ingest outcome.
type AuditEntry struct {
	RunID       string
	Pipeline    string
	FilePath    string
	SheetName   string
	Schema      string
	Destination string
	Outcome     string
	Rows        int
	DurationMS  int64
	Err         error
}

// IngestAuditor records ingest outcomes.
type IngestAuditor interface {
	Record(ctx context.Context, entry AuditEntry)
	Close() error
}
