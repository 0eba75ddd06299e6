package port

import "context"

// AuditEntry represents a single assessment event.
type AuditEntry struct {
	Tool         string
	Source       string
	Rows         int
	Columns      int
	OverallScore *float64
	DurationMS   int64
	Err          error
}

// AssessmentAuditor records assessment audit events.
type AssessmentAuditor interface {
	Record(ctx context.Context, entry AuditEntry)
	Close() error
}
