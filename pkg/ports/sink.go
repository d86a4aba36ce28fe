package ports

import "context"

// SubmissionResult reports the sink's verdict on a submitted record.
type SubmissionResult struct {
	// Accepted is true when the record was stored.
	Accepted bool
	// Locked is true when the target record is immutable (e.g. frozen by an
	// operator). Callers translate this into domain.ErrSubmissionLocked.
	Locked bool
	// Reference is an optional sink-assigned identifier for the stored record.
	Reference string
}

// SubmissionSink accepts the final external record. Duplicate prevention and
// locking semantics live behind this interface, not in the wizard core.
type SubmissionSink interface {
	Submit(ctx context.Context, record any) (*SubmissionResult, error)
}
