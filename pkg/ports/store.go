package ports

import (
	"context"

	"github.com/florelab/stepwise/pkg/domain"
)

// AnswerStore defines the durable per-session document store for the
// accumulated answer set. The core imposes no schema beyond "round-trips the
// answer set losslessly".
type AnswerStore interface {
	// Save persists the answer set for a session.
	Save(ctx context.Context, sessionID string, answers domain.AnswerSet) error

	// Load retrieves the answer set for a session.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (domain.AnswerSet, error)

	// Delete removes the answer set for a session.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}

// FastCache mirrors individual frequently-accessed fields so a reload can
// reconstruct partial progress even when the durable store is slow or gone.
// All operations are best-effort hints; implementations should be cheap and
// may drop data at any time.
type FastCache interface {
	Put(ctx context.Context, sessionID, field string, value any) error
	Get(ctx context.Context, sessionID, field string) (any, bool, error)
	Delete(ctx context.Context, sessionID string) error
}
