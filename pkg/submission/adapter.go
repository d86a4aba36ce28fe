// Package submission prepares the final payload: it prunes answers that
// belong to steps no longer reachable (a user who backtracked and changed an
// earlier choice leaves stale fields behind), decodes the rest into the
// external record shape, and translates the sink's verdict into the error
// taxonomy. Actual delivery semantics (locking, duplicate prevention) live
// behind the SubmissionSink port.
package submission

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/florelab/stepwise/pkg/domain"
	"github.com/florelab/stepwise/pkg/ports"
	"github.com/florelab/stepwise/pkg/registry"
)

// Adapter is the one-shot transform from answer set to external record.
type Adapter struct {
	reg *registry.Registry
}

// NewAdapter creates a submission adapter over the step graph.
func NewAdapter(reg *registry.Registry) *Adapter {
	return &Adapter{reg: reg}
}

// Prune returns a copy of answers without the fields owned by steps whose
// reachability predicate now evaluates false. Flags and fields not owned by
// any step pass through untouched.
func (a *Adapter) Prune(answers domain.AnswerSet) domain.AnswerSet {
	pruned := answers.Clone()
	for _, field := range a.reg.StaleFields(answers) {
		delete(pruned, field)
	}
	return pruned
}

// Decode prunes answers and maps the survivors onto out, an external record
// struct tagged with `answer:"fieldName"`. Weakly typed so JSON round-trip
// artifacts (float64 ints, []any slices) decode cleanly.
func (a *Adapter) Decode(answers domain.AnswerSet, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "answer",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build record decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(a.Prune(answers))); err != nil {
		return fmt.Errorf("failed to map answers to record: %w", err)
	}
	return nil
}

// Submit hands the prepared record to the sink. A locked target becomes
// domain.ErrSubmissionLocked so callers can show a "contact support" message
// instead of a retry prompt; everything else recoverable becomes a
// CollaboratorError.
func (a *Adapter) Submit(ctx context.Context, sink ports.SubmissionSink, record any) (*ports.SubmissionResult, error) {
	result, err := sink.Submit(ctx, record)
	if err != nil {
		return nil, &domain.CollaboratorError{Op: "submission", Err: err}
	}
	if result.Locked {
		return result, fmt.Errorf("record %q: %w", result.Reference, domain.ErrSubmissionLocked)
	}
	if !result.Accepted {
		return result, &domain.CollaboratorError{Op: "submission", Err: fmt.Errorf("sink rejected record")}
	}
	return result, nil
}
