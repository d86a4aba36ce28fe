package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors surfaced by the engine and stores.
var (
	// ErrSessionNotFound is returned when a session ID cannot be found in a store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTransitionInFlight is returned when a navigation call arrives while a
	// previous transition is still resolving an asynchronous dependency.
	// Callers retry; the engine never queues.
	ErrTransitionInFlight = errors.New("transition already in flight")

	// ErrNotAtStep is returned when advance/retreat/jump is called outside PhaseAtStep.
	ErrNotAtStep = errors.New("wizard is not at a step")

	// ErrAtFirstStep is returned by Retreat when there is no history beneath the top.
	ErrAtFirstStep = errors.New("no earlier step to return to")

	// ErrJumpDisabled is returned when debug jumps are not enabled for this engine.
	ErrJumpDisabled = errors.New("debug jump is disabled")

	// ErrJumpRejected is returned when a jump target's prerequisites are not met.
	ErrJumpRejected = errors.New("jump target is not enterable")

	// ErrNotCompleted is returned when submission is attempted before the
	// wizard reached its terminal step.
	ErrNotCompleted = errors.New("wizard has not completed")

	// ErrSubmissionLocked is returned when the submission target has been
	// frozen by the backend. Distinct from a generic collaborator failure so
	// callers can show a "contact support" message instead of a retry prompt.
	ErrSubmissionLocked = errors.New("submission target is locked")
)

// FieldError describes a single field-level validation failure.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
	Value  any    `json:"value,omitempty"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// ValidationError is the recoverable rejection of a transition: the step's
// data failed schema rules. It blocks only the current transition.
type ValidationError struct {
	Step   StepID
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	reasons := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		reasons[i] = f.Error()
	}
	return fmt.Sprintf("step %q: %s", e.Step, strings.Join(reasons, "; "))
}

// ConfigurationError is a fatal build-time defect in the step graph: an
// unresolvable skip chain, a branch to an unknown id, or a panicking
// predicate. The engine never retries or swallows these.
type ConfigurationError struct {
	Step   StepID
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Step == StepNone {
		return "step graph misconfigured: " + e.Reason
	}
	return fmt.Sprintf("step graph misconfigured at %q: %s", e.Step, e.Reason)
}

// CollaboratorError wraps a recoverable failure of an external dependency
// (verification sender, durable store, submission sink). Wizard state is
// guaranteed untouched when one of these is returned.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("collaborator %s failed: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }
