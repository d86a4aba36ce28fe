// Package registry holds the declarative step graph: immutable step
// definitions, branch resolution with bounded skip chains, reachability
// guards for direct jumps, and the branch prediction that feeds prefetching.
// Everything here is a pure function over the answer set; the registry keeps
// no per-session state.
package registry

import (
	"context"
	"fmt"

	"github.com/florelab/stepwise/pkg/domain"
	"github.com/florelab/stepwise/pkg/schema"
)

// AdvanceHook runs after a step's slice validates and before the branch
// function is evaluated. It is the suspension point for asynchronous
// dependencies (e.g. asking the verification collaborator whether a code was
// sent). It returns extra answers and flags to merge; an error aborts the
// transition with wizard state untouched.
type AdvanceHook func(ctx context.Context, answers domain.AnswerSet) (domain.AnswerSet, domain.FlowFlags, error)

// Step is the immutable definition of one wizard screen.
type Step struct {
	// ID is the unique identifier of the step.
	ID domain.StepID

	// Title is a short human-readable label (markdown allowed).
	Title string

	// Schema declares the slice of the answer set this step owns.
	Schema schema.Schema

	// Reachable reports whether the step can be entered given current
	// answers. Nil means always reachable. Used to guard jumps and to prune
	// stale answers before submission.
	Reachable func(domain.AnswerSet) bool

	// Next computes the following step from current answers. Nil (or a
	// StepNone return) marks the step terminal.
	Next func(domain.AnswerSet) domain.StepID

	// SkipIf reports whether the step should be bypassed entirely when it
	// comes up as a branch target. Nil means never skipped.
	SkipIf func(domain.AnswerSet) bool

	// OnAdvance is the optional asynchronous dependency hook (see AdvanceHook).
	OnAdvance AdvanceHook

	// Branches lists every step Next can possibly return. It drives graph
	// validation, visualization, and prefetch prediction. Required whenever
	// Next is set.
	Branches []domain.StepID

	// NoValidate marks steps whose slice is not validated on advance
	// (informational screens with no inputs).
	NoValidate bool
}

// Terminal reports whether the step ends the wizard.
func (s *Step) Terminal() bool { return s.Next == nil }

// Registry is the full step graph. Built once at process start, read-only
// afterwards.
type Registry struct {
	steps map[domain.StepID]*Step
	order []domain.StepID
	first domain.StepID
}

// New creates a registry whose wizard starts at first.
func New(first domain.StepID) *Registry {
	return &Registry{
		steps: make(map[domain.StepID]*Step),
		first: first,
	}
}

// Add registers a step definition. Duplicate IDs are a configuration error.
func (r *Registry) Add(s Step) error {
	if s.ID == domain.StepNone {
		return &domain.ConfigurationError{Reason: "step with empty id"}
	}
	if _, exists := r.steps[s.ID]; exists {
		return &domain.ConfigurationError{Step: s.ID, Reason: "duplicate step id"}
	}
	step := s
	r.steps[s.ID] = &step
	r.order = append(r.order, s.ID)
	return nil
}

// MustAdd registers a step and panics on error. Flows are wired at process
// start, where a bad definition should fail fast and loud.
func (r *Registry) MustAdd(s Step) {
	if err := r.Add(s); err != nil {
		panic(err)
	}
}

// Get returns the step definition for id.
func (r *Registry) Get(id domain.StepID) (*Step, bool) {
	s, ok := r.steps[id]
	return s, ok
}

// First returns the wizard's entry step.
func (r *Registry) First() domain.StepID { return r.first }

// Steps returns all step definitions in registration order.
func (r *Registry) Steps() []*Step {
	out := make([]*Step, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.steps[id])
	}
	return out
}

// Len returns the number of registered steps.
func (r *Registry) Len() int { return len(r.order) }

// IsTerminal reports whether id ends the wizard. Unknown ids are not terminal.
func (r *Registry) IsTerminal(id domain.StepID) bool {
	s, ok := r.steps[id]
	return ok && s.Terminal()
}

// NextStepID evaluates the current step's branch function and resolves the
// skip chain: while the candidate's SkipIf holds, the candidate's own branch
// function is re-evaluated. The chain is bounded by the number of registered
// steps, so a misconfigured cycle of mutually-skipping steps fails with a
// ConfigurationError instead of hanging.
//
// Returns StepNone with a nil error when the step is terminal.
func (r *Registry) NextStepID(current domain.StepID, answers domain.AnswerSet) (domain.StepID, error) {
	step, ok := r.steps[current]
	if !ok {
		return domain.StepNone, &domain.ConfigurationError{Step: current, Reason: "unknown step id"}
	}

	next, err := evalNext(step, answers)
	if err != nil {
		return domain.StepNone, err
	}

	for hops := 0; next != domain.StepNone; hops++ {
		if hops > len(r.steps) {
			return domain.StepNone, &domain.ConfigurationError{
				Step:   current,
				Reason: fmt.Sprintf("skip chain did not resolve within %d hops", len(r.steps)),
			}
		}

		candidate, ok := r.steps[next]
		if !ok {
			return domain.StepNone, &domain.ConfigurationError{Step: next, Reason: "branch to unknown step id"}
		}

		skip, err := evalSkip(candidate, answers)
		if err != nil {
			return domain.StepNone, err
		}
		if !skip {
			return next, nil
		}

		// Skipped step: follow its own branch function. A skipped terminal
		// step dead-ends the chain, which is a wiring defect.
		if candidate.Terminal() {
			return domain.StepNone, &domain.ConfigurationError{
				Step:   candidate.ID,
				Reason: "skip chain dead-ends on a terminal step",
			}
		}
		next, err = evalNext(candidate, answers)
		if err != nil {
			return domain.StepNone, err
		}
	}

	return domain.StepNone, nil
}

// CanEnter reports whether a direct jump to id is allowed given current
// answers: the step must exist, must not be skipped, and its reachability
// predicate must hold.
func (r *Registry) CanEnter(id domain.StepID, answers domain.AnswerSet) bool {
	step, ok := r.steps[id]
	if !ok {
		return false
	}
	if skip, err := evalSkip(step, answers); err != nil || skip {
		return false
	}
	ok, err := evalReachable(step, answers)
	return err == nil && ok
}

// ValidateStep validates only the slice of answers declared by the step's
// schema. Returns nil when the slice is valid or the step opts out.
func (r *Registry) ValidateStep(id domain.StepID, answers domain.AnswerSet) []domain.FieldError {
	step, ok := r.steps[id]
	if !ok || step.NoValidate {
		return nil
	}
	return schema.Validate(step.Schema, answers)
}

// ValidateAll validates the whole accumulated answer set against every step
// that is currently reachable. Used immediately before submission.
func (r *Registry) ValidateAll(answers domain.AnswerSet) []domain.FieldError {
	var errs []domain.FieldError
	for _, id := range r.order {
		step := r.steps[id]
		if step.NoValidate {
			continue
		}
		if ok, err := evalReachable(step, answers); err != nil || !ok {
			continue
		}
		errs = append(errs, schema.Validate(step.Schema, answers)...)
	}
	return errs
}

// StaleFields returns the fields owned by steps whose reachability predicate
// now evaluates false, answers that must not reach the submission record.
func (r *Registry) StaleFields(answers domain.AnswerSet) []string {
	var stale []string
	for _, id := range r.order {
		step := r.steps[id]
		ok, err := evalReachable(step, answers)
		if err == nil && ok {
			continue
		}
		stale = append(stale, step.Schema.Fields()...)
	}
	return stale
}

// --- predicate evaluation ---

// Branch functions and predicates are plain Go code supplied at wiring time;
// a panic in one is a build defect, reported as a ConfigurationError rather
// than taking the process down mid-session.

func evalNext(step *Step, answers domain.AnswerSet) (next domain.StepID, err error) {
	if step.Next == nil {
		return domain.StepNone, nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = &domain.ConfigurationError{Step: step.ID, Reason: fmt.Sprintf("branch function panicked: %v", rec)}
		}
	}()
	return step.Next(answers), nil
}

func evalSkip(step *Step, answers domain.AnswerSet) (skip bool, err error) {
	if step.SkipIf == nil {
		return false, nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = &domain.ConfigurationError{Step: step.ID, Reason: fmt.Sprintf("skip predicate panicked: %v", rec)}
		}
	}()
	return step.SkipIf(answers), nil
}

func evalReachable(step *Step, answers domain.AnswerSet) (ok bool, err error) {
	if step.Reachable == nil {
		return true, nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = &domain.ConfigurationError{Step: step.ID, Reason: fmt.Sprintf("reachability predicate panicked: %v", rec)}
		}
	}()
	return step.Reachable(answers), nil
}
