// Package engine implements the wizard state machine: one current-step
// pointer plus history plus the accumulated answer set, mutated only through
// the transition protocol (start, advance, retreat, jump, reset).
//
// Every transition is prepared on a cloned state and committed in one
// assignment, so a failure at any point leaves the wizard exactly where it
// was. While an advance is suspended on an asynchronous dependency, further
// navigation calls are rejected with domain.ErrTransitionInFlight; the
// engine never queues and never lets two transitions race.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/florelab/stepwise/internal/logging"
	"github.com/florelab/stepwise/pkg/domain"
	"github.com/florelab/stepwise/pkg/persist"
	"github.com/florelab/stepwise/pkg/registry"
	"github.com/florelab/stepwise/pkg/resolver"
)

// Wizard is the navigation engine for a single session.
type Wizard struct {
	reg       *registry.Registry
	bridge    *persist.Bridge
	res       *resolver.Resolver
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	allowJump bool

	mu       sync.Mutex
	inFlight bool
	state    *domain.State
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithBridge attaches the persistence bridge (durable answers + fast cache).
func WithBridge(b *persist.Bridge) Option {
	return func(w *Wizard) { w.bridge = b }
}

// WithResolver attaches the component resolver for prefetching.
func WithResolver(r *resolver.Resolver) Option {
	return func(w *Wizard) { w.res = r }
}

// WithHooks registers lifecycle hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(w *Wizard) { w.hooks = hooks }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Wizard) { w.logger = logger }
}

// WithJumpEnabled allows the debug Jump operation. Production wiring leaves
// this off so direct navigation is rejected outright.
func WithJumpEnabled(enabled bool) Option {
	return func(w *Wizard) { w.allowJump = enabled }
}

// New creates an idle wizard for sessionID. The registry is validated once
// here so graph wiring defects fail at construction, not mid-session.
func New(reg *registry.Registry, sessionID string, opts ...Option) (*Wizard, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	w := &Wizard{
		reg:    reg,
		logger: logging.NewNop(),
		state:  domain.NewState(sessionID),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// SessionID returns the session this wizard belongs to.
func (w *Wizard) SessionID() string {
	return w.state.SessionID
}

// State returns a snapshot of the current wizard state.
func (w *Wizard) State() *domain.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Clone()
}

// Completed reports whether the wizard has passed its terminal step.
func (w *Wizard) Completed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Phase == domain.PhaseCompleted
}

// Start moves the wizard from Idle to the entry step, reconstructing any
// previously persisted answers best-effort. Calling Start on an already
// started wizard is a no-op returning the current state.
func (w *Wizard) Start(ctx context.Context) (*domain.State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.Phase != domain.PhaseIdle {
		w.logger.Warn("start called on a running wizard", "session_id", w.state.SessionID)
		return w.state.Clone(), nil
	}

	working := w.state.Clone()
	if w.bridge != nil {
		working.Answers.Merge(w.bridge.Load(ctx, working.SessionID))
	}
	first := w.reg.First()
	working.Phase = domain.PhaseAtStep
	working.Current = first
	working.History = []domain.StepID{first}

	w.state = working
	w.emitEnter(ctx, first, domain.CauseStart)
	w.prefetch()
	return w.state.Clone(), nil
}

// Advance merges stepAnswers into the answer set (field-level overwrite),
// validates the current step's slice, resolves the asynchronous dependency
// if the step declares one, and moves to the next step, or to Completed
// when the branch function reports the step terminal.
//
// On validation failure the merged answers are kept (so the user's typing
// survives) but the current step and history do not move. On a collaborator
// failure the state is exactly as it was before the call.
func (w *Wizard) Advance(ctx context.Context, stepAnswers domain.AnswerSet) (*domain.State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.advanceLocked(ctx, stepAnswers)
}

// AdvanceFrom behaves like Advance but only when the caller still believes
// it is on step from. A mismatch means a stale duplicate submit (the
// transition already happened); it is answered with the current state and no
// effect, which makes double-clicks idempotent across process boundaries.
// StepNone disables the guard.
func (w *Wizard) AdvanceFrom(ctx context.Context, from domain.StepID, stepAnswers domain.AnswerSet) (*domain.State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if from != domain.StepNone && w.state.Phase == domain.PhaseAtStep && w.state.Current != from {
		w.logger.Debug("stale advance ignored", "session_id", w.state.SessionID,
			"from", from, "current", w.state.Current)
		return w.state.Clone(), nil
	}
	return w.advanceLocked(ctx, stepAnswers)
}

func (w *Wizard) advanceLocked(ctx context.Context, stepAnswers domain.AnswerSet) (*domain.State, error) {
	if w.inFlight {
		return nil, domain.ErrTransitionInFlight
	}
	if w.state.Phase != domain.PhaseAtStep {
		return nil, domain.ErrNotAtStep
	}

	current := w.state.Current
	step, ok := w.reg.Get(current)
	if !ok {
		return nil, &domain.ConfigurationError{Step: current, Reason: "current step vanished from registry"}
	}

	working := w.state.Clone()
	working.Answers.Merge(stepAnswers)

	if fields := w.reg.ValidateStep(current, working.Answers); len(fields) > 0 {
		// The merge sticks so a revisit pre-fills what was typed; the step
		// pointer does not move.
		w.state.Answers = working.Answers
		w.save(ctx)
		w.emitValidationFailure(ctx, current, fields)
		return w.state.Clone(), &domain.ValidationError{Step: current, Fields: fields}
	}

	if step.OnAdvance != nil {
		// Suspension point: release the lock for the collaborator call and
		// reject any navigation that arrives meanwhile.
		w.inFlight = true
		w.mu.Unlock()
		delta, flags, err := runAdvanceHook(ctx, current, step.OnAdvance, working.Answers.Clone())
		w.mu.Lock()
		w.inFlight = false

		if err != nil {
			// A hook may reject the input itself (e.g. a wrong verification
			// code); that is a normal validation outcome, not a collaborator
			// failure. The merge sticks just like a schema failure.
			var vErr *domain.ValidationError
			if errors.As(err, &vErr) {
				w.state.Answers = working.Answers
				w.save(ctx)
				w.emitValidationFailure(ctx, current, vErr.Fields)
				return w.state.Clone(), vErr
			}
			var cfgErr *domain.ConfigurationError
			if errors.As(err, &cfgErr) {
				return nil, cfgErr
			}
			return nil, &domain.CollaboratorError{Op: "advance " + string(current), Err: err}
		}
		working.Answers.Merge(delta)
		for name, value := range flags {
			working.SetFlag(name, value)
		}
	}

	next, err := w.reg.NextStepID(current, working.Answers)
	if err != nil {
		w.logger.Error("step graph misconfigured", "session_id", w.state.SessionID,
			"step", current, "err", err)
		return nil, err
	}

	cause := domain.CauseAdvance
	if next == domain.StepNone {
		working.Phase = domain.PhaseCompleted
		cause = domain.CauseComplete
	} else {
		working.Current = next
		working.PushHistory(next)
	}

	w.state = working
	w.emitLeave(ctx, current, cause)
	if next == domain.StepNone {
		w.emitCompleted(ctx, current)
	} else {
		w.emitEnter(ctx, next, cause)
	}
	w.save(ctx)
	w.prefetch()
	return w.state.Clone(), nil
}

// Retreat pops the history stack and moves back one step. Answers already
// collected for the step being left are kept so a later forward pass is
// pre-filled.
func (w *Wizard) Retreat(ctx context.Context) (*domain.State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.inFlight {
		return nil, domain.ErrTransitionInFlight
	}
	if w.state.Phase != domain.PhaseAtStep {
		return nil, domain.ErrNotAtStep
	}
	if len(w.state.History) < 2 {
		return nil, domain.ErrAtFirstStep
	}

	working := w.state.Clone()
	left := working.Current
	working.Current = working.PopHistory()

	w.state = working
	w.emitLeave(ctx, left, domain.CauseRetreat)
	w.emitEnter(ctx, working.Current, domain.CauseRetreat)
	w.save(ctx)
	w.prefetch()
	return w.state.Clone(), nil
}

// Jump moves directly to target, bypassing sequential validation. It exists
// for development tooling only: it must be enabled explicitly and the target
// must pass the registry's CanEnter guard.
func (w *Wizard) Jump(ctx context.Context, target domain.StepID) (*domain.State, error) {
	if !w.allowJump {
		return nil, domain.ErrJumpDisabled
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.inFlight {
		return nil, domain.ErrTransitionInFlight
	}
	if w.state.Phase != domain.PhaseAtStep {
		return nil, domain.ErrNotAtStep
	}
	if !w.reg.CanEnter(target, w.state.Answers) {
		return nil, fmt.Errorf("step %q: %w", target, domain.ErrJumpRejected)
	}

	working := w.state.Clone()
	left := working.Current
	working.Current = target
	working.PushHistory(target)

	w.state = working
	w.emitLeave(ctx, left, domain.CauseJump)
	w.emitEnter(ctx, target, domain.CauseJump)
	w.save(ctx)
	w.prefetch()
	return w.state.Clone(), nil
}

// Reset returns the wizard to Idle with cleared answers and drops the
// persisted session. Valid from any state except mid-transition.
func (w *Wizard) Reset(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.inFlight {
		return domain.ErrTransitionInFlight
	}

	sessionID := w.state.SessionID
	w.state = domain.NewState(sessionID)
	if w.bridge != nil {
		w.bridge.Delete(ctx, sessionID)
	}
	return nil
}

// ValidateAll validates the whole accumulated answer set against every
// reachable step, as required before submission.
func (w *Wizard) ValidateAll() []domain.FieldError {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reg.ValidateAll(w.state.Answers)
}

// Registry exposes the step graph (read-only by construction).
func (w *Wizard) Registry() *registry.Registry { return w.reg }

// runAdvanceHook calls the step's advance hook with the engine lock
// released. A panicking hook is a wiring defect, reported as a
// ConfigurationError the same way the registry treats panicking predicates.
func runAdvanceHook(
	ctx context.Context,
	id domain.StepID,
	hook func(context.Context, domain.AnswerSet) (domain.AnswerSet, domain.FlowFlags, error),
	answers domain.AnswerSet,
) (delta domain.AnswerSet, flags domain.FlowFlags, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &domain.ConfigurationError{Step: id, Reason: fmt.Sprintf("advance hook panicked: %v", rec)}
		}
	}()
	return hook(ctx, answers)
}

// --- internals (mu held) ---

func (w *Wizard) save(ctx context.Context) {
	if w.bridge != nil {
		w.bridge.Save(ctx, w.state.SessionID, w.state.Answers)
	}
}

func (w *Wizard) prefetch() {
	if w.res == nil || w.state.Phase != domain.PhaseAtStep {
		return
	}
	w.res.PrefetchLikely(w.reg, w.state.Current, w.state.Answers.Clone())
}

func (w *Wizard) emitEnter(ctx context.Context, id domain.StepID, cause domain.TransitionCause) {
	if w.hooks.OnStepEnter != nil {
		w.hooks.OnStepEnter(ctx, w.stepEvent(domain.EventStepEnter, id, cause))
	}
}

func (w *Wizard) emitLeave(ctx context.Context, id domain.StepID, cause domain.TransitionCause) {
	if w.hooks.OnStepLeave != nil {
		w.hooks.OnStepLeave(ctx, w.stepEvent(domain.EventStepLeave, id, cause))
	}
}

func (w *Wizard) emitCompleted(ctx context.Context, id domain.StepID) {
	if w.hooks.OnCompleted != nil {
		w.hooks.OnCompleted(ctx, w.stepEvent(domain.EventCompleted, id, domain.CauseComplete))
	}
}

func (w *Wizard) emitValidationFailure(ctx context.Context, id domain.StepID, fields []domain.FieldError) {
	if w.hooks.OnValidationFailure != nil {
		w.hooks.OnValidationFailure(ctx, &domain.ValidationEvent{
			Timestamp: time.Now(),
			SessionID: w.state.SessionID,
			Step:      id,
			Fields:    fields,
		})
	}
}

func (w *Wizard) stepEvent(typ domain.EventType, id domain.StepID, cause domain.TransitionCause) *domain.StepEvent {
	return &domain.StepEvent{
		Timestamp: time.Now(),
		Type:      typ,
		SessionID: w.state.SessionID,
		Step:      id,
		Cause:     cause,
	}
}
