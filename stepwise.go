package stepwise

import (
	"context"
	"io"
	"log/slog"

	"github.com/florelab/stepwise/internal/engine"
	"github.com/florelab/stepwise/pkg/domain"
	"github.com/florelab/stepwise/pkg/observability"
	"github.com/florelab/stepwise/pkg/persist"
	"github.com/florelab/stepwise/pkg/ports"
	"github.com/florelab/stepwise/pkg/registry"
	"github.com/florelab/stepwise/pkg/resolver"
	"github.com/florelab/stepwise/pkg/submission"
)

// Version is the library version, stamped at release time.
var Version = "dev"

// Wizard is the high-level entry point: it wraps the internal engine, the
// component resolver, and the submission adapter behind one API.
type Wizard struct {
	eng     *engine.Wizard
	res     *resolver.Resolver
	adapter *submission.Adapter
	reg     *registry.Registry

	// construction-time knobs
	store     ports.AnswerStore
	cache     ports.FastCache
	hotFields []string
	loader    ports.UnitLoader
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	metrics   *observability.Metrics
	allowJump bool
}

// Option configures a Wizard at construction.
type Option func(*Wizard)

// WithStore sets the durable answer store.
func WithStore(store ports.AnswerStore) Option {
	return func(w *Wizard) { w.store = store }
}

// WithFastCache mirrors the named hot fields into cache on every save.
func WithFastCache(cache ports.FastCache, hotFields ...string) Option {
	return func(w *Wizard) {
		w.cache = cache
		w.hotFields = hotFields
	}
}

// WithUnitLoader enables the component resolver (lazy loading + prefetch)
// over the given loader.
func WithUnitLoader(loader ports.UnitLoader) Option {
	return func(w *Wizard) { w.loader = loader }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(w *Wizard) { w.hooks = hooks }
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Wizard) { w.logger = logger }
}

// WithMetrics records transition and resolver metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(w *Wizard) { w.metrics = m }
}

// WithJumpEnabled allows the debug Jump operation.
func WithJumpEnabled(enabled bool) Option {
	return func(w *Wizard) { w.allowJump = enabled }
}

// New builds a wizard for sessionID over the given step graph.
func New(reg *registry.Registry, sessionID string, opts ...Option) (*Wizard, error) {
	w := &Wizard{reg: reg}
	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	hooks := w.hooks
	if w.metrics != nil {
		hooks = w.metrics.Hooks(hooks)
	}

	engineOpts := []engine.Option{
		engine.WithLogger(w.logger),
		engine.WithHooks(hooks),
		engine.WithJumpEnabled(w.allowJump),
	}

	if w.store != nil || w.cache != nil {
		bridgeOpts := []persist.Option{persist.WithLogger(w.logger)}
		if w.cache != nil {
			bridgeOpts = append(bridgeOpts, persist.WithFastCache(w.cache, w.hotFields...))
		}
		engineOpts = append(engineOpts, engine.WithBridge(persist.New(w.store, bridgeOpts...)))
	}

	if w.loader != nil {
		resolverOpts := []resolver.Option{resolver.WithLogger(w.logger)}
		if w.metrics != nil {
			resolverOpts = append(resolverOpts, resolver.WithMetrics(w.metrics))
		}
		w.res = resolver.New(w.loader, resolverOpts...)
		engineOpts = append(engineOpts, engine.WithResolver(w.res))
	}

	eng, err := engine.New(reg, sessionID, engineOpts...)
	if err != nil {
		return nil, err
	}
	w.eng = eng
	w.adapter = submission.NewAdapter(reg)
	return w, nil
}

// Start moves the wizard to the entry step, restoring persisted answers.
func (w *Wizard) Start(ctx context.Context) (*domain.State, error) {
	return w.eng.Start(ctx)
}

// Advance merges step answers and moves forward (see engine.Wizard.Advance).
func (w *Wizard) Advance(ctx context.Context, stepAnswers domain.AnswerSet) (*domain.State, error) {
	return w.eng.Advance(ctx, stepAnswers)
}

// AdvanceFrom is Advance guarded against stale duplicate submits.
func (w *Wizard) AdvanceFrom(ctx context.Context, from domain.StepID, stepAnswers domain.AnswerSet) (*domain.State, error) {
	return w.eng.AdvanceFrom(ctx, from, stepAnswers)
}

// Retreat moves back one step with answers preserved.
func (w *Wizard) Retreat(ctx context.Context) (*domain.State, error) {
	return w.eng.Retreat(ctx)
}

// Jump moves directly to target (debug tooling only; must be enabled).
func (w *Wizard) Jump(ctx context.Context, target domain.StepID) (*domain.State, error) {
	return w.eng.Jump(ctx, target)
}

// Reset returns the wizard to Idle and clears persisted answers.
func (w *Wizard) Reset(ctx context.Context) error {
	return w.eng.Reset(ctx)
}

// State returns a snapshot of the wizard state.
func (w *Wizard) State() *domain.State {
	return w.eng.State()
}

// Completed reports whether the wizard passed its terminal step.
func (w *Wizard) Completed() bool {
	return w.eng.Completed()
}

// ValidateAll validates the full answer set for submission.
func (w *Wizard) ValidateAll() []domain.FieldError {
	return w.eng.ValidateAll()
}

// Resolve returns the renderable unit for a step. Requires WithUnitLoader.
func (w *Wizard) Resolve(ctx context.Context, id domain.StepID) (ports.Renderable, error) {
	if w.res == nil {
		return nil, &domain.ConfigurationError{Step: id, Reason: "no unit loader configured"}
	}
	return w.res.Resolve(ctx, id)
}

// Registry exposes the step graph for introspection tools.
func (w *Wizard) Registry() *registry.Registry { return w.reg }

// Record prunes stale-branch answers and decodes the survivors onto out
// (a struct tagged with `answer:"..."`).
func (w *Wizard) Record(out any) error {
	return w.adapter.Decode(w.eng.State().Answers, out)
}

// Submit validates the full answer set, decodes it onto record, and hands it
// to the sink. Requires the wizard to be Completed. A locked target surfaces
// as domain.ErrSubmissionLocked.
func (w *Wizard) Submit(ctx context.Context, sink ports.SubmissionSink, record any) (*ports.SubmissionResult, error) {
	if !w.eng.Completed() {
		return nil, domain.ErrNotCompleted
	}
	state := w.eng.State()
	if fields := w.reg.ValidateAll(state.Answers); len(fields) > 0 {
		return nil, &domain.ValidationError{Step: state.Current, Fields: fields}
	}
	if err := w.adapter.Decode(state.Answers, record); err != nil {
		return nil, err
	}
	return w.adapter.Submit(ctx, sink, record)
}
