package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florelab/stepwise/pkg/adapters/memory"
	"github.com/florelab/stepwise/pkg/domain"
	"github.com/florelab/stepwise/pkg/persist"
	"github.com/florelab/stepwise/pkg/registry"
	"github.com/florelab/stepwise/pkg/schema"
)

// testFlow builds a small flow covering branching, skipping, and terminals:
//
//	account -> (color | shade by styleChoice) -> icon -> [picker?] -> done
func testFlow() *registry.Registry {
	reg := registry.New("account")
	reg.MustAdd(registry.Step{
		ID:     "account",
		Schema: schema.Schema{"email": schema.Email()},
		Next: func(a domain.AnswerSet) domain.StepID {
			if a.String("styleChoice") == "custom" {
				return "shade"
			}
			return "color"
		},
		Branches: []domain.StepID{"color", "shade"},
	})
	reg.MustAdd(registry.Step{
		ID:        "color",
		Schema:    schema.Schema{"paletteColor": schema.String()},
		Reachable: func(a domain.AnswerSet) bool { return a.String("styleChoice") != "custom" },
		Next:      func(domain.AnswerSet) domain.StepID { return "icon" },
		Branches:  []domain.StepID{"icon"},
	})
	reg.MustAdd(registry.Step{
		ID:        "shade",
		Schema:    schema.Schema{"colorHex": schema.String()},
		Reachable: func(a domain.AnswerSet) bool { return a.String("styleChoice") == "custom" },
		Next:      func(domain.AnswerSet) domain.StepID { return "icon" },
		Branches:  []domain.StepID{"icon"},
	})
	reg.MustAdd(registry.Step{
		ID:       "icon",
		Schema:   schema.Schema{"iconChoice": schema.String()},
		Next:     func(domain.AnswerSet) domain.StepID { return "picker" },
		Branches: []domain.StepID{"picker"},
	})
	reg.MustAdd(registry.Step{
		ID:       "picker",
		Schema:   schema.Schema{"icon": schema.String()},
		SkipIf:   func(a domain.AnswerSet) bool { return a.String("iconChoice") == "withoutIcon" },
		Next:     func(domain.AnswerSet) domain.StepID { return "done" },
		Branches: []domain.StepID{"done"},
	})
	reg.MustAdd(registry.Step{ID: "done", NoValidate: true})
	return reg
}

func startedWizard(t *testing.T, opts ...Option) *Wizard {
	t.Helper()
	w, err := New(testFlow(), "s1", opts...)
	require.NoError(t, err)
	_, err = w.Start(context.Background())
	require.NoError(t, err)
	return w
}

func TestNewRejectsBrokenGraph(t *testing.T) {
	reg := registry.New("ghost")
	reg.MustAdd(registry.Step{ID: "a"})

	_, err := New(reg, "s1")
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestStartEntersFirstStep(t *testing.T) {
	w, err := New(testFlow(), "s1")
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseIdle, w.State().Phase)

	state, err := w.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseAtStep, state.Phase)
	assert.Equal(t, domain.StepID("account"), state.Current)
	assert.Equal(t, []domain.StepID{"account"}, state.History)
}

func TestStartTwiceIsNoOp(t *testing.T) {
	w := startedWizard(t)
	ctx := context.Background()

	_, err := w.Advance(ctx, domain.AnswerSet{"email": "a@b.com"})
	require.NoError(t, err)

	state, err := w.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StepID("color"), state.Current, "second start must not rewind the wizard")
}

func TestStartRestoresPersistedAnswers(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Save(ctx, "s1", domain.AnswerSet{"email": "a@b.com"}))

	w, err := New(testFlow(), "s1", WithBridge(persist.New(store)))
	require.NoError(t, err)

	state, err := w.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", state.Answers.String("email"))
}

func TestAdvanceMovesForwardAndRecordsHistory(t *testing.T) {
	w := startedWizard(t)
	ctx := context.Background()

	state, err := w.Advance(ctx, domain.AnswerSet{"email": "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.StepID("color"), state.Current)
	assert.Equal(t, []domain.StepID{"account", "color"}, state.History)
	assert.Equal(t, "a@b.com", state.Answers.String("email"))
}

func TestAdvanceValidationFailureKeepsAnswersButNotPosition(t *testing.T) {
	w := startedWizard(t)
	ctx := context.Background()

	state, err := w.Advance(ctx, domain.AnswerSet{"email": "not-an-email"})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "email", vErr.Fields[0].Field)

	assert.Equal(t, domain.StepID("account"), state.Current, "the step pointer does not move")
	assert.Equal(t, []domain.StepID{"account"}, state.History)
	assert.Equal(t, "not-an-email", state.Answers.String("email"), "typed input survives for pre-fill")
}

func TestAdvanceBranchesOnAnswers(t *testing.T) {
	w := startedWizard(t)
	ctx := context.Background()

	state, err := w.Advance(ctx, domain.AnswerSet{"email": "a@b.com", "styleChoice": "custom"})
	require.NoError(t, err)
	assert.Equal(t, domain.StepID("shade"), state.Current)
}

func TestAdvanceSkipChainBypassesStep(t *testing.T) {
	w := startedWizard(t)
	ctx := context.Background()

	_, err := w.Advance(ctx, domain.AnswerSet{"email": "a@b.com"})
	require.NoError(t, err)
	_, err = w.Advance(ctx, domain.AnswerSet{"paletteColor": "ruby"})
	require.NoError(t, err)

	state, err := w.Advance(ctx, domain.AnswerSet{"iconChoice": "withoutIcon"})
	require.NoError(t, err)
	assert.Equal(t, domain.StepID("done"), state.Current, "one transition lands two hops ahead")
	assert.NotContains(t, state.History, domain.StepID("picker"), "a skipped step never enters history")
}

func TestAdvancePastTerminalCompletes(t *testing.T) {
	w := startedWizard(t)
	ctx := context.Background()

	for _, answers := range []domain.AnswerSet{
		{"email": "a@b.com"},
		{"paletteColor": "ruby"},
		{"iconChoice": "withoutIcon"},
	} {
		_, err := w.Advance(ctx, answers)
		require.NoError(t, err)
	}

	state, err := w.Advance(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseCompleted, state.Phase)
	assert.True(t, w.Completed())

	_, err = w.Advance(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrNotAtStep, "a completed wizard only accepts Reset")
}

func TestAdvanceFromIgnoresStaleDuplicates(t *testing.T) {
	w := startedWizard(t)
	ctx := context.Background()

	first, err := w.AdvanceFrom(ctx, "account", domain.AnswerSet{"email": "a@b.com"})
	require.NoError(t, err)
	require.Equal(t, domain.StepID("color"), first.Current)

	// The duplicate of the same click arrives after the transition happened.
	second, err := w.AdvanceFrom(ctx, "account", domain.AnswerSet{"email": "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.StepID("color"), second.Current, "stale duplicate is a no-op")
	assert.Equal(t, first.History, second.History)
}

func TestRetreatPreservesAnswers(t *testing.T) {
	w := startedWizard(t)
	ctx := context.Background()

	_, err := w.Advance(ctx, domain.AnswerSet{"email": "a@b.com"})
	require.NoError(t, err)
	_, err = w.Advance(ctx, domain.AnswerSet{"paletteColor": "ruby"})
	require.NoError(t, err)

	state, err := w.Retreat(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StepID("color"), state.Current)
	assert.Equal(t, []domain.StepID{"account", "color"}, state.History)
	assert.Equal(t, "ruby", state.Answers.String("paletteColor"), "answers survive the retreat for pre-fill")

	state, err = w.Retreat(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StepID("account"), state.Current)

	_, err = w.Retreat(ctx)
	assert.ErrorIs(t, err, domain.ErrAtFirstStep)
}

func TestRetreatThenChangeBranch(t *testing.T) {
	w := startedWizard(t)
	ctx := context.Background()

	_, err := w.Advance(ctx, domain.AnswerSet{"email": "a@b.com"})
	require.NoError(t, err)
	_, err = w.Retreat(ctx)
	require.NoError(t, err)

	state, err := w.Advance(ctx, domain.AnswerSet{"styleChoice": "custom"})
	require.NoError(t, err)
	assert.Equal(t, domain.StepID("shade"), state.Current, "changed answer re-routes the branch")
	assert.Equal(t, []domain.StepID{"account", "shade"}, state.History)
}

func TestOnAdvanceMergesDeltaAndFlags(t *testing.T) {
	reg := registry.New("a")
	reg.MustAdd(registry.Step{
		ID: "a",
		OnAdvance: func(ctx context.Context, answers domain.AnswerSet) (domain.AnswerSet, domain.FlowFlags, error) {
			return domain.AnswerSet{"derived": "yes"}, domain.FlowFlags{"isExistingUser": true}, nil
		},
		Next: func(a domain.AnswerSet) domain.StepID {
			if a.Bool("isExistingUser") {
				return "b"
			}
			return "c"
		},
		Branches: []domain.StepID{"b", "c"},
	})
	reg.MustAdd(registry.Step{ID: "b"})
	reg.MustAdd(registry.Step{ID: "c"})

	w, err := New(reg, "s1")
	require.NoError(t, err)
	ctx := context.Background()
	_, err = w.Start(ctx)
	require.NoError(t, err)

	state, err := w.Advance(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StepID("b"), state.Current, "the branch function sees the flag the hook set")
	assert.Equal(t, "yes", state.Answers.String("derived"))
	assert.True(t, state.Flags["isExistingUser"])
}

func TestOnAdvanceFailureLeavesStateUntouched(t *testing.T) {
	reg := registry.New("a")
	reg.MustAdd(registry.Step{
		ID:     "a",
		Schema: schema.Schema{"email": schema.Email()},
		OnAdvance: func(context.Context, domain.AnswerSet) (domain.AnswerSet, domain.FlowFlags, error) {
			return nil, nil, errors.New("smtp relay down")
		},
		Next:     func(domain.AnswerSet) domain.StepID { return "b" },
		Branches: []domain.StepID{"b"},
	})
	reg.MustAdd(registry.Step{ID: "b"})

	w, err := New(reg, "s1")
	require.NoError(t, err)
	ctx := context.Background()
	_, err = w.Start(ctx)
	require.NoError(t, err)

	_, err = w.Advance(ctx, domain.AnswerSet{"email": "a@b.com"})
	var colErr *domain.CollaboratorError
	require.ErrorAs(t, err, &colErr)

	state := w.State()
	assert.Equal(t, domain.StepID("a"), state.Current)
	assert.False(t, state.Answers.Has("email"), "nothing from the failed transition is committed")
}

func TestOnAdvanceValidationErrorIsRecoverable(t *testing.T) {
	reg := registry.New("a")
	reg.MustAdd(registry.Step{
		ID:     "a",
		Schema: schema.Schema{"code": schema.String()},
		OnAdvance: func(ctx context.Context, answers domain.AnswerSet) (domain.AnswerSet, domain.FlowFlags, error) {
			if answers.String("code") != "123456" {
				return nil, nil, &domain.ValidationError{
					Step:   "a",
					Fields: []domain.FieldError{{Field: "code", Reason: "code does not match"}},
				}
			}
			return nil, nil, nil
		},
		Next:     func(domain.AnswerSet) domain.StepID { return "b" },
		Branches: []domain.StepID{"b"},
	})
	reg.MustAdd(registry.Step{ID: "b"})

	w, err := New(reg, "s1")
	require.NoError(t, err)
	ctx := context.Background()
	_, err = w.Start(ctx)
	require.NoError(t, err)

	state, err := w.Advance(ctx, domain.AnswerSet{"code": "999999"})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, domain.StepID("a"), state.Current)
	assert.Equal(t, "999999", state.Answers.String("code"), "the rejected code survives for pre-fill")

	state, err = w.Advance(ctx, domain.AnswerSet{"code": "123456"})
	require.NoError(t, err)
	assert.Equal(t, domain.StepID("b"), state.Current)
}

func TestOnAdvancePanicIsConfigurationError(t *testing.T) {
	reg := registry.New("a")
	reg.MustAdd(registry.Step{
		ID: "a",
		OnAdvance: func(context.Context, domain.AnswerSet) (domain.AnswerSet, domain.FlowFlags, error) {
			panic("nil collaborator")
		},
		Next:     func(domain.AnswerSet) domain.StepID { return "b" },
		Branches: []domain.StepID{"b"},
	})
	reg.MustAdd(registry.Step{ID: "b"})

	w, err := New(reg, "s1")
	require.NoError(t, err)
	ctx := context.Background()
	_, err = w.Start(ctx)
	require.NoError(t, err)

	_, err = w.Advance(ctx, nil)
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "panicked")

	// The lock and the in-flight flag were restored; the engine stays usable.
	state := w.State()
	assert.Equal(t, domain.StepID("a"), state.Current)
	_, err = w.Retreat(ctx)
	assert.ErrorIs(t, err, domain.ErrAtFirstStep)
}

func TestConcurrentAdvanceDuringSuspensionIsRejected(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})

	reg := registry.New("a")
	reg.MustAdd(registry.Step{
		ID: "a",
		OnAdvance: func(context.Context, domain.AnswerSet) (domain.AnswerSet, domain.FlowFlags, error) {
			close(entered)
			<-release
			return nil, nil, nil
		},
		Next:     func(domain.AnswerSet) domain.StepID { return "b" },
		Branches: []domain.StepID{"b"},
	})
	reg.MustAdd(registry.Step{ID: "b"})

	w, err := New(reg, "s1")
	require.NoError(t, err)
	ctx := context.Background()
	_, err = w.Start(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := w.Advance(ctx, nil)
		assert.NoError(t, err)
	}()

	<-entered
	_, err = w.Advance(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrTransitionInFlight)
	_, err = w.Retreat(ctx)
	assert.ErrorIs(t, err, domain.ErrTransitionInFlight)
	err = w.Reset(ctx)
	assert.ErrorIs(t, err, domain.ErrTransitionInFlight)

	close(release)
	wg.Wait()

	assert.Equal(t, domain.StepID("b"), w.State().Current, "exactly one transition happened")
	assert.Equal(t, []domain.StepID{"a", "b"}, w.State().History)
}

func TestJumpDisabledByDefault(t *testing.T) {
	w := startedWizard(t)
	_, err := w.Jump(context.Background(), "icon")
	assert.ErrorIs(t, err, domain.ErrJumpDisabled)
}

func TestJumpGuardedByReachability(t *testing.T) {
	w := startedWizard(t, WithJumpEnabled(true))
	ctx := context.Background()

	_, err := w.Jump(ctx, "shade")
	assert.ErrorIs(t, err, domain.ErrJumpRejected, "shade needs styleChoice=custom")

	_, err = w.Advance(ctx, domain.AnswerSet{"email": "a@b.com", "styleChoice": "custom"})
	require.NoError(t, err)

	state, err := w.Jump(ctx, "icon")
	require.NoError(t, err)
	assert.Equal(t, domain.StepID("icon"), state.Current)
	assert.Equal(t, []domain.StepID{"account", "shade", "icon"}, state.History)
}

func TestResetClearsStateAndStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	w, err := New(testFlow(), "s1", WithBridge(persist.New(store)))
	require.NoError(t, err)
	_, err = w.Start(ctx)
	require.NoError(t, err)
	_, err = w.Advance(ctx, domain.AnswerSet{"email": "a@b.com"})
	require.NoError(t, err)

	require.NoError(t, w.Reset(ctx))

	state := w.State()
	assert.Equal(t, domain.PhaseIdle, state.Phase)
	assert.Empty(t, state.Answers)
	assert.Empty(t, state.History)

	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestLifecycleHooksFire(t *testing.T) {
	var mu sync.Mutex
	var events []string
	hooks := domain.LifecycleHooks{
		OnStepEnter: func(_ context.Context, ev *domain.StepEvent) {
			mu.Lock()
			events = append(events, "enter:"+string(ev.Step))
			mu.Unlock()
		},
		OnStepLeave: func(_ context.Context, ev *domain.StepEvent) {
			mu.Lock()
			events = append(events, "leave:"+string(ev.Step))
			mu.Unlock()
		},
		OnValidationFailure: func(_ context.Context, ev *domain.ValidationEvent) {
			mu.Lock()
			events = append(events, "invalid:"+string(ev.Step))
			mu.Unlock()
		},
		OnCompleted: func(_ context.Context, ev *domain.StepEvent) {
			mu.Lock()
			events = append(events, "completed")
			mu.Unlock()
		},
	}

	w := startedWizard(t, WithHooks(hooks))
	ctx := context.Background()

	_, _ = w.Advance(ctx, domain.AnswerSet{"email": "nope"})
	_, err := w.Advance(ctx, domain.AnswerSet{"email": "a@b.com"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"enter:account", "invalid:account", "leave:account", "enter:color"}, events)
}

func TestStateSnapshotIsDetached(t *testing.T) {
	w := startedWizard(t)
	snap := w.State()
	snap.Answers["email"] = "tampered@b.com"
	snap.Current = "done"

	fresh := w.State()
	assert.Equal(t, domain.StepID("account"), fresh.Current)
	assert.False(t, fresh.Answers.Has("email"))

	// Snapshots taken before a transition stay frozen.
	before := w.State()
	_, err := w.Advance(context.Background(), domain.AnswerSet{"email": "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.StepID("account"), before.Current)
}
