package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florelab/stepwise/pkg/domain"
	"github.com/florelab/stepwise/pkg/schema"
)

// linearFlow builds a -> b -> c where b skips itself on skipB=true.
func linearFlow() *Registry {
	reg := New("a")
	reg.MustAdd(Step{
		ID:       "a",
		Schema:   schema.Schema{"fieldA": schema.String()},
		Next:     func(domain.AnswerSet) domain.StepID { return "b" },
		Branches: []domain.StepID{"b"},
	})
	reg.MustAdd(Step{
		ID:       "b",
		Schema:   schema.Schema{"fieldB": schema.String()},
		SkipIf:   func(a domain.AnswerSet) bool { return a.Bool("skipB") },
		Next:     func(domain.AnswerSet) domain.StepID { return "c" },
		Branches: []domain.StepID{"c"},
	})
	reg.MustAdd(Step{ID: "c", NoValidate: true})
	return reg
}

func TestAddRejectsDuplicatesAndEmptyIDs(t *testing.T) {
	reg := New("a")
	require.NoError(t, reg.Add(Step{ID: "a"}))

	var cfgErr *domain.ConfigurationError
	err := reg.Add(Step{ID: "a"})
	require.ErrorAs(t, err, &cfgErr)

	err = reg.Add(Step{ID: domain.StepNone})
	require.ErrorAs(t, err, &cfgErr)
}

func TestNextStepIDFollowsBranch(t *testing.T) {
	reg := linearFlow()

	next, err := reg.NextStepID("a", domain.AnswerSet{})
	require.NoError(t, err)
	assert.Equal(t, domain.StepID("b"), next)
}

func TestNextStepIDResolvesSkipChain(t *testing.T) {
	reg := linearFlow()

	next, err := reg.NextStepID("a", domain.AnswerSet{"skipB": true})
	require.NoError(t, err)
	assert.Equal(t, domain.StepID("c"), next, "skipped step is passed through in one resolution")
}

func TestNextStepIDTerminal(t *testing.T) {
	reg := linearFlow()

	next, err := reg.NextStepID("c", domain.AnswerSet{})
	require.NoError(t, err)
	assert.Equal(t, domain.StepNone, next)
}

func TestNextStepIDSkipCycleIsConfigurationError(t *testing.T) {
	reg := New("a")
	always := func(domain.AnswerSet) bool { return true }
	reg.MustAdd(Step{ID: "a", Next: func(domain.AnswerSet) domain.StepID { return "b" }, Branches: []domain.StepID{"b"}})
	reg.MustAdd(Step{ID: "b", SkipIf: always, Next: func(domain.AnswerSet) domain.StepID { return "c" }, Branches: []domain.StepID{"c"}})
	reg.MustAdd(Step{ID: "c", SkipIf: always, Next: func(domain.AnswerSet) domain.StepID { return "b" }, Branches: []domain.StepID{"b"}})

	var cfgErr *domain.ConfigurationError
	_, err := reg.NextStepID("a", domain.AnswerSet{})
	require.ErrorAs(t, err, &cfgErr, "mutually skipping steps must fail, not loop")
}

func TestNextStepIDSkippedTerminalDeadEnd(t *testing.T) {
	reg := New("a")
	reg.MustAdd(Step{ID: "a", Next: func(domain.AnswerSet) domain.StepID { return "end" }, Branches: []domain.StepID{"end"}})
	reg.MustAdd(Step{ID: "end", SkipIf: func(domain.AnswerSet) bool { return true }})

	var cfgErr *domain.ConfigurationError
	_, err := reg.NextStepID("a", domain.AnswerSet{})
	require.ErrorAs(t, err, &cfgErr)
}

func TestNextStepIDUnknownBranchTarget(t *testing.T) {
	reg := New("a")
	reg.MustAdd(Step{ID: "a", Next: func(domain.AnswerSet) domain.StepID { return "ghost" }, Branches: []domain.StepID{"ghost"}})

	var cfgErr *domain.ConfigurationError
	_, err := reg.NextStepID("a", domain.AnswerSet{})
	require.ErrorAs(t, err, &cfgErr)
}

func TestPanickingPredicateIsConfigurationError(t *testing.T) {
	reg := New("a")
	reg.MustAdd(Step{
		ID:       "a",
		Next:     func(domain.AnswerSet) domain.StepID { panic("boom") },
		Branches: []domain.StepID{"a"},
	})

	var cfgErr *domain.ConfigurationError
	_, err := reg.NextStepID("a", domain.AnswerSet{})
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "panicked")
}

func TestCanEnter(t *testing.T) {
	reg := New("a")
	reg.MustAdd(Step{ID: "a", Next: func(domain.AnswerSet) domain.StepID { return "b" }, Branches: []domain.StepID{"b"}})
	reg.MustAdd(Step{
		ID:        "b",
		Reachable: func(a domain.AnswerSet) bool { return a.Bool("allowed") },
		SkipIf:    func(a domain.AnswerSet) bool { return a.Bool("skip") },
	})

	assert.False(t, reg.CanEnter("b", domain.AnswerSet{}))
	assert.True(t, reg.CanEnter("b", domain.AnswerSet{"allowed": true}))
	assert.False(t, reg.CanEnter("b", domain.AnswerSet{"allowed": true, "skip": true}), "a currently-skipped step is not enterable")
	assert.False(t, reg.CanEnter("ghost", domain.AnswerSet{}))
}

func TestValidateStep(t *testing.T) {
	reg := linearFlow()

	errs := reg.ValidateStep("a", domain.AnswerSet{})
	require.Len(t, errs, 1)
	assert.Equal(t, "fieldA", errs[0].Field)

	assert.Nil(t, reg.ValidateStep("a", domain.AnswerSet{"fieldA": "x"}))
	assert.Nil(t, reg.ValidateStep("c", domain.AnswerSet{}), "NoValidate steps opt out")
	assert.Nil(t, reg.ValidateStep("ghost", domain.AnswerSet{}))
}

func TestValidateAllSkipsUnreachableSteps(t *testing.T) {
	reg := New("a")
	reg.MustAdd(Step{
		ID:       "a",
		Schema:   schema.Schema{"choice": schema.String()},
		Next:     func(domain.AnswerSet) domain.StepID { return "b" },
		Branches: []domain.StepID{"b", "c"},
	})
	reg.MustAdd(Step{
		ID:        "b",
		Schema:    schema.Schema{"fieldB": schema.String()},
		Reachable: func(a domain.AnswerSet) bool { return a.String("choice") == "b" },
	})
	reg.MustAdd(Step{
		ID:        "c",
		Schema:    schema.Schema{"fieldC": schema.String()},
		Reachable: func(a domain.AnswerSet) bool { return a.String("choice") == "c" },
	})

	errs := reg.ValidateAll(domain.AnswerSet{"choice": "b", "fieldB": "x"})
	assert.Nil(t, errs, "fieldC belongs to an unreachable step and is not demanded")

	errs = reg.ValidateAll(domain.AnswerSet{"choice": "b"})
	require.Len(t, errs, 1)
	assert.Equal(t, "fieldB", errs[0].Field)
}

func TestStaleFields(t *testing.T) {
	reg := New("a")
	reg.MustAdd(Step{
		ID:       "a",
		Schema:   schema.Schema{"choice": schema.String()},
		Next:     func(domain.AnswerSet) domain.StepID { return "b" },
		Branches: []domain.StepID{"b", "c"},
	})
	reg.MustAdd(Step{
		ID:        "b",
		Schema:    schema.Schema{"fieldB": schema.String()},
		Reachable: func(a domain.AnswerSet) bool { return a.String("choice") == "b" },
	})
	reg.MustAdd(Step{
		ID:        "c",
		Schema:    schema.Schema{"fieldC": schema.String()},
		Reachable: func(a domain.AnswerSet) bool { return a.String("choice") == "c" },
	})

	stale := reg.StaleFields(domain.AnswerSet{"choice": "b", "fieldB": "x", "fieldC": "left-over"})
	assert.Equal(t, []string{"fieldC"}, stale)
}

func TestStepsPreservesRegistrationOrder(t *testing.T) {
	reg := linearFlow()
	ids := make([]domain.StepID, 0, reg.Len())
	for _, s := range reg.Steps() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []domain.StepID{"a", "b", "c"}, ids)
}
