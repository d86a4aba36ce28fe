package submission

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florelab/stepwise/pkg/adapters/memory"
	"github.com/florelab/stepwise/pkg/domain"
	"github.com/florelab/stepwise/pkg/ports"
	"github.com/florelab/stepwise/pkg/registry"
	"github.com/florelab/stepwise/pkg/schema"
)

// branchingFlow owns fieldB on a branch only reachable when choice == "b".
func branchingFlow() *registry.Registry {
	reg := registry.New("pick")
	reg.MustAdd(registry.Step{
		ID:       "pick",
		Schema:   schema.Schema{"choice": schema.String()},
		Next:     func(domain.AnswerSet) domain.StepID { return "done" },
		Branches: []domain.StepID{"done", "extra"},
	})
	reg.MustAdd(registry.Step{
		ID:        "extra",
		Schema:    schema.Schema{"fieldB": schema.String()},
		Reachable: func(a domain.AnswerSet) bool { return a.String("choice") == "b" },
	})
	reg.MustAdd(registry.Step{ID: "done", NoValidate: true})
	return reg
}

func TestPruneDropsStaleBranchAnswers(t *testing.T) {
	a := NewAdapter(branchingFlow())

	// The user visited "extra" with choice=b, then backtracked to choice=a.
	answers := domain.AnswerSet{
		"choice":         "a",
		"fieldB":         "left-over",
		"isExistingUser": true, // flag, owned by no step
	}

	pruned := a.Prune(answers)
	assert.False(t, pruned.Has("fieldB"))
	assert.Equal(t, "a", pruned.String("choice"))
	assert.True(t, pruned.Bool("isExistingUser"), "flags pass through untouched")

	assert.True(t, answers.Has("fieldB"), "the input answer set is not mutated")
}

func TestPruneKeepsReachableBranchAnswers(t *testing.T) {
	a := NewAdapter(branchingFlow())
	pruned := a.Prune(domain.AnswerSet{"choice": "b", "fieldB": "kept"})
	assert.Equal(t, "kept", pruned.String("fieldB"))
}

func TestDecodeMapsAnswerTags(t *testing.T) {
	a := NewAdapter(branchingFlow())

	type record struct {
		Choice string   `answer:"choice"`
		FieldB string   `answer:"fieldB"`
		Tags   []string `answer:"tags"`
		Count  int      `answer:"count"`
	}

	var out record
	err := a.Decode(domain.AnswerSet{
		"choice": "b",
		"fieldB": "kept",
		"tags":   []any{"vegan", "fragrance-free"}, // JSON round-trip shape
		"count":  float64(3),
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, "b", out.Choice)
	assert.Equal(t, "kept", out.FieldB)
	assert.Equal(t, []string{"vegan", "fragrance-free"}, out.Tags)
	assert.Equal(t, 3, out.Count)
}

func TestDecodePrunesFirst(t *testing.T) {
	a := NewAdapter(branchingFlow())

	type record struct {
		FieldB string `answer:"fieldB"`
	}
	var out record
	err := a.Decode(domain.AnswerSet{"choice": "a", "fieldB": "left-over"}, &out)
	require.NoError(t, err)
	assert.Empty(t, out.FieldB, "stale answers never reach the record")
}

func TestSubmitAccepted(t *testing.T) {
	a := NewAdapter(branchingFlow())
	sink := memory.NewSink()

	result, err := a.Submit(context.Background(), sink, map[string]any{"choice": "a"})
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.NotEmpty(t, result.Reference)
}

func TestSubmitLockedTarget(t *testing.T) {
	a := NewAdapter(branchingFlow())
	sink := memory.NewSink()
	sink.LockNext()

	_, err := a.Submit(context.Background(), sink, map[string]any{"choice": "a"})
	assert.ErrorIs(t, err, domain.ErrSubmissionLocked)
}

type failingSink struct{}

func (failingSink) Submit(context.Context, any) (*ports.SubmissionResult, error) {
	return nil, errors.New("backend unreachable")
}

func TestSubmitSinkFailureIsCollaboratorError(t *testing.T) {
	a := NewAdapter(branchingFlow())

	_, err := a.Submit(context.Background(), failingSink{}, map[string]any{})
	var colErr *domain.CollaboratorError
	require.ErrorAs(t, err, &colErr)
}
