package ports

import (
	"context"

	"github.com/florelab/stepwise/pkg/domain"
)

// Controls are the navigation callbacks handed to a renderable unit.
// Units drive the wizard only through these; they never touch persistence or
// submission directly.
type Controls struct {
	Advance func(ctx context.Context, stepAnswers domain.AnswerSet) error
	Retreat func(ctx context.Context) error
}

// Renderable is the contract for one step's screen. It receives the slice of
// answers relevant to the step (for pre-filling) and emits validated field
// updates through Controls.
type Renderable interface {
	Render(ctx context.Context, answers domain.AnswerSet, controls Controls) error
}

// UnitLoader produces the renderable unit for a step on demand. Loading may
// be expensive (templates, assets); the resolver caches and prefetches.
type UnitLoader func(ctx context.Context, id domain.StepID) (Renderable, error)
