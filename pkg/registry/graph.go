package registry

import (
	"fmt"
	"strings"

	"github.com/florelab/stepwise/pkg/domain"
)

// Validate checks the static shape of the graph: the entry step exists,
// every declared branch points at a registered step, every non-terminal step
// declares its branches, and every step is reachable from the entry by some
// declared path. Run once at wiring time; failures are build defects.
func (r *Registry) Validate() error {
	if _, ok := r.steps[r.first]; !ok {
		return &domain.ConfigurationError{Step: r.first, Reason: "entry step is not registered"}
	}

	var problems []string

	for _, id := range r.order {
		step := r.steps[id]
		if !step.Terminal() && len(step.Branches) == 0 {
			problems = append(problems, fmt.Sprintf("step %q has a branch function but declares no branches", id))
		}
		for _, b := range step.Branches {
			if _, ok := r.steps[b]; !ok {
				problems = append(problems, fmt.Sprintf("step %q branches to unknown step %q", id, b))
			}
		}
	}

	// Crawl declared branches from the entry step.
	visited := make(map[domain.StepID]bool)
	queue := []domain.StepID{r.first}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		step, ok := r.steps[id]
		if !ok {
			continue // already reported above
		}
		for _, b := range step.Branches {
			if !visited[b] {
				queue = append(queue, b)
			}
		}
	}
	for _, id := range r.order {
		if !visited[id] {
			problems = append(problems, fmt.Sprintf("step %q is unreachable from %q", id, r.first))
		}
	}

	if len(problems) > 0 {
		return &domain.ConfigurationError{
			Reason: fmt.Sprintf("found %d problems:\n- %s", len(problems), strings.Join(problems, "\n- ")),
		}
	}
	return nil
}

// PredictNext computes the steps reachable within the next `hops` hops along
// all still-possible branches of the current step. The user has not committed
// an answer yet, so every declared branch counts; steps whose SkipIf already
// holds are looked through to their own branches instead of being included.
//
// This is pure branch prediction for the resolver's prefetch: a wrong or
// panicking predicate here costs a wasted load, never correctness, so
// evaluation errors simply drop the candidate.
func (r *Registry) PredictNext(current domain.StepID, answers domain.AnswerSet, hops int) []domain.StepID {
	seen := map[domain.StepID]bool{current: true}
	var predicted []domain.StepID

	frontier := []domain.StepID{current}
	for h := 0; h < hops && len(frontier) > 0; h++ {
		var next []domain.StepID
		for _, id := range frontier {
			step, ok := r.steps[id]
			if !ok {
				continue
			}
			for _, b := range step.Branches {
				if seen[b] {
					continue
				}
				seen[b] = true

				candidate, ok := r.steps[b]
				if !ok {
					continue
				}
				if skip, err := evalSkip(candidate, answers); err == nil && skip {
					// Skipped: its successors are the real candidates.
					next = append(next, b)
					continue
				}
				predicted = append(predicted, b)
				next = append(next, b)
			}
		}
		frontier = next
	}
	return predicted
}
