package domain

// TransitionCause labels why the wizard moved between two steps.
type TransitionCause string

const (
	CauseStart    TransitionCause = "start"
	CauseAdvance  TransitionCause = "advance"
	CauseRetreat  TransitionCause = "retreat"
	CauseJump     TransitionCause = "jump"
	CauseSkip     TransitionCause = "skip"
	CauseComplete TransitionCause = "complete"
)

// TransitionRecord describes a single movement through the graph.
// The engine does not persist these; they exist for hooks and tests to
// reason about ordering invariants.
type TransitionRecord struct {
	From  StepID          `json:"from"`
	To    StepID          `json:"to"`
	Cause TransitionCause `json:"cause"`
}
