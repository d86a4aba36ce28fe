package domain

// Phase defines the coarse lifecycle position of a wizard session.
type Phase string

const (
	// PhaseIdle means the wizard has not been started yet.
	PhaseIdle Phase = "idle"
	// PhaseAtStep means the wizard is parked on a step waiting for input.
	PhaseAtStep Phase = "at_step"
	// PhaseCompleted means a terminal step was advanced past; only Reset is valid.
	PhaseCompleted Phase = "completed"
)

// State is the full snapshot of a wizard session: where the user is, where
// they have been, and everything they have answered so far.
// The engine owns it exclusively; persistence only mirrors it.
type State struct {
	// SessionID keys the session in stores and caches.
	SessionID string `json:"session_id"`

	// Phase is the lifecycle position (idle, at_step, completed).
	Phase Phase `json:"phase"`

	// Current is the active step. Only meaningful while Phase == PhaseAtStep.
	Current StepID `json:"current"`

	// History is the ordered stack of visited steps, used for back
	// navigation. It never contains the same id twice in a row.
	History []StepID `json:"history"`

	// Answers is the accumulated answer set across all visited steps.
	Answers AnswerSet `json:"answers"`

	// Flags records routing facts set by flow hooks (e.g. "isExistingUser").
	// Each flag is also mirrored into Answers so branch predicates see it.
	Flags FlowFlags `json:"flags"`
}

// NewState creates an idle state for a session with empty answers.
func NewState(sessionID string) *State {
	return &State{
		SessionID: sessionID,
		Phase:     PhaseIdle,
		Answers:   make(AnswerSet),
		Flags:     make(FlowFlags),
	}
}

// PushHistory appends id to the history stack, collapsing adjacent
// duplicates. A skip chain looping back onto the step just visited must not
// happen by construction, but the invariant is enforced here regardless.
func (s *State) PushHistory(id StepID) {
	if n := len(s.History); n > 0 && s.History[n-1] == id {
		return
	}
	s.History = append(s.History, id)
}

// PopHistory removes the top of the history stack and returns the new top.
// It returns StepNone when there is nothing beneath the top to return to.
func (s *State) PopHistory() StepID {
	if len(s.History) < 2 {
		return StepNone
	}
	s.History = s.History[:len(s.History)-1]
	return s.History[len(s.History)-1]
}

// Clone returns a deep-enough copy for safe mutation: history slice and both
// maps are copied so committing a transition can be all-or-nothing.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	next := *s
	next.History = append([]StepID(nil), s.History...)
	next.Answers = s.Answers.Clone()
	next.Flags = s.Flags.Clone()
	return &next
}

// SetFlag records a routing fact and mirrors it into the answer set under
// the same key.
func (s *State) SetFlag(name string, value bool) {
	s.Flags[name] = value
	s.Answers[name] = value
}
