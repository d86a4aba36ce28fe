package domain

// StepID identifies a single step in the wizard graph.
// Flows declare their own typed constants; the empty value means "no step"
// and is how a terminal transition is expressed.
type StepID string

// StepNone is the zero StepID, returned by branch functions to signal
// that the current step is terminal.
const StepNone StepID = ""

// FlowFlags carries boolean routing facts derived during the flow
// (e.g. whether the identifier belongs to an existing account).
// Flags are part of the answer space but kept separate from user-entered
// fields so they survive answer overwrites.
type FlowFlags map[string]bool

// Clone returns an independent copy of the flags.
func (f FlowFlags) Clone() FlowFlags {
	out := make(FlowFlags, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
