package domain

import "reflect"

// StateDiff represents the changes between two state snapshots.
// It is serialized to JSON for partial updates over the SSE stream, so
// clients can merge deltas instead of re-fetching the whole session.
type StateDiff struct {
	SessionID string `json:"session_id"`

	Current *StepID `json:"current,omitempty"`
	Phase   *Phase  `json:"phase,omitempty"`

	// Answers contains only changed or added fields. Removed fields appear
	// with a nil value.
	Answers map[string]any `json:"answers,omitempty"`

	// History holds items appended to the history stack, or the full rewrite
	// after a retreat (Rewritten set).
	History *HistoryDelta `json:"history,omitempty"`
}

// HistoryDelta represents changes to the history stack.
type HistoryDelta struct {
	Appended  []StepID `json:"appended,omitempty"`
	Rewritten []StepID `json:"rewritten,omitempty"`
}

// Diff calculates the difference between old and new. If old is nil the diff
// represents the entire new state (initial load). Returns nil when there is
// nothing to report.
func Diff(old, new *State) *StateDiff {
	if new == nil {
		return nil
	}

	diff := &StateDiff{SessionID: new.SessionID}
	changed := false

	if old == nil || old.Current != new.Current {
		diff.Current = &new.Current
		changed = true
	}
	if old == nil || old.Phase != new.Phase {
		diff.Phase = &new.Phase
		changed = true
	}

	answers := make(map[string]any)
	for k, v := range new.Answers {
		if old == nil || !reflect.DeepEqual(old.Answers[k], v) {
			answers[k] = v
		}
	}
	if old != nil {
		for k := range old.Answers {
			if _, ok := new.Answers[k]; !ok {
				answers[k] = nil
			}
		}
	}
	if len(answers) > 0 {
		diff.Answers = answers
		changed = true
	}

	if delta := historyDelta(old, new); delta != nil {
		diff.History = delta
		changed = true
	}

	if !changed {
		return nil
	}
	return diff
}

func historyDelta(old, new *State) *HistoryDelta {
	var oldHist []StepID
	if old != nil {
		oldHist = old.History
	}

	if len(new.History) >= len(oldHist) {
		prefix := true
		for i, id := range oldHist {
			if new.History[i] != id {
				prefix = false
				break
			}
		}
		if prefix {
			if len(new.History) == len(oldHist) {
				return nil
			}
			return &HistoryDelta{Appended: append([]StepID(nil), new.History[len(oldHist):]...)}
		}
	}

	// History shrank or diverged (retreat, reset): send the full stack.
	return &HistoryDelta{Rewritten: append([]StepID(nil), new.History...)}
}
