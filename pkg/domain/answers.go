package domain

// AnswerSet is the accumulating map of everything the user has entered
// across all visited steps. Values are primitives, slices, or nested maps.
// The engine owns the canonical copy; everyone else works on clones.
type AnswerSet map[string]any

// Clone returns a copy that can be mutated without affecting the original.
// Nested maps are copied one level deep, which matches how step slices are
// merged (field-level overwrite, never a deep patch).
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for k, v := range a {
		if m, ok := v.(map[string]any); ok {
			inner := make(map[string]any, len(m))
			for ik, iv := range m {
				inner[ik] = iv
			}
			out[k] = inner
			continue
		}
		out[k] = v
	}
	return out
}

// Merge overwrites fields in a with the fields of delta and returns a.
// A nil value in delta still overwrites; absent keys are untouched.
func (a AnswerSet) Merge(delta AnswerSet) AnswerSet {
	for k, v := range delta {
		a[k] = v
	}
	return a
}

// String returns the named field as a string, or "" when absent or not a string.
func (a AnswerSet) String(field string) string {
	s, _ := a[field].(string)
	return s
}

// Bool returns the named field as a bool, or false when absent or not a bool.
func (a AnswerSet) Bool(field string) bool {
	b, _ := a[field].(bool)
	return b
}

// Has reports whether the field is present, regardless of value.
func (a AnswerSet) Has(field string) bool {
	_, ok := a[field]
	return ok
}
