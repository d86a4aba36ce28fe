package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/florelab/stepwise/pkg/ports"
)

// Sink implements ports.SubmissionSink in memory, including the "locked"
// business rule so callers can exercise that branch.
type Sink struct {
	mu      sync.Mutex
	seq     int
	records map[string]any
	locked  map[string]bool
}

// NewSink creates an empty in-memory submission sink.
func NewSink() *Sink {
	return &Sink{
		records: make(map[string]any),
		locked:  make(map[string]bool),
	}
}

// Lock freezes a stored record; further submissions under the same reference
// report Locked.
func (s *Sink) Lock(reference string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked[reference] = true
}

// LockNext makes the next submission report Locked regardless of reference.
func (s *Sink) LockNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked[""] = true
}

// Submit stores the record and returns its reference.
func (s *Sink) Submit(ctx context.Context, record any) (*ports.SubmissionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locked[""] {
		delete(s.locked, "")
		return &ports.SubmissionResult{Locked: true}, nil
	}

	s.seq++
	ref := fmt.Sprintf("design-%04d", s.seq)
	if s.locked[ref] {
		return &ports.SubmissionResult{Locked: true, Reference: ref}, nil
	}
	s.records[ref] = record
	return &ports.SubmissionResult{Accepted: true, Reference: ref}, nil
}

// Record returns a stored record by reference.
func (s *Sink) Record(reference string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[reference]
	return rec, ok
}
