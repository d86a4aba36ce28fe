package domain

import (
	"context"
	"time"
)

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventStepEnter         EventType = "step_enter"
	EventStepLeave         EventType = "step_leave"
	EventValidationFailure EventType = "validation_failure"
	EventCompleted         EventType = "completed"
)

// StepEvent represents entry to or exit from a step.
type StepEvent struct {
	Timestamp time.Time       `json:"timestamp"`
	Type      EventType       `json:"type"`
	SessionID string          `json:"session_id"`
	Step      StepID          `json:"step"`
	Cause     TransitionCause `json:"cause,omitempty"`
}

// ValidationEvent represents a rejected transition.
type ValidationEvent struct {
	Timestamp time.Time    `json:"timestamp"`
	SessionID string       `json:"session_id"`
	Step      StepID       `json:"step"`
	Fields    []FieldError `json:"fields"`
}

// LifecycleHooks defines optional callbacks for engine observability.
// Nil members are skipped. Hooks run synchronously on the transition path
// and must not call back into the engine.
type LifecycleHooks struct {
	OnStepEnter         func(context.Context, *StepEvent)
	OnStepLeave         func(context.Context, *StepEvent)
	OnValidationFailure func(context.Context, *ValidationEvent)
	OnCompleted         func(context.Context, *StepEvent)
}
