// Package observability wires Prometheus metrics into the engine's
// lifecycle hooks and the resolver's prefetch path.
package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/florelab/stepwise/pkg/domain"
)

// Metrics holds the wizard's Prometheus collectors.
type Metrics struct {
	Transitions        *prometheus.CounterVec
	ValidationFailures prometheus.Counter
	Completions        prometheus.Counter
	UnitLoads          *prometheus.CounterVec
	PrefetchRequests   prometheus.Counter
}

// NewMetrics creates and registers the collectors on reg.
// Pass prometheus.DefaultRegisterer outside of tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stepwise",
			Name:      "transitions_total",
			Help:      "Wizard step transitions by cause.",
		}, []string{"cause"}),
		ValidationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stepwise",
			Name:      "validation_failures_total",
			Help:      "Advance calls rejected by step validation.",
		}),
		Completions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stepwise",
			Name:      "completions_total",
			Help:      "Wizard sessions reaching the terminal step.",
		}),
		UnitLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stepwise",
			Name:      "unit_loads_total",
			Help:      "Renderable unit loads by outcome (hit, load, error).",
		}, []string{"outcome"}),
		PrefetchRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stepwise",
			Name:      "prefetch_requests_total",
			Help:      "Steps queued for speculative loading.",
		}),
	}
	reg.MustRegister(m.Transitions, m.ValidationFailures, m.Completions, m.UnitLoads, m.PrefetchRequests)
	return m
}

// Hooks returns lifecycle hooks that record transitions, chained after base
// so callers can keep their own observers.
func (m *Metrics) Hooks(base domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, ev *domain.StepEvent) {
			m.Transitions.WithLabelValues(string(ev.Cause)).Inc()
			if base.OnStepEnter != nil {
				base.OnStepEnter(ctx, ev)
			}
		},
		OnStepLeave: base.OnStepLeave,
		OnValidationFailure: func(ctx context.Context, ev *domain.ValidationEvent) {
			m.ValidationFailures.Inc()
			if base.OnValidationFailure != nil {
				base.OnValidationFailure(ctx, ev)
			}
		},
		OnCompleted: func(ctx context.Context, ev *domain.StepEvent) {
			m.Completions.Inc()
			if base.OnCompleted != nil {
				base.OnCompleted(ctx, ev)
			}
		},
	}
}
