// Package resolver maps step ids to lazily-loaded renderable units and warms
// the cache for steps the user is likely to reach next. It is purely a
// latency optimization: a failed or late prefetch never affects wizard
// correctness, so prefetch errors are logged and dropped.
package resolver

import (
	"context"
	"log/slog"
	"sync"

	"github.com/florelab/stepwise/internal/logging"
	"github.com/florelab/stepwise/pkg/domain"
	"github.com/florelab/stepwise/pkg/observability"
	"github.com/florelab/stepwise/pkg/ports"
	"github.com/florelab/stepwise/pkg/registry"
)

// PredictionHops is how far ahead of the current step the resolver warms the
// cache, along all still-possible branches.
const PredictionHops = 2

// Resolver loads renderable units on demand and caches them after the first
// load. Safe for concurrent use: prefetch goroutines and the render path
// share the cache.
type Resolver struct {
	loader  ports.UnitLoader
	logger  *slog.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	cache   map[domain.StepID]ports.Renderable
	loading map[domain.StepID]chan struct{}
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for prefetch failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithMetrics records load and prefetch counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// New creates a resolver around a unit loader.
func New(loader ports.UnitLoader, opts ...Option) *Resolver {
	r := &Resolver{
		loader:  loader,
		logger:  logging.NewNop(),
		cache:   make(map[domain.StepID]ports.Renderable),
		loading: make(map[domain.StepID]chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the renderable unit for id, loading it if needed.
// Concurrent calls for the same id share a single load.
func (r *Resolver) Resolve(ctx context.Context, id domain.StepID) (ports.Renderable, error) {
	for {
		r.mu.Lock()
		if unit, ok := r.cache[id]; ok {
			r.mu.Unlock()
			r.count("hit")
			return unit, nil
		}
		if done, inFlight := r.loading[id]; inFlight {
			r.mu.Unlock()
			select {
			case <-done:
				continue // cache hit or retry the load ourselves
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		done := make(chan struct{})
		r.loading[id] = done
		r.mu.Unlock()

		unit, err := r.loader(ctx, id)

		r.mu.Lock()
		delete(r.loading, id)
		close(done)
		if err != nil {
			r.mu.Unlock()
			r.count("error")
			return nil, &domain.CollaboratorError{Op: "unit load " + string(id), Err: err}
		}
		r.cache[id] = unit
		r.mu.Unlock()
		r.count("load")
		return unit, nil
	}
}

// Prefetch warms the cache for ids in the background. Fire-and-forget:
// failures are logged, never surfaced.
func (r *Resolver) Prefetch(ids []domain.StepID) {
	for _, id := range ids {
		if r.metrics != nil {
			r.metrics.PrefetchRequests.Inc()
		}
		go func(id domain.StepID) {
			if _, err := r.Resolve(context.Background(), id); err != nil {
				r.logger.Debug("prefetch failed", "step", id, "err", err)
			}
		}(id)
	}
}

// PrefetchLikely asks the registry which steps are reachable within the next
// couple of hops from the current state and warms all of them, since the
// user has not committed to a branch yet.
func (r *Resolver) PrefetchLikely(reg *registry.Registry, current domain.StepID, answers domain.AnswerSet) {
	r.Prefetch(reg.PredictNext(current, answers, PredictionHops))
}

// Cached reports whether the unit for id is already loaded. Used by tests
// and warm-cache introspection.
func (r *Resolver) Cached(id domain.StepID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.cache[id]
	return ok
}

func (r *Resolver) count(outcome string) {
	if r.metrics != nil {
		r.metrics.UnitLoads.WithLabelValues(outcome).Inc()
	}
}
