// Package persist is the bridge between the engine and durable storage.
// It mirrors the answer set into a per-session document store and copies hot
// fields into a fast cache for resilience against reloads. Durability is
// best-effort: a dead store must never break a live wizard, so every
// failure is logged and swallowed.
package persist

import (
	"context"
	"errors"
	"log/slog"

	"github.com/florelab/stepwise/internal/logging"
	"github.com/florelab/stepwise/pkg/domain"
	"github.com/florelab/stepwise/pkg/ports"
)

// Bridge wraps a durable AnswerStore and an optional FastCache.
// The durable store is the source of truth on reload; the cache is an
// optimistic hint consulted only when the store has nothing.
type Bridge struct {
	store  ports.AnswerStore
	cache  ports.FastCache
	hot    []string
	logger *slog.Logger
}

// Option configures the Bridge.
type Option func(*Bridge)

// WithFastCache mirrors the named hot fields into cache on every save.
func WithFastCache(cache ports.FastCache, hotFields ...string) Option {
	return func(b *Bridge) {
		b.cache = cache
		b.hot = hotFields
	}
}

// WithLogger sets the logger for swallowed persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// New creates a persistence bridge over a durable store.
func New(store ports.AnswerStore, opts ...Option) *Bridge {
	b := &Bridge{
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Save persists the full answer set and mirrors hot fields into the fast
// cache. Both writes are best-effort and independent of each other.
func (b *Bridge) Save(ctx context.Context, sessionID string, answers domain.AnswerSet) {
	if b.store != nil {
		if err := b.store.Save(ctx, sessionID, answers); err != nil {
			b.logger.Warn("durable save failed", "session_id", sessionID, "err", err)
		}
	}
	if b.cache == nil {
		return
	}
	for _, field := range b.hot {
		value, ok := answers[field]
		if !ok {
			continue
		}
		if err := b.cache.Put(ctx, sessionID, field, value); err != nil {
			b.logger.Debug("cache mirror failed", "session_id", sessionID, "field", field, "err", err)
		}
	}
}

// Load reconstructs the answer set for a session: durable store first, fast
// cache as a partial fallback, empty as the last resort. Never returns an
// error; a fresh start beats a failed one.
func (b *Bridge) Load(ctx context.Context, sessionID string) domain.AnswerSet {
	if b.store != nil {
		answers, err := b.store.Load(ctx, sessionID)
		if err == nil {
			return answers
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			b.logger.Warn("durable load failed, trying cache", "session_id", sessionID, "err", err)
		}
	}

	answers := make(domain.AnswerSet)
	if b.cache != nil {
		for _, field := range b.hot {
			value, ok, err := b.cache.Get(ctx, sessionID, field)
			if err != nil {
				b.logger.Debug("cache read failed", "session_id", sessionID, "field", field, "err", err)
				continue
			}
			if ok {
				answers[field] = value
			}
		}
	}
	return answers
}

// Delete drops the session from both stores (used by Reset).
func (b *Bridge) Delete(ctx context.Context, sessionID string) {
	if b.store != nil {
		if err := b.store.Delete(ctx, sessionID); err != nil {
			b.logger.Warn("durable delete failed", "session_id", sessionID, "err", err)
		}
	}
	if b.cache != nil {
		if err := b.cache.Delete(ctx, sessionID); err != nil {
			b.logger.Debug("cache delete failed", "session_id", sessionID, "err", err)
		}
	}
}
