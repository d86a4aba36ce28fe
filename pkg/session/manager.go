// Package session coordinates access to live wizard engines: one engine per
// session, guarded by a reference-counted local mutex and, optionally, a
// distributed lock so two replicas never drive the same session at once.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/florelab/stepwise/internal/engine"
	"github.com/florelab/stepwise/internal/logging"
	"github.com/florelab/stepwise/pkg/ports"
)

// Factory builds the wizard engine for a new session.
type Factory func(sessionID string) (*engine.Wizard, error)

// entry holds a live engine, its mutex, and the reference count used to
// garbage collect idle locks. The wizard pointer is only touched under the
// entry mutex.
type entry struct {
	mu       sync.Mutex
	refs     int
	wizard   *engine.Wizard
	lastUsed time.Time
}

// Manager orchestrates session access, ensuring safe concurrent operations.
type Manager struct {
	factory Factory
	locker  ports.DistributedLocker
	lockTTL time.Duration
	idleTTL time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking around session access.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) { m.locker = locker }
}

// WithLogger configures a logger for deferred errors.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithIdleTTL sets how long a quiescent session keeps its live engine
// cached before it is evicted. Zero disables eviction. An evicted session is
// not lost: the next access rebuilds the engine and Start restores its
// persisted answers.
func WithIdleTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.idleTTL = ttl }
}

// NewManager creates a session manager that builds engines with factory.
func NewManager(factory Factory, opts ...Option) *Manager {
	m := &Manager{
		factory: factory,
		lockTTL: 30 * time.Second,
		idleTTL: time.Hour,
		logger:  logging.NewNop(),
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// With executes fn while holding the session's lock, creating the engine on
// first use. The engine passed to fn must not be retained past the call.
func (m *Manager) With(ctx context.Context, sessionID string, fn func(context.Context, *engine.Wizard) error) error {
	e := m.acquire(sessionID)
	e.mu.Lock()
	defer func() {
		e.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID, "err", err)
			}
		}()
	}

	if e.wizard == nil {
		wiz, err := m.factory(sessionID)
		if err != nil {
			return fmt.Errorf("failed to build wizard for session: %w", err)
		}
		e.wizard = wiz
	}

	return fn(ctx, e.wizard)
}

// Drop forgets the live engine for a session (e.g. after reset), forcing the
// next access to rebuild it from the factory. It takes the entry mutex, so
// the clear is ordered against any caller inside With.
func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	e, exists := m.entries[sessionID]
	if exists {
		e.refs++
	}
	m.mu.Unlock()
	if !exists {
		return
	}

	e.mu.Lock()
	e.wizard = nil
	e.mu.Unlock()
	m.release(sessionID)
}

// acquire gets or creates a lock entry and increments its reference count.
// Quiescent sessions past the idle TTL are swept on the way in.
func (m *Manager) acquire(sessionID string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictIdleLocked()

	e, exists := m.entries[sessionID]
	if !exists {
		e = &entry{}
		m.entries[sessionID] = e
	}
	e.refs++
	return e
}

// release decrements the reference count and deletes the entry when it hits
// zero with no live engine attached.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, exists := m.entries[sessionID]
	if !exists {
		return
	}
	e.refs--
	e.lastUsed = time.Now()
	if e.refs <= 0 && e.wizard == nil {
		delete(m.entries, sessionID)
	}
}

// evictIdleLocked drops entries nobody holds whose last use is older than
// the idle TTL. Caller holds m.mu. Answers survive eviction through the
// persistence bridge; position and history rebuild on the next Start.
func (m *Manager) evictIdleLocked() {
	if m.idleTTL <= 0 {
		return
	}
	cutoff := time.Now().Add(-m.idleTTL)
	for id, e := range m.entries {
		if e.refs == 0 && e.lastUsed.Before(cutoff) {
			delete(m.entries, id)
		}
	}
}
