// Package memory provides in-process implementations of the collaborator
// ports: answer store, fast cache, verification codes, and submission sink.
// They back tests, the interactive CLI, and any deployment that can afford
// to lose sessions on restart.
package memory

import (
	"context"
	"sync"

	"github.com/florelab/stepwise/pkg/domain"
)

// Store implements ports.AnswerStore in memory. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string]domain.AnswerSet
}

// NewStore creates a new in-memory answer store.
func NewStore() *Store {
	return &Store{data: make(map[string]domain.AnswerSet)}
}

// Save persists the answer set in memory.
func (s *Store) Save(ctx context.Context, sessionID string, answers domain.AnswerSet) error {
	// Clone on write so the engine's copy stays isolated, as serialization would.
	clone := answers.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = clone
	return nil
}

// Load retrieves the answer set from memory.
func (s *Store) Load(ctx context.Context, sessionID string) (domain.AnswerSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	answers, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return answers.Clone(), nil
}

// Delete removes the answer set.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns stored session IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	return sessions, nil
}

// Cache implements ports.FastCache in memory.
type Cache struct {
	mu   sync.RWMutex
	data map[string]map[string]any
}

// NewCache creates a new in-memory fast cache.
func NewCache() *Cache {
	return &Cache{data: make(map[string]map[string]any)}
}

// Put stores one field for a session.
func (c *Cache) Put(ctx context.Context, sessionID, field string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[sessionID]; !ok {
		c.data[sessionID] = make(map[string]any)
	}
	c.data[sessionID][field] = value
	return nil
}

// Get reads one field for a session.
func (c *Cache) Get(ctx context.Context, sessionID, field string) (any, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fields, ok := c.data[sessionID]
	if !ok {
		return nil, false, nil
	}
	value, ok := fields[field]
	return value, ok, nil
}

// Delete drops all cached fields for a session.
func (c *Cache) Delete(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, sessionID)
	return nil
}
