package audit

import (
	"context"
	"sync"
)

// InMemoryStore keeps audit events in memory for tests and single-process
// deployments. The log is append-only; there is no mutation path.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List returns a copy of all recorded events in append order.
func (s *InMemoryStore) List() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events...)
}

// ListByActorHash returns events whose actor hash matches.
func (s *InMemoryStore) ListByActorHash(hash string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []Event
	for _, e := range s.events {
		if e.ActorHash == hash {
			matched = append(matched, e)
		}
	}
	return matched
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
