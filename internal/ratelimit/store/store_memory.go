// Package store persists sliding-window request counts, suspicion events,
// and identifier blocks.
//
// Error Contract:
// - GetBlock returns sentinel.ErrNotFound when no block exists
// - All other failures are infrastructure errors, wrapped with context
package store

import (
	"context"
	"sync"
	"time"

	"wardgate/internal/ratelimit/models"
	"wardgate/internal/sentinel"
)

// Observation is the atomic outcome of one window check: whether the event
// was admitted, the in-window count after the check, and the oldest event
// still in the window (zero when the window was empty).
type Observation struct {
	Allowed  bool
	Count    int
	OldestAt time.Time
}

// InMemoryStore keeps windows and blocks in memory for single-process
// deployments and tests. Check-then-record runs under one mutex, so two
// racing requests cannot both take the last slot in a window.
type InMemoryStore struct {
	mu         sync.Mutex
	requests   map[string][]time.Time
	suspicious map[string][]time.Time
	blocks     map[string]models.Block
}

// New constructs an empty in-memory rate limit store.
func New() *InMemoryStore {
	return &InMemoryStore{
		requests:   make(map[string][]time.Time),
		suspicious: make(map[string][]time.Time),
		blocks:     make(map[string]models.Block),
	}
}

// ObserveRequest prunes the key's window, then records the request only if
// the count is below limit. Denied requests are not recorded, so a denied
// burst cannot extend its own lockout.
func (s *InMemoryStore) ObserveRequest(_ context.Context, key string, now time.Time, window time.Duration, limit int) (*Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := pruneBefore(s.requests[key], now.Add(-window))
	if len(events) >= limit {
		s.requests[key] = events
		return &Observation{Count: len(events), OldestAt: events[0]}, nil
	}

	events = append(events, now)
	s.requests[key] = events
	return &Observation{Allowed: true, Count: len(events), OldestAt: events[0]}, nil
}

// AddSuspicious records a suspicion event and returns the in-window count.
func (s *InMemoryStore) AddSuspicious(_ context.Context, identifier string, now time.Time, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := append(pruneBefore(s.suspicious[identifier], now.Add(-window)), now)
	s.suspicious[identifier] = events
	return len(events), nil
}

func (s *InMemoryStore) SetBlock(_ context.Context, block models.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[block.Identifier] = block
	return nil
}

func (s *InMemoryStore) GetBlock(_ context.Context, identifier string) (*models.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	block, ok := s.blocks[identifier]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copyBlock := block
	return &copyBlock, nil
}

// Prune drops elapsed windows and expired blocks. Called by the cleanup
// worker; correctness never depends on it.
func (s *InMemoryStore) Prune(_ context.Context, now time.Time, maxWindow time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	cutoff := now.Add(-maxWindow)
	for key, events := range s.requests {
		kept := pruneBefore(events, cutoff)
		pruned += len(events) - len(kept)
		if len(kept) == 0 {
			delete(s.requests, key)
		} else {
			s.requests[key] = kept
		}
	}
	for key, events := range s.suspicious {
		kept := pruneBefore(events, cutoff)
		pruned += len(events) - len(kept)
		if len(kept) == 0 {
			delete(s.suspicious, key)
		} else {
			s.suspicious[key] = kept
		}
	}
	for key, block := range s.blocks {
		if !block.Active(now) {
			delete(s.blocks, key)
			pruned++
		}
	}
	return pruned, nil
}

// pruneBefore drops timestamps at or before cutoff. Events are appended in
// order, so the slice stays sorted.
func pruneBefore(events []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(events) && !events[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return events
	}
	return append([]time.Time(nil), events[idx:]...)
}
