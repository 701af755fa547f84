// Package store persists guardian-minor relationship records.
//
// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound when the requested entity does not exist
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures
package store

import (
	"context"
	"sync"

	"wardgate/internal/relationship/models"
	"wardgate/internal/sentinel"
	"wardgate/pkg/domain"
)

type pairKey struct {
	guardian domain.GuardianID
	minor    domain.MinorID
}

// InMemoryStore keeps relationship records in memory. One record per
// (guardian, minor) pair; all mutations run under a single lock so status
// transitions for a pair are linearizable.
type InMemoryStore struct {
	mu      sync.RWMutex
	byPair  map[pairKey]*models.Record
	byID    map[domain.RelationshipID]pairKey
	byOwner map[domain.GuardianID]map[pairKey]struct{}
}

// New constructs an empty in-memory relationship store.
func New() *InMemoryStore {
	return &InMemoryStore{
		byPair:  make(map[pairKey]*models.Record),
		byID:    make(map[domain.RelationshipID]pairKey),
		byOwner: make(map[domain.GuardianID]map[pairKey]struct{}),
	}
}

func (s *InMemoryStore) Save(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{guardian: record.GuardianID, minor: record.MinorID}
	// Re-registration replaces the pair's record; the replaced ID must stop
	// resolving, or status updates against it would write into the new record.
	if previous, ok := s.byPair[key]; ok && previous.ID != record.ID {
		delete(s.byID, previous.ID)
	}
	copyRecord := *record
	s.byPair[key] = &copyRecord
	s.byID[record.ID] = key
	owned, ok := s.byOwner[record.GuardianID]
	if !ok {
		owned = make(map[pairKey]struct{})
		s.byOwner[record.GuardianID] = owned
	}
	owned[key] = struct{}{}
	return nil
}

func (s *InMemoryStore) FindByPair(_ context.Context, guardianID domain.GuardianID, minorID domain.MinorID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.byPair[pairKey{guardian: guardianID, minor: minorID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copyRecord := *record
	return &copyRecord, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.RelationshipID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copyRecord := *s.byPair[key]
	return &copyRecord, nil
}

func (s *InMemoryStore) ListByGuardian(_ context.Context, guardianID domain.GuardianID) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*models.Record
	for key := range s.byOwner[guardianID] {
		copyRecord := *s.byPair[key]
		records = append(records, &copyRecord)
	}
	return records, nil
}

// UpdateStatus transitions a record's status. The new status is written only
// if the record still exists; callers re-read to observe the result.
func (s *InMemoryStore) UpdateStatus(_ context.Context, id domain.RelationshipID, status domain.RelationshipStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	s.byPair[key].Status = status
	return nil
}
