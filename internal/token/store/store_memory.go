// Package store persists ephemeral access tokens.
//
// Error Contract:
// - Find returns sentinel.ErrNotFound when no token exists
// - Consume returns sentinel.ErrAlreadyUsed when the single-use flip fails
// - All other failures are infrastructure errors, wrapped with context
package store

import (
	"context"
	"sync"
	"time"

	"wardgate/internal/sentinel"
	"wardgate/internal/token/models"
	"wardgate/pkg/domain"
)

// InMemoryStore keeps tokens in memory for single-process deployments and
// tests. The consumed flip runs under the store mutex, which makes it a true
// compare-and-swap: concurrent Consume calls on one token yield at most one
// success.
type InMemoryStore struct {
	mu     sync.RWMutex
	tokens map[domain.TokenID]*models.Token
}

// New constructs an empty in-memory token store.
func New() *InMemoryStore {
	return &InMemoryStore{tokens: make(map[domain.TokenID]*models.Token)}
}

func (s *InMemoryStore) Save(_ context.Context, token *models.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copyToken := *token
	s.tokens[token.ID] = &copyToken
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, id domain.TokenID) (*models.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copyToken := *token
	return &copyToken, nil
}

// Consume atomically flips Consumed false->true. Fails with ErrAlreadyUsed if
// the flip already happened.
func (s *InMemoryStore) Consume(_ context.Context, id domain.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if token.Consumed {
		return sentinel.ErrAlreadyUsed
	}
	token.Consumed = true
	return nil
}

// DeleteExpired drops tokens whose lifetime elapsed before now. Called by the
// cleanup worker; expiry itself is always checked on read.
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, token := range s.tokens {
		if token.IsExpired(now) {
			delete(s.tokens, id)
			deleted++
		}
	}
	return deleted, nil
}
