// Package models defines the ephemeral access token record.
package models

import (
	"time"

	"wardgate/pkg/domain"
	dErrors "wardgate/pkg/domain-errors"
)

// Token is a short-lived capability proving an access decision already made.
// AccessLevel is a snapshot taken at issuance and never re-derived; the token
// stays valid for its TTL even if the relationship changes afterwards.
type Token struct {
	ID             domain.TokenID
	GuardianID     domain.GuardianID
	MinorID        domain.MinorID
	Action         domain.Action
	RelationshipID domain.RelationshipID
	AccessLevel    domain.AccessLevel
	CreatedAt      time.Time
	ExpiresAt      time.Time
	Consumed       bool
}

// NewToken creates a Token with domain invariant checks.
func NewToken(
	id domain.TokenID,
	guardianID domain.GuardianID,
	minorID domain.MinorID,
	action domain.Action,
	relationshipID domain.RelationshipID,
	level domain.AccessLevel,
	createdAt time.Time,
	ttl time.Duration,
) (*Token, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "token ID required")
	}
	if guardianID.IsNil() || minorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "guardian and minor IDs required")
	}
	if !action.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid action")
	}
	if !level.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid access level")
	}
	if ttl <= 0 || ttl > time.Hour {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "token TTL must be positive and at most one hour")
	}
	return &Token{
		ID:             id,
		GuardianID:     guardianID,
		MinorID:        minorID,
		Action:         action,
		RelationshipID: relationshipID,
		AccessLevel:    level,
		CreatedAt:      createdAt,
		ExpiresAt:      createdAt.Add(ttl),
	}, nil
}

// IsExpired reports whether the token's lifetime has elapsed.
func (t Token) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Matches checks the non-transferability invariant: a token validates only
// against the exact subject and action it was issued for.
func (t Token) Matches(guardianID domain.GuardianID, minorID domain.MinorID, action domain.Action) bool {
	return t.GuardianID == guardianID && t.MinorID == minorID && t.Action == action
}
