// Package models defines the guardian-minor relationship aggregate.
package models

import (
	"time"

	"wardgate/pkg/domain"
	dErrors "wardgate/pkg/domain-errors"
)

// Record captures one guardian's authority over one minor.
//
// # Expiry Invariant
//
// A record whose ExpiresAt is in the past is logically EXPIRED regardless of
// the stored status. Consumers must go through IsExpired/EffectiveStatus on
// every read; the registry lazily persists the transition when it observes it.
type Record struct {
	ID                 domain.RelationshipID
	GuardianID         domain.GuardianID
	MinorID            domain.MinorID
	AccessLevel        domain.AccessLevel
	VerificationMethod domain.VerificationMethod
	LegalDocumentRef   string
	Status             domain.RelationshipStatus
	CreatedAt          time.Time
	VerifiedAt         *time.Time
	ExpiresAt          *time.Time
}

// NewRecord creates a Record with domain invariant checks. Status starts
// ACTIVE when the verification channel is already trusted, PENDING otherwise.
func NewRecord(
	id domain.RelationshipID,
	guardianID domain.GuardianID,
	minorID domain.MinorID,
	level domain.AccessLevel,
	method domain.VerificationMethod,
	legalDocumentRef string,
	createdAt time.Time,
	expiresAt *time.Time,
) (*Record, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "relationship ID required")
	}
	if guardianID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "guardian ID required")
	}
	if minorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "minor ID required")
	}
	if !level.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid access level")
	}
	if !method.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid verification method")
	}
	if createdAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "creation time required")
	}
	if expiresAt != nil && !expiresAt.After(createdAt) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "expiry must be after creation time")
	}

	record := &Record{
		ID:                 id,
		GuardianID:         guardianID,
		MinorID:            minorID,
		AccessLevel:        level,
		VerificationMethod: method,
		LegalDocumentRef:   legalDocumentRef,
		Status:             domain.StatusPending,
		CreatedAt:          createdAt,
		ExpiresAt:          expiresAt,
	}
	if method.IsTrusted() {
		record.Status = domain.StatusActive
		verifiedAt := createdAt
		record.VerifiedAt = &verifiedAt
	}
	return record, nil
}

// IsExpired reports whether the record is logically expired at the given time.
func (r Record) IsExpired(now time.Time) bool {
	if r.Status == domain.StatusExpired {
		return true
	}
	return r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}

// EffectiveStatus resolves the expiry invariant: a past ExpiresAt wins over
// whatever status is stored.
func (r Record) EffectiveStatus(now time.Time) domain.RelationshipStatus {
	if r.IsExpired(now) {
		return domain.StatusExpired
	}
	return r.Status
}

// IsUsable reports whether the relationship currently grants any authority.
func (r Record) IsUsable(now time.Time) bool {
	return r.EffectiveStatus(now) == domain.StatusActive
}
