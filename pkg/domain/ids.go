// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	dErrors "wardgate/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a GuardianID where a MinorID
// is expected. Guardian and minor identifiers are opaque strings issued by the
// surrounding platform; the core never interprets their format beyond
// non-emptiness.
type (
	GuardianID     string
	MinorID        string
	RelationshipID string
	TokenID        string
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseGuardianID(s string) (GuardianID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "guardian ID cannot be empty")
	}
	return GuardianID(s), nil
}

func ParseMinorID(s string) (MinorID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "minor ID cannot be empty")
	}
	return MinorID(s), nil
}

func ParseRelationshipID(s string) (RelationshipID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "relationship ID cannot be empty")
	}
	return RelationshipID(s), nil
}

func ParseTokenID(s string) (TokenID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "token ID cannot be empty")
	}
	return TokenID(s), nil
}

// String methods - for logging and debugging.

func (id GuardianID) String() string     { return string(id) }
func (id MinorID) String() string        { return string(id) }
func (id RelationshipID) String() string { return string(id) }
func (id TokenID) String() string        { return string(id) }

// IsNil checks - used for service-layer validation.

func (id GuardianID) IsNil() bool     { return id == "" }
func (id MinorID) IsNil() bool        { return id == "" }
func (id RelationshipID) IsNil() bool { return id == "" }
func (id TokenID) IsNil() bool        { return id == "" }
