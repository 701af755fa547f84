// Package models defines the closed access decision type.
package models

import (
	"time"

	tokenservice "wardgate/internal/token/service"
	"wardgate/pkg/domain"
)

// Decision is the outcome of one access verification. It is a closed value:
// every path through the verifier lands on either an allow or a denial with
// a stable reason, never an escaping error.
type Decision struct {
	Allowed        bool
	Reason         domain.DenialCode
	AccessLevel    domain.AccessLevel
	RelationshipID domain.RelationshipID
	// Token is set on every grant. Destructive actions must redeem it to
	// confirm the operation; non-destructive tokens validate repeatedly
	// within their lifetime.
	Token *tokenservice.Issued
	// RetryAfter is set on rate limit denials.
	RetryAfter time.Duration
}

func Allow(level domain.AccessLevel, relationshipID domain.RelationshipID) Decision {
	return Decision{Allowed: true, AccessLevel: level, RelationshipID: relationshipID}
}

func Deny(reason domain.DenialCode) Decision {
	return Decision{Reason: reason}
}
