// Package models defines rate limiting scopes, limits, and decisions.
package models

import (
	"time"

	"wardgate/pkg/domain"
)

// Scope selects which limit applies to a request. Operations touching minor
// data run under the stricter minor-context limit.
type Scope string

const (
	ScopeGeneral      Scope = "general"
	ScopeMinorContext Scope = "minor_context"
)

func (s Scope) String() string { return string(s) }

func (s Scope) IsValid() bool {
	return s == ScopeGeneral || s == ScopeMinorContext
}

// Limit is a sliding-window request budget.
type Limit struct {
	Max    int
	Window time.Duration
}

// Decision is the closed outcome of a limit check. Denials carry a stable
// reason and, where the window math allows it, a retry hint.
type Decision struct {
	Allowed    bool
	Reason     domain.DenialCode
	Remaining  int
	RetryAfter time.Duration
}

func Allow(remaining int) Decision {
	return Decision{Allowed: true, Remaining: remaining}
}

func Deny(reason domain.DenialCode, retryAfter time.Duration) Decision {
	return Decision{Reason: reason, RetryAfter: retryAfter}
}

// Block records an identifier barred from all access after repeated
// suspicious activity.
type Block struct {
	Identifier   string
	BlockedUntil time.Time
}

// Active reports whether the block still holds at now.
func (b Block) Active(now time.Time) bool {
	return now.Before(b.BlockedUntil)
}
