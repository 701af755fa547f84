// Package audit records every access decision the gateway makes. Entries are
// append-only and fully redacted: actor and subject identifiers are hashed
// before they reach this package's storage, and request content only ever
// appears as classification metadata.
package audit

import (
	"time"

	"wardgate/internal/privacy"
)

// Event is one immutable audit entry, serialized as a single JSON object per
// line in the append-only sink. No field may contain raw user-entered text.
type Event struct {
	EventID        string                  `json:"event_id"`
	Timestamp      time.Time               `json:"timestamp"`
	EventType      EventType               `json:"event_type"`
	ActorHash      string                  `json:"actor_hash"`
	SubjectHash    string                  `json:"subject_hash,omitempty"`
	Action         string                  `json:"action,omitempty"`
	AccessLevel    string                  `json:"access_level,omitempty"`
	Success        bool                    `json:"success"`
	Reason         string                  `json:"reason,omitempty"`
	RequestID      string                  `json:"request_id,omitempty"`
	Classification *privacy.Classification `json:"classification,omitempty"`
}

// EventType groups entries for downstream alerting. Integrity events are the
// possible-replay class and alert separately from policy denials.
type EventType string

const (
	EventAccessGranted        EventType = "access_granted"
	EventAccessDenied         EventType = "access_denied"
	EventRelationshipCreated  EventType = "relationship_created"
	EventRelationshipExpired  EventType = "relationship_expired"
	EventRelationshipSuspend  EventType = "relationship_suspended"
	EventTokenIssued          EventType = "token_issued"
	EventTokenRedeemed        EventType = "token_redeemed"
	EventTokenRejected        EventType = "token_rejected"
	EventIntegrityViolation   EventType = "integrity_violation"
	EventRateLimitExceeded    EventType = "rate_limit_exceeded"
	EventSuspiciousActivity   EventType = "suspicious_activity"
	EventIdentifierBlocked    EventType = "identifier_blocked"
	EventSystemError          EventType = "system_error"
	EventRegistrationRejected EventType = "registration_rejected"
)
