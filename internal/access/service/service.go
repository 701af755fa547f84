// Package service implements the access verifier: the single decision point
// for whether a guardian may perform an action on a minor's data.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"wardgate/internal/access/models"
	"wardgate/internal/audit"
	ratelimitmodels "wardgate/internal/ratelimit/models"
	relmodels "wardgate/internal/relationship/models"
	tokenservice "wardgate/internal/token/service"
	"wardgate/pkg/domain"
	dErrors "wardgate/pkg/domain-errors"
	"wardgate/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Relationships,Tokens,Limiter

// Relationships is the registry surface the verifier consumes.
type Relationships interface {
	Find(ctx context.Context, guardianID domain.GuardianID, minorID domain.MinorID) (*relmodels.Record, error)
}

// Tokens issues and redeems the confirmation tokens attached to grants.
type Tokens interface {
	Issue(ctx context.Context, p tokenservice.IssueParams) (*tokenservice.Issued, error)
	Redeem(ctx context.Context, p tokenservice.RedeemParams) tokenservice.Result
}

// Limiter throttles callers and tracks abusive identifiers.
type Limiter interface {
	Check(ctx context.Context, identifier string, scope ratelimitmodels.Scope) ratelimitmodels.Decision
	RecordSuspicious(ctx context.Context, identifier, reason string) error
}

const defaultTokenTTL = 5 * time.Minute

var tracer = otel.Tracer("wardgate/access")

// Verifier decides access requests. Every verification runs the same gauntlet
// in order: identifier throttling, relationship lookup, status checks, then
// the permission matrix. Any infrastructure failure along the way denies with
// SYSTEM_ERROR; there is no path that grants on partial knowledge.
type Verifier struct {
	relationships Relationships
	tokens        Tokens
	limiter       Limiter
	recorder      *audit.Recorder
	tokenTTL      time.Duration
	logger        *slog.Logger
}

type Option func(*Verifier)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// WithTokenTTL overrides the confirmation token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(v *Verifier) {
		v.tokenTTL = ttl
	}
}

func New(relationships Relationships, tokens Tokens, limiter Limiter, recorder *audit.Recorder, opts ...Option) (*Verifier, error) {
	if relationships == nil {
		return nil, errors.New("relationship registry is required")
	}
	if tokens == nil {
		return nil, errors.New("token service is required")
	}
	if limiter == nil {
		return nil, errors.New("rate limiter is required")
	}
	if recorder == nil {
		return nil, errors.New("audit recorder is required")
	}
	v := &Verifier{
		relationships: relationships,
		tokens:        tokens,
		limiter:       limiter,
		recorder:      recorder,
		tokenTTL:      defaultTokenTTL,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// VerifyParams describes one access request. Identifier is the throttling
// key, normally the caller's IP.
type VerifyParams struct {
	GuardianID domain.GuardianID
	MinorID    domain.MinorID
	Action     domain.Action
	Identifier string
	// Context is free-text the caller attached to the request. It is
	// classified for the audit trail and never persisted raw.
	Context string
}

// Verify runs the full decision gauntlet. Malformed input returns a
// validation error; everything else lands in the closed Decision.
func (v *Verifier) Verify(ctx context.Context, p VerifyParams) (models.Decision, error) {
	ctx, span := tracer.Start(ctx, "access.Verify",
		trace.WithAttributes(attribute.String("access.action", p.Action.String())))
	defer span.End()
	start := time.Now()
	defer func() { verifyDuration.Observe(time.Since(start).Seconds()) }()

	if p.GuardianID.IsNil() || p.MinorID.IsNil() {
		return models.Decision{}, dErrors.New(dErrors.CodeInvalidInput, "guardian and minor IDs are required")
	}
	if !p.Action.IsValid() {
		return models.Decision{}, dErrors.New(dErrors.CodeInvalidInput, "unknown action")
	}

	// Throttling runs first so an abusive caller learns nothing about
	// relationship existence.
	if p.Identifier != "" {
		limited := v.limiter.Check(ctx, p.Identifier, ratelimitmodels.ScopeMinorContext)
		if !limited.Allowed {
			decision := models.Deny(limited.Reason)
			decision.RetryAfter = limited.RetryAfter
			return v.denied(ctx, span, p, decision), nil
		}
	}

	record, err := v.relationships.Find(ctx, p.GuardianID, p.MinorID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return v.denied(ctx, span, p, models.Deny(domain.ReasonNoRelationship)), nil
		}
		return v.systemError(ctx, span, p, "relationship lookup failed", err), nil
	}

	switch status := record.EffectiveStatus(requestcontext.Now(ctx)); status {
	case domain.StatusActive:
		// Proceed to the permission matrix.
	case domain.StatusExpired:
		return v.denied(ctx, span, p, models.Deny(domain.ReasonExpiredRelationship)), nil
	default:
		// PENDING, INACTIVE, and SUSPENDED all read as inactive; callers
		// are not told which.
		return v.denied(ctx, span, p, models.Deny(domain.ReasonInactiveRelationship)), nil
	}

	if !domain.Permits(record.AccessLevel, p.Action) {
		decision := models.Deny(domain.ReasonInsufficientPermissions)
		decision.AccessLevel = record.AccessLevel
		return v.denied(ctx, span, p, decision), nil
	}

	// Every grant carries a token. Non-destructive tokens validate any number
	// of times within their TTL; destructive ones are consumed on redemption.
	decision := models.Allow(record.AccessLevel, record.ID)
	issued, err := v.tokens.Issue(ctx, tokenservice.IssueParams{
		GuardianID:     p.GuardianID,
		MinorID:        p.MinorID,
		Action:         p.Action,
		RelationshipID: record.ID,
		AccessLevel:    record.AccessLevel,
		TTL:            v.tokenTTL,
	})
	if err != nil {
		return v.systemError(ctx, span, p, "confirmation token issuance failed", err), nil
	}
	decision.Token = issued

	span.SetAttributes(attribute.String("access.outcome", "granted"))
	decisionsTotal.WithLabelValues(p.Action.String(), "granted").Inc()
	v.recorder.Record(ctx, audit.RecordParams{
		Type:        audit.EventAccessGranted,
		Actor:       p.GuardianID.String(),
		Subject:     p.MinorID.String(),
		Action:      p.Action.String(),
		AccessLevel: record.AccessLevel.String(),
		Success:     true,
		RawContext:  p.Context,
	})
	return decision, nil
}

// RedeemParams identifies a confirmation token redemption.
type RedeemParams struct {
	SignedToken string
	GuardianID  domain.GuardianID
	MinorID     domain.MinorID
	Action      domain.Action
	Identifier  string
}

// Redeem confirms a destructive action with its token. Integrity failures
// (replay, forgery, mismatch) count as suspicious activity against the
// caller's identifier.
func (v *Verifier) Redeem(ctx context.Context, p RedeemParams) tokenservice.Result {
	ctx, span := tracer.Start(ctx, "access.Redeem",
		trace.WithAttributes(attribute.String("access.action", p.Action.String())))
	defer span.End()

	if p.Identifier != "" {
		limited := v.limiter.Check(ctx, p.Identifier, ratelimitmodels.ScopeMinorContext)
		if !limited.Allowed {
			span.SetAttributes(attribute.String("access.outcome", limited.Reason.String()))
			return tokenservice.Result{Reason: limited.Reason, RetryAfter: limited.RetryAfter}
		}
	}

	result := v.tokens.Redeem(ctx, tokenservice.RedeemParams{
		SignedToken: p.SignedToken,
		GuardianID:  p.GuardianID,
		MinorID:     p.MinorID,
		Action:      p.Action,
	})

	if result.Allowed {
		span.SetAttributes(attribute.String("access.outcome", "redeemed"))
		return result
	}

	span.SetAttributes(attribute.String("access.outcome", result.Reason.String()))
	if result.Reason.IsIntegrityFailure() && p.Identifier != "" {
		if err := v.limiter.RecordSuspicious(ctx, p.Identifier, result.Reason.String()); err != nil && v.logger != nil {
			v.logger.ErrorContext(ctx, "failed to record suspicious redemption",
				"error", err)
		}
	}
	return result
}

func (v *Verifier) denied(ctx context.Context, span trace.Span, p VerifyParams, decision models.Decision) models.Decision {
	span.SetAttributes(attribute.String("access.outcome", decision.Reason.String()))
	decisionsTotal.WithLabelValues(p.Action.String(), decision.Reason.String()).Inc()
	v.recorder.Record(ctx, audit.RecordParams{
		Type:        audit.EventAccessDenied,
		Actor:       p.GuardianID.String(),
		Subject:     p.MinorID.String(),
		Action:      p.Action.String(),
		AccessLevel: decision.AccessLevel.String(),
		Success:     false,
		Reason:      decision.Reason.String(),
		RawContext:  p.Context,
	})
	return decision
}

func (v *Verifier) systemError(ctx context.Context, span trace.Span, p VerifyParams, msg string, err error) models.Decision {
	span.RecordError(err)
	span.SetAttributes(attribute.String("access.outcome", domain.ReasonSystemError.String()))
	decisionsTotal.WithLabelValues(p.Action.String(), domain.ReasonSystemError.String()).Inc()
	if v.logger != nil {
		v.logger.ErrorContext(ctx, msg, "error", err)
	}
	v.recorder.Record(ctx, audit.RecordParams{
		Type:    audit.EventSystemError,
		Actor:   p.GuardianID.String(),
		Subject: p.MinorID.String(),
		Action:  p.Action.String(),
		Success: false,
		Reason:  domain.ReasonSystemError.String(),
	})
	return models.Deny(domain.ReasonSystemError)
}
