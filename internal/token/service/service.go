// Package service issues and redeems single-use access tokens for
// destructive operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"wardgate/internal/audit"
	"wardgate/internal/sentinel"
	"wardgate/internal/token/models"
	"wardgate/pkg/domain"
	dErrors "wardgate/pkg/domain-errors"
	"wardgate/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

// Store defines the persistence interface for tokens.
// Error Contract:
// - Find returns sentinel.ErrNotFound when no token exists
// - Consume returns sentinel.ErrNotFound or sentinel.ErrAlreadyUsed
// - Other failures are infrastructure errors, wrapped with context
type Store interface {
	Save(ctx context.Context, token *models.Token) error
	Find(ctx context.Context, id domain.TokenID) (*models.Token, error)
	Consume(ctx context.Context, id domain.TokenID) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

const tokenIssuer = "wardgate"

// Service owns the token lifecycle. The wire form handed to callers is a
// signed JWT whose jti is the store key; the store record stays the source of
// truth for expiry and consumption, so revoking a record invalidates the JWT
// no matter what its claims say.
type Service struct {
	store      Store
	recorder   *audit.Recorder
	signingKey []byte
	logger     *slog.Logger
}

type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, recorder *audit.Recorder, signingSecret string, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("token store is required")
	}
	if recorder == nil {
		return nil, errors.New("audit recorder is required")
	}
	if signingSecret == "" {
		return nil, errors.New("token signing secret is required")
	}
	svc := &Service{store: store, recorder: recorder, signingKey: []byte(signingSecret)}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// IssueParams describes a token grant already authorized by the verifier.
type IssueParams struct {
	GuardianID     domain.GuardianID
	MinorID        domain.MinorID
	Action         domain.Action
	RelationshipID domain.RelationshipID
	AccessLevel    domain.AccessLevel
	TTL            time.Duration
}

// Issued is the caller-facing form of a freshly minted token.
type Issued struct {
	ID          domain.TokenID
	SignedToken string
	ExpiresAt   time.Time
}

type tokenClaims struct {
	Action string `json:"act"`
	jwt.RegisteredClaims
}

// Issue mints a token, persists it, and returns the signed wire form. The
// access level is snapshotted at issuance and never re-derived.
func (s *Service) Issue(ctx context.Context, p IssueParams) (*Issued, error) {
	now := requestcontext.Now(ctx)
	id := domain.TokenID(fmt.Sprintf("tok_%s", uuid.NewString()))

	token, err := models.NewToken(id, p.GuardianID, p.MinorID, p.Action,
		p.RelationshipID, p.AccessLevel, now, p.TTL)
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, token); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save token")
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Action: p.Action.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.String(),
			Issuer:    tokenIssuer,
			Subject:   p.GuardianID.String(),
			Audience:  jwt.ClaimStrings{p.MinorID.String()},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(token.ExpiresAt),
		},
	}).SignedString(s.signingKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}

	s.recorder.Record(ctx, audit.RecordParams{
		Type:        audit.EventTokenIssued,
		Actor:       p.GuardianID.String(),
		Subject:     p.MinorID.String(),
		Action:      p.Action.String(),
		AccessLevel: p.AccessLevel.String(),
		Success:     true,
	})

	return &Issued{ID: id, SignedToken: signed, ExpiresAt: token.ExpiresAt}, nil
}

// RedeemParams identifies the redemption attempt. Every field must match the
// token exactly; tokens are not transferable between subjects or actions.
type RedeemParams struct {
	SignedToken string
	GuardianID  domain.GuardianID
	MinorID     domain.MinorID
	Action      domain.Action
}

// Result is the closed outcome of a redemption. Exactly one of Allowed or
// Reason is meaningful; no error path escapes this type.
type Result struct {
	Allowed bool
	Reason  domain.DenialCode
	Token   *models.Token
	// RetryAfter is set on throttled redemptions so callers can surface the
	// limiter's hint.
	RetryAfter time.Duration
}

func allow(token *models.Token) Result {
	return Result{Allowed: true, Token: token}
}

func deny(reason domain.DenialCode) Result {
	return Result{Reason: reason}
}

// Redeem validates the wire token against the store record and, for
// destructive actions, atomically consumes it. Infrastructure failures deny
// with SYSTEM_ERROR; the redemption is never allowed on partial knowledge.
func (s *Service) Redeem(ctx context.Context, p RedeemParams) Result {
	now := requestcontext.Now(ctx)

	id, ok := s.parseTokenID(ctx, p)
	if !ok {
		s.auditRejection(ctx, p, nil, domain.ReasonTokenMismatch)
		return deny(domain.ReasonTokenMismatch)
	}

	token, err := s.store.Find(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Expired records are collected eagerly in the shared store, so
			// absence is indistinguishable from expiry. Report a mismatch
			// rather than leaking whether the id ever existed.
			s.auditRejection(ctx, p, nil, domain.ReasonTokenMismatch)
			return deny(domain.ReasonTokenMismatch)
		}
		return s.systemError(ctx, p, "failed to read token", err)
	}

	if token.IsExpired(now) {
		s.auditRejection(ctx, p, token, domain.ReasonTokenExpired)
		return deny(domain.ReasonTokenExpired)
	}

	if !token.Matches(p.GuardianID, p.MinorID, p.Action) {
		s.auditRejection(ctx, p, token, domain.ReasonTokenMismatch)
		return deny(domain.ReasonTokenMismatch)
	}

	if token.Consumed {
		s.auditRejection(ctx, p, token, domain.ReasonTokenAlreadyUsed)
		return deny(domain.ReasonTokenAlreadyUsed)
	}

	if p.Action.IsDestructive() {
		if err := s.store.Consume(ctx, id); err != nil {
			switch {
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				s.auditRejection(ctx, p, token, domain.ReasonTokenAlreadyUsed)
				return deny(domain.ReasonTokenAlreadyUsed)
			case errors.Is(err, sentinel.ErrNotFound):
				s.auditRejection(ctx, p, token, domain.ReasonTokenMismatch)
				return deny(domain.ReasonTokenMismatch)
			default:
				return s.systemError(ctx, p, "failed to consume token", err)
			}
		}
		token.Consumed = true
	}

	s.recorder.Record(ctx, audit.RecordParams{
		Type:        audit.EventTokenRedeemed,
		Actor:       p.GuardianID.String(),
		Subject:     p.MinorID.String(),
		Action:      p.Action.String(),
		AccessLevel: token.AccessLevel.String(),
		Success:     true,
	})
	return allow(token)
}

// DeleteExpired removes tokens past their lifetime. Called by the cleanup
// worker.
func (s *Service) DeleteExpired(ctx context.Context) (int, error) {
	deleted, err := s.store.DeleteExpired(ctx, requestcontext.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete expired tokens")
	}
	return deleted, nil
}

// parseTokenID verifies the JWT signature and extracts the store key. Claim
// expiry is deliberately not validated here: the store record and the
// request clock decide expiry, keeping the check consistent across replicas.
func (s *Service) parseTokenID(ctx context.Context, p RedeemParams) (domain.TokenID, bool) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(p.SignedToken, claims,
		func(*jwt.Token) (any, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || claims.ID == "" {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "rejected unparseable token",
				"guardian_hash", s.recorder.Hasher().HashActor(p.GuardianID.String()),
				"error", err)
		}
		return "", false
	}
	return domain.TokenID(claims.ID), true
}

// auditRejection records a denied redemption. Mismatch and reuse are flagged
// as integrity violations since they indicate forgery or replay.
func (s *Service) auditRejection(ctx context.Context, p RedeemParams, token *models.Token, reason domain.DenialCode) {
	eventType := audit.EventTokenRejected
	if reason.IsIntegrityFailure() {
		eventType = audit.EventIntegrityViolation
	}
	params := audit.RecordParams{
		Type:    eventType,
		Actor:   p.GuardianID.String(),
		Subject: p.MinorID.String(),
		Action:  p.Action.String(),
		Success: false,
		Reason:  reason.String(),
	}
	if token != nil {
		params.AccessLevel = token.AccessLevel.String()
	}
	s.recorder.Record(ctx, params)
}

func (s *Service) systemError(ctx context.Context, p RedeemParams, msg string, err error) Result {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, msg, "error", err)
	}
	s.recorder.Record(ctx, audit.RecordParams{
		Type:    audit.EventSystemError,
		Actor:   p.GuardianID.String(),
		Subject: p.MinorID.String(),
		Action:  p.Action.String(),
		Success: false,
		Reason:  domain.ReasonSystemError.String(),
	})
	return deny(domain.ReasonSystemError)
}
