// Package service enforces per-identifier sliding-window rate limits and
// blocks identifiers showing repeated suspicious activity.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"wardgate/internal/audit"
	"wardgate/internal/ratelimit/models"
	"wardgate/internal/ratelimit/store"
	"wardgate/internal/sentinel"
	"wardgate/pkg/domain"
	dErrors "wardgate/pkg/domain-errors"
	"wardgate/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

// Store defines the persistence interface for windows and blocks.
// Error Contract:
// - GetBlock returns sentinel.ErrNotFound when no block exists
// - Other failures are infrastructure errors, wrapped with context
type Store interface {
	ObserveRequest(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (*store.Observation, error)
	AddSuspicious(ctx context.Context, identifier string, now time.Time, window time.Duration) (int, error)
	SetBlock(ctx context.Context, block models.Block) error
	GetBlock(ctx context.Context, identifier string) (*models.Block, error)
	Prune(ctx context.Context, now time.Time, maxWindow time.Duration) (int, error)
}

// Config holds the limit table and abuse thresholds.
type Config struct {
	Limits             map[models.Scope]models.Limit
	SuspicionThreshold int
	SuspicionWindow    time.Duration
	BlockDuration      time.Duration
}

// DefaultConfig returns the production limits: operations in minor context
// run at half the general budget, and five suspicious events inside a day
// block the identifier for an hour.
func DefaultConfig() Config {
	return Config{
		Limits: map[models.Scope]models.Limit{
			models.ScopeGeneral:      {Max: 60, Window: time.Minute},
			models.ScopeMinorContext: {Max: 30, Window: time.Minute},
		},
		SuspicionThreshold: 5,
		SuspicionWindow:    24 * time.Hour,
		BlockDuration:      time.Hour,
	}
}

// Service makes the limiting decisions. Decisions are closed values; an
// unreachable store denies rather than letting traffic through unmetered.
type Service struct {
	store    Store
	recorder *audit.Recorder
	config   Config
	logger   *slog.Logger
}

type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithConfig overrides the default limit table.
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

func New(store Store, recorder *audit.Recorder, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("rate limit store is required")
	}
	if recorder == nil {
		return nil, errors.New("audit recorder is required")
	}
	svc := &Service{store: store, recorder: recorder, config: DefaultConfig()}
	for _, opt := range opts {
		opt(svc)
	}
	if len(svc.config.Limits) == 0 || svc.config.SuspicionThreshold <= 0 {
		return nil, errors.New("rate limit config is incomplete")
	}
	return svc, nil
}

// Check admits or denies one request for the identifier under the scope's
// limit. A blocked identifier is denied before any window is consulted.
func (s *Service) Check(ctx context.Context, identifier string, scope models.Scope) models.Decision {
	now := requestcontext.Now(ctx)
	if !scope.IsValid() {
		scope = models.ScopeGeneral
	}
	limit := s.config.Limits[scope]

	blockedUntil, err := s.blockedUntil(ctx, identifier)
	if err != nil {
		return s.systemError(ctx, identifier, scope, "failed to read block state", err)
	}
	if blockedUntil != nil && now.Before(*blockedUntil) {
		checksTotal.WithLabelValues(scope.String(), outcomeBlocked).Inc()
		s.recorder.Record(ctx, audit.RecordParams{
			Type:    audit.EventRateLimitExceeded,
			Actor:   identifier,
			Success: false,
			Reason:  domain.ReasonIPBlocked.String(),
		})
		return models.Deny(domain.ReasonIPBlocked, blockedUntil.Sub(now))
	}

	obs, err := s.store.ObserveRequest(ctx, windowKey(identifier, scope), now, limit.Window, limit.Max)
	if err != nil {
		return s.systemError(ctx, identifier, scope, "failed to observe request window", err)
	}
	if !obs.Allowed {
		checksTotal.WithLabelValues(scope.String(), outcomeDenied).Inc()
		s.recorder.Record(ctx, audit.RecordParams{
			Type:    audit.EventRateLimitExceeded,
			Actor:   identifier,
			Success: false,
			Reason:  domain.ReasonRateLimited.String(),
		})
		return models.Deny(domain.ReasonRateLimited, retryAfter(obs.OldestAt, limit.Window, now))
	}

	checksTotal.WithLabelValues(scope.String(), outcomeAllowed).Inc()
	return models.Allow(limit.Max - obs.Count)
}

// RecordSuspicious registers one suspicious event for the identifier and
// blocks it once the threshold is crossed inside the suspicion window.
func (s *Service) RecordSuspicious(ctx context.Context, identifier, reason string) error {
	now := requestcontext.Now(ctx)

	count, err := s.store.AddSuspicious(ctx, identifier, now, s.config.SuspicionWindow)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record suspicious event")
	}
	suspiciousTotal.Inc()
	s.recorder.Record(ctx, audit.RecordParams{
		Type:    audit.EventSuspiciousActivity,
		Actor:   identifier,
		Success: false,
		Reason:  reason,
	})

	if count < s.config.SuspicionThreshold {
		return nil
	}

	block := models.Block{Identifier: identifier, BlockedUntil: now.Add(s.config.BlockDuration)}
	if err := s.store.SetBlock(ctx, block); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to block identifier")
	}
	blocksTotal.Inc()
	s.recorder.Record(ctx, audit.RecordParams{
		Type:    audit.EventIdentifierBlocked,
		Actor:   identifier,
		Success: true,
		Reason:  reason,
	})
	return nil
}

// IsBlocked reports the identifier's block state without consuming a window
// slot. Used by the verifier's pre-check and the inspection endpoint.
func (s *Service) IsBlocked(ctx context.Context, identifier string) (bool, time.Time, error) {
	now := requestcontext.Now(ctx)
	blockedUntil, err := s.blockedUntil(ctx, identifier)
	if err != nil {
		return false, time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read block state")
	}
	if blockedUntil == nil || !now.Before(*blockedUntil) {
		return false, time.Time{}, nil
	}
	return true, *blockedUntil, nil
}

// Prune drops elapsed windows and expired blocks.
func (s *Service) Prune(ctx context.Context) (int, error) {
	maxWindow := s.config.SuspicionWindow
	for _, limit := range s.config.Limits {
		if limit.Window > maxWindow {
			maxWindow = limit.Window
		}
	}
	pruned, err := s.store.Prune(ctx, requestcontext.Now(ctx), maxWindow)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to prune rate limit state")
	}
	return pruned, nil
}

func (s *Service) blockedUntil(ctx context.Context, identifier string) (*time.Time, error) {
	block, err := s.store.GetBlock(ctx, identifier)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &block.BlockedUntil, nil
}

func (s *Service) systemError(ctx context.Context, identifier string, scope models.Scope, msg string, err error) models.Decision {
	checksTotal.WithLabelValues(scope.String(), outcomeError).Inc()
	if s.logger != nil {
		s.logger.ErrorContext(ctx, msg, "error", err)
	}
	s.recorder.Record(ctx, audit.RecordParams{
		Type:    audit.EventSystemError,
		Actor:   identifier,
		Success: false,
		Reason:  domain.ReasonSystemError.String(),
	})
	return models.Deny(domain.ReasonSystemError, 0)
}

// windowKey separates scopes so a minor-context burst cannot starve the
// identifier's general budget or vice versa.
func windowKey(identifier string, scope models.Scope) string {
	return identifier + ":" + scope.String()
}

func retryAfter(oldest time.Time, window time.Duration, now time.Time) time.Duration {
	if oldest.IsZero() {
		return window
	}
	wait := oldest.Add(window).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}
