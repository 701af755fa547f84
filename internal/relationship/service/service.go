// Package service implements the relationship registry: the authoritative
// owner of guardian-minor relationship records and their lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"wardgate/internal/audit"
	"wardgate/internal/relationship/models"
	"wardgate/internal/sentinel"
	"wardgate/pkg/domain"
	dErrors "wardgate/pkg/domain-errors"
	"wardgate/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

// Store defines the persistence interface for relationship records.
// Error Contract:
// - Find methods return sentinel.ErrNotFound when no record exists
// - Other methods return nil on success or wrapped errors on failure
type Store interface {
	Save(ctx context.Context, record *models.Record) error
	FindByPair(ctx context.Context, guardianID domain.GuardianID, minorID domain.MinorID) (*models.Record, error)
	FindByID(ctx context.Context, id domain.RelationshipID) (*models.Record, error)
	ListByGuardian(ctx context.Context, guardianID domain.GuardianID) ([]*models.Record, error)
	UpdateStatus(ctx context.Context, id domain.RelationshipID, status domain.RelationshipStatus) error
}

// Service owns relationship records. Records are never mutated by callers;
// every transition goes through here and is audited.
type Service struct {
	store    Store
	recorder *audit.Recorder
	logger   *slog.Logger
}

type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, recorder *audit.Recorder, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("relationship store is required")
	}
	if recorder == nil {
		return nil, errors.New("audit recorder is required")
	}
	svc := &Service{store: store, recorder: recorder}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RegisterParams describes a registration request.
type RegisterParams struct {
	GuardianID         domain.GuardianID
	MinorID            domain.MinorID
	AccessLevel        domain.AccessLevel
	VerificationMethod domain.VerificationMethod
	LegalDocumentRef   string
	ExpiresAt          *time.Time
}

// Register creates a relationship record. The record starts ACTIVE when the
// verification channel is already trusted, else PENDING. Malformed input is a
// validation error, never a silent failure; every call emits an audit event.
func (s *Service) Register(ctx context.Context, p RegisterParams) (domain.RelationshipID, error) {
	now := requestcontext.Now(ctx)
	id := domain.RelationshipID(fmt.Sprintf("rel_%s", uuid.NewString()))

	record, err := models.NewRecord(id, p.GuardianID, p.MinorID, p.AccessLevel,
		p.VerificationMethod, p.LegalDocumentRef, now, p.ExpiresAt)
	if err != nil {
		s.recorder.Record(ctx, audit.RecordParams{
			Type:    audit.EventRegistrationRejected,
			Actor:   p.GuardianID.String(),
			Subject: p.MinorID.String(),
			Success: false,
			Reason:  err.Error(),
		})
		return "", err
	}

	if err := s.store.Save(ctx, record); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to save relationship")
	}

	s.recorder.Record(ctx, audit.RecordParams{
		Type:        audit.EventRelationshipCreated,
		Actor:       p.GuardianID.String(),
		Subject:     p.MinorID.String(),
		AccessLevel: record.AccessLevel.String(),
		Success:     true,
		Reason:      record.Status.String(),
	})
	return record.ID, nil
}

// Find returns the record for a pair with the expiry invariant applied: a
// record past its ExpiresAt comes back with status EXPIRED, and the registry
// persists that transition so no later reader observes it moving backward.
func (s *Service) Find(ctx context.Context, guardianID domain.GuardianID, minorID domain.MinorID) (*models.Record, error) {
	if guardianID.IsNil() || minorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "guardian and minor IDs are required")
	}

	record, err := s.store.FindByPair(ctx, guardianID, minorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no relationship on record")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read relationship")
	}

	return s.applyLazyExpiry(ctx, record), nil
}

// FindActive returns the pair's record only if it currently grants authority.
func (s *Service) FindActive(ctx context.Context, guardianID domain.GuardianID, minorID domain.MinorID) (*models.Record, error) {
	record, err := s.Find(ctx, guardianID, minorID)
	if err != nil {
		return nil, err
	}
	if !record.IsUsable(requestcontext.Now(ctx)) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no active relationship on record")
	}
	return record, nil
}

// ListForGuardian returns the guardian's currently usable relationships.
// Expired, inactive, suspended, and pending records are excluded.
func (s *Service) ListForGuardian(ctx context.Context, guardianID domain.GuardianID) ([]*models.Record, error) {
	if guardianID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "guardian ID is required")
	}

	records, err := s.store.ListByGuardian(ctx, guardianID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list relationships")
	}

	now := requestcontext.Now(ctx)
	var usable []*models.Record
	for _, record := range records {
		record = s.applyLazyExpiry(ctx, record)
		if record.IsUsable(now) {
			usable = append(usable, record)
		}
	}
	return usable, nil
}

// Activate marks a PENDING relationship as verified.
func (s *Service) Activate(ctx context.Context, id domain.RelationshipID) error {
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeNotFound, "relationship not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read relationship")
	}
	if record.EffectiveStatus(requestcontext.Now(ctx)) != domain.StatusPending {
		return dErrors.New(dErrors.CodeConflict, "only pending relationships can be activated")
	}
	if err := s.store.UpdateStatus(ctx, id, domain.StatusActive); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to activate relationship")
	}
	s.recorder.Record(ctx, audit.RecordParams{
		Type:        audit.EventRelationshipCreated,
		Actor:       record.GuardianID.String(),
		Subject:     record.MinorID.String(),
		AccessLevel: record.AccessLevel.String(),
		Success:     true,
		Reason:      domain.StatusActive.String(),
	})
	return nil
}

// Suspend administratively disables a relationship. Terminal except via
// re-registration.
func (s *Service) Suspend(ctx context.Context, id domain.RelationshipID, reason string) error {
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeNotFound, "relationship not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read relationship")
	}
	if err := s.store.UpdateStatus(ctx, id, domain.StatusSuspended); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to suspend relationship")
	}
	s.recorder.Record(ctx, audit.RecordParams{
		Type:        audit.EventRelationshipSuspend,
		Actor:       record.GuardianID.String(),
		Subject:     record.MinorID.String(),
		AccessLevel: record.AccessLevel.String(),
		Success:     true,
		Reason:      reason,
	})
	return nil
}

// applyLazyExpiry persists the EXPIRED transition the first time an expired
// record is read. The returned record always reflects the effective status.
func (s *Service) applyLazyExpiry(ctx context.Context, record *models.Record) *models.Record {
	now := requestcontext.Now(ctx)
	if !record.IsExpired(now) || record.Status == domain.StatusExpired {
		return record
	}

	if err := s.store.UpdateStatus(ctx, record.ID, domain.StatusExpired); err != nil {
		// The read still reports EXPIRED; only the persisted transition is
		// retried on the next read.
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to persist lazy expiry",
				"relationship_id", record.ID.String(), "error", err)
		}
	} else {
		s.recorder.Record(ctx, audit.RecordParams{
			Type:        audit.EventRelationshipExpired,
			Actor:       record.GuardianID.String(),
			Subject:     record.MinorID.String(),
			AccessLevel: record.AccessLevel.String(),
			Success:     true,
			Reason:      domain.StatusExpired.String(),
		})
	}

	expired := *record
	expired.Status = domain.StatusExpired
	return &expired
}
