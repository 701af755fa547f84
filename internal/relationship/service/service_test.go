package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"wardgate/internal/audit"
	"wardgate/internal/privacy"
	"wardgate/internal/relationship/service/mocks"
	"wardgate/internal/relationship/store"
	"wardgate/internal/sentinel"
	"wardgate/pkg/domain"
	dErrors "wardgate/pkg/domain-errors"
	"wardgate/pkg/requestcontext"
)

func newTestRecorder(t *testing.T) (*audit.Recorder, *audit.InMemoryStore) {
	t.Helper()
	auditStore := audit.NewInMemoryStore()
	publisher := audit.NewPublisher([]audit.Sink{auditStore})
	hasher, err := audit.NewHasher("test-secret")
	require.NoError(t, err)
	classifier := privacy.NewClassifier(hasher.HashContent)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return audit.NewRecorder(publisher, hasher, classifier, logger), auditStore
}

type ServiceSuite struct {
	suite.Suite
	service    *Service
	store      *store.InMemoryStore
	auditStore *audit.InMemoryStore
}

func (s *ServiceSuite) SetupTest() {
	recorder, auditStore := newTestRecorder(s.T())
	s.store = store.New()
	s.auditStore = auditStore
	svc, err := New(s.store, recorder,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
	s.service = svc
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) TestRegisterThenFindActive() {
	ctx := context.Background()

	id, err := s.service.Register(ctx, RegisterParams{
		GuardianID:         "guardian-1",
		MinorID:            "minor-1",
		AccessLevel:        domain.LevelFullGuardian,
		VerificationMethod: domain.VerifyGovernmentID,
	})
	s.Require().NoError(err)
	s.NotEmpty(id)

	record, err := s.service.FindActive(ctx, "guardian-1", "minor-1")
	s.Require().NoError(err)
	s.Equal(domain.StatusActive, record.Status)
	s.Equal(domain.LevelFullGuardian, record.AccessLevel)
	s.NotNil(record.VerifiedAt)

	events := s.auditStore.List()
	s.Require().Len(events, 1)
	s.Equal(audit.EventRelationshipCreated, events[0].EventType)
	s.True(events[0].Success)
}

func (s *ServiceSuite) TestRegisterUntrustedChannelStartsPending() {
	ctx := context.Background()

	id, err := s.service.Register(ctx, RegisterParams{
		GuardianID:         "guardian-1",
		MinorID:            "minor-1",
		AccessLevel:        domain.LevelReadOnly,
		VerificationMethod: domain.VerifySelfAttested,
	})
	s.Require().NoError(err)

	// Pending grants nothing yet.
	_, err = s.service.FindActive(ctx, "guardian-1", "minor-1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	// Activation flips it to ACTIVE.
	s.Require().NoError(s.service.Activate(ctx, id))
	record, err := s.service.FindActive(ctx, "guardian-1", "minor-1")
	s.Require().NoError(err)
	s.Equal(domain.StatusActive, record.Status)
}

func (s *ServiceSuite) TestRegisterValidation() {
	ctx := context.Background()

	cases := []struct {
		name   string
		params RegisterParams
	}{
		{"empty guardian", RegisterParams{MinorID: "minor-1", AccessLevel: domain.LevelReadOnly, VerificationMethod: domain.VerifyEmail}},
		{"empty minor", RegisterParams{GuardianID: "guardian-1", AccessLevel: domain.LevelReadOnly, VerificationMethod: domain.VerifyEmail}},
		{"bad level", RegisterParams{GuardianID: "guardian-1", MinorID: "minor-1", AccessLevel: "ROOT", VerificationMethod: domain.VerifyEmail}},
		{"bad method", RegisterParams{GuardianID: "guardian-1", MinorID: "minor-1", AccessLevel: domain.LevelReadOnly, VerificationMethod: "RUMOR"}},
	}
	for _, tc := range cases {
		s.T().Run(tc.name, func(t *testing.T) {
			_, err := s.service.Register(ctx, tc.params)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "expected CodeInvalidInput")
		})
	}

	// Each rejection is audited too.
	s.Len(s.auditStore.List(), len(cases))
}

func (s *ServiceSuite) TestLazyExpiryOnRead() {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithFixedNow(context.Background(), base)

	expiry := base.Add(24 * time.Hour)
	_, err := s.service.Register(ctx, RegisterParams{
		GuardianID:         "guardian-1",
		MinorID:            "minor-1",
		AccessLevel:        domain.LevelTemporaryGuardian,
		VerificationMethod: domain.VerifyInPerson,
		ExpiresAt:          &expiry,
	})
	s.Require().NoError(err)

	// Before expiry: usable.
	record, err := s.service.FindActive(ctx, "guardian-1", "minor-1")
	s.Require().NoError(err)
	s.Equal(domain.StatusActive, record.Status)

	// After expiry: reads report EXPIRED even though ACTIVE was stored,
	// and the transition is persisted.
	later := requestcontext.WithFixedNow(context.Background(), expiry.Add(time.Minute))
	record, err = s.service.Find(later, "guardian-1", "minor-1")
	s.Require().NoError(err)
	s.Equal(domain.StatusExpired, record.Status)

	stored, err := s.store.FindByPair(context.Background(), "guardian-1", "minor-1")
	s.Require().NoError(err)
	s.Equal(domain.StatusExpired, stored.Status)

	// No reader ever observes the relationship moving backward.
	_, err = s.service.FindActive(later, "guardian-1", "minor-1")
	s.Require().Error(err)
}

func (s *ServiceSuite) TestListForGuardianExcludesUnusable() {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithFixedNow(context.Background(), base)

	mustRegister := func(minor domain.MinorID, method domain.VerificationMethod, expiresAt *time.Time) domain.RelationshipID {
		id, err := s.service.Register(ctx, RegisterParams{
			GuardianID:         "guardian-1",
			MinorID:            minor,
			AccessLevel:        domain.LevelReadOnly,
			VerificationMethod: method,
			ExpiresAt:          expiresAt,
		})
		s.Require().NoError(err)
		return id
	}

	expired := base.Add(time.Hour)
	mustRegister("minor-active", domain.VerifyGovernmentID, nil)
	mustRegister("minor-pending", domain.VerifySelfAttested, nil)
	mustRegister("minor-expiring", domain.VerifyInPerson, &expired)
	suspendedID := mustRegister("minor-suspended", domain.VerifyLegalDocument, nil)
	s.Require().NoError(s.service.Suspend(ctx, suspendedID, "court order"))

	later := requestcontext.WithFixedNow(context.Background(), base.Add(2*time.Hour))
	records, err := s.service.ListForGuardian(later, "guardian-1")
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(domain.MinorID("minor-active"), records[0].MinorID)
}

func (s *ServiceSuite) TestFindAbsentPair() {
	_, err := s.service.Find(context.Background(), "guardian-1", "minor-unknown")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// Error propagation across the store boundary uses mocks; happy paths above
// run against the real in-memory store.
func TestServiceStoreFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockStore(ctrl)
	recorder, _ := newTestRecorder(t)
	svc, err := New(mockStore, recorder)
	require.NoError(t, err)

	ctx := context.Background()
	storeDown := errors.New("store unreachable")

	mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(storeDown)
	_, err = svc.Register(ctx, RegisterParams{
		GuardianID:         "guardian-1",
		MinorID:            "minor-1",
		AccessLevel:        domain.LevelReadOnly,
		VerificationMethod: domain.VerifyEmail,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	mockStore.EXPECT().FindByPair(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, storeDown)
	_, err = svc.Find(ctx, "guardian-1", "minor-1")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	mockStore.EXPECT().FindByPair(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
	_, err = svc.Find(ctx, "guardian-1", "minor-1")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
