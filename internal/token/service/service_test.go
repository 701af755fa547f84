package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"

	"wardgate/internal/audit"
	"wardgate/internal/privacy"
	"wardgate/internal/sentinel"
	"wardgate/internal/token/service/mocks"
	"wardgate/internal/token/store"
	"wardgate/pkg/domain"
	dErrors "wardgate/pkg/domain-errors"
	"wardgate/pkg/requestcontext"
)

const testSigningSecret = "test-signing-secret"

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
	svc, err := New(s.store, recorder, testSigningSecret,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
	s.service = svc
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) issue(ctx context.Context, action domain.Action) *Issued {
	issued, err := s.service.Issue(ctx, IssueParams{
		GuardianID:     "guardian-1",
		MinorID:        "minor-1",
		Action:         action,
		RelationshipID: "rel_1",
		AccessLevel:    domain.LevelFullGuardian,
		TTL:            5 * time.Minute,
	})
	s.Require().NoError(err)
	return issued
}

func (s *ServiceSuite) lastEvent() audit.Event {
	events := s.auditStore.List()
	s.Require().NotEmpty(events)
	return events[len(events)-1]
}

func (s *ServiceSuite) TestDestructiveTokenRedeemsExactlyOnce() {
	ctx := context.Background()
	issued := s.issue(ctx, domain.ActionDeleteConversations)
	s.NotEmpty(issued.SignedToken)
	s.Equal(audit.EventTokenIssued, s.lastEvent().EventType)

	params := RedeemParams{
		SignedToken: issued.SignedToken,
		GuardianID:  "guardian-1",
		MinorID:     "minor-1",
		Action:      domain.ActionDeleteConversations,
	}

	result := s.service.Redeem(ctx, params)
	s.Require().True(result.Allowed)
	s.Equal(domain.LevelFullGuardian, result.Token.AccessLevel)
	s.Equal(audit.EventTokenRedeemed, s.lastEvent().EventType)

	// The same token is worthless afterwards, and the replay is flagged.
	result = s.service.Redeem(ctx, params)
	s.False(result.Allowed)
	s.Equal(domain.ReasonTokenAlreadyUsed, result.Reason)
	s.Equal(audit.EventIntegrityViolation, s.lastEvent().EventType)
}

func (s *ServiceSuite) TestNonDestructiveTokenIsReusableWithinTTL() {
	ctx := context.Background()
	issued := s.issue(ctx, domain.ActionExportData)

	params := RedeemParams{
		SignedToken: issued.SignedToken,
		GuardianID:  "guardian-1",
		MinorID:     "minor-1",
		Action:      domain.ActionExportData,
	}
	s.True(s.service.Redeem(ctx, params).Allowed)
	s.True(s.service.Redeem(ctx, params).Allowed)
}

func (s *ServiceSuite) TestRedeemMismatches() {
	ctx := context.Background()
	issued := s.issue(ctx, domain.ActionDeleteConversations)

	cases := []struct {
		name   string
		params RedeemParams
	}{
		{"different action", RedeemParams{SignedToken: issued.SignedToken, GuardianID: "guardian-1", MinorID: "minor-1", Action: domain.ActionDeleteProfile}},
		{"different guardian", RedeemParams{SignedToken: issued.SignedToken, GuardianID: "guardian-2", MinorID: "minor-1", Action: domain.ActionDeleteConversations}},
		{"different minor", RedeemParams{SignedToken: issued.SignedToken, GuardianID: "guardian-1", MinorID: "minor-2", Action: domain.ActionDeleteConversations}},
		{"garbage wire token", RedeemParams{SignedToken: "not-a-jwt", GuardianID: "guardian-1", MinorID: "minor-1", Action: domain.ActionDeleteConversations}},
	}
	for _, tc := range cases {
		s.T().Run(tc.name, func(t *testing.T) {
			result := s.service.Redeem(ctx, tc.params)
			assert.False(t, result.Allowed)
			assert.Equal(t, domain.ReasonTokenMismatch, result.Reason)
		})
	}

	// A mismatch never burns the token; the rightful redemption still works.
	result := s.service.Redeem(ctx, RedeemParams{
		SignedToken: issued.SignedToken,
		GuardianID:  "guardian-1",
		MinorID:     "minor-1",
		Action:      domain.ActionDeleteConversations,
	})
	s.True(result.Allowed)
}

func (s *ServiceSuite) TestForgedSignatureRejected() {
	ctx := context.Background()
	issued := s.issue(ctx, domain.ActionDeleteConversations)

	recorder, _ := newTestRecorder(s.T())
	forger, err := New(s.store, recorder, "some-other-secret")
	s.Require().NoError(err)
	forged, err := forger.Issue(ctx, IssueParams{
		GuardianID:     "guardian-1",
		MinorID:        "minor-1",
		Action:         domain.ActionDeleteConversations,
		RelationshipID: "rel_1",
		AccessLevel:    domain.LevelFullGuardian,
		TTL:            5 * time.Minute,
	})
	s.Require().NoError(err)
	s.NotEqual(issued.SignedToken, forged.SignedToken)

	result := s.service.Redeem(ctx, RedeemParams{
		SignedToken: forged.SignedToken,
		GuardianID:  "guardian-1",
		MinorID:     "minor-1",
		Action:      domain.ActionDeleteConversations,
	})
	s.False(result.Allowed)
	s.Equal(domain.ReasonTokenMismatch, result.Reason)
}

func (s *ServiceSuite) TestRedeemAfterExpiry() {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithFixedNow(context.Background(), base)
	issued := s.issue(ctx, domain.ActionDeleteConversations)

	later := requestcontext.WithFixedNow(context.Background(), base.Add(6*time.Minute))
	result := s.service.Redeem(later, RedeemParams{
		SignedToken: issued.SignedToken,
		GuardianID:  "guardian-1",
		MinorID:     "minor-1",
		Action:      domain.ActionDeleteConversations,
	})
	s.False(result.Allowed)
	s.Equal(domain.ReasonTokenExpired, result.Reason)
	s.Equal(audit.EventTokenRejected, s.lastEvent().EventType)
}

func (s *ServiceSuite) TestIssueRejectsExcessiveTTL() {
	_, err := s.service.Issue(context.Background(), IssueParams{
		GuardianID:     "guardian-1",
		MinorID:        "minor-1",
		Action:         domain.ActionDeleteConversations,
		RelationshipID: "rel_1",
		AccessLevel:    domain.LevelFullGuardian,
		TTL:            2 * time.Hour,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ServiceSuite) TestConcurrentRedemptionSingleWinner() {
	ctx := context.Background()
	issued := s.issue(ctx, domain.ActionDeleteProfile)

	params := RedeemParams{
		SignedToken: issued.SignedToken,
		GuardianID:  "guardian-1",
		MinorID:     "minor-1",
		Action:      domain.ActionDeleteProfile,
	}

	var wins atomic.Int64
	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			result := s.service.Redeem(ctx, params)
			if result.Allowed {
				wins.Add(1)
				return nil
			}
			if result.Reason != domain.ReasonTokenAlreadyUsed {
				return errors.New("unexpected reason " + result.Reason.String())
			}
			return nil
		})
	}
	s.Require().NoError(g.Wait())
	s.Equal(int64(1), wins.Load())
}

// Infrastructure failures must deny with SYSTEM_ERROR, never allow.
func TestRedeemFailsClosed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockStore(ctrl)
	recorder, auditStore := newTestRecorder(t)
	svc, err := New(mockStore, recorder, testSigningSecret)
	require.NoError(t, err)

	ctx := context.Background()
	mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("store unreachable"))
	issued, err := svc.Issue(ctx, IssueParams{
		GuardianID:     "guardian-1",
		MinorID:        "minor-1",
		Action:         domain.ActionDeleteConversations,
		RelationshipID: "rel_1",
		AccessLevel:    domain.LevelFullGuardian,
		TTL:            5 * time.Minute,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
	issued, err = svc.Issue(ctx, IssueParams{
		GuardianID:     "guardian-1",
		MinorID:        "minor-1",
		Action:         domain.ActionDeleteConversations,
		RelationshipID: "rel_1",
		AccessLevel:    domain.LevelFullGuardian,
		TTL:            5 * time.Minute,
	})
	require.NoError(t, err)

	params := RedeemParams{
		SignedToken: issued.SignedToken,
		GuardianID:  "guardian-1",
		MinorID:     "minor-1",
		Action:      domain.ActionDeleteConversations,
	}

	mockStore.EXPECT().Find(gomock.Any(), issued.ID).Return(nil, errors.New("store unreachable"))
	result := svc.Redeem(ctx, params)
	assert.False(t, result.Allowed)
	assert.Equal(t, domain.ReasonSystemError, result.Reason)

	events := auditStore.List()
	require.NotEmpty(t, events)
	assert.Equal(t, audit.EventSystemError, events[len(events)-1].EventType)

	// Vanished record reads as a mismatch, not an existence oracle.
	mockStore.EXPECT().Find(gomock.Any(), issued.ID).Return(nil, sentinel.ErrNotFound)
	result = svc.Redeem(ctx, params)
	assert.False(t, result.Allowed)
	assert.Equal(t, domain.ReasonTokenMismatch, result.Reason)
}
