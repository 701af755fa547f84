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

	"wardgate/internal/access/service/mocks"
	"wardgate/internal/audit"
	"wardgate/internal/privacy"
	ratelimitmodels "wardgate/internal/ratelimit/models"
	ratelimitservice "wardgate/internal/ratelimit/service"
	ratelimitstore "wardgate/internal/ratelimit/store"
	relmodels "wardgate/internal/relationship/models"
	relservice "wardgate/internal/relationship/service"
	relstore "wardgate/internal/relationship/store"
	tokenservice "wardgate/internal/token/service"
	tokenstore "wardgate/internal/token/store"
	"wardgate/pkg/domain"
	dErrors "wardgate/pkg/domain-errors"
	"wardgate/pkg/requestcontext"
)

const testIdentifier = "203.0.113.7"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRecorder(t *testing.T) (*audit.Recorder, *audit.InMemoryStore) {
	t.Helper()
	auditStore := audit.NewInMemoryStore()
	publisher := audit.NewPublisher([]audit.Sink{auditStore})
	hasher, err := audit.NewHasher("test-secret")
	require.NoError(t, err)
	classifier := privacy.NewClassifier(hasher.HashContent)
	return audit.NewRecorder(publisher, hasher, classifier, discardLogger()), auditStore
}

// VerifierSuite wires the verifier against the real services with in-memory
// stores; only failure injection uses mocks.
type VerifierSuite struct {
	suite.Suite
	verifier      *Verifier
	relationships *relservice.Service
	limiter       *ratelimitservice.Service
	auditStore    *audit.InMemoryStore
}

func (s *VerifierSuite) SetupTest() {
	recorder, auditStore := newTestRecorder(s.T())
	s.auditStore = auditStore

	relationships, err := relservice.New(relstore.New(), recorder, relservice.WithLogger(discardLogger()))
	s.Require().NoError(err)
	s.relationships = relationships

	tokens, err := tokenservice.New(tokenstore.New(), recorder, "test-signing-secret",
		tokenservice.WithLogger(discardLogger()))
	s.Require().NoError(err)

	limiter, err := ratelimitservice.New(ratelimitstore.New(), recorder,
		ratelimitservice.WithLogger(discardLogger()))
	s.Require().NoError(err)
	s.limiter = limiter

	verifier, err := New(relationships, tokens, limiter, recorder, WithLogger(discardLogger()))
	s.Require().NoError(err)
	s.verifier = verifier
}

func TestVerifierSuite(t *testing.T) {
	suite.Run(t, new(VerifierSuite))
}

func (s *VerifierSuite) register(guardian domain.GuardianID, minor domain.MinorID, level domain.AccessLevel) {
	_, err := s.relationships.Register(context.Background(), relservice.RegisterParams{
		GuardianID:         guardian,
		MinorID:            minor,
		AccessLevel:        level,
		VerificationMethod: domain.VerifyGovernmentID,
	})
	s.Require().NoError(err)
}

// Every access level and action combination must flow through Verify exactly
// as the permission matrix dictates.
func (s *VerifierSuite) TestVerifyHonorsPermissionMatrix() {
	ctx := context.Background()
	for _, level := range domain.AccessLevels {
		guardian := domain.GuardianID("guardian-" + level.String())
		minor := domain.MinorID("minor-" + level.String())
		s.register(guardian, minor, level)

		for _, action := range domain.Actions {
			decision, err := s.verifier.Verify(ctx, VerifyParams{
				GuardianID: guardian,
				MinorID:    minor,
				Action:     action,
			})
			s.Require().NoError(err)

			if domain.Permits(level, action) {
				s.True(decision.Allowed, "level %s should permit %s", level, action)
				s.Equal(level, decision.AccessLevel)
				s.NotEmpty(decision.RelationshipID)
				s.NotNil(decision.Token, "grant for %s/%s must carry a token", level, action)
			} else {
				s.False(decision.Allowed, "level %s should not permit %s", level, action)
				s.Equal(domain.ReasonInsufficientPermissions, decision.Reason)
			}
		}
	}
}

func (s *VerifierSuite) TestDestructiveGrantCarriesToken() {
	ctx := context.Background()
	s.register("guardian-1", "minor-1", domain.LevelFullGuardian)

	decision, err := s.verifier.Verify(ctx, VerifyParams{
		GuardianID: "guardian-1",
		MinorID:    "minor-1",
		Action:     domain.ActionDeleteConversations,
	})
	s.Require().NoError(err)
	s.Require().True(decision.Allowed)
	s.Require().NotNil(decision.Token)

	// The issued token confirms exactly that action, once.
	result := s.verifier.Redeem(ctx, RedeemParams{
		SignedToken: decision.Token.SignedToken,
		GuardianID:  "guardian-1",
		MinorID:     "minor-1",
		Action:      domain.ActionDeleteConversations,
	})
	s.True(result.Allowed)

	result = s.verifier.Redeem(ctx, RedeemParams{
		SignedToken: decision.Token.SignedToken,
		GuardianID:  "guardian-1",
		MinorID:     "minor-1",
		Action:      domain.ActionDeleteConversations,
	})
	s.False(result.Allowed)
	s.Equal(domain.ReasonTokenAlreadyUsed, result.Reason)
}

// Non-destructive grants carry a token too, but it is not consumed on
// redemption and stays valid for the rest of its lifetime.
func (s *VerifierSuite) TestNonDestructiveGrantTokenIsReusable() {
	ctx := context.Background()
	s.register("guardian-1", "minor-1", domain.LevelReadOnly)

	decision, err := s.verifier.Verify(ctx, VerifyParams{
		GuardianID: "guardian-1",
		MinorID:    "minor-1",
		Action:     domain.ActionReadProfile,
	})
	s.Require().NoError(err)
	s.Require().True(decision.Allowed)
	s.Require().NotNil(decision.Token)

	redeem := RedeemParams{
		SignedToken: decision.Token.SignedToken,
		GuardianID:  "guardian-1",
		MinorID:     "minor-1",
		Action:      domain.ActionReadProfile,
	}
	for i := 0; i < 3; i++ {
		result := s.verifier.Redeem(ctx, redeem)
		s.Require().True(result.Allowed, "validation %d should succeed", i+1)
	}
}

func (s *VerifierSuite) TestDenialReasons() {
	ctx := context.Background()

	// No record at all.
	decision, err := s.verifier.Verify(ctx, VerifyParams{
		GuardianID: "guardian-1", MinorID: "minor-unknown", Action: domain.ActionReadProfile,
	})
	s.Require().NoError(err)
	s.Equal(domain.ReasonNoRelationship, decision.Reason)

	// Pending registration reads as inactive, not as absent.
	_, err = s.relationships.Register(ctx, relservice.RegisterParams{
		GuardianID:         "guardian-1",
		MinorID:            "minor-pending",
		AccessLevel:        domain.LevelReadOnly,
		VerificationMethod: domain.VerifySelfAttested,
	})
	s.Require().NoError(err)
	decision, err = s.verifier.Verify(ctx, VerifyParams{
		GuardianID: "guardian-1", MinorID: "minor-pending", Action: domain.ActionReadProfile,
	})
	s.Require().NoError(err)
	s.Equal(domain.ReasonInactiveRelationship, decision.Reason)

	// Suspension also reads as inactive.
	id, err := s.relationships.Register(ctx, relservice.RegisterParams{
		GuardianID:         "guardian-1",
		MinorID:            "minor-suspended",
		AccessLevel:        domain.LevelFullGuardian,
		VerificationMethod: domain.VerifyGovernmentID,
	})
	s.Require().NoError(err)
	s.Require().NoError(s.relationships.Suspend(ctx, id, "court order"))
	decision, err = s.verifier.Verify(ctx, VerifyParams{
		GuardianID: "guardian-1", MinorID: "minor-suspended", Action: domain.ActionReadProfile,
	})
	s.Require().NoError(err)
	s.Equal(domain.ReasonInactiveRelationship, decision.Reason)
}

func (s *VerifierSuite) TestExpiredRelationshipDenied() {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithFixedNow(context.Background(), base)

	expiry := base.Add(24 * time.Hour)
	_, err := s.relationships.Register(ctx, relservice.RegisterParams{
		GuardianID:         "guardian-1",
		MinorID:            "minor-1",
		AccessLevel:        domain.LevelTemporaryGuardian,
		VerificationMethod: domain.VerifyInPerson,
		ExpiresAt:          &expiry,
	})
	s.Require().NoError(err)

	decision, err := s.verifier.Verify(ctx, VerifyParams{
		GuardianID: "guardian-1", MinorID: "minor-1", Action: domain.ActionReadProfile,
	})
	s.Require().NoError(err)
	s.True(decision.Allowed)

	later := requestcontext.WithFixedNow(context.Background(), expiry.Add(time.Minute))
	decision, err = s.verifier.Verify(later, VerifyParams{
		GuardianID: "guardian-1", MinorID: "minor-1", Action: domain.ActionReadProfile,
	})
	s.Require().NoError(err)
	s.Equal(domain.ReasonExpiredRelationship, decision.Reason)
}

func (s *VerifierSuite) TestVerifyValidation() {
	ctx := context.Background()
	_, err := s.verifier.Verify(ctx, VerifyParams{MinorID: "minor-1", Action: domain.ActionReadProfile})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = s.verifier.Verify(ctx, VerifyParams{GuardianID: "guardian-1", MinorID: "minor-1", Action: "FORMAT_DISK"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

// Replayed confirmation tokens accumulate suspicion until the identifier is
// blocked outright.
func (s *VerifierSuite) TestReplayStormBlocksIdentifier() {
	ctx := context.Background()
	s.register("guardian-1", "minor-1", domain.LevelFullGuardian)

	decision, err := s.verifier.Verify(ctx, VerifyParams{
		GuardianID: "guardian-1",
		MinorID:    "minor-1",
		Action:     domain.ActionDeleteProfile,
		Identifier: testIdentifier,
	})
	s.Require().NoError(err)
	s.Require().NotNil(decision.Token)

	redeem := RedeemParams{
		SignedToken: decision.Token.SignedToken,
		GuardianID:  "guardian-1",
		MinorID:     "minor-1",
		Action:      domain.ActionDeleteProfile,
		Identifier:  testIdentifier,
	}
	s.Require().True(s.verifier.Redeem(ctx, redeem).Allowed)

	// Five replays cross the suspicion threshold.
	for i := 0; i < 5; i++ {
		result := s.verifier.Redeem(ctx, redeem)
		s.Require().False(result.Allowed)
		s.Require().Equal(domain.ReasonTokenAlreadyUsed, result.Reason)
	}

	blocked, _, err := s.limiter.IsBlocked(ctx, testIdentifier)
	s.Require().NoError(err)
	s.True(blocked)

	// The blocked identifier is refused before any relationship lookup.
	decision, err = s.verifier.Verify(ctx, VerifyParams{
		GuardianID: "guardian-1",
		MinorID:    "minor-1",
		Action:     domain.ActionReadProfile,
		Identifier: testIdentifier,
	})
	s.Require().NoError(err)
	s.Equal(domain.ReasonIPBlocked, decision.Reason)

	result := s.verifier.Redeem(ctx, redeem)
	s.False(result.Allowed)
	s.Equal(domain.ReasonIPBlocked, result.Reason)
}

func (s *VerifierSuite) TestAuditTrailOnDecision() {
	ctx := context.Background()
	s.register("guardian-1", "minor-1", domain.LevelReadOnly)

	_, err := s.verifier.Verify(ctx, VerifyParams{
		GuardianID: "guardian-1",
		MinorID:    "minor-1",
		Action:     domain.ActionDeleteProfile,
		Context:    "requested by parent over phone",
	})
	s.Require().NoError(err)

	events := s.auditStore.List()
	s.Require().NotEmpty(events)
	last := events[len(events)-1]
	s.Equal(audit.EventAccessDenied, last.EventType)
	s.Equal(domain.ReasonInsufficientPermissions.String(), last.Reason)
	s.NotNil(last.Classification)
}

// Infrastructure failures must surface as SYSTEM_ERROR denials, never grants.
func TestVerifyFailsClosed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	relationships := mocks.NewMockRelationships(ctrl)
	tokens := mocks.NewMockTokens(ctrl)
	limiter := mocks.NewMockLimiter(ctrl)
	recorder, auditStore := newTestRecorder(t)

	verifier, err := New(relationships, tokens, limiter, recorder)
	require.NoError(t, err)

	ctx := context.Background()
	params := VerifyParams{
		GuardianID: "guardian-1",
		MinorID:    "minor-1",
		Action:     domain.ActionReadProfile,
		Identifier: testIdentifier,
	}

	limiter.EXPECT().Check(gomock.Any(), testIdentifier, ratelimitmodels.ScopeMinorContext).
		Return(ratelimitmodels.Allow(10)).AnyTimes()

	relationships.EXPECT().Find(gomock.Any(), params.GuardianID, params.MinorID).
		Return(nil, dErrors.New(dErrors.CodeInternal, "store unreachable"))
	decision, err := verifier.Verify(ctx, params)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, domain.ReasonSystemError, decision.Reason)

	events := auditStore.List()
	require.NotEmpty(t, events)
	assert.Equal(t, audit.EventSystemError, events[len(events)-1].EventType)

	// Token issuance failure on a grant also denies.
	record, err := relmodelsRecord()
	require.NoError(t, err)
	relationships.EXPECT().Find(gomock.Any(), params.GuardianID, params.MinorID).
		Return(record, nil)
	tokens.EXPECT().Issue(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("token store unreachable"))

	destructive := params
	destructive.Action = domain.ActionDeleteProfile
	decision, err = verifier.Verify(ctx, destructive)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, domain.ReasonSystemError, decision.Reason)
}

func relmodelsRecord() (*relmodels.Record, error) {
	return relmodels.NewRecord("rel_1", "guardian-1", "minor-1",
		domain.LevelFullGuardian, domain.VerifyGovernmentID, "", time.Now(), nil)
}

// Rate limit outcomes pass straight through to the caller.
func TestVerifyRateLimitedPassThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	relationships := mocks.NewMockRelationships(ctrl)
	tokens := mocks.NewMockTokens(ctrl)
	limiter := mocks.NewMockLimiter(ctrl)
	recorder, _ := newTestRecorder(t)

	verifier, err := New(relationships, tokens, limiter, recorder)
	require.NoError(t, err)

	limiter.EXPECT().Check(gomock.Any(), testIdentifier, ratelimitmodels.ScopeMinorContext).
		Return(ratelimitmodels.Deny(domain.ReasonRateLimited, 12*time.Second))

	decision, err := verifier.Verify(context.Background(), VerifyParams{
		GuardianID: "guardian-1",
		MinorID:    "minor-1",
		Action:     domain.ActionReadProfile,
		Identifier: testIdentifier,
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, domain.ReasonRateLimited, decision.Reason)
	assert.Equal(t, 12*time.Second, decision.RetryAfter)
}

// Throttled redemptions keep the limiter's retry hint.
func TestRedeemRateLimitedCarriesRetryHint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	relationships := mocks.NewMockRelationships(ctrl)
	tokens := mocks.NewMockTokens(ctrl)
	limiter := mocks.NewMockLimiter(ctrl)
	recorder, _ := newTestRecorder(t)

	verifier, err := New(relationships, tokens, limiter, recorder)
	require.NoError(t, err)

	limiter.EXPECT().Check(gomock.Any(), testIdentifier, ratelimitmodels.ScopeMinorContext).
		Return(ratelimitmodels.Deny(domain.ReasonRateLimited, 45*time.Second))

	result := verifier.Redeem(context.Background(), RedeemParams{
		SignedToken: "irrelevant",
		GuardianID:  "guardian-1",
		MinorID:     "minor-1",
		Action:      domain.ActionDeleteProfile,
		Identifier:  testIdentifier,
	})
	assert.False(t, result.Allowed)
	assert.Equal(t, domain.ReasonRateLimited, result.Reason)
	assert.Equal(t, 45*time.Second, result.RetryAfter)
}
