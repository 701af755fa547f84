// Package http exposes the trust boundary over REST. Handlers translate
// between wire types and services; no policy lives here.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	accessservice "wardgate/internal/access/service"
	"wardgate/internal/platform/clientinfo"
	ratelimitmodels "wardgate/internal/ratelimit/models"
	relservice "wardgate/internal/relationship/service"
	"wardgate/pkg/domain"
	dErrors "wardgate/pkg/domain-errors"
)

// Limiter is the rate limiter surface the REST layer consumes directly.
type Limiter interface {
	Check(ctx context.Context, identifier string, scope ratelimitmodels.Scope) ratelimitmodels.Decision
	RecordSuspicious(ctx context.Context, identifier, reason string) error
	IsBlocked(ctx context.Context, identifier string) (bool, time.Time, error)
}

// Handler holds the service handles the REST surface delegates to.
type Handler struct {
	verifier      *accessservice.Verifier
	relationships *relservice.Service
	limiter       Limiter
	logger        *slog.Logger
}

func NewHandler(verifier *accessservice.Verifier, relationships *relservice.Service, limiter Limiter, logger *slog.Logger) (*Handler, error) {
	if verifier == nil {
		return nil, errors.New("verifier is required")
	}
	if relationships == nil {
		return nil, errors.New("relationship service is required")
	}
	if limiter == nil {
		return nil, errors.New("rate limiter is required")
	}
	return &Handler{
		verifier:      verifier,
		relationships: relationships,
		limiter:       limiter,
		logger:        logger,
	}, nil
}

// Verify handles POST /v1/access/verify.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	client := clientinfo.FromContext(r.Context())
	h.noteBotTraffic(r.Context(), client)

	decision, err := h.verifier.Verify(r.Context(), accessservice.VerifyParams{
		GuardianID: domain.GuardianID(req.GuardianID),
		MinorID:    domain.MinorID(req.MinorID),
		Action:     domain.Action(req.Action),
		Identifier: client.IP,
		Context:    req.Context,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if decision.Reason == domain.ReasonRateLimited || decision.Reason == domain.ReasonIPBlocked {
		writeThrottled(w, h.logger, decision.Reason, decision.RetryAfter)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toDecisionResponse(decision))
}

// Redeem handles POST /v1/tokens/redeem.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	client := clientinfo.FromContext(r.Context())
	h.noteBotTraffic(r.Context(), client)

	result := h.verifier.Redeem(r.Context(), accessservice.RedeemParams{
		SignedToken: req.Token,
		GuardianID:  domain.GuardianID(req.GuardianID),
		MinorID:     domain.MinorID(req.MinorID),
		Action:      domain.Action(req.Action),
		Identifier:  client.IP,
	})

	if result.Reason == domain.ReasonRateLimited || result.Reason == domain.ReasonIPBlocked {
		writeThrottled(w, h.logger, result.Reason, result.RetryAfter)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toRedeemResponse(result))
}

// Register handles POST /v1/relationships.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	id, err := h.relationships.Register(r.Context(), relservice.RegisterParams{
		GuardianID:         domain.GuardianID(req.GuardianID),
		MinorID:            domain.MinorID(req.MinorID),
		AccessLevel:        domain.AccessLevel(req.AccessLevel),
		VerificationMethod: domain.VerificationMethod(req.VerificationMethod),
		LegalDocumentRef:   req.LegalDocumentRef,
		ExpiresAt:          req.ExpiresAt,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, registerResponse{RelationshipID: id.String()})
}

// List handles GET /v1/relationships?guardian_id=...
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	guardianID := r.URL.Query().Get("guardian_id")
	if guardianID == "" {
		writeError(w, h.logger, dErrors.New(dErrors.CodeInvalidInput, "guardian_id query parameter is required"))
		return
	}

	records, err := h.relationships.ListForGuardian(r.Context(), domain.GuardianID(guardianID))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toRelationshipResponses(records))
}

// Activate handles POST /v1/relationships/{id}/activate.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.relationships.Activate(r.Context(), domain.RelationshipID(id)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Suspend handles POST /v1/relationships/{id}/suspend.
func (h *Handler) Suspend(w http.ResponseWriter, r *http.Request) {
	var req suspendRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.relationships.Suspend(r.Context(), domain.RelationshipID(id), req.Reason); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RateLimitCheck handles GET /v1/ratelimit/check. It counts the caller's
// request against the general window and reports the outcome.
func (h *Handler) RateLimitCheck(w http.ResponseWriter, r *http.Request) {
	identifier := clientinfo.FromContext(r.Context()).IP
	if identifier == "" {
		writeError(w, h.logger, dErrors.New(dErrors.CodeInvalidInput, "caller identifier unavailable"))
		return
	}

	decision := h.limiter.Check(r.Context(), identifier, ratelimitmodels.ScopeGeneral)
	if !decision.Allowed {
		writeThrottled(w, h.logger, decision.Reason, decision.RetryAfter)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, rateLimitCheckResponse{
		Allowed:   true,
		Remaining: decision.Remaining,
	})
}

// noteBotTraffic feeds headless-client signals into the abuse ledger. The
// request itself still proceeds; repeated bot traffic earns a block through
// the limiter's own threshold.
func (h *Handler) noteBotTraffic(ctx context.Context, client clientinfo.Info) {
	if !client.Bot || client.IP == "" {
		return
	}
	if err := h.limiter.RecordSuspicious(ctx, client.IP, "headless_client"); err != nil && h.logger != nil {
		h.logger.ErrorContext(ctx, "failed to record bot traffic", "error", err)
	}
}

// BlockStatus handles GET /v1/ratelimit/status. It reports the caller's own
// block state; no identifier enumeration is offered.
func (h *Handler) BlockStatus(w http.ResponseWriter, r *http.Request) {
	identifier := clientinfo.FromContext(r.Context()).IP
	if identifier == "" {
		writeError(w, h.logger, dErrors.New(dErrors.CodeInvalidInput, "caller identifier unavailable"))
		return
	}

	blocked, until, err := h.limiter.IsBlocked(r.Context(), identifier)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp := blockStatusResponse{Blocked: blocked}
	if blocked {
		resp.BlockedUntil = &until
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}
