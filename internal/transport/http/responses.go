package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	accessmodels "wardgate/internal/access/models"
	relmodels "wardgate/internal/relationship/models"
	tokenservice "wardgate/internal/token/service"
	"wardgate/pkg/domain"
	dErrors "wardgate/pkg/domain-errors"
)

type decisionResponse struct {
	Allowed           bool           `json:"allowed"`
	Reason            string         `json:"reason,omitempty"`
	AccessLevel       string         `json:"access_level,omitempty"`
	RelationshipID    string         `json:"relationship_id,omitempty"`
	PermittedActions  []string       `json:"permitted_actions,omitempty"`
	ExpiresAt         *time.Time     `json:"expires_at,omitempty"`
	RetryAfterSeconds int            `json:"retry_after_seconds,omitempty"`
	Token             *tokenResponse `json:"confirmation_token,omitempty"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toDecisionResponse(d accessmodels.Decision) decisionResponse {
	resp := decisionResponse{
		Allowed:           d.Allowed,
		Reason:            d.Reason.String(),
		AccessLevel:       d.AccessLevel.String(),
		RelationshipID:    d.RelationshipID.String(),
		RetryAfterSeconds: retrySeconds(d.RetryAfter),
	}
	if d.Allowed {
		for _, action := range domain.PermittedActions(d.AccessLevel) {
			resp.PermittedActions = append(resp.PermittedActions, action.String())
		}
	}
	if d.Token != nil {
		resp.Token = &tokenResponse{Token: d.Token.SignedToken, ExpiresAt: d.Token.ExpiresAt}
		resp.ExpiresAt = &d.Token.ExpiresAt
	}
	return resp
}

type redeemResponse struct {
	Allowed           bool   `json:"allowed"`
	Reason            string `json:"reason,omitempty"`
	AccessLevel       string `json:"access_level,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

func toRedeemResponse(result tokenservice.Result) redeemResponse {
	resp := redeemResponse{Allowed: result.Allowed, Reason: result.Reason.String()}
	if result.Token != nil {
		resp.AccessLevel = result.Token.AccessLevel.String()
	}
	return resp
}

type registerResponse struct {
	RelationshipID string `json:"relationship_id"`
}

type relationshipResponse struct {
	RelationshipID     string     `json:"relationship_id"`
	MinorID            string     `json:"minor_id"`
	AccessLevel        string     `json:"access_level"`
	Status             string     `json:"status"`
	VerificationMethod string     `json:"verification_method"`
	CreatedAt          time.Time  `json:"created_at"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
}

func toRelationshipResponses(records []*relmodels.Record) []relationshipResponse {
	out := make([]relationshipResponse, 0, len(records))
	for _, record := range records {
		out = append(out, relationshipResponse{
			RelationshipID:     record.ID.String(),
			MinorID:            record.MinorID.String(),
			AccessLevel:        record.AccessLevel.String(),
			Status:             record.Status.String(),
			VerificationMethod: record.VerificationMethod.String(),
			CreatedAt:          record.CreatedAt,
			VerifiedAt:         record.VerifiedAt,
			ExpiresAt:          record.ExpiresAt,
		})
	}
	return out
}

type rateLimitCheckResponse struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
}

type blockStatusResponse struct {
	Blocked      bool       `json:"blocked"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil && logger != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// writeThrottled maps a throttling denial to 429 with a Retry-After header.
func writeThrottled(w http.ResponseWriter, logger *slog.Logger, reason domain.DenialCode, retryAfter time.Duration) {
	if seconds := retrySeconds(retryAfter); seconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	writeJSON(w, logger, http.StatusTooManyRequests, errorResponse{Error: reason.String()})
}

// writeError maps domain error codes onto HTTP statuses. Unknown errors are
// never echoed to the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	code := dErrors.CodeInternal
	message := "internal error"

	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		code = domainErr.Code
		switch domainErr.Code {
		case dErrors.CodeInvalidInput, dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvariantViolation:
			status = http.StatusBadRequest
			message = domainErr.Message
		case dErrors.CodeNotFound:
			status = http.StatusNotFound
			message = domainErr.Message
		case dErrors.CodeConflict:
			status = http.StatusConflict
			message = domainErr.Message
		case dErrors.CodeUnauthorized:
			status = http.StatusUnauthorized
			message = domainErr.Message
		case dErrors.CodeForbidden:
			status = http.StatusForbidden
			message = domainErr.Message
		case dErrors.CodeTimeout:
			status = http.StatusGatewayTimeout
			message = "timeout"
		case dErrors.CodeUnavailable:
			status = http.StatusServiceUnavailable
			message = "service unavailable"
		}
	}

	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", "error", err)
	}
	writeJSON(w, logger, status, errorResponse{Error: string(code), Message: message})
}

func retrySeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	seconds := int(d.Round(time.Second) / time.Second)
	if seconds == 0 {
		seconds = 1
	}
	return seconds
}
