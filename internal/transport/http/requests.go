package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	dErrors "wardgate/pkg/domain-errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeAndValidate parses the JSON body into dst and runs struct validation.
func decodeAndValidate(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed request body")
	}
	if err := validate.Struct(dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "request validation failed")
	}
	return nil
}

type verifyRequest struct {
	GuardianID string `json:"guardian_id" validate:"required,max=128"`
	MinorID    string `json:"minor_id" validate:"required,max=128"`
	Action     string `json:"action" validate:"required,max=64"`
	Context    string `json:"context" validate:"max=4096"`
}

type registerRequest struct {
	GuardianID         string     `json:"guardian_id" validate:"required,max=128"`
	MinorID            string     `json:"minor_id" validate:"required,max=128"`
	AccessLevel        string     `json:"access_level" validate:"required,max=64"`
	VerificationMethod string     `json:"verification_method" validate:"required,max=64"`
	LegalDocumentRef   string     `json:"legal_document_ref" validate:"max=256"`
	ExpiresAt          *time.Time `json:"expires_at"`
}

type redeemRequest struct {
	Token      string `json:"token" validate:"required,max=2048"`
	GuardianID string `json:"guardian_id" validate:"required,max=128"`
	MinorID    string `json:"minor_id" validate:"required,max=128"`
	Action     string `json:"action" validate:"required,max=64"`
}

type suspendRequest struct {
	Reason string `json:"reason" validate:"required,max=512"`
}
