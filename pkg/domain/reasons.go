package domain

// DenialCode is a stable, machine-readable reason attached to every denied
// result. These are part of the external contract and must not be renamed.
type DenialCode string

const (
	ReasonNoRelationship          DenialCode = "NO_RELATIONSHIP"
	ReasonInactiveRelationship    DenialCode = "INACTIVE_RELATIONSHIP"
	ReasonExpiredRelationship     DenialCode = "EXPIRED_RELATIONSHIP"
	ReasonInsufficientPermissions DenialCode = "INSUFFICIENT_PERMISSIONS"
	ReasonSystemError             DenialCode = "SYSTEM_ERROR"
	ReasonTokenExpired            DenialCode = "TOKEN_EXPIRED"
	ReasonTokenMismatch           DenialCode = "TOKEN_MISMATCH"
	ReasonTokenAlreadyUsed        DenialCode = "TOKEN_ALREADY_USED"
	ReasonRateLimited             DenialCode = "RATE_LIMITED"
	ReasonIPBlocked               DenialCode = "IP_BLOCKED"
)

func (c DenialCode) String() string { return string(c) }

// IsPolicyDenial distinguishes expected policy outcomes from integrity and
// infrastructure failures; only the latter two alert.
func (c DenialCode) IsPolicyDenial() bool {
	switch c {
	case ReasonNoRelationship, ReasonInactiveRelationship, ReasonExpiredRelationship,
		ReasonInsufficientPermissions, ReasonRateLimited:
		return true
	}
	return false
}

// IsIntegrityFailure marks possible replay attacks (token reuse or mismatch).
func (c DenialCode) IsIntegrityFailure() bool {
	return c == ReasonTokenMismatch || c == ReasonTokenAlreadyUsed
}
