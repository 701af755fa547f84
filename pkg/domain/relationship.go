package domain

// RelationshipStatus is the lifecycle state of a guardian-minor relationship.
//
// Lifecycle: PENDING or ACTIVE at creation, ACTIVE on verification, then
// EXPIRED (lazily, on read past the expiry time) or SUSPENDED
// (administrative). EXPIRED and SUSPENDED are terminal except via
// re-registration.
type RelationshipStatus string

const (
	StatusPending   RelationshipStatus = "PENDING"
	StatusActive    RelationshipStatus = "ACTIVE"
	StatusInactive  RelationshipStatus = "INACTIVE"
	StatusExpired   RelationshipStatus = "EXPIRED"
	StatusSuspended RelationshipStatus = "SUSPENDED"
)

func (s RelationshipStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusInactive, StatusExpired, StatusSuspended:
		return true
	}
	return false
}

func (s RelationshipStatus) String() string { return string(s) }

// VerificationMethod is the channel through which a guardian relationship was
// established. Trusted channels yield an ACTIVE relationship at registration;
// the rest start PENDING until verified out of band.
type VerificationMethod string

const (
	VerifyGovernmentID  VerificationMethod = "GOVERNMENT_ID"
	VerifyLegalDocument VerificationMethod = "LEGAL_DOCUMENT"
	VerifyInPerson      VerificationMethod = "IN_PERSON"
	VerifyEmail         VerificationMethod = "EMAIL"
	VerifySelfAttested  VerificationMethod = "SELF_ATTESTED"
)

func (m VerificationMethod) IsValid() bool {
	switch m {
	case VerifyGovernmentID, VerifyLegalDocument, VerifyInPerson, VerifyEmail, VerifySelfAttested:
		return true
	}
	return false
}

// IsTrusted reports whether the channel is strong enough to activate the
// relationship immediately.
func (m VerificationMethod) IsTrusted() bool {
	switch m {
	case VerifyGovernmentID, VerifyLegalDocument, VerifyInPerson:
		return true
	}
	return false
}

func (m VerificationMethod) String() string { return string(m) }
