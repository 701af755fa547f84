package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	dErrors "wardgate/pkg/domain-errors"
)

// Hasher produces the irreversible digests stored in audit entries. Two
// independent keys are derived from one configured secret so actor hashes and
// content hashes cannot be cross-correlated.
type Hasher struct {
	actorKey   []byte
	contentKey []byte
}

// NewHasher derives hashing keys from the secret via HKDF-SHA256.
func NewHasher(secret string) (*Hasher, error) {
	if secret == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "hash secret is required")
	}

	actorKey, err := deriveKey(secret, "wardgate/actor-hash/v1")
	if err != nil {
		return nil, err
	}
	contentKey, err := deriveKey(secret, "wardgate/content-hash/v1")
	if err != nil {
		return nil, err
	}
	return &Hasher{actorKey: actorKey, contentKey: contentKey}, nil
}

func deriveKey(secret, info string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", info, err)
	}
	return key, nil
}

// HashActor pseudonymizes a guardian or minor identifier for audit storage.
func (h *Hasher) HashActor(id string) string {
	return hexHMAC(h.actorKey, id)
}

// HashContent digests request content for classification metadata. The digest
// is the only trace of the content that ever reaches storage.
func (h *Hasher) HashContent(text string) string {
	return hexHMAC(h.contentKey, text)
}

func hexHMAC(key []byte, value string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
