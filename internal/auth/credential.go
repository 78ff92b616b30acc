package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// CredentialVerifier checks a presented API credential against a stored
// bcrypt hash. Token issuance is gated on it; per-identity authorization
// happens at the protocol layer.
type CredentialVerifier struct {
	hash []byte
}

// NewCredentialVerifier wraps a bcrypt hash produced by HashCredential.
func NewCredentialVerifier(hash string) *CredentialVerifier {
	return &CredentialVerifier{hash: []byte(hash)}
}

// Verify compares the presented credential with the stored hash.
func (v *CredentialVerifier) Verify(credential string) error {
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(credential)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashCredential produces the bcrypt hash a deployment stores in its config.
func HashCredential(credential string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
