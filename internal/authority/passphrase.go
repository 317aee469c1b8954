package authority

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"

	dErrors "tourchain/pkg/domain-errors"
)

// PassphraseVerifier checks the shared authority passphrase. The interface
// exists so the comparison scheme can harden without touching the login flow.
type PassphraseVerifier interface {
	Verify(passphrase string) error
}

// BcryptVerifier compares against a stored bcrypt hash. The production
// verifier.
type BcryptVerifier struct {
	hash []byte
}

func NewBcryptVerifier(hash string) *BcryptVerifier {
	return &BcryptVerifier{hash: []byte(hash)}
}

func (v *BcryptVerifier) Verify(passphrase string) error {
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(passphrase)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid passphrase")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "verify passphrase")
	}
	return nil
}

// StaticVerifier compares against a fixed plaintext secret in constant time.
// Development fallback only.
type StaticVerifier struct {
	secret string
}

func NewStaticVerifier(secret string) *StaticVerifier {
	return &StaticVerifier{secret: secret}
}

func (v *StaticVerifier) Verify(passphrase string) error {
	if subtle.ConstantTimeCompare([]byte(v.secret), []byte(passphrase)) != 1 {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid passphrase")
	}
	return nil
}
