// Package credential mints and validates the self-describing payload embedded
// in a tourist's QR credential. The payload carries its own checksum so a
// scanner can detect tampering offline, before any ledger lookup.
package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// Version of the payload layout.
	Version = "1.0"
	// Standard names the credential family for scanners.
	Standard = "tourist-digital-credential"

	checksumHexLen = 16
)

// Payload is what gets encoded into the QR image. Timestamps are unix
// seconds, matching the ledger's representation.
type Payload struct {
	Version         string `json:"version"`
	Standard        string `json:"standard"`
	UniqueID        string `json:"uniqueId"`
	CredentialRef   string `json:"credentialRef"`
	Name            string `json:"name"`
	Nationality     string `json:"nationality"`
	IssuedAt        int64  `json:"issuedAt"`
	ExpiresAt       int64  `json:"expiresAt"`
	Issuer          string `json:"issuer"`
	CountryCode     string `json:"countryCode"`
	VerificationURL string `json:"verificationUrl"`
	GeneratedAt     int64  `json:"generatedAt"`
	Checksum        string `json:"checksum"`
}

// MintInput carries the per-record fields; issuer identity comes from the
// codec configuration.
type MintInput struct {
	UniqueID      string
	CredentialRef string
	Name          string
	Nationality   string
	IssuedAt      int64
	ExpiresAt     int64
}

// Codec stamps payloads with a fixed issuer identity.
type Codec struct {
	issuer          string
	countryCode     string
	verificationURL string
}

func NewCodec(issuer, countryCode, verificationURL string) *Codec {
	return &Codec{
		issuer:          issuer,
		countryCode:     countryCode,
		verificationURL: verificationURL,
	}
}

// Mint builds a payload and seals it with its integrity checksum.
func (c *Codec) Mint(in MintInput, now time.Time) Payload {
	p := Payload{
		Version:         Version,
		Standard:        Standard,
		UniqueID:        in.UniqueID,
		CredentialRef:   in.CredentialRef,
		Name:            in.Name,
		Nationality:     in.Nationality,
		IssuedAt:        in.IssuedAt,
		ExpiresAt:       in.ExpiresAt,
		Issuer:          c.issuer,
		CountryCode:     c.countryCode,
		VerificationURL: c.verificationURL,
		GeneratedAt:     now.Unix(),
	}
	p.Checksum = checksum(p)
	return p
}

// Validate recomputes the checksum over the integrity-bound fields. A payload
// whose id, issue time or expiry was mutated after minting fails here.
func Validate(p Payload) bool {
	return p.Checksum == checksum(p)
}

// checksum binds the fields a forger would want to change. First 16 hex
// characters of SHA-256 over "uniqueId|issuedAt|expiresAt".
func checksum(p Payload) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", p.UniqueID, p.IssuedAt, p.ExpiresAt)))
	return hex.EncodeToString(sum[:])[:checksumHexLen]
}
