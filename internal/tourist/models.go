package tourist

import (
	"time"

	"tourchain/internal/ledger"
)

// Status is derived from the ledger record at read time, never stored.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusExpired  Status = "EXPIRED"
)

// Record is the application view of a registry entry. Timestamps are unix
// seconds as the ledger stores them; zero means unset.
type Record struct {
	UniqueID         string `json:"uniqueId"`
	Name             string `json:"name"`
	Nationality      string `json:"nationality"`
	EncryptedDataRef string `json:"-"`
	CredentialRef    string `json:"credentialRef,omitempty"`
	Verified         bool   `json:"verified"`
	Active           bool   `json:"active"`
	RegisteredAt     int64  `json:"registeredAt"`
	VerifiedAt       int64  `json:"verifiedAt,omitempty"`
	ExpiresAt        int64  `json:"expiresAt,omitempty"`
	Status           Status `json:"status"`
}

// Document is one append-only entry of a tourist's document list.
type Document struct {
	Type       string `json:"type"`
	StorageRef string `json:"storageRef"`
	UploadedAt int64  `json:"uploadedAt"`
	Verified   bool   `json:"verified"`
}

// DeriveStatus applies the status rules: expiry wins over everything, then
// the active flag.
func DeriveStatus(info ledger.TouristInfo, now time.Time) Status {
	if info.ExpiresAt > 0 && now.Unix() > info.ExpiresAt {
		return StatusExpired
	}
	if info.Active {
		return StatusActive
	}
	return StatusInactive
}

func recordFrom(uniqueID string, info ledger.TouristInfo, now time.Time) Record {
	return Record{
		UniqueID:         uniqueID,
		Name:             info.Name,
		Nationality:      info.Nationality,
		EncryptedDataRef: info.EncryptedDataRef,
		CredentialRef:    info.CredentialRef,
		Verified:         info.Verified,
		Active:           info.Active,
		RegisteredAt:     info.RegisteredAt,
		VerifiedAt:       info.VerifiedAt,
		ExpiresAt:        info.ExpiresAt,
		Status:           DeriveStatus(info, now),
	}
}

func documentsFrom(infos []ledger.DocumentInfo) []Document {
	out := make([]Document, 0, len(infos))
	for _, d := range infos {
		out = append(out, Document{
			Type:       d.Type,
			StorageRef: d.StorageRef,
			UploadedAt: d.UploadedAt,
			Verified:   d.Verified,
		})
	}
	return out
}
