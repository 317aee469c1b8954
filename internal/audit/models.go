package audit

import (
	"net"
	"strings"
	"time"
)

// Action identifies a security-relevant event class. The set mirrors what the
// authority and tourist flows need to reconstruct who did what from where.
type Action string

const (
	ActionAuthSuccess        Action = "auth_success"
	ActionAuthFailure        Action = "auth_failure"
	ActionAuthorityAutoAdded Action = "authority_auto_added"
	ActionDataAccess         Action = "data_access"
	ActionDataModification   Action = "data_modification"
	ActionCredentialExpired  Action = "credential_expired"
)

// Event is one append-only audit record. Origin is stored anonymized.
type Event struct {
	ID     string            `json:"id"`
	Action Action            `json:"action"`
	Actor  string            `json:"actor,omitempty"`
	Origin string            `json:"origin,omitempty"`
	Device string            `json:"device,omitempty"`
	At     time.Time         `json:"at"`
	Detail map[string]string `json:"detail,omitempty"`
}

// AnonymizeIP masks the host part of an address before it is stored: the last
// octet of IPv4, the interface half of IPv6.
func AnonymizeIP(ip string) string {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return ""
	}
	if v4 := parsed.To4(); v4 != nil {
		v4[3] = 0
		return v4.String()
	}
	v6 := parsed.To16()
	for i := 8; i < 16; i++ {
		v6[i] = 0
	}
	return v6.String()
}
