// Package device derives a human-readable device name from a User-Agent
// string for the security audit trail.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// ParseUserAgent returns "<browser> on <platform/OS>" or "Unknown Device"
// when the string is empty or unrecognizable.
func ParseUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "Unknown Device"
	}

	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	os := ua.OSInfo().Name
	if os == "" {
		os = ua.Platform()
	}

	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return os
	default:
		return "Unknown Device"
	}
}
