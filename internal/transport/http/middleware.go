package httptransport

import (
	"net"
	"net/http"
	"strings"

	"tourchain/internal/platform/token"
	dErrors "tourchain/pkg/domain-errors"
)

// requireAuthority validates the bearer token and the fixed authority role
// before letting a request through to a protected handler.
func requireAuthority(tokens *token.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				writeError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := tokens.Validate(raw)
			if err != nil {
				writeError(w, err)
				return
			}
			if claims.Role != token.RoleAuthority {
				writeError(w, dErrors.New(dErrors.CodeUnauthorized, "authority role required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the socket
// peer. The guard keys its attempt budget on this value.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
