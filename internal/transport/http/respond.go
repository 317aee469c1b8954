package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "tourchain/pkg/domain-errors"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError translates a domain error to the JSON error envelope. Unknown
// errors collapse to 500 without leaking internals.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	message := "internal error"
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}

	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   string(code),
		"message": message,
	})
}
