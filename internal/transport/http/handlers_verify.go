package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tourchain/internal/tourist"
	dErrors "tourchain/pkg/domain-errors"
	"tourchain/pkg/platform/middleware/requesttime"
)

// VerifyHandler serves the public, unauthenticated credential scan endpoint.
type VerifyHandler struct {
	tourists TouristService
}

func NewVerifyHandler(tourists TouristService) *VerifyHandler {
	return &VerifyHandler{tourists: tourists}
}

func (h *VerifyHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	result, err := h.tourists.VerifyByCredential(r.Context(), chi.URLParam(r, "credential"))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"success":   false,
				"verified":  false,
				"message":   "no record matches this credential",
				"timestamp": requesttime.Now(r.Context()).UTC().Format(time.RFC3339),
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"verified":  result.Status == tourist.StatusActive,
		"tourist":   result.Tourist,
		"message":   verifyMessage(result.Status),
		"timestamp": requesttime.Now(r.Context()).UTC().Format(time.RFC3339),
	})
}

func verifyMessage(status tourist.Status) string {
	switch status {
	case tourist.StatusActive:
		return "credential is valid"
	case tourist.StatusExpired:
		return "credential has expired"
	default:
		return "credential is not active"
	}
}
