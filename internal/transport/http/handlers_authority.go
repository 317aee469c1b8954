package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tourchain/internal/authority"
	"tourchain/internal/ledger"
	"tourchain/internal/tourist"
	dErrors "tourchain/pkg/domain-errors"
)

// AuthorityService is the gate surface the transport needs.
type AuthorityService interface {
	Login(ctx context.Context, req authority.LoginRequest) (authority.LoginResult, error)
	Status(ctx context.Context) (authority.StatusResult, error)
	CheckAuthority(ctx context.Context, addr ledger.Address) (bool, error)
}

type AuthorityHandler struct {
	gate     AuthorityService
	tourists TouristService
}

func NewAuthorityHandler(gate AuthorityService, tourists TouristService) *AuthorityHandler {
	return &AuthorityHandler{gate: gate, tourists: tourists}
}

type loginBody struct {
	WalletAddress string `json:"walletAddress"`
	Passphrase    string `json:"passphrase"`
}

func (h *AuthorityHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	result, err := h.gate.Login(r.Context(), authority.LoginRequest{
		Address:    ledger.Address(body.WalletAddress),
		Passphrase: body.Passphrase,
		Origin:     clientIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		var denied *authority.DeniedError
		if errors.As(err, &denied) {
			writeJSON(w, dErrors.ToHTTPStatus(dErrors.CodeOf(err)), map[string]any{
				"success":           false,
				"error":             string(dErrors.CodeOf(err)),
				"message":           "invalid credentials",
				"remainingAttempts": denied.Remaining,
				"banned":            denied.Banned,
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"token":     result.Token,
		"expiresIn": int64(result.ExpiresIn / time.Second),
		"user": map[string]any{
			"walletAddress": result.Address,
			"role":          result.Role,
		},
	})
}

func (h *AuthorityHandler) handleParentWalletStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.gate.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"isConnected":   status.IsConnected,
		"parentAddress": status.ParentAddress,
	})
}

func (h *AuthorityHandler) handleCheckAuthority(w http.ResponseWriter, r *http.Request) {
	var body struct {
		WalletAddress string `json:"walletAddress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	isAuthority, err := h.gate.CheckAuthority(r.Context(), ledger.Address(body.WalletAddress))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"isAuthority": isAuthority,
	})
}

func (h *AuthorityHandler) handlePending(w http.ResponseWriter, r *http.Request) {
	list, err := h.tourists.ListPending(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"tourists": list.Tourists,
		"total":    list.Total,
	})
}

type verifyBody struct {
	UniqueID        string `json:"uniqueId"`
	Approved        bool   `json:"approved"`
	ValidityDays    int    `json:"validityDays"`
	RejectionReason string `json:"rejectionReason"`
}

func (h *AuthorityHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var body verifyBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	result, err := h.tourists.Decide(r.Context(), tourist.DecideRequest{
		UniqueID:        body.UniqueID,
		Approved:        body.Approved,
		ValidityDays:    body.ValidityDays,
		RejectionReason: body.RejectionReason,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if !result.Approved {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"rejection": true,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"transactionHash": result.TxHash,
		"qrCode":          result.QRCode,
		"validityDays":    result.ValidityDays,
		"expirationDate":  result.ExpirationDate.Format(time.RFC3339),
	})
}

func (h *AuthorityHandler) handleCheckTourist(w http.ResponseWriter, r *http.Request) {
	record, err := h.tourists.Info(r.Context(), chi.URLParam(r, "uniqueId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tourist": record,
	})
}

func (h *AuthorityHandler) handleGenerateCard(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UniqueID string `json:"uniqueId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	pdf, err := h.tourists.Card(r.Context(), body.UniqueID)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
