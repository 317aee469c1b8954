package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tourchain/internal/tourist"
	dErrors "tourchain/pkg/domain-errors"
)

// Uploaded documents are image or PDF scans; anything bigger than this is a
// client mistake.
const maxDocumentBytes = 10 << 20

// TouristService is the lifecycle surface the transport needs.
type TouristService interface {
	Register(ctx context.Context, req tourist.RegisterRequest) (tourist.RegisterResult, error)
	UploadDocument(ctx context.Context, uniqueID, docType string, content []byte) (tourist.UploadResult, error)
	Info(ctx context.Context, uniqueID string) (tourist.Record, error)
	Documents(ctx context.Context, uniqueID string) ([]tourist.Document, error)
	ListPending(ctx context.Context) (tourist.PendingList, error)
	Decide(ctx context.Context, req tourist.DecideRequest) (tourist.DecideResult, error)
	VerifyByCredential(ctx context.Context, credentialOrID string) (tourist.VerifyResult, error)
	Card(ctx context.Context, uniqueID string) ([]byte, error)
	QRCode(ctx context.Context, uniqueID string) (string, error)
}

type TouristHandler struct {
	tourists TouristService
}

func NewTouristHandler(tourists TouristService) *TouristHandler {
	return &TouristHandler{tourists: tourists}
}

func (h *TouristHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req tourist.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	result, err := h.tourists.Register(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"uniqueId":        result.UniqueID,
		"transactionHash": result.TxHash,
		"walletAddress":   result.WalletAddress,
	})
}

func (h *TouristHandler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxDocumentBytes); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid multipart form"))
		return
	}
	uniqueID := r.FormValue("uniqueId")
	docType := r.FormValue("documentType")

	file, _, err := r.FormFile("document")
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "document file is required"))
		return
	}
	defer file.Close()

	// Read one byte past the limit so an oversized scan is rejected rather
	// than silently truncated before its reference lands on the ledger.
	content, err := io.ReadAll(io.LimitReader(file, maxDocumentBytes+1))
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "read document"))
		return
	}
	if len(content) > maxDocumentBytes {
		writeError(w, dErrors.Newf(dErrors.CodeInvalidInput, "document exceeds the %d byte limit", maxDocumentBytes))
		return
	}

	result, err := h.tourists.UploadDocument(r.Context(), uniqueID, docType, content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"storageRef":      result.StorageRef,
		"transactionHash": result.TxHash,
	})
}

func (h *TouristHandler) handleInfo(w http.ResponseWriter, r *http.Request) {
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

func (h *TouristHandler) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.tourists.Documents(r.Context(), chi.URLParam(r, "uniqueId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"documents": docs,
	})
}

func (h *TouristHandler) handleQRCode(w http.ResponseWriter, r *http.Request) {
	url, err := h.tourists.QRCode(r.Context(), chi.URLParam(r, "uniqueId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"qrCode":  url,
	})
}

func (h *TouristHandler) handleCard(w http.ResponseWriter, r *http.Request) {
	pdf, err := h.tourists.Card(r.Context(), chi.URLParam(r, "uniqueId"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
