// Package httptransport is the thin HTTP layer. Handlers delegate to domain
// services; no business logic lives here.
package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tourchain/internal/platform/token"
	"tourchain/pkg/platform/middleware/requesttime"
)

// HealthChecker reports readiness of an attached backend.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type RouterConfig struct {
	Gate     AuthorityService
	Tourists TouristService
	Tokens   *token.Service
	Health   []HealthChecker
}

func NewRouter(cfg RouterConfig) http.Handler {
	authorityHandler := NewAuthorityHandler(cfg.Gate, cfg.Tourists)
	touristHandler := NewTouristHandler(cfg.Tourists)
	verifyHandler := NewVerifyHandler(cfg.Tourists)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requesttime.Middleware)

	r.Route("/api/authority", func(r chi.Router) {
		r.Post("/login", authorityHandler.handleLogin)
		r.Get("/parent-wallet-status", authorityHandler.handleParentWalletStatus)

		r.Group(func(r chi.Router) {
			r.Use(requireAuthority(cfg.Tokens))
			r.Post("/check-authority", authorityHandler.handleCheckAuthority)
			r.Get("/pending", authorityHandler.handlePending)
			r.Post("/verify", authorityHandler.handleVerify)
			r.Get("/check/{uniqueId}", authorityHandler.handleCheckTourist)
			r.Post("/generate-pvc-card", authorityHandler.handleGenerateCard)
		})
	})

	r.Route("/api/tourist", func(r chi.Router) {
		r.Post("/register", touristHandler.handleRegister)
		r.Post("/upload-document", touristHandler.handleUploadDocument)
		r.Get("/info/{uniqueId}", touristHandler.handleInfo)
		r.Get("/documents/{uniqueId}", touristHandler.handleDocuments)
		r.Get("/qrcode/{uniqueId}", touristHandler.handleQRCode)
		r.Get("/pvc-card/{uniqueId}", touristHandler.handleCard)
	})

	r.Get("/api/verify/{credential}", verifyHandler.handleVerify)

	r.Get("/healthz", handleHealthz(cfg.Health))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func handleHealthz(checkers []HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, c := range checkers {
			if c == nil {
				continue
			}
			if err := c.Health(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{
					"status": "degraded",
					"error":  err.Error(),
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}
}
