package httpserver

import (
	"net/http"
	"time"
)

// New builds an http.Server with sane timeouts so a stalled ledger call can
// never pin a connection forever.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
