package httpserver

import (
	"net/http"
	"time"
)

// New builds the HTTP server. WriteTimeout leaves room for the enrollment
// pipeline's worst case: three delivery attempts with backoff on top of
// rendering, inside the handler's own 60s request timeout.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
