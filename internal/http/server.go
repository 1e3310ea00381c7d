// README: HTTP server construction with the configured timeouts.
package http

import (
	"net/http"
	"time"

	"campusride/internal/config"
)

// NewServer wraps handler in an http.Server. Long-lived feed streams clear
// their own write deadline.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
}
