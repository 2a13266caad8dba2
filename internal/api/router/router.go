// Package router assembles the HTTP surface: the WhatsApp webhook and the
// Prometheus metrics endpoint.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/medinow/scheduling-assistant/internal/messaging"
)

// Config holds router configuration.
type Config struct {
	MessagingHandler *messaging.Handler
	MetricsHandler   http.Handler
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/messaging", func(r chi.Router) {
		r.Post("/whatsapp/webhook", cfg.MessagingHandler.WhatsAppWebhook)
	})

	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	return r
}
