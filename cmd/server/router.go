package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/costaleads/lead-relay/internal/config"
	"github.com/costaleads/lead-relay/internal/handler"
	"github.com/costaleads/lead-relay/internal/middleware"
)

func setupRouter(h *handler.Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Provider webhooks authenticate with their own secret, never the
	// browser PIN.
	r.Route("/webhook", func(r chi.Router) {
		r.Post("/missed-call", h.MissedCallWebhook)
		r.Post("/sms", h.InboundSMSWebhook)
		r.Post("/call", h.InboundCallWebhook)
	})

	r.Get("/health", h.HealthCheck)

	// Everything the browser client calls sits behind the PIN.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Auth.PIN))

		r.Get("/messages", h.GetMessages)
		r.Post("/messages", h.SendMessage)
		r.Get("/calls", h.GetCalls)
		r.Post("/call", h.InitiateCall)
		r.Get("/conversations", h.ListConversations)
		r.Get("/push/vapid-key", h.GetVAPIDKey)
		r.Post("/push/subscribe", h.Subscribe)
	})

	r.NotFound(h.NotFound)

	return r
}
