package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/halvard/munin/internal/chat"
	"github.com/halvard/munin/internal/entryservice"
	"github.com/halvard/munin/internal/events"
	"github.com/halvard/munin/internal/session"
	"github.com/halvard/munin/internal/userdir"
)

// NewRouter creates a chi router with all API routes mounted.
// Authentication is per-handler: tokens arrive in the Authorization
// header, the token query parameter, or mutating request bodies.
func NewRouter(svc *entryservice.Service, users *userdir.Directory, codec *session.Codec, relay *chat.Relay, broker *events.Broker) chi.Router {
	h := NewHandler(svc, users, codec, relay, broker)

	r := chi.NewRouter()

	// Authentication.
	r.Post("/auth/login", h.Login)
	r.Post("/auth/verify", h.VerifyToken)

	// Entry CRUD. The collection-level verbs mirror the client's
	// single-resource view of its notes.
	r.Get("/content", h.ListContent)
	r.Post("/content", h.CreateContent)
	r.Put("/content", h.UpdateContent)
	r.Delete("/content", h.DeleteContent)

	// Chat side feature.
	r.Get("/chat/enabled", h.ChatEnabled)
	r.Post("/chat", h.Chat)

	// SSE change stream.
	r.Get("/events", h.Events)

	return r
}
