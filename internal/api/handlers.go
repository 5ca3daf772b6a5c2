// Package api implements the Munin REST API using chi.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/halvard/munin/internal/apperr"
	"github.com/halvard/munin/internal/chat"
	"github.com/halvard/munin/internal/entryservice"
	"github.com/halvard/munin/internal/events"
	"github.com/halvard/munin/internal/models"
	"github.com/halvard/munin/internal/session"
	"github.com/halvard/munin/internal/userdir"
)

// maxBodyBytes bounds mutating request bodies: five 5 MiB attachments
// base64-encoded, plus text fields and slack.
const maxBodyBytes = 40 << 20

// Handler holds API route handlers.
type Handler struct {
	svc    *entryservice.Service
	users  *userdir.Directory
	codec  *session.Codec
	relay  *chat.Relay
	broker *events.Broker
}

// NewHandler creates a new Handler. relay and broker may be nil; the
// corresponding routes then report the feature as unavailable.
func NewHandler(svc *entryservice.Service, users *userdir.Directory, codec *session.Codec, relay *chat.Relay, broker *events.Broker) *Handler {
	return &Handler{svc: svc, users: users, codec: codec, relay: relay, broker: broker}
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("username and password are required"))
		return
	}
	user, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid credentials"))
		return
	}
	token, err := h.codec.Issue(user)
	if err != nil {
		slog.Error("issue token failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Token:   token,
		User:    toUserPayload(user.ID, user.Username, user.Name, user.Role),
	})
}

// VerifyToken handles POST /auth/verify.
func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	sess, err := h.sessionFrom(r, req.Token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid or expired token"))
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{
		Success: true,
		User:    toUserPayload(sess.UserID, sess.Username, sess.Name, sess.Role),
	})
}

// ListContent handles GET /content.
func (h *Handler) ListContent(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessionFrom(r, "")
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid or expired token"))
		return
	}
	entries, err := h.svc.List(r.Context(), sess.UserID)
	if err != nil {
		slog.Error("list entries failed", slog.String("user", sess.UserID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	resp := ContentResponse{
		Success:  true,
		Entries:  nonNilEntries(entries),
		Count:    len(entries),
		Storage:  h.svc.StorageName(),
		IsGlobal: h.svc.IsGlobal(),
	}
	last, err := h.svc.LastModified(r.Context(), sess.UserID)
	switch {
	case err != nil:
		// The listing is still useful without the field, but a failing
		// backend must not be invisible.
		slog.Error("last modified failed", slog.String("user", sess.UserID), slog.String("error", err.Error()))
	case !last.IsZero():
		resp.LastModified = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateContent handles POST /content.
func (h *Handler) CreateContent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	sess, err := h.sessionFrom(r, req.Token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid or expired token"))
		return
	}
	entry, err := h.svc.Create(r.Context(), sess.UserID, models.Draft{
		Title:       req.Title,
		Content:     req.Content,
		Attachments: toAttachments(req.Attachments),
	})
	if err != nil {
		h.writeEntryError(w, "create entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, EntryResponse{Success: true, Entry: entry})
}

// UpdateContent handles PUT /content.
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	sess, err := h.sessionFrom(r, req.Token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid or expired token"))
		return
	}
	entry, err := h.svc.Update(r.Context(), sess.UserID, req.ID, models.Draft{
		Title:       req.Title,
		Content:     req.Content,
		Attachments: toAttachments(req.Attachments),
	})
	if err != nil {
		h.writeEntryError(w, "update entry", err)
		return
	}
	writeJSON(w, http.StatusOK, EntryResponse{Success: true, Entry: entry})
}

// DeleteContent handles DELETE /content.
func (h *Handler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	var req DeleteEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	sess, err := h.sessionFrom(r, req.Token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid or expired token"))
		return
	}
	if err := h.svc.Delete(r.Context(), sess.UserID, req.ID); err != nil {
		h.writeEntryError(w, "delete entry", err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// ChatEnabled handles GET /chat/enabled. Unauthenticated feature probe.
func (h *Handler) ChatEnabled(w http.ResponseWriter, _ *http.Request) {
	enabled := h.relay != nil && h.relay.Enabled()
	msg := "Chat assistant is not configured on this server."
	if h.relay != nil {
		msg = h.relay.StatusMessage()
	}
	writeJSON(w, http.StatusOK, ChatEnabledResponse{Enabled: enabled, Message: msg})
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if _, err := h.sessionFrom(r, req.Token); err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid or expired token"))
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("message is required"))
		return
	}
	if h.relay == nil || !h.relay.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("chat is not available"))
		return
	}
	reply, err := h.relay.Complete(r.Context(), req.Message, req.History)
	if err != nil {
		if errors.Is(err, chat.ErrDisabled) {
			writeJSON(w, http.StatusServiceUnavailable, errorBody("chat is not available"))
			return
		}
		slog.Error("chat relay failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Success: true, Reply: reply})
}

// Events handles GET /events: an SSE stream of the user's entry
// changes. The token arrives as a query parameter because EventSource
// cannot set headers.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	if h.broker == nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	sess, err := h.sessionFrom(r, "")
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid or expired token"))
		return
	}
	h.broker.Stream(w, r, h.svc.Scope(sess.UserID))
}

// writeEntryError maps service errors to HTTP responses. Ownership
// mismatches surface as the same 404 as missing ids.
func (h *Handler) writeEntryError(w http.ResponseWriter, op string, err error) {
	if msg, ok := apperr.IsValidation(err); ok {
		writeJSON(w, http.StatusBadRequest, errorBody(msg))
		return
	}
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	slog.Error(op+" failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

func nonNilEntries(entries []models.Entry) []models.Entry {
	if entries == nil {
		return []models.Entry{}
	}
	return entries
}
