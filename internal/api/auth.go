package api

import (
	"net/http"
	"strings"

	"github.com/halvard/munin/internal/session"
)

// bearerToken pulls a token from the request without reading the body:
// the Authorization header first, then the token query parameter (used
// by read-only GETs and the SSE stream, which cannot set headers from
// an EventSource).
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// sessionFrom authenticates the request. bodyToken is the token field
// of an already-decoded request body, used as a fallback for clients
// that send credentials in mutating payloads; the header form wins when
// both are present.
func (h *Handler) sessionFrom(r *http.Request, bodyToken string) (session.Session, error) {
	token := bearerToken(r)
	if token == "" {
		token = bodyToken
	}
	return h.codec.Verify(token)
}
