package handler

import (
	"net/http"

	"github.com/notifyhub/chatbridge/internal/chat"
)

// SessionReporter exposes the chat session state.
type SessionReporter interface {
	State() chat.State
}

// HealthHandler serves the liveness probe endpoint. A disconnected chat
// session is reported but does not fail the probe: the next send reconnects.
type HealthHandler struct {
	session SessionReporter
}

func NewHealthHandler(session SessionReporter) *HealthHandler {
	return &HealthHandler{session: session}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":       "ok",
		"chat_session": h.session.State().String(),
	})
}
