package handler

import (
	"net/http"

	"github.com/notifyhub/chatbridge/internal/queue"
)

// StatusHandler serves a JSON snapshot of the bridge: kill-switch, chat
// session and intake queue depth. Raw Prometheus metrics are at /metrics.
type StatusHandler struct {
	enabled   bool
	session   SessionReporter
	q         *queue.PriorityQueue
	templates func() []string
}

func NewStatusHandler(enabled bool, session SessionReporter, q *queue.PriorityQueue, templates func() []string) *StatusHandler {
	return &StatusHandler{enabled: enabled, session: session, q: q, templates: templates}
}

// GetStatus handles GET /api/v1/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	high, normal, low := h.q.Depths()
	body := map[string]any{
		"enabled":      h.enabled,
		"chat_session": h.session.State().String(),
		"queue_depth": map[string]int{
			"high":   high,
			"normal": normal,
			"low":    low,
			"total":  high + normal + low,
		},
	}
	if h.templates != nil {
		body["templates"] = h.templates()
	}
	respondJSON(w, http.StatusOK, body)
}
