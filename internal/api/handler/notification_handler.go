package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/notifyhub/chatbridge/internal/api/middleware"
	"github.com/notifyhub/chatbridge/internal/domain"
	"github.com/notifyhub/chatbridge/internal/service"
)

// NotificationHandler accepts single pushed notifications.
type NotificationHandler struct {
	svc    *service.IntakeService
	logger *zap.Logger
}

func NewNotificationHandler(svc *service.IntakeService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

// Submit handles POST /api/v1/notifications
//
// The body is a notification in the messages-service wire format. It is
// queued for the next poll tick; 202 means accepted, not delivered.
func (h *NotificationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var n domain.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	receipt, err := h.svc.Submit(r.Context(), n)
	if err != nil {
		h.logger.Warn("submit notification failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, receipt)
}
