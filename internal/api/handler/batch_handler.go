package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/notifyhub/chatbridge/internal/api/middleware"
	"github.com/notifyhub/chatbridge/internal/domain"
	"github.com/notifyhub/chatbridge/internal/service"
)

type batchRequest struct {
	Notifications []domain.Notification `json:"notifications"`
}

// BatchHandler accepts batches of pushed notifications.
type BatchHandler struct {
	svc    *service.IntakeService
	logger *zap.Logger
}

func NewBatchHandler(svc *service.IntakeService, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{svc: svc, logger: logger}
}

// SubmitBatch handles POST /api/v1/notifications/batch
//
// Accepts {"notifications": [...]} with up to 1000 items, queued in
// priority order.
func (h *BatchHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	receipt, err := h.svc.SubmitBatch(r.Context(), req.Notifications)
	if err != nil {
		h.logger.Warn("submit batch failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, receipt)
}
