package handlers

import (
	"net/http"

	"github.com/kimhsiao/signindesk/backend/internal/delivery"
	apperrors "github.com/kimhsiao/signindesk/backend/internal/errors"
)

// FlushHandler triggers a reconciliation pass over the offline store.
type FlushHandler struct {
	reconciler *delivery.Reconciler
	hub        Broadcaster
}

// NewFlushHandler creates a new FlushHandler.
func NewFlushHandler(reconciler *delivery.Reconciler, hub Broadcaster) *FlushHandler {
	return &FlushHandler{reconciler: reconciler, hub: hub}
}

// Flush handles POST /api/flush. The pass runs synchronously; a second
// request while one is running is rejected with 409 rather than queued.
func (h *FlushHandler) Flush(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconciler.Flush(r.Context())
	if err != nil {
		if apperrors.Is(err, apperrors.ErrFlushInProgress) {
			writeAppError(w, http.StatusConflict, err)
			return
		}
		h.hub.Broadcast(EventFlushFailed, map[string]interface{}{
			"code":  string(apperrors.CodeOf(err)),
			"error": err.Error(),
		})
		writeAppError(w, http.StatusBadGateway, err)
		return
	}

	h.hub.Broadcast(EventFlushCompleted, map[string]interface{}{
		"succeeded": result.Succeeded,
		"total":     result.Total,
		"remaining": result.Total - result.Succeeded,
	})
	writeJSON(w, http.StatusOK, result)
}
