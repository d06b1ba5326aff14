package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kimhsiao/signindesk/backend/internal/config"
	"github.com/kimhsiao/signindesk/backend/internal/db"
	"github.com/kimhsiao/signindesk/backend/internal/delivery"
	apperrors "github.com/kimhsiao/signindesk/backend/internal/errors"
	"github.com/kimhsiao/signindesk/backend/internal/models"
	"github.com/kimhsiao/signindesk/backend/internal/scan"
)

// ScanHandler accepts decoded badge payloads from the shell and feeds them
// into the delivery pipeline.
type ScanHandler struct {
	repo       *db.Repository
	dispatcher *delivery.Dispatcher
	cfg        *config.Store
}

// NewScanHandler creates a new ScanHandler.
func NewScanHandler(repo *db.Repository, dispatcher *delivery.Dispatcher, cfg *config.Store) *ScanHandler {
	return &ScanHandler{repo: repo, dispatcher: dispatcher, cfg: cfg}
}

// Submit handles POST /api/scan. The payload is whatever text the shell
// decoded from the QR code; parsing never rejects it, so the response is an
// accept, not a delivery result. Delivery outcomes arrive over the WebSocket.
func (h *ScanHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Payload string `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.ErrPayloadInvalid, "invalid request body")
		return
	}
	if strings.TrimSpace(request.Payload) == "" {
		writeError(w, http.StatusBadRequest, apperrors.ErrPayloadInvalid, "payload is empty")
		return
	}

	cfg := h.cfg.Snapshot()
	rec := scan.ParsePayload(request.Payload, cfg.Event.Name)

	ev := &models.ScanEvent{
		RecordID: rec.ID,
		Name:     rec.Name,
		Event:    rec.Event,
		Raw:      rec.Raw,
	}
	if err := h.repo.CreateScanEvent(ev); err != nil {
		writeError(w, http.StatusInternalServerError, apperrors.ErrDatabase, "failed to record scan")
		return
	}

	h.dispatcher.Enqueue(rec)

	queued, inFlight := h.dispatcher.Status()
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"scan_id":   ev.ID,
		"record":    rec,
		"queued":    queued,
		"in_flight": inFlight,
	})
}
