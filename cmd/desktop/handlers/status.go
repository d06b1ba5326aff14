package handlers

import (
	"net/http"

	"github.com/kimhsiao/signindesk/backend/internal/config"
	"github.com/kimhsiao/signindesk/backend/internal/db"
	"github.com/kimhsiao/signindesk/backend/internal/delivery"
	apperrors "github.com/kimhsiao/signindesk/backend/internal/errors"
	"github.com/kimhsiao/signindesk/backend/internal/offline"
)

// StatusHandler reports the live state of the delivery pipeline.
type StatusHandler struct {
	dispatcher *delivery.Dispatcher
	reconciler *delivery.Reconciler
	store      *offline.Store
	repo       *db.Repository
	cfg        *config.Store
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(dispatcher *delivery.Dispatcher, reconciler *delivery.Reconciler,
	store *offline.Store, repo *db.Repository, cfg *config.Store) *StatusHandler {
	return &StatusHandler{
		dispatcher: dispatcher,
		reconciler: reconciler,
		store:      store,
		repo:       repo,
		cfg:        cfg,
	}
}

// Status handles GET /api/status.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	queued, inFlight := h.dispatcher.Status()

	pending, err := h.store.Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, apperrors.ErrOfflineStoreFailed, "failed to count offline records")
		return
	}

	counts, err := h.repo.CountByOutcome()
	if err != nil {
		writeError(w, http.StatusInternalServerError, apperrors.ErrDatabase, "failed to count scans")
		return
	}

	cfg := h.cfg.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"event":             cfg.Event.Name,
		"queued":            queued,
		"in_flight":         inFlight,
		"pending_offline":   pending,
		"flush_in_progress": h.reconciler.InProgress(),
		"outcomes":          counts,
		"spreadsheet_url":   config.SpreadsheetURL(cfg.Google.SpreadsheetID),
	})
}
