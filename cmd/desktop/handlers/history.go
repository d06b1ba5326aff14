package handlers

import (
	"net/http"
	"strconv"

	"github.com/kimhsiao/signindesk/backend/internal/db"
	apperrors "github.com/kimhsiao/signindesk/backend/internal/errors"
)

// HistoryHandler serves the local scan history.
type HistoryHandler struct {
	repo *db.Repository
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(repo *db.Repository) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

// List handles GET /api/history, newest first.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 500 {
		limit = 50
	}

	events, err := h.repo.ListRecent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, apperrors.ErrDatabase, "failed to list scans")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}
