package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kimhsiao/signindesk/backend/internal/config"
	apperrors "github.com/kimhsiao/signindesk/backend/internal/errors"
	"github.com/kimhsiao/signindesk/backend/internal/logging"
	"github.com/kimhsiao/signindesk/backend/internal/scan"
)

// AttendeesHandler loads attendee rosters and exports the roster template.
// Badge generation itself (QR rendering) lives in the shell; the backend
// supplies the payload text each badge encodes.
type AttendeesHandler struct {
	cfg *config.Store
}

// NewAttendeesHandler creates a new AttendeesHandler.
func NewAttendeesHandler(cfg *config.Store) *AttendeesHandler {
	return &AttendeesHandler{cfg: cfg}
}

// Load handles POST /api/attendees/load. Reads the roster CSV at the given
// path and returns each attendee with the badge payload to encode.
func (h *AttendeesHandler) Load(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Path == "" {
		writeError(w, http.StatusBadRequest, apperrors.ErrInvalid, "path is required")
		return
	}

	attendees, err := scan.LoadAttendees(request.Path)
	if err != nil {
		writeAppError(w, http.StatusBadRequest, err)
		return
	}

	cfg := h.cfg.Snapshot()

	type entry struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Payload string `json:"payload"`
	}
	entries := make([]entry, 0, len(attendees))
	for _, a := range attendees {
		rec := a.Record(cfg.Event.Name)
		payload, err := scan.EncodePayload(rec)
		if err != nil {
			logging.Warn("Skipping attendee with unencodable badge",
				map[string]interface{}{"id": a.ID, "error": err.Error()})
			continue
		}
		entries = append(entries, entry{ID: a.ID, Name: a.Name, Payload: payload})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"attendees": entries,
		"count":     len(entries),
	})
}

// Template handles POST /api/attendees/template. Writes a header-only roster
// CSV with the configured extra columns to the given path.
func (h *AttendeesHandler) Template(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Path == "" {
		writeError(w, http.StatusBadRequest, apperrors.ErrInvalid, "path is required")
		return
	}

	if err := scan.ExportTemplate(request.Path, h.cfg.Snapshot().Template.ExtraFields); err != nil {
		writeAppError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"path": request.Path,
	})
}
