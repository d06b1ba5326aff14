package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kimhsiao/signindesk/backend/internal/config"
	apperrors "github.com/kimhsiao/signindesk/backend/internal/errors"
	"github.com/kimhsiao/signindesk/backend/internal/logging"
	"github.com/kimhsiao/signindesk/backend/internal/sheets"
)

// SinkConfigurator is the part of the ledger client the config handler
// drives when settings change.
type SinkConfigurator interface {
	Reconfigure(token, spreadsheetID, worksheet string)
}

// ConfigHandler reads and updates the shared configuration.
type ConfigHandler struct {
	cfg  *config.Store
	sink SinkConfigurator
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(cfg *config.Store, sink SinkConfigurator) *ConfigHandler {
	return &ConfigHandler{cfg: cfg, sink: sink}
}

// Get handles GET /api/config.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg := h.cfg.Snapshot()
	writeJSON(w, http.StatusOK, &cfg)
}

// Update handles PUT /api/config. Keys present in the body overwrite, absent
// keys keep their current value; a malformed body leaves the configuration
// unchanged. The ledger client is reconfigured so the next delivery targets
// the new spreadsheet.
func (h *ConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	updated, err := h.cfg.Update(func(c *config.Config) error {
		if err := json.NewDecoder(r.Body).Decode(c); err != nil {
			return apperrors.Wrap(apperrors.ErrConfigInvalid, "invalid config body", err)
		}
		return nil
	})
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrConfigInvalid {
			writeError(w, http.StatusBadRequest, apperrors.ErrConfigInvalid, "invalid config body")
			return
		}
		writeError(w, http.StatusInternalServerError, apperrors.ErrConfigNotSaved, err.Error())
		return
	}

	token, err := sheets.LoadToken(updated.Google.CredentialsPath)
	if err != nil {
		// Keep the settings, surface the auth problem on the next delivery.
		logging.Warn("Credentials unavailable after config update",
			map[string]interface{}{"path": updated.Google.CredentialsPath, "error": err.Error()})
	}
	h.sink.Reconfigure(token, updated.Google.SpreadsheetID, updated.Google.WorksheetName)

	writeJSON(w, http.StatusOK, &updated)
}
