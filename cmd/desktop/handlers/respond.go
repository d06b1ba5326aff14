// Package handlers provides the REST API consumed by the desktop shell.
package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/kimhsiao/signindesk/backend/internal/errors"
)

// Event types pushed over the WebSocket alongside the HTTP responses.
const (
	EventSigninDelivered    = "signin.delivered"
	EventSigninOfflineSaved = "signin.offline_saved"
	EventSigninFailed       = "signin.failed"
	EventFlushCompleted     = "flush.completed"
	EventFlushFailed        = "flush.failed"
)

// Broadcaster pushes events to connected shell clients.
type Broadcaster interface {
	Broadcast(messageType string, data map[string]interface{})
}

// NopBroadcaster discards events, for tests and headless runs.
type NopBroadcaster struct{}

// Broadcast implements Broadcaster.
func (NopBroadcaster) Broadcast(string, map[string]interface{}) {}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code apperrors.ErrorCode, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    string(code),
			"message": message,
		},
	})
}

// writeAppError maps an application error onto an HTTP response, keeping the
// error code visible to the shell.
func writeAppError(w http.ResponseWriter, status int, err error) {
	writeError(w, status, apperrors.CodeOf(err), err.Error())
}
