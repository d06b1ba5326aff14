// Package scan turns decoded QR text and roster CSVs into sign-in records.
// Camera capture and QR frame decoding live in the desktop shell; this
// package starts where the shell hands over plain text.
package scan

import (
	"encoding/json"
	"strings"

	"github.com/kimhsiao/signindesk/backend/internal/models"
)

// ParsePayload decodes one scanned QR text into a SigninRecord.
//
// Structured payloads are JSON objects carrying id/name/event/extra as
// produced for attendee badges; a missing event falls back to defaultEvent.
// Anything else (plain text, broken JSON, non-object JSON) is kept as a
// raw-only record rather than rejected, so a scan is never lost to a
// malformed badge. Raw always holds the original text for audit.
func ParsePayload(data string, defaultEvent string) models.SigninRecord {
	trimmed := strings.TrimSpace(data)

	if strings.HasPrefix(trimmed, "{") {
		var rec models.SigninRecord
		if err := json.Unmarshal([]byte(trimmed), &rec); err == nil {
			if rec.Event == "" {
				rec.Event = defaultEvent
			}
			rec.Raw = data
			rec.Timestamp = "" // assigned at delivery time, never trusted from the badge
			return rec
		}
	}

	return models.SigninRecord{Raw: data, Event: defaultEvent}
}

// EncodePayload renders the JSON text embedded in an attendee's QR badge.
func EncodePayload(rec models.SigninRecord) (string, error) {
	payload := struct {
		ID    string       `json:"id"`
		Name  string       `json:"name"`
		Event string       `json:"event"`
		Extra models.Extra `json:"extra,omitempty"`
	}{
		ID:    rec.ID,
		Name:  rec.Name,
		Event: rec.Event,
		Extra: rec.Extra,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
