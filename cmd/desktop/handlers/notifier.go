package handlers

import (
	"github.com/kimhsiao/signindesk/backend/internal/db"
	"github.com/kimhsiao/signindesk/backend/internal/logging"
	"github.com/kimhsiao/signindesk/backend/internal/models"
)

// UINotifier bridges dispatcher outcomes to the scan history and the shell.
// It settles the oldest pending scan matching the record, then pushes the
// outcome over the WebSocket. Called from dispatcher worker goroutines.
type UINotifier struct {
	repo *db.Repository
	hub  Broadcaster
}

// NewUINotifier creates a UINotifier.
func NewUINotifier(repo *db.Repository, hub Broadcaster) *UINotifier {
	return &UINotifier{repo: repo, hub: hub}
}

// Delivered implements delivery.Notifier.
func (n *UINotifier) Delivered(rec models.SigninRecord) {
	n.settle(rec, models.OutcomeDelivered, "", EventSigninDelivered)
}

// OfflineSaved implements delivery.Notifier.
func (n *UINotifier) OfflineSaved(rec models.SigninRecord) {
	n.settle(rec, models.OutcomeOfflineSaved, "", EventSigninOfflineSaved)
}

// HardFailed implements delivery.Notifier.
func (n *UINotifier) HardFailed(rec models.SigninRecord, err error) {
	n.settle(rec, models.OutcomeHardFailed, err.Error(), EventSigninFailed)
}

func (n *UINotifier) settle(rec models.SigninRecord, outcome, lastError, eventType string) {
	scanID, err := n.repo.MarkOutcome(rec.ID, rec.Raw, outcome, lastError)
	if err != nil {
		logging.Error("Failed to settle scan outcome", err, map[string]interface{}{
			"record_id": rec.ID,
			"outcome":   outcome,
		})
	}

	data := map[string]interface{}{
		"scan_id":   scanID,
		"record_id": rec.ID,
		"name":      rec.Name,
		"event":     rec.Event,
		"outcome":   outcome,
	}
	if lastError != "" {
		data["error"] = lastError
	}
	n.hub.Broadcast(eventType, data)
}
