// Package delivery provides the reliable delivery pipeline between the
// scanning shell and the remote ledger: the in-memory dispatch queue, the
// single-flight retry policy, and the reconciliation pass that replays
// offline-stored records.
package delivery

import (
	"context"

	"github.com/kimhsiao/signindesk/backend/internal/models"
)

// RemoteSink abstracts the remote append-only ledger.
type RemoteSink interface {
	// Connect establishes the auth/session. It must be idempotent and
	// re-callable; a failure means credentials or network are unavailable.
	Connect(ctx context.Context) error

	// AppendRecord appends one row derived from the record's fixed fields
	// plus its extra mapping, connecting first if needed. The row timestamp
	// is assigned here, at append time.
	AppendRecord(ctx context.Context, rec models.SigninRecord) error
}

// OfflineStore is the subset of the offline store the dispatcher needs.
type OfflineStore interface {
	Append(rec models.SigninRecord) error
}

// PendingStore is the subset of the offline store the reconciler needs.
type PendingStore interface {
	ReadAll() ([]models.SigninRecord, error)
	Replace(records []models.SigninRecord) error
}

// Notifier receives per-record outcome notifications from the dispatcher.
// Exactly one of the three fires for every enqueued record (plus possibly a
// second, late one after a watchdog expiry). Calls arrive on worker
// goroutines; implementations marshal onto the UI loop themselves.
type Notifier interface {
	// Delivered: the record reached the remote ledger.
	Delivered(rec models.SigninRecord)

	// OfflineSaved: remote delivery failed but the record is durably queued
	// for a later flush. The UI treats this as a soft success.
	OfflineSaved(rec models.SigninRecord)

	// HardFailed: remote delivery failed AND the offline store rejected the
	// record. The only case the operator must act on immediately.
	HardFailed(rec models.SigninRecord, err error)
}
