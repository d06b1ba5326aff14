package models

// Scan outcome values. "pending" covers records still queued or in flight,
// including attempts the dispatcher stopped waiting for.
const (
	OutcomePending      = "pending"
	OutcomeDelivered    = "delivered"
	OutcomeOfflineSaved = "offline_saved"
	OutcomeHardFailed   = "hard_failed"
)

// ScanEvent is the local audit row written for every scan, independent of
// whether delivery to the remote ledger ever succeeds.
type ScanEvent struct {
	ID        string `db:"id" json:"id"`
	RecordID  string `db:"record_id" json:"record_id"`
	Name      string `db:"name" json:"name"`
	Event     string `db:"event" json:"event"`
	Raw       string `db:"raw" json:"raw"`
	Outcome   string `db:"outcome" json:"outcome"`
	LastError string `db:"last_error" json:"last_error,omitempty"`
	ScannedAt int64  `db:"scanned_at" json:"scanned_at"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for ScanEvent.
func (ScanEvent) TableName() string {
	return "scan_events"
}
