// Package db provides repository operations for the scan history.
package db

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/kimhsiao/signindesk/backend/internal/models"
	"github.com/kimhsiao/signindesk/backend/internal/uuid"
)

// Repository provides scan history operations.
type Repository struct {
	db *sql.DB

	// Prepared statement cache keyed by query string, to avoid repeated
	// SQL parsing on the hot scan path.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PrepareStmt gets or creates a prepared statement from the cache.
func (r *Repository) PrepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		// Another goroutine already prepared this, close our duplicate
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

// Close closes all cached prepared statements.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		stmt := value.(*sql.Stmt)
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// CreateScanEvent records a new scan with a pending outcome. Assigns the ID
// and timestamps on the passed event.
func (r *Repository) CreateScanEvent(ev *models.ScanEvent) error {
	now := time.Now().Unix()
	ev.ID = uuid.New()
	if ev.Outcome == "" {
		ev.Outcome = models.OutcomePending
	}
	ev.ScannedAt = now
	ev.UpdatedAt = now

	query := `
	INSERT INTO scan_events (id, record_id, name, event, raw, outcome, last_error, scanned_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, ev.ID, ev.RecordID, ev.Name, ev.Event, ev.Raw,
		ev.Outcome, ev.LastError, ev.ScannedAt, ev.UpdatedAt)
	return err
}

// GetScanEvent retrieves one scan event by ID.
func (r *Repository) GetScanEvent(id string) (*models.ScanEvent, error) {
	query := `
	SELECT id, record_id, name, event, raw, outcome, last_error, scanned_at, updated_at
	FROM scan_events WHERE id = ?
	`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}

	var ev models.ScanEvent
	err = stmt.QueryRow(id).Scan(&ev.ID, &ev.RecordID, &ev.Name, &ev.Event, &ev.Raw,
		&ev.Outcome, &ev.LastError, &ev.ScannedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// MarkOutcome settles the oldest pending scan matching the record. Delivery
// callbacks carry the record rather than the scan ID, so correlation is by
// record_id when the badge had one, by raw payload otherwise. Returns the
// settled scan ID, or "" when no pending scan matched.
func (r *Repository) MarkOutcome(recordID, raw, outcome, lastError string) (string, error) {
	var (
		query string
		key   string
	)
	if recordID != "" {
		query = `SELECT id FROM scan_events WHERE record_id = ? AND outcome = ? ORDER BY scanned_at ASC, id ASC LIMIT 1`
		key = recordID
	} else {
		query = `SELECT id FROM scan_events WHERE raw = ? AND outcome = ? ORDER BY scanned_at ASC, id ASC LIMIT 1`
		key = raw
	}

	var id string
	err := r.db.QueryRow(query, key, models.OutcomePending).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	update := `UPDATE scan_events SET outcome = ?, last_error = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.Exec(update, outcome, lastError, time.Now().Unix(), id); err != nil {
		return "", err
	}
	return id, nil
}

// ListRecent returns the most recent scan events, newest first.
func (r *Repository) ListRecent(limit int) ([]*models.ScanEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
	SELECT id, record_id, name, event, raw, outcome, last_error, scanned_at, updated_at
	FROM scan_events ORDER BY scanned_at DESC, id DESC LIMIT ?
	`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.ScanEvent
	for rows.Next() {
		var ev models.ScanEvent
		err := rows.Scan(&ev.ID, &ev.RecordID, &ev.Name, &ev.Event, &ev.Raw,
			&ev.Outcome, &ev.LastError, &ev.ScannedAt, &ev.UpdatedAt)
		if err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// CountByOutcome returns scan counts grouped by outcome, for the status view.
func (r *Repository) CountByOutcome() (map[string]int, error) {
	rows, err := r.db.Query("SELECT outcome, COUNT(*) FROM scan_events GROUP BY outcome")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}
