// Package offline provides the durable fallback store for undelivered sign-ins.
package offline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kimhsiao/signindesk/backend/internal/logging"
	"github.com/kimhsiao/signindesk/backend/internal/models"
)

// line is the on-disk framing: one JSON object per line with a single
// payload_json field holding the record's own JSON encoding. New record
// fields never change the framing, so old and new builds can read each
// other's files.
type line struct {
	PayloadJSON string `json:"payload_json"`
}

// Store is the append-only holding area for records that could not be
// delivered. The backing file is the canonical state: absent means nothing
// pending. A single mutex serializes Append against ReadAll/Replace, which
// is what allows the dispatcher and the reconciler to run concurrently.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a Store backed by the file at path. The file is not
// created until the first Append.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Append durably adds one record to the end of the store.
// Fails only on I/O errors; the caller treats that as the one hard,
// operator-visible failure class.
func (s *Store) Append(rec models.SigninRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create offline store directory: %w", err)
		}
	}

	data, err := encodeLine(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open offline store: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to flush offline store: %w", err)
	}
	return nil
}

// ReadAll returns every stored record, oldest first. A missing file is an
// empty store, not an error. Malformed lines are skipped individually so
// one corrupt entry cannot take the rest of the queue hostage.
func (s *Store) ReadAll() ([]models.SigninRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAllLocked()
}

func (s *Store) readAllLocked() ([]models.SigninRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open offline store: %w", err)
	}
	defer f.Close()

	var records []models.SigninRecord
	skipped := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		rec, err := decodeLine(text)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read offline store: %w", err)
	}

	if skipped > 0 {
		logging.Warn("Skipped malformed offline store lines",
			map[string]interface{}{"path": s.path, "skipped": skipped})
	}
	return records, nil
}

// Count returns the number of pending records.
func (s *Store) Count() (int, error) {
	records, err := s.ReadAll()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Replace atomically rewrites the store to contain exactly records, in
// order. An empty slice deletes the backing file, since absence is the
// canonical "nothing pending" state. The rewrite goes through a temp file
// plus rename so a concurrent reader never observes a half-written store.
func (s *Store) Replace(records []models.SigninRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(records) == 0 {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove offline store: %w", err)
		}
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create offline store directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".pending-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp store: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	for _, rec := range records {
		data, err := encodeLine(rec)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("failed to encode record: %w", err)
		}
		if _, err := tmp.Write(append(data, '\n')); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write temp store: %w", err)
		}
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush temp store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp store: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace offline store: %w", err)
	}
	return nil
}

func encodeLine(rec models.SigninRecord) ([]byte, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return json.Marshal(line{PayloadJSON: string(payload)})
}

func decodeLine(data []byte) (models.SigninRecord, error) {
	var l line
	if err := json.Unmarshal(data, &l); err != nil {
		return models.SigninRecord{}, err
	}
	if l.PayloadJSON == "" {
		return models.SigninRecord{}, fmt.Errorf("empty payload_json field")
	}
	var rec models.SigninRecord
	if err := json.Unmarshal([]byte(l.PayloadJSON), &rec); err != nil {
		return models.SigninRecord{}, err
	}
	return rec, nil
}
