package delivery

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/kimhsiao/signindesk/backend/internal/errors"
	"github.com/kimhsiao/signindesk/backend/internal/logging"
	"github.com/kimhsiao/signindesk/backend/internal/models"
	"github.com/kimhsiao/signindesk/backend/internal/uuid"
)

// DefaultTimeout is the per-attempt watchdog bound.
const DefaultTimeout = 10 * time.Second

// Dispatcher owns the in-memory FIFO queue and the single-flight delivery
// policy. At most one delivery attempt is outstanding at any instant;
// records are attempted in strict submission order. A record is never
// silently dropped: every one ends up delivered, durably offline, or
// reported as a hard failure.
type Dispatcher struct {
	mu       sync.Mutex
	queue    Queue
	inFlight bool

	sink     RemoteSink
	store    OfflineStore
	notifier Notifier
	timeout  time.Duration
}

// NewDispatcher creates a Dispatcher. A non-positive timeout falls back to
// DefaultTimeout.
func NewDispatcher(sink RemoteSink, store OfflineStore, notifier Notifier, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		sink:     sink,
		store:    store,
		notifier: notifier,
		timeout:  timeout,
	}
}

// Enqueue appends the record to the queue and, when no delivery is in
// flight, immediately starts the next attempt. Enqueue cannot fail.
func (d *Dispatcher) Enqueue(rec models.SigninRecord) {
	d.mu.Lock()
	d.queue.Push(rec)
	depth := d.queue.Len()
	d.startNextLocked()
	d.mu.Unlock()

	logging.Info("Sign-in queued for delivery",
		map[string]interface{}{"record_id": rec.ID, "name": rec.Name, "queued": depth})
}

// Status returns the queue depth and whether an attempt is outstanding.
func (d *Dispatcher) Status() (queued int, inFlight bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.Len(), d.inFlight
}

// startNextLocked pops the head record and starts its delivery worker.
// No-op while an attempt is in flight or the queue is empty.
// Caller holds d.mu.
func (d *Dispatcher) startNextLocked() {
	if d.inFlight || d.queue.Len() == 0 {
		return
	}
	rec, _ := d.queue.Pop()
	d.inFlight = true
	go d.deliver(uuid.New(), rec)
}

// deliver runs one attempt, racing the sink call against the watchdog.
func (d *Dispatcher) deliver(attemptID string, rec models.SigninRecord) {
	done := make(chan error, 1)
	go func() {
		done <- d.sink.AppendRecord(context.Background(), rec)
	}()

	watchdog := time.NewTimer(d.timeout)
	defer watchdog.Stop()

	select {
	case err := <-done:
		d.settle(attemptID, rec, err, false)
		d.advance()

	case <-watchdog.C:
		// Liveness decision, not an outcome: stop waiting and keep the
		// queue moving. The slow attempt is not cancelled.
		logging.Warn("Delivery attempt exceeded watchdog, moving on",
			map[string]interface{}{
				"attempt_id": attemptID,
				"record_id":  rec.ID,
				"timeout":    d.timeout.String(),
			})
		d.advance()

		// If the attempt ever completes, its outcome is still recorded and
		// notified, tagged as late; by then a different record may already
		// be in flight.
		go func() {
			d.settle(attemptID, rec, <-done, true)
		}()
	}
}

// settle converts an attempt result into exactly one notification.
func (d *Dispatcher) settle(attemptID string, rec models.SigninRecord, err error, late bool) {
	if err == nil {
		if late {
			logging.Warn("Late delivery success after watchdog expiry",
				map[string]interface{}{"attempt_id": attemptID, "record_id": rec.ID})
		} else {
			logging.Info("Sign-in delivered",
				map[string]interface{}{"record_id": rec.ID, "name": rec.Name})
		}
		d.notifier.Delivered(rec)
		return
	}

	logging.Warn("Remote append failed, saving offline",
		map[string]interface{}{
			"attempt_id": attemptID,
			"record_id":  rec.ID,
			"late":       late,
			"error":      err.Error(),
		})

	if storeErr := d.store.Append(rec); storeErr != nil {
		hard := apperrors.Wrap(apperrors.ErrOfflineStoreFailed,
			"sign-in could not be delivered or saved offline", storeErr)
		logging.ErrorWithCode("Sign-in at risk of loss",
			string(apperrors.ErrOfflineStoreFailed), storeErr,
			map[string]interface{}{"attempt_id": attemptID, "record_id": rec.ID})
		d.notifier.HardFailed(rec, hard)
		return
	}

	d.notifier.OfflineSaved(rec)
}

// advance clears the in-flight slot and starts the next queued attempt.
func (d *Dispatcher) advance() {
	d.mu.Lock()
	d.inFlight = false
	d.startNextLocked()
	d.mu.Unlock()
}
