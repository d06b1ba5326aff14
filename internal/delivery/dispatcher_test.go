package delivery

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	apperrors "github.com/kimhsiao/signindesk/backend/internal/errors"
	"github.com/kimhsiao/signindesk/backend/internal/models"
	"github.com/kimhsiao/signindesk/backend/internal/offline"
)

func newTestOfflineStore(t *testing.T) *offline.Store {
	t.Helper()
	return offline.NewStore(filepath.Join(t.TempDir(), "pending.jsonl"))
}

// TestDispatcherDeliversInOrder covers the all-success path: both records
// produce delivered notifications and reach the sink in submission order.
func TestDispatcherDeliversInOrder(t *testing.T) {
	sink := &fakeSink{}
	notifier := newFakeNotifier()
	d := NewDispatcher(sink, newTestOfflineStore(t), notifier, time.Second)

	d.Enqueue(models.SigninRecord{ID: "1", Name: "Alice"})
	d.Enqueue(models.SigninRecord{ID: "2", Name: "Bob"})

	for _, wantID := range []string{"1", "2"} {
		ev := notifier.next(t)
		if ev.kind != "delivered" {
			t.Fatalf("Expected delivered, got %s for record %s", ev.kind, ev.rec.ID)
		}
		if ev.rec.ID != wantID {
			t.Errorf("Notifications out of order: expected %s, got %s", wantID, ev.rec.ID)
		}
	}

	got := sink.receivedIDs()
	if len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Errorf("Sink received wrong order: %v", got)
	}
	if sink.overlapped() {
		t.Error("Two delivery attempts overlapped")
	}
}

// TestDispatcherOfflineFallback covers the remote-failure path: the record
// lands in the offline store and the UI sees a soft success.
func TestDispatcherOfflineFallback(t *testing.T) {
	sink := &fakeSink{appendErr: errors.New("HTTP 503")}
	store := newTestOfflineStore(t)
	notifier := newFakeNotifier()
	d := NewDispatcher(sink, store, notifier, time.Second)

	d.Enqueue(models.SigninRecord{ID: "3", Name: "Cara"})

	ev := notifier.next(t)
	if ev.kind != "offline_saved" {
		t.Fatalf("Expected offline_saved, got %s", ev.kind)
	}
	if ev.rec.ID != "3" {
		t.Errorf("Wrong record notified: %s", ev.rec.ID)
	}

	records, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != "3" || records[0].Name != "Cara" {
		t.Errorf("Offline store content wrong: %v", records)
	}
}

// TestDispatcherHardFailure covers the one truly fatal class: remote failed
// AND the offline store failed.
func TestDispatcherHardFailure(t *testing.T) {
	sink := &fakeSink{appendErr: errors.New("network down")}
	diskErr := errors.New("disk full")
	notifier := newFakeNotifier()
	d := NewDispatcher(sink, &failStore{err: diskErr}, notifier, time.Second)

	d.Enqueue(models.SigninRecord{ID: "4", Name: "Dan"})

	ev := notifier.next(t)
	if ev.kind != "hard_failed" {
		t.Fatalf("Expected hard_failed, got %s", ev.kind)
	}
	if ev.err == nil {
		t.Fatal("Hard failure must carry the underlying error")
	}
	if !apperrors.Is(ev.err, apperrors.ErrOfflineStoreFailed) {
		t.Errorf("Expected OFFLINE_STORE_FAILED code, got %v", ev.err)
	}
	if !errors.Is(ev.err, diskErr) {
		t.Errorf("Underlying disk error lost: %v", ev.err)
	}
}

// TestDispatcherSingleFlight verifies at most one outstanding AppendRecord
// even under concurrent enqueues.
func TestDispatcherSingleFlight(t *testing.T) {
	sink := &fakeSink{delayFor: map[string]time.Duration{}}
	ids := []string{"a", "b", "c", "d", "e"}
	for _, id := range ids {
		sink.delayFor[id] = 20 * time.Millisecond
	}
	notifier := newFakeNotifier()
	d := NewDispatcher(sink, newTestOfflineStore(t), notifier, time.Second)

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			d.Enqueue(models.SigninRecord{ID: id})
		}(id)
	}
	wg.Wait()

	for range ids {
		if ev := notifier.next(t); ev.kind != "delivered" {
			t.Fatalf("Expected delivered, got %s", ev.kind)
		}
	}

	if sink.overlapped() {
		t.Error("Single-flight violated: concurrent AppendRecord calls observed")
	}

	queued, inFlight := d.Status()
	if queued != 0 || inFlight {
		t.Errorf("Dispatcher not drained: queued=%d inFlight=%v", queued, inFlight)
	}
}

// TestDispatcherWatchdogMovesOn verifies the queue keeps progressing past a
// slow attempt, and that the late success is still notified afterwards.
func TestDispatcherWatchdogMovesOn(t *testing.T) {
	sink := &fakeSink{delayFor: map[string]time.Duration{"slow": 300 * time.Millisecond}}
	notifier := newFakeNotifier()
	d := NewDispatcher(sink, newTestOfflineStore(t), notifier, 50*time.Millisecond)

	d.Enqueue(models.SigninRecord{ID: "slow"})
	d.Enqueue(models.SigninRecord{ID: "fast"})

	// The fast record overtakes: its notification arrives while the slow
	// attempt is still running.
	first := notifier.next(t)
	if first.kind != "delivered" || first.rec.ID != "fast" {
		t.Fatalf("Expected fast delivered first, got %s for %s", first.kind, first.rec.ID)
	}

	// The slow attempt was not cancelled; its late success still lands.
	second := notifier.next(t)
	if second.kind != "delivered" || second.rec.ID != "slow" {
		t.Fatalf("Expected late slow delivery, got %s for %s", second.kind, second.rec.ID)
	}
}

// TestDispatcherWatchdogLateFailure verifies a late failure after watchdog
// expiry still lands the record in the offline store.
func TestDispatcherWatchdogLateFailure(t *testing.T) {
	sink := &fakeSink{
		delayFor: map[string]time.Duration{"slow": 200 * time.Millisecond},
		errFor:   map[string]error{"slow": errors.New("eventually refused")},
	}
	store := newTestOfflineStore(t)
	notifier := newFakeNotifier()
	d := NewDispatcher(sink, store, notifier, 50*time.Millisecond)

	d.Enqueue(models.SigninRecord{ID: "slow", Name: "Slow"})

	ev := notifier.next(t)
	if ev.kind != "offline_saved" || ev.rec.ID != "slow" {
		t.Fatalf("Expected late offline_saved for slow, got %s for %s", ev.kind, ev.rec.ID)
	}

	records, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != "slow" {
		t.Errorf("Record not saved offline after late failure: %v", records)
	}
}

// TestDispatcherNeverLosesRecords is the at-least-once property: every
// enqueued record shows up in exactly one of sink, store, or a hard-failure
// notification.
func TestDispatcherNeverLosesRecords(t *testing.T) {
	sink := &fakeSink{errFor: map[string]error{
		"2": errors.New("refused"),
		"4": errors.New("refused"),
	}}
	store := newTestOfflineStore(t)
	notifier := newFakeNotifier()
	d := NewDispatcher(sink, store, notifier, time.Second)

	ids := []string{"1", "2", "3", "4", "5"}
	for _, id := range ids {
		d.Enqueue(models.SigninRecord{ID: id})
	}
	for range ids {
		notifier.next(t)
	}

	delivered := make(map[string]bool)
	for _, id := range sink.receivedIDs() {
		delivered[id] = true
	}
	stored := make(map[string]bool)
	records, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	for _, r := range records {
		stored[r.ID] = true
	}

	for _, id := range ids {
		if delivered[id] == stored[id] {
			t.Errorf("Record %s: delivered=%v stored=%v, want exactly one", id, delivered[id], stored[id])
		}
	}
}
