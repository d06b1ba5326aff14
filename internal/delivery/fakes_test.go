package delivery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kimhsiao/signindesk/backend/internal/models"
)

// fakeSink is a scriptable RemoteSink recording what it receives.
type fakeSink struct {
	mu           sync.Mutex
	received     []models.SigninRecord
	connectCalls int
	appendCalls  int
	connectErr   error
	appendErr    error
	errFor       map[string]error         // per-record failures, keyed by ID
	delayFor     map[string]time.Duration // per-record slowness, keyed by ID
	active       int
	maxActive    int
}

func (s *fakeSink) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectCalls++
	return s.connectErr
}

func (s *fakeSink) AppendRecord(ctx context.Context, rec models.SigninRecord) error {
	s.mu.Lock()
	s.appendCalls++
	s.active++
	if s.active > s.maxActive {
		s.maxActive = s.active
	}
	delay := s.delayFor[rec.ID]
	err := s.appendErr
	if e, ok := s.errFor[rec.ID]; ok {
		err = e
	}
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	s.active--
	if err == nil {
		s.received = append(s.received, rec)
	}
	s.mu.Unlock()
	return err
}

func (s *fakeSink) receivedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.received))
	for _, r := range s.received {
		ids = append(ids, r.ID)
	}
	return ids
}

func (s *fakeSink) overlapped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxActive > 1
}

// notification is one dispatcher callback observed by the fake notifier.
type notification struct {
	kind string // "delivered", "offline_saved", "hard_failed"
	rec  models.SigninRecord
	err  error
}

type fakeNotifier struct {
	events chan notification
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{events: make(chan notification, 64)}
}

func (n *fakeNotifier) Delivered(rec models.SigninRecord) {
	n.events <- notification{kind: "delivered", rec: rec}
}

func (n *fakeNotifier) OfflineSaved(rec models.SigninRecord) {
	n.events <- notification{kind: "offline_saved", rec: rec}
}

func (n *fakeNotifier) HardFailed(rec models.SigninRecord, err error) {
	n.events <- notification{kind: "hard_failed", rec: rec, err: err}
}

// next blocks for the next notification, failing the test on timeout.
func (n *fakeNotifier) next(t *testing.T) notification {
	t.Helper()
	select {
	case ev := <-n.events:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for a notification")
		return notification{}
	}
}

// failStore is an OfflineStore whose Append always fails.
type failStore struct {
	err error
}

func (s *failStore) Append(models.SigninRecord) error {
	return s.err
}
