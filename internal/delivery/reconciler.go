package delivery

import (
	"context"
	"sync"

	apperrors "github.com/kimhsiao/signindesk/backend/internal/errors"
	"github.com/kimhsiao/signindesk/backend/internal/logging"
	"github.com/kimhsiao/signindesk/backend/internal/models"
)

// FlushResult reports one reconciliation pass.
type FlushResult struct {
	Succeeded int `json:"succeeded"`
	Total     int `json:"total"`
}

// Reconciler replays offline-stored records against the remote ledger on
// operator request and shrinks the store to the records that still fail.
// One pass at a time: a second Flush started while one is running is
// rejected rather than interleaved, so two passes can never race on the
// store rewrite.
type Reconciler struct {
	mu         sync.Mutex
	inProgress bool

	sink  RemoteSink
	store PendingStore
}

// NewReconciler creates a Reconciler over the given sink and store.
func NewReconciler(sink RemoteSink, store PendingStore) *Reconciler {
	return &Reconciler{sink: sink, store: store}
}

// InProgress reports whether a flush pass is currently running.
func (r *Reconciler) InProgress() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inProgress
}

// Flush runs one reconciliation pass and reports (succeeded, total).
//
// The store is only rewritten once, at the end: a connection failure aborts
// the pass with the store untouched, so a failed pass is always safe to
// retry: no record is lost or duplicated on disk. Individual records that
// still fail stay in the store in their original order; only the aggregate
// counts are surfaced.
func (r *Reconciler) Flush(ctx context.Context) (FlushResult, error) {
	r.mu.Lock()
	if r.inProgress {
		r.mu.Unlock()
		return FlushResult{}, apperrors.New(apperrors.ErrFlushInProgress,
			"a flush pass is already running")
	}
	r.inProgress = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inProgress = false
		r.mu.Unlock()
	}()

	items, err := r.store.ReadAll()
	if err != nil {
		return FlushResult{}, apperrors.Wrap(apperrors.ErrOfflineStoreFailed,
			"cannot read pending sign-ins", err)
	}

	result := FlushResult{Total: len(items)}
	if len(items) == 0 {
		logging.Info("Flush: nothing pending")
		return result, nil
	}

	// One connection for the whole pass; connecting dominates per-call
	// cost, so batching amortizes it.
	if err := r.sink.Connect(ctx); err != nil {
		return result, apperrors.Wrap(apperrors.ErrSheetConnectFailed,
			"cannot reach remote ledger", err)
	}

	var remaining []models.SigninRecord
	for _, item := range items {
		if err := r.sink.AppendRecord(ctx, item); err != nil {
			logging.Warn("Flush: record still failing",
				map[string]interface{}{"record_id": item.ID, "error": err.Error()})
			remaining = append(remaining, item)
			continue
		}
		result.Succeeded++
	}

	if err := r.store.Replace(remaining); err != nil {
		return result, apperrors.Wrap(apperrors.ErrOfflineStoreFailed,
			"flush delivered records but could not rewrite the store", err)
	}

	logging.Info("Flush completed",
		map[string]interface{}{"succeeded": result.Succeeded, "total": result.Total})
	return result, nil
}
