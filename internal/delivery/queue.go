package delivery

import "github.com/kimhsiao/signindesk/backend/internal/models"

// Queue is the in-process FIFO of records awaiting delivery. Insertion
// order is delivery-attempt order. It is not safe for concurrent use; the
// dispatcher's mutex guards it. The queue is not persisted; records it
// holds at a crash are lost, which is acceptable because the shell only
// enqueues live scans, never replays on restart.
type Queue struct {
	items []models.SigninRecord
}

// Push appends a record to the tail.
func (q *Queue) Push(rec models.SigninRecord) {
	q.items = append(q.items, rec)
}

// Pop removes and returns the head record.
func (q *Queue) Pop() (models.SigninRecord, bool) {
	if len(q.items) == 0 {
		return models.SigninRecord{}, false
	}
	rec := q.items[0]
	q.items[0] = models.SigninRecord{} // release references
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil // let the backing array go
	}
	return rec, true
}

// Len returns the number of queued records.
func (q *Queue) Len() int {
	return len(q.items)
}
