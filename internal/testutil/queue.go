package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/vytor/lessonplay/internal/models"
	"github.com/vytor/lessonplay/internal/worker"
)

// ManualQueue is a jobs.SyncQueue that holds jobs until the test runs them,
// so submission ordering can be asserted without goroutines.
type ManualQueue struct {
	mu      sync.Mutex
	client  worker.ProgressSubmitter
	pending []worker.Job
	// Reject, when set, is returned by every Enqueue call.
	Reject error
}

func NewManualQueue(client worker.ProgressSubmitter) *ManualQueue {
	return &ManualQueue{client: client}
}

func (q *ManualQueue) EnqueueProgress(snapshot models.ProgressSnapshot, first bool, onDone func(error)) error {
	return q.push(&worker.SubmitProgressJob{Client: q.client, Snapshot: snapshot, First: first, OnDone: onDone})
}

func (q *ManualQueue) EnqueueAnswer(submission models.AnswerSubmission, onDone func(*models.SubmissionRecord, error)) error {
	return q.push(&worker.SubmitAnswerJob{Client: q.client, Submission: submission, OnDone: onDone})
}

func (q *ManualQueue) push(job worker.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Reject != nil {
		return q.Reject
	}
	q.pending = append(q.pending, job)
	return nil
}

// Len reports how many jobs are waiting.
func (q *ManualQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// RunNext runs the oldest waiting job and reports whether one existed.
func (q *ManualQueue) RunNext(ctx context.Context) bool {
	q.mu.Lock()
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return false
	}
	job := q.pending[0]
	q.pending = q.pending[1:]
	q.mu.Unlock()

	_ = job.Run(ctx)
	return true
}

// RunAll runs jobs until none are left, including jobs enqueued by
// completion callbacks, and returns how many ran.
func (q *ManualQueue) RunAll(ctx context.Context) int {
	n := 0
	for q.RunNext(ctx) {
		n++
	}
	return n
}

// FakeClock is a manually advanced clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
