package jobs

import (
	"github.com/vytor/lessonplay/internal/metrics"
	"github.com/vytor/lessonplay/internal/models"
	"github.com/vytor/lessonplay/internal/worker"
)

// WorkerQueue implements SyncQueue using a worker pool
type WorkerQueue struct {
	pool   *worker.Pool
	client worker.ProgressSubmitter
}

var _ SyncQueue = (*WorkerQueue)(nil)

// NewWorkerQueue creates a new WorkerQueue implementation
func NewWorkerQueue(pool *worker.Pool, client worker.ProgressSubmitter) *WorkerQueue {
	return &WorkerQueue{pool: pool, client: client}
}

func (q *WorkerQueue) EnqueueProgress(snapshot models.ProgressSnapshot, first bool, onDone func(error)) error {
	err := q.pool.Submit(&worker.SubmitProgressJob{
		Client:   q.client,
		Snapshot: snapshot,
		First:    first,
		OnDone:   onDone,
	})
	if err != nil {
		metrics.IncSync(metrics.SyncProgress, metrics.OutcomeDropped)
	}
	return err
}

func (q *WorkerQueue) EnqueueAnswer(submission models.AnswerSubmission, onDone func(*models.SubmissionRecord, error)) error {
	err := q.pool.Submit(&worker.SubmitAnswerJob{
		Client:     q.client,
		Submission: submission,
		OnDone:     onDone,
	})
	if err != nil {
		metrics.IncSync(metrics.SyncAnswer, metrics.OutcomeDropped)
	}
	return err
}
