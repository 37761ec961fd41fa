package jobs

import "github.com/vytor/lessonplay/internal/models"

// SyncQueue provides an abstraction for enqueueing remote submissions.
// Enqueue never blocks; onDone runs on a worker once the call finished.
type SyncQueue interface {
	EnqueueProgress(snapshot models.ProgressSnapshot, first bool, onDone func(error)) error
	EnqueueAnswer(submission models.AnswerSubmission, onDone func(*models.SubmissionRecord, error)) error
}
