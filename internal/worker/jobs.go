package worker

import (
	"context"

	"github.com/vytor/lessonplay/internal/errors"
	"github.com/vytor/lessonplay/internal/logger"
	"github.com/vytor/lessonplay/internal/metrics"
	"github.com/vytor/lessonplay/internal/models"
)

// SubmitProgressJob pushes one full progress snapshot. First selects create
// over update semantics on the remote side.
type SubmitProgressJob struct {
	Client   ProgressSubmitter
	Snapshot models.ProgressSnapshot
	First    bool
	OnDone   func(error)
}

func (j *SubmitProgressJob) Name() string { return "submit_progress" }

func (j *SubmitProgressJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithFields(map[string]any{
		"video_id": j.Snapshot.VideoID,
		"first":    j.First,
	})
	log.Debug("submitting progress at %.1fs", j.Snapshot.CurrentTime)

	err := j.Client.SubmitProgress(ctx, j.Snapshot.VideoID, j.Snapshot, j.First)
	metrics.ObserveSync(metrics.SyncProgress, err)
	if err != nil {
		err = errors.ProgressSubmit(j.Snapshot.VideoID, err)
	}
	if j.OnDone != nil {
		j.OnDone(err)
	}
	return err
}

// SubmitAnswerJob sends one graded answer. The local state has already been
// updated, so failures are only reported.
type SubmitAnswerJob struct {
	Client     ProgressSubmitter
	Submission models.AnswerSubmission
	OnDone     func(*models.SubmissionRecord, error)
}

func (j *SubmitAnswerJob) Name() string { return "submit_answer" }

func (j *SubmitAnswerJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithFields(map[string]any{
		"video_id":    j.Submission.VideoID,
		"question_id": j.Submission.QuestionID,
	})
	log.Debug("submitting answer (correct=%t)", j.Submission.Meta.Correct)

	rec, err := j.Client.SubmitAnswer(ctx, j.Submission)
	metrics.ObserveSync(metrics.SyncAnswer, err)
	if err != nil {
		err = errors.AnswerSubmit(j.Submission.VideoID, err)
	}
	if j.OnDone != nil {
		j.OnDone(rec, err)
	}
	return err
}
