package worker

import (
	"context"

	"github.com/vytor/lessonplay/internal/models"
)

// ProgressSubmitter is the write half of the progress service client.
// Declared here so jobs do not import the client package.
type ProgressSubmitter interface {
	SubmitProgress(ctx context.Context, videoID string, snapshot models.ProgressSnapshot, first bool) error
	SubmitAnswer(ctx context.Context, submission models.AnswerSubmission) (*models.SubmissionRecord, error)
}
