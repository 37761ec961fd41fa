package progressclient

import (
	"context"

	"github.com/vytor/lessonplay/internal/models"
)

// ClientInterface defines the operations against the learning-progress service.
// This interface enables testability by allowing mock implementations.
type ClientInterface interface {
	FetchProgress(ctx context.Context, videoID string) (*models.RemoteProgress, error)
	SubmitProgress(ctx context.Context, videoID string, snapshot models.ProgressSnapshot, first bool) error
	SubmitAnswer(ctx context.Context, submission models.AnswerSubmission) (*models.SubmissionRecord, error)
}

// Ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)
