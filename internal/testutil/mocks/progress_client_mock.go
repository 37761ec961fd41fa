package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/lessonplay/internal/models"
)

// MockProgressClient is a mock implementation of progressclient.ClientInterface
type MockProgressClient struct {
	mock.Mock
}

func (m *MockProgressClient) FetchProgress(ctx context.Context, videoID string) (*models.RemoteProgress, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RemoteProgress), args.Error(1)
}

func (m *MockProgressClient) SubmitProgress(ctx context.Context, videoID string, snapshot models.ProgressSnapshot, first bool) error {
	args := m.Called(ctx, videoID, snapshot, first)
	return args.Error(0)
}

func (m *MockProgressClient) SubmitAnswer(ctx context.Context, submission models.AnswerSubmission) (*models.SubmissionRecord, error) {
	args := m.Called(ctx, submission)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubmissionRecord), args.Error(1)
}
