package mocks

import (
	"github.com/stretchr/testify/mock"
	"github.com/vytor/lessonplay/internal/models"
)

// MockSyncQueue is a mock implementation of jobs.SyncQueue
type MockSyncQueue struct {
	mock.Mock
}

func (m *MockSyncQueue) EnqueueProgress(snapshot models.ProgressSnapshot, first bool, onDone func(error)) error {
	args := m.Called(snapshot, first, onDone)
	return args.Error(0)
}

func (m *MockSyncQueue) EnqueueAnswer(submission models.AnswerSubmission, onDone func(*models.SubmissionRecord, error)) error {
	args := m.Called(submission, onDone)
	return args.Error(0)
}
