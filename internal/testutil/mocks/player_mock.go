package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockPlayer is a mock implementation of media.Player
type MockPlayer struct {
	mock.Mock
}

func (m *MockPlayer) Play() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockPlayer) Pause() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockPlayer) Seek(seconds float64) error {
	args := m.Called(seconds)
	return args.Error(0)
}

func (m *MockPlayer) Release() error {
	args := m.Called()
	return args.Error(0)
}
