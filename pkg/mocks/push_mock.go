package mocks

import (
	"context"

	"github.com/dukex/flowsmith/pkg/push"
	"github.com/stretchr/testify/mock"
)

// MockBoundary is a mock implementation of push.Boundary interface.
type MockBoundary struct {
	mock.Mock
}

func (m *MockBoundary) Push(ctx context.Context, artifact push.Artifact) (push.Outcome, error) {
	args := m.Called(ctx, artifact)

	return args.Get(0).(push.Outcome), args.Error(1)
}
