// Package mocks provides mock implementations of core interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"magic-mirror/internal/types"
	"magic-mirror/pkg/genapi"
)

// MockBackend is a mock implementation of workflow.Backend
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Submit(ctx context.Context, feature types.Feature, images map[string][]byte, prompt string) (string, error) {
	args := m.Called(ctx, feature, images, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) GetStatus(ctx context.Context, taskID string) (*genapi.JobStatus, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*genapi.JobStatus), args.Error(1)
}

func (m *MockBackend) FetchResult(ctx context.Context, taskID string) ([]byte, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockPromptEnhancer is a mock implementation of service.PromptEnhancer
type MockPromptEnhancer struct {
	mock.Mock
}

func (m *MockPromptEnhancer) EnhancePrompt(ctx context.Context, feature types.Feature, prompt string) (string, error) {
	args := m.Called(ctx, feature, prompt)
	return args.String(0), args.Error(1)
}
