package ai

import (
	"context"
	"sync"
)

// MockProvider is a test double for Provider.
type MockProvider struct {
	Response string
	Err      error

	mu          sync.Mutex
	LastRequest *CompletionRequest
	Calls       int
}

// NewMockProvider creates a MockProvider that returns the given response.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Response: response}
}

func (m *MockProvider) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRequest = &req
	m.Calls++
	if m.Err != nil {
		return CompletionResponse{}, m.Err
	}
	return CompletionResponse{
		Content:      m.Response,
		Model:        "mock",
		InputTokens:  10,
		OutputTokens: len(m.Response),
	}, nil
}

func (m *MockProvider) HealthCheck(_ context.Context) error {
	return m.Err
}
