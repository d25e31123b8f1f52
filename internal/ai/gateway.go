// Package ai is a small provider-agnostic client for OpenAI-compatible
// chat completion APIs, with ordered fallback between providers.
package ai

import "context"

// TaskType tags a request with what it is for, for logging and model choice.
type TaskType int

const (
	TaskRemediation TaskType = iota
)

func (t TaskType) String() string {
	switch t {
	case TaskRemediation:
		return "remediation"
	default:
		return "unknown"
	}
}

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to a completion.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Task        TaskType  `json:"task,omitempty"`
}

// CompletionResponse is the output of a completion.
type CompletionResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// TotalTokens returns the sum of input and output tokens.
func (r CompletionResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// Provider is implemented by every completion backend.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	HealthCheck(ctx context.Context) error
}
