// Package llm provides text-generation capability clients and the failure
// classification the deterministic fallback chain keys off.
package llm

import (
	"context"
	"errors"
	"net"
	"os"
)

// ChatMessage represents a chat message for the text-generation capability.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for text-generation providers. Implementations must
// honor ctx deadlines; callers always pass a bounded context.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// Failure classifies why a capability call could not be used, so the caller's
// fallback selection is a pure function of the outcome rather than of an
// error type hierarchy.
type Failure int

const (
	FailureNone Failure = iota
	FailureTimeout
	FailureConnection
	FailureMalformed
)

// String returns the metric/log label for the failure.
func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureTimeout:
		return "timeout"
	case FailureConnection:
		return "connection"
	case FailureMalformed:
		return "malformed"
	}
	return "unknown"
}

// ClassifyErr maps a capability call error to a Failure. A nil error is
// FailureNone; malformed output is the caller's judgment (the call itself
// succeeded), so it is never returned from here.
func ClassifyErr(err error) Failure {
	if err == nil {
		return FailureNone
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureConnection
}

// Provider is the type of text-generation provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewClient creates a new capability client based on provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return NewAnthropicClient(apiKey)
	}
}
