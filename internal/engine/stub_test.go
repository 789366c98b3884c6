package engine

import (
	"context"

	"github.com/luff543/EventChatBotBackend/internal/llm"
)

// stubClient is a deterministic text-generation client for tests.
type stubClient struct {
	reply string
	err   error
}

func (s *stubClient) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.reply, Model: "stub"}, nil
}

func (s *stubClient) Name() string { return "stub" }

func (s *stubClient) Models() []string { return nil }
