// Package service orchestrates turn processing: intent dispatch, stage
// classification, proactive augmentation and profile updates.
package service

import (
	"context"

	"github.com/luff543/EventChatBotBackend/internal/model"
)

// IntentHandler produces a draft response for one intent family. Handlers
// are pure with respect to the engine: message plus history plus routing
// hints in, draft text plus structured payload out.
type IntentHandler interface {
	Handle(ctx context.Context, message string, hist []model.Message, req *model.ChatRequest) (*model.HandlerResponse, error)
}
