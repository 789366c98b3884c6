package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/luff543/EventChatBotBackend/internal/events"
	"github.com/luff543/EventChatBotBackend/internal/model"
	"github.com/luff543/EventChatBotBackend/internal/profile"
	"github.com/luff543/EventChatBotBackend/internal/storage"
	"github.com/luff543/EventChatBotBackend/pkg/logger"
)

// RecommendationHandler serves the recommendation intent: it derives
// suggestions from the stored profile and backs them with a live search.
type RecommendationHandler struct {
	store  *storage.Store
	events *events.Client
	log    *logger.Logger
}

// NewRecommendationHandler creates a recommendation handler.
func NewRecommendationHandler(store *storage.Store, client *events.Client, log *logger.Logger) *RecommendationHandler {
	return &RecommendationHandler{store: store, events: client, log: log}
}

// Handle builds personalized recommendations for the session's profile.
func (h *RecommendationHandler) Handle(ctx context.Context, message string, hist []model.Message, req *model.ChatRequest) (*model.HandlerResponse, error) {
	prof, err := h.store.GetProfile(ctx, req.SessionID)
	if err != nil {
		h.log.Warn("loading profile for recommendations failed", zap.Error(err))
		prof = &model.ProfileData{SessionID: req.SessionID}
	}

	rec := profile.Recommend(prof)

	params := events.ExtractParams(message, req.Page)
	if params.Query == "" && len(rec.SuggestedCategories) > 0 {
		params.Query = rec.SuggestedCategories[0]
		params.Sort = "_score"
		params.Asc = false
	}
	if params.City == "" && len(rec.SuggestedLocations) > 0 {
		params.City = rec.SuggestedLocations[0]
	}

	result, err := h.events.Search(ctx, params)
	if err != nil {
		h.log.Warn("recommendation search failed", zap.Error(err))
		return &model.HandlerResponse{
			Message:      rec.PersonalizedMessage,
			Success:      true,
			SearchParams: params,
		}, nil
	}

	text := rec.PersonalizedMessage
	if len(result.Events) > 0 {
		text += "\n\n" + formatListing(result)
	}

	return &model.HandlerResponse{
		Message:      text,
		Success:      true,
		SearchParams: params,
		Events:       result.Events,
		Pagination:   &result.Pagination,
	}, nil
}
