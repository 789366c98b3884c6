package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/luff543/EventChatBotBackend/internal/events"
	"github.com/luff543/EventChatBotBackend/internal/model"
	"github.com/luff543/EventChatBotBackend/pkg/logger"
)

// SearchHandler serves the search intent family: event search, event details
// and event comparison.
type SearchHandler struct {
	events *events.Client
	log    *logger.Logger
}

// NewSearchHandler creates a search handler.
func NewSearchHandler(client *events.Client, log *logger.Logger) *SearchHandler {
	return &SearchHandler{events: client, log: log}
}

// Handle extracts search parameters, runs the search and formats the result
// listing. A backend failure degrades to an apology rather than an error.
func (h *SearchHandler) Handle(ctx context.Context, message string, hist []model.Message, req *model.ChatRequest) (*model.HandlerResponse, error) {
	params := req.SearchParams
	if params == nil {
		params = events.ExtractParams(message, req.Page)
	}

	result, err := h.events.Search(ctx, params)
	if err != nil {
		h.log.Warn("event search failed", zap.Error(err))
		return &model.HandlerResponse{
			Message:      "I couldn't reach the event service just now. Please try again in a moment.",
			Success:      false,
			SearchParams: params,
		}, nil
	}

	if len(result.Events) == 0 {
		return &model.HandlerResponse{
			Message:      "I didn't find any events matching your request.",
			Success:      true,
			SearchParams: params,
			Pagination:   &result.Pagination,
		}, nil
	}

	return &model.HandlerResponse{
		Message:      formatListing(result),
		Success:      true,
		SearchParams: params,
		Events:       result.Events,
		Pagination:   &result.Pagination,
	}, nil
}

// formatListing renders events as a markdown list. The "Search results"
// heading doubles as the follow-through marker downstream.
func formatListing(result *model.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 **Search results** (%d events found):\n\n", result.Pagination.TotalEvents)

	for i, event := range result.Events {
		fmt.Fprintf(&b, "%d. ", i+1)
		if event.URL != "" {
			fmt.Fprintf(&b, "[%s](%s)", event.Name, event.URL)
		} else {
			b.WriteString(event.Name)
		}
		if event.City != "" {
			fmt.Fprintf(&b, " · %s", event.City)
		}
		if event.StartTime > 0 {
			fmt.Fprintf(&b, " · %s", time.UnixMilli(event.StartTime).Format("2006-01-02"))
		}
		b.WriteString("\n")
	}

	if result.Pagination.TotalPages > 1 {
		fmt.Fprintf(&b, "\nPage %d of %d.\n",
			result.Pagination.CurrentPage, result.Pagination.TotalPages)
	}
	return b.String()
}
