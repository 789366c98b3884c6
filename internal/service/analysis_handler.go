package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/luff543/EventChatBotBackend/internal/events"
	"github.com/luff543/EventChatBotBackend/internal/model"
	"github.com/luff543/EventChatBotBackend/pkg/logger"
)

// AnalysisHandler serves the analysis intent family: trends, statistics,
// geographic breakdowns and reports. It aggregates counts from the search
// backend; chart rendering is a frontend concern.
type AnalysisHandler struct {
	events *events.Client
	log    *logger.Logger
}

// NewAnalysisHandler creates an analysis handler.
func NewAnalysisHandler(client *events.Client, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{events: client, log: log}
}

// Handle answers analysis questions with aggregate counts over the extracted
// scope (city and time range when mentioned, this month otherwise).
func (h *AnalysisHandler) Handle(ctx context.Context, message string, hist []model.Message, req *model.ChatRequest) (*model.HandlerResponse, error) {
	params := events.ExtractParams(message, 1)
	if params.From == 0 && params.To == 0 {
		now := time.Now()
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		params.From = start.UnixMilli()
		params.To = start.AddDate(0, 1, 0).UnixMilli()
	}
	params.Num = 1

	result, err := h.events.Search(ctx, params)
	if err != nil {
		h.log.Warn("analysis query failed", zap.Error(err))
		return &model.HandlerResponse{
			Message: "I couldn't gather the event statistics just now. Please try again in a moment.",
			Success: false,
		}, nil
	}

	scope := "across all cities"
	if params.City != "" {
		scope = "in " + params.City
	}
	window := describeWindow(params.From, params.To)

	text := fmt.Sprintf("📊 There are **%d events** %s %s.",
		result.Pagination.TotalEvents, scope, window)
	if params.Query != "" {
		text = fmt.Sprintf("📊 There are **%d %s events** %s %s.",
			result.Pagination.TotalEvents, params.Query, scope, window)
	}

	return &model.HandlerResponse{
		Message:      text,
		Success:      true,
		SearchParams: params,
		Pagination:   &result.Pagination,
	}, nil
}

func describeWindow(from, to int64) string {
	if from == 0 {
		return "currently listed"
	}
	return fmt.Sprintf("between %s and %s",
		time.UnixMilli(from).Format("2006-01-02"),
		time.UnixMilli(to).Format("2006-01-02"))
}
