package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/luff543/EventChatBotBackend/internal/model"
	"github.com/luff543/EventChatBotBackend/pkg/logger"
)

func TestClassifyFallbackKeywords(t *testing.T) {
	router := NewIntentRouter(nil, time.Second, logger.NewNop())
	ctx := context.Background()

	tests := []struct {
		message string
		want    model.Intent
	}{
		{"hello", model.IntentGreeting},
		{"find concerts in taipei", model.IntentSearchEvents},
		{"tell me more about the first one", model.IntentGetEventDetails},
		{"show me the statistics for this month", model.IntentAnalyzeStatistics},
		{"any trend worth knowing?", model.IntentAnalyzeTrends},
		{"recommend something for the weekend", model.IntentGetRecommendations},
		{"bye", model.IntentGoodbye},
		{"zzzz qqqq", model.IntentOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, router.Classify(ctx, tt.message, nil), "message %q", tt.message)
	}
}

func TestClassifyUsesValidModelLabel(t *testing.T) {
	router := NewIntentRouter(&stubClient{reply: "get_recommendations"}, time.Second, logger.NewNop())

	got := router.Classify(context.Background(), "hello", nil)

	assert.Equal(t, model.IntentGetRecommendations, got)
}

func TestClassifyInvalidLabelFallsBack(t *testing.T) {
	router := NewIntentRouter(&stubClient{reply: "banana"}, time.Second, logger.NewNop())

	got := router.Classify(context.Background(), "hello", nil)

	assert.Equal(t, model.IntentGreeting, got)
}

func TestClassifyErrorFallsBack(t *testing.T) {
	router := NewIntentRouter(&stubClient{err: context.DeadlineExceeded}, time.Second, logger.NewNop())

	got := router.Classify(context.Background(), "find events this weekend", nil)

	assert.Equal(t, model.IntentSearchEvents, got)
}

func TestSearchBeatsGreetingInPriority(t *testing.T) {
	router := NewIntentRouter(nil, time.Second, logger.NewNop())

	// "hi" appears as a substring but search keywords are checked first.
	got := router.Classify(context.Background(), "hi, find me some events", nil)

	assert.Equal(t, model.IntentSearchEvents, got)
}
