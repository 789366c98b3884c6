package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/luff543/EventChatBotBackend/internal/model"
	"github.com/luff543/EventChatBotBackend/pkg/logger"
)

func newFallbackAnalyzer() *Analyzer {
	return NewAnalyzer(nil, time.Second, logger.NewNop())
}

func TestFallbackAnalysisBoundsInterests(t *testing.T) {
	hist := []model.Message{
		{Role: model.RoleUser, Content: "I love music concerts, art exhibitions, yoga and wine tasting"},
	}

	analysis := newFallbackAnalyzer().Analyze(context.Background(), hist)

	assert.LessOrEqual(t, len(analysis.Interests), 3)
	assert.Contains(t, analysis.Interests, "music")
	assert.Contains(t, analysis.Interests, "arts")
}

func TestFallbackAnalysisFindsLocations(t *testing.T) {
	hist := []model.Message{
		{Role: model.RoleUser, Content: "anything fun happening in taipei"},
	}

	analysis := newFallbackAnalyzer().Analyze(context.Background(), hist)

	assert.Equal(t, []string{"taipei"}, analysis.ActivityPreferences.PreferredLocations)
}

func TestFallbackAnalysisIgnoresAssistantTurns(t *testing.T) {
	hist := []model.Message{
		{Role: model.RoleAssistant, Content: "how about music concerts in kaohsiung?"},
		{Role: model.RoleUser, Content: "qqq"},
	}

	analysis := newFallbackAnalyzer().Analyze(context.Background(), hist)

	assert.Empty(t, analysis.Interests)
	assert.Empty(t, analysis.ActivityPreferences.PreferredLocations)
}

func TestFallbackAnalysisPersonalitySignals(t *testing.T) {
	hist := []model.Message{
		{Role: model.RoleUser, Content: "my friends and I want a big party together"},
	}

	analysis := newFallbackAnalyzer().Analyze(context.Background(), hist)

	social, ok := analysis.PersonalityTraits["social_level"].(float64)
	assert.True(t, ok)
	assert.Greater(t, social, 0.7)
}
