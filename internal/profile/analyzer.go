// Package profile builds and merges user profiles: conversation-derived
// analysis, cross-session integration and recommendation derivation.
package profile

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/luff543/EventChatBotBackend/internal/lexicon"
	"github.com/luff543/EventChatBotBackend/internal/llm"
	"github.com/luff543/EventChatBotBackend/internal/model"
	"github.com/luff543/EventChatBotBackend/pkg/logger"
	"github.com/luff543/EventChatBotBackend/pkg/metrics"
)

const maxFallbackInterests = 3

// Analyzer infers interests, preferences and trait signals from a user's
// conversation. The primary path is a structured extraction via the
// text-generation capability; the fallback is a keyword scan over the shared
// lexicon tables.
type Analyzer struct {
	llm     llm.Client
	timeout time.Duration
	log     *logger.Logger
}

// NewAnalyzer creates an analyzer. client may be nil.
func NewAnalyzer(client llm.Client, timeout time.Duration, log *logger.Logger) *Analyzer {
	return &Analyzer{llm: client, timeout: timeout, log: log}
}

// Analyze derives profile signals from the user-authored turns of a history.
func (a *Analyzer) Analyze(ctx context.Context, hist []model.Message) model.ConversationAnalysis {
	var userText []string
	for _, msg := range hist {
		if msg.Role == model.RoleUser {
			userText = append(userText, msg.Content)
		}
	}
	joined := strings.Join(userText, "\n")

	if a.llm != nil && joined != "" {
		if analysis, ok := a.analyzeLLM(ctx, joined); ok {
			return analysis
		}
	}
	return fallbackAnalysis(joined)
}

func (a *Analyzer) analyzeLLM(ctx context.Context, text string) (model.ConversationAnalysis, bool) {
	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	resp, err := a.llm.Complete(cctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: analyzerPrompt},
			{Role: "user", Content: text},
		},
		MaxTokens:   512,
		Temperature: 0,
	})
	if err != nil {
		failure := llm.ClassifyErr(err)
		metrics.RecordLLMCall(a.llm.Name(), failure.String(), time.Since(start).Seconds(), "", 0, 0)
		a.log.Warn("profile analysis call failed",
			zap.String("failure", failure.String()),
			zap.Error(err),
		)
		return model.ConversationAnalysis{}, false
	}

	var analysis model.ConversationAnalysis
	raw := resp.Content
	if i, j := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); i >= 0 && j > i {
		raw = raw[i : j+1]
	}
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		metrics.RecordLLMCall(a.llm.Name(), llm.FailureMalformed.String(), time.Since(start).Seconds(), resp.Model, resp.TokensIn, resp.TokensOut)
		a.log.Warn("profile analysis returned malformed payload", zap.Error(err))
		return model.ConversationAnalysis{}, false
	}

	metrics.RecordLLMCall(a.llm.Name(), "ok", time.Since(start).Seconds(), resp.Model, resp.TokensIn, resp.TokensOut)
	return analysis, true
}

// fallbackAnalysis scans concatenated user text against the interest,
// location and personality indicator tables. The result is bounded: at most
// three interests.
func fallbackAnalysis(text string) model.ConversationAnalysis {
	lower := strings.ToLower(text)

	analysis := model.ConversationAnalysis{
		Interests:          lexicon.MatchCategories(lower, maxFallbackInterests),
		PersonalityTraits:  map[string]any{},
		CommunicationStyle: map[string]any{},
		EngagementPatterns: map[string]any{},
	}

	for _, city := range lexicon.LocationKeywords {
		if strings.Contains(lower, city) {
			analysis.ActivityPreferences.PreferredLocations =
				append(analysis.ActivityPreferences.PreferredLocations, city)
		}
	}
	analysis.ActivityPreferences.PreferredCategories = analysis.Interests

	if hits := countHits(lower, lexicon.SocialIndicators); hits >= 2 {
		analysis.PersonalityTraits["social_level"] = 0.8
	} else if hits == 1 {
		analysis.PersonalityTraits["social_level"] = 0.6
	}
	if hits := countHits(lower, lexicon.AdventureIndicators); hits >= 2 {
		analysis.PersonalityTraits["adventure_seeking"] = 0.8
	} else if hits == 1 {
		analysis.PersonalityTraits["adventure_seeking"] = 0.6
	}

	return analysis
}

func countHits(text string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	return hits
}

const analyzerPrompt = `Extract profile signals from these event chatbot user messages. Respond with JSON only:
{"interests":["<category>"],"activity_preferences":{"preferred_categories":[],"preferred_locations":[],"preferred_times":[],"group_preference":"","budget_sensitivity":""},"personality_traits":{},"communication_style":{},"engagement_patterns":{}}
Trait values are numbers in [0,1]. List at most 5 interests.`
