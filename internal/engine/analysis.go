package engine

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

// MessageAnalysis is the per-turn understanding of a user message.
type MessageAnalysis struct {
	Sentiment string         `json:"sentiment"`
	Entities  []model.Entity `json:"entities"`
}

// MessageAnalyzer extracts sentiment and entities from single user turns.
// Entities without a resolved value feed the clarifying-question generator.
type MessageAnalyzer struct {
	llm     llm.Client
	timeout time.Duration
	log     *logger.Logger
}

// NewMessageAnalyzer creates a message analyzer. client may be nil.
func NewMessageAnalyzer(client llm.Client, timeout time.Duration, log *logger.Logger) *MessageAnalyzer {
	return &MessageAnalyzer{llm: client, timeout: timeout, log: log}
}

// Analyze extracts sentiment and entities from one user message.
func (a *MessageAnalyzer) Analyze(ctx context.Context, message string) MessageAnalysis {
	if a.llm != nil {
		if result, ok := a.analyzeLLM(ctx, message); ok {
			return result
		}
	}
	return fallbackAnalyze(message)
}

func (a *MessageAnalyzer) analyzeLLM(ctx context.Context, message string) (MessageAnalysis, bool) {
	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	resp, err := a.llm.Complete(cctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: analysisPrompt},
			{Role: "user", Content: message},
		},
		MaxTokens:   256,
		Temperature: 0,
	})
	if err != nil {
		failure := llm.ClassifyErr(err)
		metrics.RecordLLMCall(a.llm.Name(), failure.String(), time.Since(start).Seconds(), "", 0, 0)
		a.log.Warn("message analysis call failed",
			zap.String("failure", failure.String()),
			zap.Error(err),
		)
		return MessageAnalysis{}, false
	}

	var result MessageAnalysis
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &result); err != nil {
		metrics.RecordLLMCall(a.llm.Name(), llm.FailureMalformed.String(), time.Since(start).Seconds(), resp.Model, resp.TokensIn, resp.TokensOut)
		a.log.Warn("message analysis returned malformed payload", zap.Error(err))
		return MessageAnalysis{}, false
	}

	metrics.RecordLLMCall(a.llm.Name(), "ok", time.Since(start).Seconds(), resp.Model, resp.TokensIn, resp.TokensOut)
	return result, true
}

// fallbackAnalyze is the deterministic keyword path: sentiment from polarity
// word lists, entities from the shared location and category tables, plus
// vague place markers surfaced as ambiguous entities.
func fallbackAnalyze(message string) MessageAnalysis {
	lower := strings.ToLower(message)
	result := MessageAnalysis{Sentiment: "neutral"}

	if lexicon.ContainsAny(lower, positiveWords) {
		result.Sentiment = "positive"
	} else if lexicon.ContainsAny(lower, negativeWords) {
		result.Sentiment = "negative"
	}

	for _, city := range lexicon.LocationKeywords {
		if strings.Contains(lower, city) {
			result.Entities = append(result.Entities, model.Entity{
				Entity: city, Type: "location", Value: city,
			})
			break
		}
	}

	for _, category := range lexicon.MatchCategories(lower, 2) {
		result.Entities = append(result.Entities, model.Entity{
			Entity: category, Type: "category", Value: category,
		})
	}

	for _, marker := range vaguePlaceMarkers {
		if strings.Contains(lower, marker) {
			result.Entities = append(result.Entities, model.Entity{
				Entity: marker, Type: "location",
			})
			break
		}
	}

	return result
}

// extractJSON trims surrounding prose and code fences from a model reply,
// keeping the outermost JSON object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

var (
	positiveWords = []string{"great", "love", "awesome", "perfect", "nice", "thanks", "good"}
	negativeWords = []string{"bad", "terrible", "hate", "boring", "disappointing", "useless"}

	vaguePlaceMarkers = []string{"nearby", "somewhere", "around here", "close by"}
)

const analysisPrompt = `Extract sentiment and entities from the user message. Respond with JSON only:
{"sentiment":"positive|neutral|negative","entities":[{"entity":"<surface text>","type":"location|category|time|other","value":"<resolved value or empty if ambiguous>"}]}`
