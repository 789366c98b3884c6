// Package engine implements the conversation decision core: intent routing,
// stage classification, proactive question gating/generation and per-turn
// message analysis. Every component pairs a text-generation call with a
// deterministic keyword fallback so a slow or unavailable capability never
// blocks a turn.
package engine

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/luff543/EventChatBotBackend/internal/history"
	"github.com/luff543/EventChatBotBackend/internal/lexicon"
	"github.com/luff543/EventChatBotBackend/internal/llm"
	"github.com/luff543/EventChatBotBackend/internal/model"
	"github.com/luff543/EventChatBotBackend/pkg/logger"
	"github.com/luff543/EventChatBotBackend/pkg/metrics"
)

const promptWindow = 6

// IntentRouter classifies incoming messages into the closed intent set.
type IntentRouter struct {
	llm     llm.Client
	timeout time.Duration
	log     *logger.Logger
}

// NewIntentRouter creates an intent router. client may be nil, in which case
// every classification takes the fallback path.
func NewIntentRouter(client llm.Client, timeout time.Duration, log *logger.Logger) *IntentRouter {
	return &IntentRouter{llm: client, timeout: timeout, log: log}
}

// Classify determines the intent of a user message. The primary path asks the
// text-generation capability with a bounded timeout; any failure or label
// outside the intent set falls through to the keyword scan.
func (r *IntentRouter) Classify(ctx context.Context, message string, hist []model.Message) model.Intent {
	if r.llm != nil {
		if intent, ok := r.classifyLLM(ctx, message, hist); ok {
			metrics.RecordIntent(string(intent), "llm")
			return intent
		}
	}

	intent := r.fallback(message)
	metrics.RecordIntent(string(intent), "fallback")
	r.log.Debug("intent classified via fallback",
		zap.String("intent", string(intent)),
		zap.String("lexicon_version", lexicon.Version),
	)
	return intent
}

func (r *IntentRouter) classifyLLM(ctx context.Context, message string, hist []model.Message) (model.Intent, bool) {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	resp, err := r.llm.Complete(cctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: intentPrompt},
			{Role: "user", Content: buildPromptHistory(hist, message)},
		},
		MaxTokens:   16,
		Temperature: 0,
	})
	if err != nil {
		failure := llm.ClassifyErr(err)
		metrics.RecordLLMCall(r.llm.Name(), failure.String(), time.Since(start).Seconds(), "", 0, 0)
		r.log.Warn("intent classification call failed",
			zap.String("failure", failure.String()),
			zap.Error(err),
		)
		return "", false
	}

	label := strings.ToLower(strings.TrimSpace(resp.Content))
	if !model.ValidIntent(label) {
		metrics.RecordLLMCall(r.llm.Name(), llm.FailureMalformed.String(), time.Since(start).Seconds(), resp.Model, resp.TokensIn, resp.TokensOut)
		r.log.Warn("intent classification returned invalid label", zap.String("label", label))
		return "", false
	}

	metrics.RecordLLMCall(r.llm.Name(), "ok", time.Since(start).Seconds(), resp.Model, resp.TokensIn, resp.TokensOut)
	return model.Intent(label), true
}

// fallback scans the message against per-intent keyword sets in fixed
// priority order; first match wins, no match yields other.
func (r *IntentRouter) fallback(message string) model.Intent {
	switch {
	case lexicon.ContainsAny(message, lexicon.SearchIntent):
		return model.IntentSearchEvents
	case lexicon.ContainsAny(message, lexicon.DetailIntent):
		return model.IntentGetEventDetails
	case lexicon.ContainsAny(message, lexicon.AnalysisIntent):
		if lexicon.ContainsAny(message, []string{"statistics", "distribution"}) {
			return model.IntentAnalyzeStatistics
		}
		return model.IntentAnalyzeTrends
	case lexicon.ContainsAny(message, lexicon.RecommendationIntent):
		return model.IntentGetRecommendations
	case lexicon.ContainsAny(message, lexicon.GreetingIntent):
		return model.IntentGreeting
	case lexicon.ContainsAny(message, lexicon.GoodbyeIntent):
		return model.IntentGoodbye
	case lexicon.ContainsAny(message, lexicon.HelpIntent):
		return model.IntentHelp
	default:
		return model.IntentOther
	}
}

const intentPrompt = `You classify event chatbot messages. Respond with exactly one label from:
search_events, get_event_details, analyze_trends, analyze_statistics, get_recommendations, compare_events, analyze_geographic, generate_report, greeting, goodbye, help, other.
Respond with the label only.`

// buildPromptHistory renders the filtered recent window plus the current
// message as a compact transcript for classification prompts.
func buildPromptHistory(hist []model.Message, current string) string {
	var b strings.Builder
	for _, msg := range history.Window(hist, promptWindow) {
		b.WriteString(string(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	b.WriteString("user: ")
	b.WriteString(current)
	return b.String()
}
