package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/luff543/EventChatBotBackend/internal/history"
	"github.com/luff543/EventChatBotBackend/internal/lexicon"
	"github.com/luff543/EventChatBotBackend/internal/llm"
	"github.com/luff543/EventChatBotBackend/internal/model"
	"github.com/luff543/EventChatBotBackend/pkg/logger"
	"github.com/luff543/EventChatBotBackend/pkg/metrics"
)

// ConversationHandler serves the conversational intents: greeting, goodbye,
// help and anything unrouted. Free-form replies go through the
// text-generation capability; canned replies cover the fallback.
type ConversationHandler struct {
	llm     llm.Client
	timeout time.Duration
	log     *logger.Logger
}

// NewConversationHandler creates a conversation handler. client may be nil.
func NewConversationHandler(client llm.Client, timeout time.Duration, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{llm: client, timeout: timeout, log: log}
}

// Handle produces a conversational reply for the given intent.
func (h *ConversationHandler) Handle(ctx context.Context, message string, hist []model.Message, req *model.ChatRequest) (*model.HandlerResponse, error) {
	var text string
	switch classifyConversational(message) {
	case model.IntentGreeting:
		text = "👋 Hi! I'm your event assistant. I can search events, analyze what's happening around you, and recommend things you'll enjoy."
	case model.IntentGoodbye:
		text = "Thanks for stopping by! Come back anytime you're looking for something to do. 👋"
	case model.IntentHelp:
		text = "Here's what I can do:\n" +
			"- **Search events**: \"find concerts in Taipei this weekend\"\n" +
			"- **Analyze**: \"how many exhibitions are there this month?\"\n" +
			"- **Recommend**: \"suggest something for me\"\n" +
			"Just tell me what you're in the mood for."
	default:
		text = h.freeform(ctx, message, hist)
	}

	return &model.HandlerResponse{
		Message: text,
		Success: true,
	}, nil
}

// classifyConversational re-checks the conversational sub-intents so one
// handler can serve all four without routing hints.
func classifyConversational(message string) model.Intent {
	switch {
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

func (h *ConversationHandler) freeform(ctx context.Context, message string, hist []model.Message) string {
	const fallback = "I'm best at helping you find and choose events. Tell me a city, a date, or the kind of activity you're after and I'll take it from there."

	if h.llm == nil {
		return fallback
	}

	cctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	msgs := []llm.ChatMessage{{Role: "system", Content: conversationPrompt}}
	for _, m := range history.Window(hist, 6) {
		msgs = append(msgs, llm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	msgs = append(msgs, llm.ChatMessage{Role: "user", Content: message})

	start := time.Now()
	resp, err := h.llm.Complete(cctx, &llm.CompletionRequest{
		Messages:    msgs,
		MaxTokens:   512,
		Temperature: 0.7,
	})
	if err != nil {
		failure := llm.ClassifyErr(err)
		metrics.RecordLLMCall(h.llm.Name(), failure.String(), time.Since(start).Seconds(), "", 0, 0)
		h.log.Warn("conversation reply call failed",
			zap.String("failure", failure.String()),
			zap.Error(err),
		)
		return fallback
	}

	metrics.RecordLLMCall(h.llm.Name(), "ok", time.Since(start).Seconds(), resp.Model, resp.TokensIn, resp.TokensOut)
	if resp.Content == "" {
		return fallback
	}
	return resp.Content
}

const conversationPrompt = `You are a friendly event discovery assistant. Keep replies short, helpful and steer toward finding events. Reply in the user's language.`
