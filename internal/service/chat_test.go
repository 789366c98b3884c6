package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luff543/EventChatBotBackend/internal/engine"
	"github.com/luff543/EventChatBotBackend/internal/model"
	"github.com/luff543/EventChatBotBackend/internal/profile"
	"github.com/luff543/EventChatBotBackend/internal/storage"
	"github.com/luff543/EventChatBotBackend/pkg/logger"
)

type stubHandler struct {
	resp *model.HandlerResponse
	err  error
}

func (h stubHandler) Handle(_ context.Context, _ string, _ []model.Message, _ *model.ChatRequest) (*model.HandlerResponse, error) {
	return h.resp, h.err
}

func newTestChatService(t *testing.T, search IntentHandler) *ChatService {
	t.Helper()

	store, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logger.NewNop()
	conversational := stubHandler{resp: &model.HandlerResponse{
		Message: "Hi! What kind of events are you in the mood for?",
		Success: true,
	}}
	if search == nil {
		search = conversational
	}

	return NewChatService(ChatServiceDeps{
		Store:           store,
		Router:          engine.NewIntentRouter(nil, time.Second, log),
		Stages:          engine.NewStageClassifier(nil, time.Second, log),
		Proactive:       engine.NewProactiveEngine(log),
		Analyzer:        profile.NewAnalyzer(nil, time.Second, log),
		MessageAnalyzer: engine.NewMessageAnalyzer(nil, time.Second, log),
		Search:          search,
		Analysis:        conversational,
		Recommendation:  conversational,
		Conversation:    conversational,
		Log:             log,
		SessionMsgLimit: 20,
	})
}

func TestProcessMessageGreetingTurn(t *testing.T) {
	svc := newTestChatService(t, nil)

	resp, err := svc.ProcessMessage(context.Background(), &model.ChatRequest{Message: "hello"}, "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, model.IntentGreeting, resp.Intent)
	assert.Equal(t, model.StageOpening, resp.ConversationStage)
	assert.NotEmpty(t, resp.SessionID)
	assert.True(t, resp.Success)

	// A bare greeting trips the guidance trigger, so proactive questions ride
	// along with the draft.
	require.NotNil(t, resp.Proactive)
	assert.Contains(t, resp.Message, "💡")

	require.NotNil(t, resp.ProfileSummary)
	assert.Equal(t, 1, resp.ProfileSummary.VisitCount)
}

func TestProcessMessagePersistsBothTurns(t *testing.T) {
	svc := newTestChatService(t, nil)

	resp, err := svc.ProcessMessage(context.Background(), &model.ChatRequest{Message: "hello"}, "203.0.113.7")
	require.NoError(t, err)

	messages, err := svc.store.GetMessages(context.Background(), resp.SessionID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, model.RoleUser, messages[0].Role)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, model.RoleAssistant, messages[1].Role)
	assert.Equal(t, resp.Message, messages[1].Content)
}

func TestProcessMessageReusesActiveSession(t *testing.T) {
	svc := newTestChatService(t, nil)
	ctx := context.Background()

	first, err := svc.ProcessMessage(ctx, &model.ChatRequest{Message: "hello"}, "203.0.113.7")
	require.NoError(t, err)

	second, err := svc.ProcessMessage(ctx, &model.ChatRequest{Message: "hello again"}, "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)

	other, err := svc.ProcessMessage(ctx, &model.ChatRequest{Message: "hello"}, "198.51.100.1")
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, other.SessionID)
}

func TestProcessMessageAcceptsCallerSessionID(t *testing.T) {
	svc := newTestChatService(t, nil)

	resp, err := svc.ProcessMessage(context.Background(),
		&model.ChatRequest{Message: "hello", SessionID: "caller-chosen"}, "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, "caller-chosen", resp.SessionID)
}

func TestProcessMessageHandlerFailureDegrades(t *testing.T) {
	failing := stubHandler{err: errors.New("backend unreachable")}
	svc := newTestChatService(t, failing)

	resp, err := svc.ProcessMessage(context.Background(),
		&model.ChatRequest{Message: "find concerts"}, "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, model.IntentSearchEvents, resp.Intent)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "try rephrasing")
}

func TestProcessMessageRecordsSearchBehavior(t *testing.T) {
	searching := stubHandler{resp: &model.HandlerResponse{
		Message:      "🔍 **Search results** (1 events found):\n1. Jazz night",
		Success:      true,
		SearchParams: &model.SearchParams{Query: "music", City: "Taipei"},
		Events:       []model.Event{{Name: "Jazz night"}},
	}}
	svc := newTestChatService(t, searching)

	resp, err := svc.ProcessMessage(context.Background(),
		&model.ChatRequest{Message: "find concerts in taipei"}, "203.0.113.7")
	require.NoError(t, err)

	prof, err := svc.store.GetProfile(context.Background(), resp.SessionID)
	require.NoError(t, err)

	var sawSearch bool
	for _, b := range prof.RecentBehaviors {
		if b.Type == "search" {
			sawSearch = true
			assert.Equal(t, "Taipei", b.Data["city"])
		}
	}
	assert.True(t, sawSearch)
}

func TestAggregatedProfileSpansSessions(t *testing.T) {
	svc := newTestChatService(t, nil)
	ctx := context.Background()

	_, err := svc.ProcessMessage(ctx,
		&model.ChatRequest{Message: "i love music concerts", SessionID: "s1"}, "203.0.113.7")
	require.NoError(t, err)
	_, err = svc.ProcessMessage(ctx,
		&model.ChatRequest{Message: "any food tasting events", SessionID: "s2"}, "203.0.113.7")
	require.NoError(t, err)

	merged, err := svc.AggregatedProfile(ctx, "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, 2, merged.VisitCount)
	names := make([]string, 0, len(merged.Interests))
	for _, interest := range merged.Interests {
		names = append(names, interest.Name)
	}
	assert.Contains(t, names, "music")
	assert.Contains(t, names, "food")
}

func TestSessionLockIsStablePerSession(t *testing.T) {
	svc := newTestChatService(t, nil)

	first := svc.sessionLock("s1")
	assert.Same(t, first, svc.sessionLock("s1"))
}

func TestConcurrentTurnsOnOneSessionAllPersist(t *testing.T) {
	svc := newTestChatService(t, nil)
	ctx := context.Background()

	_, err := svc.ProcessMessage(ctx,
		&model.ChatRequest{Message: "hello", SessionID: "s1"}, "203.0.113.7")
	require.NoError(t, err)

	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := svc.ProcessMessage(ctx,
				&model.ChatRequest{Message: "tell me about art exhibitions", SessionID: "s1"}, "203.0.113.7")
			done <- err
		}()
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, <-done)
	}

	messages, err := svc.store.GetMessages(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Len(t, messages, 10)

	var lastUser string
	for _, msg := range messages {
		if msg.Role == model.RoleUser {
			lastUser = msg.Content
		}
		// Every user turn is directly followed by its assistant turn.
		if msg.Role == model.RoleAssistant {
			require.NotEmpty(t, lastUser)
			lastUser = ""
		}
	}
}
