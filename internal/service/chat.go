package service

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luff543/EventChatBotBackend/internal/engine"
	"github.com/luff543/EventChatBotBackend/internal/model"
	natsclient "github.com/luff543/EventChatBotBackend/internal/nats"
	"github.com/luff543/EventChatBotBackend/internal/profile"
	"github.com/luff543/EventChatBotBackend/internal/storage"
	"github.com/luff543/EventChatBotBackend/pkg/logger"
	"github.com/luff543/EventChatBotBackend/pkg/metrics"
)

// ChatService runs the per-turn pipeline: route, handle, classify stage,
// decide on proactive questions, update the profile and persist the turn.
type ChatService struct {
	store        *storage.Store
	router       *engine.IntentRouter
	stages       *engine.StageClassifier
	proactive    *engine.ProactiveEngine
	analyzer     *profile.Analyzer
	msgAnalyzer  *engine.MessageAnalyzer
	handlers     map[model.Intent]IntentHandler
	streams      *natsclient.StreamManager
	log          *logger.Logger
	messageLimit int

	// Turns within one session must be processed in arrival order; trait
	// merges are last-write-wins so out-of-order writes would corrupt them.
	// Locks are sharded by session ID hash so the table stays bounded no
	// matter how many sessions the process sees.
	sessionLocks [sessionLockShards]sync.Mutex
}

const sessionLockShards = 64

// ChatServiceDeps bundles the collaborators for NewChatService.
type ChatServiceDeps struct {
	Store           *storage.Store
	Router          *engine.IntentRouter
	Stages          *engine.StageClassifier
	Proactive       *engine.ProactiveEngine
	Analyzer        *profile.Analyzer
	MessageAnalyzer *engine.MessageAnalyzer
	Search          IntentHandler
	Analysis        IntentHandler
	Recommendation  IntentHandler
	Conversation    IntentHandler
	Streams         *natsclient.StreamManager
	Log             *logger.Logger
	SessionMsgLimit int
}

// NewChatService creates the chat service and wires intent dispatch.
func NewChatService(deps ChatServiceDeps) *ChatService {
	handlers := map[model.Intent]IntentHandler{
		model.IntentSearchEvents:       deps.Search,
		model.IntentGetEventDetails:    deps.Search,
		model.IntentCompareEvents:      deps.Search,
		model.IntentAnalyzeTrends:      deps.Analysis,
		model.IntentAnalyzeStatistics:  deps.Analysis,
		model.IntentAnalyzeGeographic:  deps.Analysis,
		model.IntentGenerateReport:     deps.Analysis,
		model.IntentGetRecommendations: deps.Recommendation,
		model.IntentGreeting:           deps.Conversation,
		model.IntentGoodbye:            deps.Conversation,
		model.IntentHelp:               deps.Conversation,
		model.IntentOther:              deps.Conversation,
	}

	return &ChatService{
		store:        deps.Store,
		router:       deps.Router,
		stages:       deps.Stages,
		proactive:    deps.Proactive,
		analyzer:     deps.Analyzer,
		msgAnalyzer:  deps.MessageAnalyzer,
		handlers:     handlers,
		streams:      deps.Streams,
		log:          deps.Log,
		messageLimit: deps.SessionMsgLimit,
	}
}

// ProcessMessage handles one user turn end to end.
func (s *ChatService) ProcessMessage(ctx context.Context, req *model.ChatRequest, clientIP string) (*model.ChatResponse, error) {
	session, err := s.resolveSession(ctx, req.SessionID, clientIP)
	if err != nil {
		return nil, err
	}
	req.SessionID = session.SessionID

	lock := s.sessionLock(session.SessionID)
	lock.Lock()
	defer lock.Unlock()

	log := s.log.With(zap.String("session_id", session.SessionID))

	hist, err := s.store.GetMessages(ctx, session.SessionID, 0)
	if err != nil {
		log.Error("loading history failed", zap.Error(err))
		hist = nil
	}

	intent := s.router.Classify(ctx, req.Message, hist)

	handler, ok := s.handlers[intent]
	if !ok {
		handler = s.handlers[model.IntentOther]
	}
	draft, err := handler.Handle(ctx, req.Message, hist, req)
	if err != nil {
		log.Error("handler failed", zap.String("intent", string(intent)), zap.Error(err))
		draft = &model.HandlerResponse{
			Message: "Something went wrong on my side. Could you try rephrasing that?",
			Success: false,
		}
	}
	draft.Intent = intent

	s.persistUserTurn(ctx, session.SessionID, req.Message, log)

	updated := append(append([]model.Message{}, hist...),
		model.Message{Role: model.RoleUser, Content: req.Message},
		model.Message{Role: model.RoleAssistant, Content: draft.Message},
	)

	stage := s.stages.Classify(ctx, updated)

	analysis := s.msgAnalyzer.Analyze(ctx, req.Message)
	tc := &model.TurnContext{
		History:           updated,
		CurrentSearch:     draft.SearchParams,
		HasSearchResults:  len(draft.Events) > 0,
		AmbiguousEntities: analysis.Entities,
	}
	if draft.Pagination != nil {
		tc.LastResultCount = draft.Pagination.TotalEvents
	} else {
		tc.LastResultCount = len(draft.Events)
	}

	finalText := draft.Message
	var proactiveOut *model.ProactiveQuestions

	prof := s.updateProfile(ctx, session, updated, draft, log)

	if engaged, reason := s.proactive.ShouldAsk(req.Message, draft.Message, tc); engaged {
		generated := s.proactive.Generate(stage, prof, tc)
		finalText = engine.Augment(draft.Message, generated)
		proactiveOut = &generated
		log.Debug("proactive questions attached",
			zap.String("reason", reason),
			zap.String("stage", string(stage)),
		)
		s.publishTurn(session.SessionID, intent, stage, true, reason)
	} else {
		s.publishTurn(session.SessionID, intent, stage, false, reason)
	}

	s.persistAssistantTurn(ctx, session.SessionID, finalText, log)

	resp := &model.ChatResponse{
		Message:           finalText,
		Intent:            intent,
		Success:           draft.Success,
		SessionID:         session.SessionID,
		ConversationStage: stage,
		SearchParams:      draft.SearchParams,
		Events:            draft.Events,
		Pagination:        draft.Pagination,
		Proactive:         proactiveOut,
	}
	if prof != nil {
		resp.ProfileSummary = &model.ProfileSummary{
			VisitCount:        prof.VisitCount,
			Interests:         prof.TopInterests(5),
			Preferences:       prof.Preferences,
			PersonalityTraits: prof.PersonalityTraits,
			LastActivity:      prof.LastActivity,
			TotalInteractions: prof.TotalInteractions,
		}
	}
	return resp, nil
}

// resolveSession reuses the caller's session, or the client's latest session
// still under the message limit, or creates a fresh one.
func (s *ChatService) resolveSession(ctx context.Context, sessionID, clientIP string) (model.Session, error) {
	if sessionID != "" {
		session, err := s.store.GetSession(ctx, sessionID)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return model.Session{}, err
		}
		metrics.RecordSession("created")
		return s.store.CreateSession(ctx, sessionID, clientIP)
	}

	if session, err := s.store.LatestActiveSession(ctx, clientIP, s.messageLimit); err == nil {
		metrics.RecordSession("reused")
		return session, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return model.Session{}, err
	}

	metrics.RecordSession("created")
	return s.store.CreateSession(ctx, uuid.Must(uuid.NewV7()).String(), clientIP)
}

func (s *ChatService) sessionLock(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &s.sessionLocks[int(h.Sum32()%sessionLockShards)]
}

func (s *ChatService) persistUserTurn(ctx context.Context, sessionID, content string, log *logger.Logger) {
	msg := model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: sessionID,
		Role:      model.RoleUser,
		Content:   content,
	}
	if err := s.store.AddMessage(ctx, msg); err != nil {
		log.Error("persisting user turn failed", zap.Error(err))
		return
	}
	if err := s.store.IncrementMessageCount(ctx, sessionID); err != nil {
		log.Error("incrementing message count failed", zap.Error(err))
	}
	metrics.RecordMessage(string(model.RoleUser))
}

func (s *ChatService) persistAssistantTurn(ctx context.Context, sessionID, content string, log *logger.Logger) {
	msg := model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: sessionID,
		Role:      model.RoleAssistant,
		Content:   content,
	}
	if err := s.store.AddMessage(ctx, msg); err != nil {
		log.Error("persisting assistant turn failed", zap.Error(err))
		return
	}
	metrics.RecordMessage(string(model.RoleAssistant))
}

// updateProfile derives signals from the turn and writes them through the
// reinforcement semantics. Profile failures degrade to the last known-good
// view; they never fail the turn.
func (s *ChatService) updateProfile(ctx context.Context, session model.Session, hist []model.Message, draft *model.HandlerResponse, log *logger.Logger) *model.ProfileData {
	sessionID := session.SessionID

	derived := s.analyzer.Analyze(ctx, hist)
	if err := s.store.ApplyAnalysis(ctx, sessionID, derived); err != nil {
		log.Error("applying conversation analysis failed", zap.Error(err))
	}

	if draft.SearchParams != nil {
		data := map[string]any{"city": draft.SearchParams.City, "query": draft.SearchParams.Query}
		if err := s.store.AddBehavior(ctx, sessionID, "search", data); err != nil {
			log.Error("recording search behavior failed", zap.Error(err))
		}
		s.publishBehavior(sessionID, "search", data)
	}

	if err := s.store.IncrementInteractions(ctx, sessionID); err != nil {
		log.Error("incrementing interactions failed", zap.Error(err))
	}

	if session.IPAddress != "" {
		if earlier, err := s.store.CountSessionsBefore(ctx, session.IPAddress, sessionID); err == nil {
			if err := s.store.SetVisitCount(ctx, sessionID, earlier+1); err != nil {
				log.Error("setting visit count failed", zap.Error(err))
			}
		}
	}

	prof, err := s.store.GetProfile(ctx, sessionID)
	if err != nil {
		log.Error("loading profile failed", zap.Error(err))
		return &model.ProfileData{SessionID: sessionID, VisitCount: 1}
	}
	return prof
}

// AggregatedProfile merges every profile recorded for a client address.
func (s *ChatService) AggregatedProfile(ctx context.Context, clientIP string) (model.ProfileData, error) {
	ids, err := s.store.SessionIDsForIP(ctx, clientIP)
	if err != nil {
		return model.ProfileData{}, err
	}

	profiles := make([]model.ProfileData, 0, len(ids))
	for _, id := range ids {
		p, err := s.store.GetProfile(ctx, id)
		if err != nil {
			return model.ProfileData{}, err
		}
		profiles = append(profiles, *p)
	}
	return profile.Integrate(profiles), nil
}

func (s *ChatService) publishTurn(sessionID string, intent model.Intent, stage model.Stage, proactive bool, reason string) {
	if s.streams == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := s.streams.PublishTurn(ctx, natsclient.TurnEvent{
			SessionID: sessionID,
			Intent:    intent,
			Stage:     stage,
			Proactive: proactive,
			Reason:    reason,
			Timestamp: time.Now().UTC(),
		}); err != nil {
			s.log.Warn("publishing turn event failed", zap.Error(err))
		}
	}()
}

func (s *ChatService) publishBehavior(sessionID, behaviorType string, data map[string]any) {
	if s.streams == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := s.streams.PublishBehavior(ctx, natsclient.BehaviorEvent{
			SessionID: sessionID,
			Type:      behaviorType,
			Data:      data,
			Timestamp: time.Now().UTC(),
		}); err != nil {
			s.log.Warn("publishing behavior event failed", zap.Error(err))
		}
	}()
}
