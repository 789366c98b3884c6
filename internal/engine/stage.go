package engine

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/luff543/EventChatBotBackend/internal/lexicon"
	"github.com/luff543/EventChatBotBackend/internal/llm"
	"github.com/luff543/EventChatBotBackend/internal/model"
	"github.com/luff543/EventChatBotBackend/pkg/logger"
	"github.com/luff543/EventChatBotBackend/pkg/metrics"
)

// StageClassifier determines where a conversation is in its lifecycle. The
// stage is recomputed from the live history each turn, never persisted.
type StageClassifier struct {
	llm     llm.Client
	timeout time.Duration
	log     *logger.Logger
}

// NewStageClassifier creates a stage classifier. client may be nil.
func NewStageClassifier(client llm.Client, timeout time.Duration, log *logger.Logger) *StageClassifier {
	return &StageClassifier{llm: client, timeout: timeout, log: log}
}

// Classify returns the current conversation stage. Histories of two or fewer
// turns are always opening, regardless of any classifier output.
func (s *StageClassifier) Classify(ctx context.Context, hist []model.Message) model.Stage {
	if len(hist) <= 2 {
		metrics.RecordStage(string(model.StageOpening), "rule")
		return model.StageOpening
	}

	if s.llm != nil {
		if stage, ok := s.classifyLLM(ctx, hist); ok {
			metrics.RecordStage(string(stage), "llm")
			return stage
		}
	}

	stage := FallbackStage(hist)
	metrics.RecordStage(string(stage), "fallback")
	s.log.Debug("stage classified via fallback",
		zap.String("stage", string(stage)),
		zap.String("lexicon_version", lexicon.Version),
	)
	return stage
}

func (s *StageClassifier) classifyLLM(ctx context.Context, hist []model.Message) (model.Stage, bool) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.llm.Complete(cctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: stagePrompt},
			{Role: "user", Content: buildPromptHistory(hist[:len(hist)-1], hist[len(hist)-1].Content)},
		},
		MaxTokens:   8,
		Temperature: 0,
	})
	if err != nil {
		failure := llm.ClassifyErr(err)
		metrics.RecordLLMCall(s.llm.Name(), failure.String(), time.Since(start).Seconds(), "", 0, 0)
		s.log.Warn("stage classification call failed",
			zap.String("failure", failure.String()),
			zap.Error(err),
		)
		return "", false
	}

	label := strings.ToLower(strings.TrimSpace(resp.Content))
	if !model.ValidStage(label) {
		metrics.RecordLLMCall(s.llm.Name(), llm.FailureMalformed.String(), time.Since(start).Seconds(), resp.Model, resp.TokensIn, resp.TokensOut)
		s.log.Warn("stage classification returned invalid label", zap.String("label", label))
		return "", false
	}

	metrics.RecordLLMCall(s.llm.Name(), "ok", time.Since(start).Seconds(), resp.Model, resp.TokensIn, resp.TokensOut)
	return model.Stage(label), true
}

// FallbackStage is the deterministic rule-based stage inference. It is a
// total function: any history, including an empty one, yields a valid stage.
// Keyword families are checked in fixed priority; if none match, a turn-count
// heuristic decides.
func FallbackStage(hist []model.Message) model.Stage {
	var lastUser, lastAssistant string
	for i := len(hist) - 1; i >= 0; i-- {
		switch hist[i].Role {
		case model.RoleUser:
			if lastUser == "" {
				lastUser = hist[i].Content
			}
		case model.RoleAssistant:
			if lastAssistant == "" {
				lastAssistant = hist[i].Content
			}
		}
		if lastUser != "" && lastAssistant != "" {
			break
		}
	}

	both := lastUser + " " + lastAssistant
	switch {
	case lexicon.ContainsAny(both, lexicon.ClosingStage):
		return model.StageClosing
	case lexicon.ContainsAny(lastUser, lexicon.SearchingStage):
		return model.StageSearching
	case lexicon.ContainsAny(lastAssistant, lexicon.RecommendingStage):
		return model.StageRecommending
	case lexicon.ContainsAny(lastUser, lexicon.DecidingStage):
		return model.StageDeciding
	case lexicon.ContainsAny(both, lexicon.ClarifyingStage):
		return model.StageClarifying
	case lexicon.ContainsAny(both, lexicon.ExploringStage):
		return model.StageExploring
	case lexicon.ContainsAny(both, lexicon.OpeningStage):
		return model.StageOpening
	}

	switch n := len(hist); {
	case n <= 4:
		return model.StageExploring
	case n <= 8:
		return model.StageClarifying
	case n <= 12:
		return model.StageSearching
	default:
		return model.StageRecommending
	}
}

// stageContexts is the static per-stage metadata consumed by the proactive
// question engine.
var stageContexts = map[model.Stage]model.StageContext{
	model.StageOpening: {
		Focus:         "welcome and orientation",
		Goals:         []string{"greet the user", "learn what brings them here"},
		Tone:          "warm",
		QuestionStyle: "open-ended",
	},
	model.StageExploring: {
		Focus:         "interest discovery",
		Goals:         []string{"surface interests", "learn basic preferences"},
		Tone:          "curious",
		QuestionStyle: "preference probing",
	},
	model.StageClarifying: {
		Focus:         "requirement refinement",
		Goals:         []string{"resolve ambiguity", "complete search parameters"},
		Tone:          "precise",
		QuestionStyle: "confirmation",
	},
	model.StageSearching: {
		Focus:         "result delivery",
		Goals:         []string{"surface relevant events", "tune result volume"},
		Tone:          "helpful",
		QuestionStyle: "constraint adjustment",
	},
	model.StageRecommending: {
		Focus:         "personalized suggestions",
		Goals:         []string{"match events to the profile", "invite comparison"},
		Tone:          "enthusiastic",
		QuestionStyle: "choice framing",
	},
	model.StageDeciding: {
		Focus:         "decision support",
		Goals:         []string{"help commit to an option", "remove blockers"},
		Tone:          "supportive",
		QuestionStyle: "decision support",
	},
	model.StageClosing: {
		Focus:         "wrap-up",
		Goals:         []string{"confirm satisfaction", "invite return"},
		Tone:          "appreciative",
		QuestionStyle: "farewell",
	},
}

// StageContextFor returns the static metadata for a stage.
func StageContextFor(stage model.Stage) model.StageContext {
	if ctx, ok := stageContexts[stage]; ok {
		return ctx
	}
	return stageContexts[model.StageOpening]
}

const stagePrompt = `You classify where an event chatbot conversation is in its lifecycle. Respond with exactly one label from:
opening, exploring, clarifying, searching, recommending, deciding, closing.
Respond with the label only.`
