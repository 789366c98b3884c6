package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/luff543/EventChatBotBackend/internal/model"
	"github.com/luff543/EventChatBotBackend/pkg/logger"
)

func newProactive() *ProactiveEngine {
	return NewProactiveEngine(logger.NewNop())
}

func TestShortMessageNeedsGuidance(t *testing.T) {
	// Short greetings trip the length trigger too; that is intended.
	engaged, reason := newProactive().ShouldAsk("hello", "hi there!", nil)

	assert.True(t, engaged)
	assert.Equal(t, ReasonNeedsGuidance, reason)
}

func TestVaguenessNeedsClarification(t *testing.T) {
	engaged, reason := newProactive().ShouldAsk("idk, whatever works", "okay", nil)

	assert.True(t, engaged)
	assert.Equal(t, ReasonNeedsClarification, reason)
}

func TestResultsWithoutQuestionNeedFollowThrough(t *testing.T) {
	draft := "🔍 **Search results** (12 events found):\n1. Jazz night"
	engaged, reason := newProactive().ShouldAsk("music concerts please", draft, nil)

	assert.True(t, engaged)
	assert.Equal(t, ReasonNeedsFollowThrough, reason)
}

func TestResultsWithQuestionDoNotTrigger(t *testing.T) {
	draft := "🔍 **Search results** (12 events found). Want details on one?"
	engaged, reason := newProactive().ShouldAsk("music concerts please", draft, nil)

	assert.False(t, engaged)
	assert.Equal(t, ReasonFlowingNormally, reason)
}

func TestTentativeInterestCanDeepen(t *testing.T) {
	engaged, reason := newProactive().ShouldAsk("that sounds nice to me", "glad you like it!", nil)

	assert.True(t, engaged)
	assert.Equal(t, ReasonCanDeepenInterest, reason)
}

func TestStagnationTriggers(t *testing.T) {
	hist := []model.Message{
		user("activity activity"), assistant("qqq qqq"),
		user("activity activity"), assistant("qqq qqq"),
		user("activity activity"), assistant("qqq qqq"),
		user("activity activity"), assistant("qqq qqq"),
	}
	tc := &model.TurnContext{History: hist}

	engaged, reason := newProactive().ShouldAsk("activity activity", "let me see.", tc)

	assert.True(t, engaged)
	assert.Equal(t, ReasonStalled, reason)
}

func TestEmptyUserTurnsCountAsStagnant(t *testing.T) {
	hist := []model.Message{
		user("looking for concerts"), assistant("here is what I found"),
		user("anything else"), assistant("a few more options"),
		user("   "), assistant("are you still there?"),
		user(""), assistant("take your time!"),
	}
	assert.True(t, isStagnant(hist))
}

func TestShortHistoryNeverStagnates(t *testing.T) {
	hist := []model.Message{
		user("activity activity"), assistant("qqq qqq"),
		user("activity activity"), assistant("qqq qqq"),
	}
	assert.False(t, isStagnant(hist))
}

func TestOpenQuestionOffersOptions(t *testing.T) {
	engaged, reason := newProactive().ShouldAsk("so where should I go tonight", "lots of places!", nil)

	assert.True(t, engaged)
	assert.Equal(t, ReasonOpenQuestion, reason)
}

func TestGatingIsDeterministic(t *testing.T) {
	p := newProactive()
	message := "music concerts in the city please"
	draft := "sure, on it."

	firstEngaged, firstReason := p.ShouldAsk(message, draft, nil)
	for i := 0; i < 5; i++ {
		engaged, reason := p.ShouldAsk(message, draft, nil)
		assert.Equal(t, firstEngaged, engaged)
		assert.Equal(t, firstReason, reason)
	}
}

func TestGenerateOpeningFirstTimeVisitor(t *testing.T) {
	prof := &model.ProfileData{VisitCount: 1}

	pq := newProactive().Generate(model.StageOpening, prof, nil)

	assert.Equal(t, 0.9, pq.Confidence)
	assert.Equal(t, "low", pq.PersonalizationLevel)
	assert.NotEmpty(t, pq.Questions)
	assert.LessOrEqual(t, len(pq.Questions), 3)
	assert.LessOrEqual(t, len(pq.FollowUpSuggestions), 5)
}

func TestGenerateOpeningReturningVisitor(t *testing.T) {
	prof := &model.ProfileData{
		VisitCount: 3,
		Interests:  []model.Interest{{Name: "music", Confidence: 0.9}},
	}

	pq := newProactive().Generate(model.StageOpening, prof, nil)

	assert.Equal(t, 0.9, pq.Confidence)
	assert.Equal(t, "high", pq.PersonalizationLevel)
	assert.Contains(t, pq.Questions[0], "music")
}

func TestGenerateSearchingBranches(t *testing.T) {
	p := newProactive()

	zero := p.Generate(model.StageSearching, nil, &model.TurnContext{LastResultCount: 0})
	assert.Equal(t, 0.8, zero.Confidence)
	assert.Contains(t, strings.ToLower(strings.Join(zero.Questions, " ")), "widen")

	many := p.Generate(model.StageSearching, nil, &model.TurnContext{LastResultCount: 80})
	assert.Contains(t, strings.ToLower(strings.Join(many.Questions, " ")), "narrow")

	some := p.Generate(model.StageSearching, nil, &model.TurnContext{LastResultCount: 10})
	assert.NotEmpty(t, some.Questions)
}

func TestGenerateClosing(t *testing.T) {
	pq := newProactive().Generate(model.StageClosing, nil, nil)

	assert.Equal(t, 0.9, pq.Confidence)
	assert.Equal(t, "closing", pq.QuestionType)
}

func TestGenerateCapsQuestions(t *testing.T) {
	// Exploring with an empty profile stacks preference, location and timing
	// questions; the engine-wide cap keeps at most three.
	prof := &model.ProfileData{PersonalityTraits: map[string]any{"social_level": 0.9}}

	pq := newProactive().Generate(model.StageExploring, prof, nil)

	assert.LessOrEqual(t, len(pq.Questions), 3)
	assert.Equal(t, 0.8, pq.Confidence)
}

func TestAugmentAppendsBlock(t *testing.T) {
	pq := model.ProactiveQuestions{
		Questions:           []string{"q1", "q2", "q3", "q4"},
		FollowUpSuggestions: []string{"s1", "s2", "s3"},
	}

	out := Augment("draft text", pq)

	assert.True(t, strings.HasPrefix(out, "draft text\n\n---\n\n"))
	assert.Contains(t, out, "💡 **I can also help you with:**")
	assert.Contains(t, out, "1. q1")
	assert.Contains(t, out, "3. q3")
	assert.NotContains(t, out, "q4")
	assert.Contains(t, out, "🔍 **Related suggestions:**")
	assert.Contains(t, out, "- s2")
	assert.NotContains(t, out, "s3")
}

func TestAugmentWithoutQuestionsReturnsDraft(t *testing.T) {
	out := Augment("draft text", model.ProactiveQuestions{})
	assert.Equal(t, "draft text", out)
}
