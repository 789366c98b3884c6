package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/luff543/EventChatBotBackend/internal/lexicon"
	"github.com/luff543/EventChatBotBackend/internal/model"
	"github.com/luff543/EventChatBotBackend/pkg/logger"
	"github.com/luff543/EventChatBotBackend/pkg/metrics"
)

// Gating reason codes, recorded for observability.
const (
	ReasonNeedsGuidance      = "needs guidance"
	ReasonNeedsClarification = "needs clarification"
	ReasonNeedsFollowThrough = "needs follow-through"
	ReasonCanDeepenInterest  = "can deepen interest"
	ReasonStalled            = "stalled, needs new direction"
	ReasonOpenQuestion       = "open question, offer options"
	ReasonFlowingNormally    = "flowing normally"
)

const (
	maxQuestions   = 3
	maxSuggestions = 5
	stagnationMin  = 0.6
)

// ProactiveEngine decides whether to append a proactive question to a turn's
// draft response and, when it should, generates stage-appropriate candidates.
// Both gating and generation are deterministic given their inputs.
type ProactiveEngine struct {
	log *logger.Logger
}

// NewProactiveEngine creates a proactive engine.
func NewProactiveEngine(log *logger.Logger) *ProactiveEngine {
	return &ProactiveEngine{log: log}
}

// ShouldAsk evaluates the gating triggers in fixed order; the first that
// fires wins and its reason is recorded. Short greetings do trip the length
// trigger: guidance on a near-empty message is intended behavior.
func (e *ProactiveEngine) ShouldAsk(userMessage, draft string, tc *model.TurnContext) (bool, string) {
	engaged, reason := gate(userMessage, draft, tc)
	metrics.RecordGate(engaged, reason)
	return engaged, reason
}

func gate(userMessage, draft string, tc *model.TurnContext) (bool, string) {
	if utf8.RuneCountInString(strings.TrimSpace(userMessage)) < 10 {
		return true, ReasonNeedsGuidance
	}
	if lexicon.ContainsAny(userMessage, lexicon.VaguenessMarkers) {
		return true, ReasonNeedsClarification
	}
	if strings.Contains(strings.ToLower(draft), lexicon.SearchResultMarker) &&
		!strings.Contains(draft, "?") {
		return true, ReasonNeedsFollowThrough
	}
	if lexicon.ContainsAny(userMessage, lexicon.TentativeInterestMarkers) {
		return true, ReasonCanDeepenInterest
	}
	if tc != nil && isStagnant(tc.History) {
		return true, ReasonStalled
	}
	if lexicon.ContainsAny(userMessage, lexicon.OpenInterrogatives) {
		return true, ReasonOpenQuestion
	}
	return false, ReasonFlowingNormally
}

// isStagnant reports whether the conversation is circling: over the last 4
// turns at least 2 user messages exist and their combined vocabulary
// repetition ratio exceeds the stagnation threshold.
func isStagnant(hist []model.Message) bool {
	if len(hist) <= 6 {
		return false
	}

	window := hist
	if len(window) > 4 {
		window = window[len(window)-4:]
	}

	var words []string
	userTurns := 0
	for _, msg := range window {
		if msg.Role != model.RoleUser {
			continue
		}
		userTurns++
		words = append(words, strings.Fields(strings.ToLower(msg.Content))...)
	}
	if userTurns < 2 {
		return false
	}
	// User turns carrying no words at all mean the exchange has gone silent;
	// that counts as circling too.
	if len(words) == 0 {
		return true
	}

	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	repetition := 1 - float64(len(unique))/float64(len(words))
	return repetition > stagnationMin
}

// Generate produces stage-appropriate question candidates parameterized by
// profile completeness. Each branch caps its own output; the engine-wide caps
// are applied at the end.
func (e *ProactiveEngine) Generate(stage model.Stage, profile *model.ProfileData, tc *model.TurnContext) model.ProactiveQuestions {
	var pq model.ProactiveQuestions
	switch stage {
	case model.StageOpening:
		pq = generateOpening(profile)
	case model.StageExploring:
		pq = generateExploring(profile)
	case model.StageClarifying:
		pq = generateClarifying(tc)
	case model.StageSearching:
		pq = generateSearching(tc)
	case model.StageRecommending:
		pq = generateRecommending(profile, tc)
	case model.StageDeciding:
		pq = generateDeciding()
	case model.StageClosing:
		pq = generateClosing()
	default:
		pq = generateOpening(profile)
	}

	if len(pq.Questions) > maxQuestions {
		pq.Questions = pq.Questions[:maxQuestions]
	}
	if len(pq.FollowUpSuggestions) > maxSuggestions {
		pq.FollowUpSuggestions = pq.FollowUpSuggestions[:maxSuggestions]
	}
	return pq
}

func generateOpening(profile *model.ProfileData) model.ProactiveQuestions {
	if profile != nil && profile.VisitCount > 1 && len(profile.Interests) > 0 {
		top := profile.TopInterests(2)
		questions := []string{
			fmt.Sprintf("Welcome back! Would you like to see what's new in %s?", top[0]),
		}
		if len(top) > 1 {
			questions = append(questions,
				fmt.Sprintf("Or shall we explore more %s events this time?", top[1]))
		}
		return model.ProactiveQuestions{
			Questions:            questions,
			QuestionType:         "personalized_opening",
			Confidence:           0.9,
			FollowUpSuggestions:  []string{"Show me this week's highlights", "Surprise me with something new"},
			PersonalizationLevel: "high",
		}
	}

	suggestions := make([]string, 0, maxSuggestions)
	for _, cat := range lexicon.StarterCategories {
		suggestions = append(suggestions, "Browse "+cat)
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	return model.ProactiveQuestions{
		Questions: []string{
			"What kind of events are you in the mood for today?",
			"Are you looking for something this weekend, or planning ahead?",
		},
		QuestionType:         "opening",
		Confidence:           0.9,
		FollowUpSuggestions:  suggestions,
		PersonalizationLevel: "low",
	}
}

func generateExploring(profile *model.ProfileData) model.ProactiveQuestions {
	var questions []string
	suggestions := []string{"Tell me your favorite weekend activity", "Show me popular events nearby"}

	interestCount := 0
	if profile != nil {
		interestCount = len(profile.Interests)
	}
	switch {
	case interestCount == 0:
		questions = append(questions,
			"Do you usually prefer indoor or outdoor activities?",
			"Do you like going out solo, or with friends and family?",
		)
	case interestCount == 1:
		top := profile.TopInterests(1)
		questions = append(questions,
			fmt.Sprintf("You seem to enjoy %s. Want to dig deeper into it, or branch out to something related?", top[0]),
		)
	default:
		top := profile.TopInterests(2)
		questions = append(questions,
			fmt.Sprintf("Should we focus on %s or %s today?", top[0], top[1]),
		)
	}

	if profile != nil {
		if social := profile.Trait("social_level", 0.5); social > 0.7 {
			questions = append(questions, "Would a bigger group event suit you, or something more intimate?")
		} else if social < 0.3 {
			questions = append(questions, "Would you like me to look for solo-friendly activities?")
		}
		if len(profile.Preferences.PreferredLocations) == 0 {
			questions = append(questions, "Which city or area works best for you?")
		}
		if len(profile.Preferences.PreferredTimes) == 0 {
			questions = append(questions, "When do you usually have time for events, weekdays or weekends?")
		}
	}

	return model.ProactiveQuestions{
		Questions:            questions,
		QuestionType:         "exploring",
		Confidence:           0.8,
		FollowUpSuggestions:  suggestions,
		PersonalizationLevel: personalization(profile),
	}
}

func generateClarifying(tc *model.TurnContext) model.ProactiveQuestions {
	var questions []string
	if tc != nil {
		for _, ent := range tc.AmbiguousEntities {
			if ent.Value == "" {
				questions = append(questions,
					fmt.Sprintf("When you say %q, what exactly do you have in mind?", ent.Entity))
			}
		}
		if sp := tc.CurrentSearch; sp != nil {
			if sp.City == "" {
				questions = append(questions, "Which city should I search in?")
			}
			if sp.From == 0 && sp.To == 0 {
				questions = append(questions, "Is there a particular date range you want?")
			}
		}
	}
	if len(questions) == 0 {
		questions = []string{
			"Did I get that right, or would you like to adjust anything?",
			"Is there anything else I should narrow down before searching?",
		}
	}

	return model.ProactiveQuestions{
		Questions:           questions,
		QuestionType:        "clarifying",
		Confidence:          0.7,
		FollowUpSuggestions: []string{"Search with what we have", "Start over with a new request"},
	}
}

func generateSearching(tc *model.TurnContext) model.ProactiveQuestions {
	count := 0
	if tc != nil {
		count = tc.LastResultCount
	}

	switch {
	case count == 0:
		return model.ProactiveQuestions{
			Questions: []string{
				"No events matched. Shall we widen the date range or try a nearby city?",
				"Would you like me to drop some of the filters?",
			},
			QuestionType:        "searching",
			Confidence:          0.8,
			FollowUpSuggestions: []string{"Search all cities", "Search the whole month"},
		}
	case count > 50:
		return model.ProactiveQuestions{
			Questions: []string{
				"That's a lot of matches. Want to narrow by category or date?",
				"Should I show only the most popular ones?",
			},
			QuestionType:        "searching",
			Confidence:          0.8,
			FollowUpSuggestions: []string{"Filter to this weekend", "Filter by my favorite category"},
		}
	default:
		return model.ProactiveQuestions{
			Questions: []string{
				"Do any of these look good, or should I adjust the search?",
			},
			QuestionType:        "searching",
			Confidence:          0.8,
			FollowUpSuggestions: []string{"Show more details on one", "Change the search"},
		}
	}
}

func generateRecommending(profile *model.ProfileData, tc *model.TurnContext) model.ProactiveQuestions {
	count := 0
	if tc != nil {
		count = tc.LastResultCount
	}

	var questions []string
	switch {
	case count == 1:
		questions = []string{"This one looks like a strong match. Want the full details?"}
	case count <= 5:
		questions = []string{"Which of these picks appeals to you most?"}
	default:
		questions = []string{"Quite a few options here. Want me to rank the top three for you?"}
	}

	if profile != nil && len(profile.Interests) > 0 {
		top := profile.TopInterests(1)
		questions = append(questions,
			fmt.Sprintf("Since you like %s, should I weight recommendations toward it?", top[0]))
	}

	return model.ProactiveQuestions{
		Questions:            questions,
		QuestionType:         "recommending",
		Confidence:           0.8,
		FollowUpSuggestions:  []string{"Compare two of them", "Save these for later"},
		PersonalizationLevel: personalization(profile),
	}
}

func generateDeciding() model.ProactiveQuestions {
	return model.ProactiveQuestions{
		Questions: []string{
			"What matters most for your choice, timing, price or location?",
			"Would seeing how to register help you decide?",
		},
		QuestionType:        "deciding",
		Confidence:          0.7,
		FollowUpSuggestions: []string{"Show registration info", "Check the venue location"},
	}
}

func generateClosing() model.ProactiveQuestions {
	return model.ProactiveQuestions{
		Questions: []string{
			"Did you find what you were looking for today?",
			"Anything else I can help with before you go?",
		},
		QuestionType:        "closing",
		Confidence:          0.9,
		FollowUpSuggestions: []string{"Leave feedback", "Come back for next week's picks"},
	}
}

func personalization(profile *model.ProfileData) string {
	if profile == nil {
		return "low"
	}
	switch {
	case len(profile.Interests) >= 2 && profile.VisitCount > 1:
		return "high"
	case len(profile.Interests) > 0:
		return "medium"
	default:
		return "low"
	}
}

// Augment appends the proactive block to a draft response. Up to 3 questions
// and 2 follow-up suggestions survive; this is pure text concatenation.
func Augment(draft string, pq model.ProactiveQuestions) string {
	if len(pq.Questions) == 0 {
		return draft
	}

	var b strings.Builder
	b.WriteString(draft)
	b.WriteString("\n\n---\n\n")
	b.WriteString("💡 **I can also help you with:**\n")
	for i, q := range pq.Questions {
		if i == maxQuestions {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	if len(pq.FollowUpSuggestions) > 0 {
		b.WriteString("\n🔍 **Related suggestions:**\n")
		for i, s := range pq.FollowUpSuggestions {
			if i == 2 {
				break
			}
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	return b.String()
}
