package model

import (
	"sort"
	"time"
)

// InterestSource tags where an interest observation came from.
type InterestSource string

const (
	SourceConversation InterestSource = "conversation"
	SourceExplicit     InterestSource = "explicit"
	SourceBehavioral   InterestSource = "behavioral"
)

// Interest is a single interest category observed for a profile. There is at
// most one Interest per (profile, name) pair; repeated observation reinforces
// confidence toward 1.0 and never lowers it.
type Interest struct {
	Name       string         `json:"interest" db:"interest"`
	Confidence float64        `json:"confidence" db:"confidence"`
	Source     InterestSource `json:"source" db:"source"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" db:"updated_at"`
}

// PreferenceType enumerates the preference buckets.
type PreferenceType string

const (
	PrefCategory  PreferenceType = "category"
	PrefLocation  PreferenceType = "location"
	PrefTime      PreferenceType = "time"
	PrefGroupSize PreferenceType = "group_size"
	PrefBudget    PreferenceType = "budget"
)

// Preference is a (type, value) pair with its own reinforced confidence.
// At most one row exists per (profile, type, value).
type Preference struct {
	Type       PreferenceType `json:"preference_type" db:"preference_type"`
	Value      string         `json:"preference_value" db:"preference_value"`
	Confidence float64        `json:"confidence" db:"confidence"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" db:"updated_at"`
}

// ActivityPreferences is the bucketed view of a profile's preferences.
type ActivityPreferences struct {
	PreferredCategories []string `json:"preferred_categories"`
	PreferredLocations  []string `json:"preferred_locations"`
	PreferredTimes      []string `json:"preferred_times"`
	GroupPreference     string   `json:"group_preference,omitempty"`
	BudgetSensitivity   string   `json:"budget_sensitivity,omitempty"`
}

// BehaviorEvent is an immutable, append-only record of an observed action.
type BehaviorEvent struct {
	Type      string         `json:"behavior_type"`
	Data      map[string]any `json:"behavior_data"`
	Timestamp time.Time      `json:"timestamp"`
}

// Feedback is an immutable record of an explicit user signal.
type Feedback struct {
	Type      string         `json:"feedback_type"`
	Value     string         `json:"feedback_value"`
	Rating    *float64       `json:"rating,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ProfileData is the full per-session user profile: the profile row plus its
// interests, preferences, recent behaviors and feedback history.
type ProfileData struct {
	SessionID          string              `json:"session_id"`
	VisitCount         int                 `json:"visit_count"`
	TotalInteractions  int                 `json:"total_interactions"`
	SatisfactionScore  *float64            `json:"satisfaction_score,omitempty"`
	LastActivity       time.Time           `json:"last_activity"`
	CreatedAt          time.Time           `json:"created_at"`
	PersonalityTraits  map[string]any      `json:"personality_traits"`
	CommunicationStyle map[string]any      `json:"communication_style"`
	EngagementPatterns map[string]any      `json:"engagement_patterns"`
	Interests          []Interest          `json:"interests"`
	Preferences        ActivityPreferences `json:"activity_preferences"`
	RecentBehaviors    []BehaviorEvent     `json:"recent_behaviors"`
	FeedbackHistory    []Feedback          `json:"feedback_history"`
}

// TopInterests returns up to n interest names ordered by confidence
// descending, ties broken by name.
func (p *ProfileData) TopInterests(n int) []string {
	sorted := make([]Interest, len(p.Interests))
	copy(sorted, p.Interests)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		return sorted[i].Name < sorted[j].Name
	})
	names := make([]string, 0, n)
	for _, it := range sorted {
		if len(names) == n {
			break
		}
		names = append(names, it.Name)
	}
	return names
}

// Trait reads a numeric personality trait, returning def when absent or
// not numeric.
func (p *ProfileData) Trait(name string, def float64) float64 {
	v, ok := p.PersonalityTraits[name]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return def
}

// ConversationAnalysis is the normalized result of conversation-derived
// profile analysis, regardless of whether it came from the text-generation
// capability or the keyword fallback.
type ConversationAnalysis struct {
	Interests           []string            `json:"interests"`
	ActivityPreferences ActivityPreferences `json:"activity_preferences"`
	PersonalityTraits   map[string]any      `json:"personality_traits"`
	CommunicationStyle  map[string]any      `json:"communication_style"`
	EngagementPatterns  map[string]any      `json:"engagement_patterns"`
}

// Recommendations is the profile-derived personalization output.
type Recommendations struct {
	SuggestedCategories []string `json:"suggested_categories"`
	SuggestedLocations  []string `json:"suggested_locations"`
	SuggestedTimes      []string `json:"suggested_times"`
	PersonalizedMessage string   `json:"personalized_message"`
	Confidence          float64  `json:"confidence"`
}

// ProactiveQuestions is the generation output of the proactive engine.
type ProactiveQuestions struct {
	Questions            []string `json:"questions"`
	QuestionType         string   `json:"question_type"`
	Confidence           float64  `json:"confidence"`
	FollowUpSuggestions  []string `json:"follow_up_suggestions"`
	PersonalizationLevel string   `json:"personalization_level,omitempty"`
}
