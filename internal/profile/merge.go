package profile

import (
	"fmt"
	"sort"

	"github.com/luff543/EventChatBotBackend/internal/model"
)

// Integrate merges per-session profiles into one cross-session view. The
// merge is order-independent: every field is an associative reduction
// (count, sum, mean, max, keyed union) and list outputs are sorted.
func Integrate(profiles []model.ProfileData) model.ProfileData {
	merged := model.ProfileData{
		VisitCount:         len(profiles),
		PersonalityTraits:  map[string]any{},
		CommunicationStyle: map[string]any{},
		EngagementPatterns: map[string]any{},
	}
	if len(profiles) == 0 {
		return merged
	}

	var satisfactionSum float64
	satisfactionN := 0
	interestByName := map[string]model.Interest{}
	prefValues := map[model.PreferenceType]map[string]struct{}{}

	for _, p := range profiles {
		merged.TotalInteractions += p.TotalInteractions
		if p.SatisfactionScore != nil {
			satisfactionSum += *p.SatisfactionScore
			satisfactionN++
		}
		if p.LastActivity.After(merged.LastActivity) {
			merged.LastActivity = p.LastActivity
		}
		if merged.CreatedAt.IsZero() || p.CreatedAt.Before(merged.CreatedAt) {
			merged.CreatedAt = p.CreatedAt
		}

		for _, interest := range p.Interests {
			if existing, ok := interestByName[interest.Name]; !ok || interest.Confidence > existing.Confidence {
				interestByName[interest.Name] = interest
			}
		}

		addPrefs(prefValues, model.PrefCategory, p.Preferences.PreferredCategories)
		addPrefs(prefValues, model.PrefLocation, p.Preferences.PreferredLocations)
		addPrefs(prefValues, model.PrefTime, p.Preferences.PreferredTimes)
		if p.Preferences.GroupPreference != "" {
			addPrefs(prefValues, model.PrefGroupSize, []string{p.Preferences.GroupPreference})
		}
		if p.Preferences.BudgetSensitivity != "" {
			addPrefs(prefValues, model.PrefBudget, []string{p.Preferences.BudgetSensitivity})
		}
	}

	if satisfactionN > 0 {
		mean := satisfactionSum / float64(satisfactionN)
		merged.SatisfactionScore = &mean
	}

	for _, interest := range interestByName {
		merged.Interests = append(merged.Interests, interest)
	}
	sort.Slice(merged.Interests, func(i, j int) bool {
		if merged.Interests[i].Confidence != merged.Interests[j].Confidence {
			return merged.Interests[i].Confidence > merged.Interests[j].Confidence
		}
		return merged.Interests[i].Name < merged.Interests[j].Name
	})

	merged.Preferences = model.ActivityPreferences{
		PreferredCategories: sortedValues(prefValues[model.PrefCategory]),
		PreferredLocations:  sortedValues(prefValues[model.PrefLocation]),
		PreferredTimes:      sortedValues(prefValues[model.PrefTime]),
	}
	// Single-valued buckets take the first distinct value in sorted order so
	// the choice does not depend on profile ordering.
	if group := sortedValues(prefValues[model.PrefGroupSize]); len(group) > 0 {
		merged.Preferences.GroupPreference = group[0]
	}
	if budget := sortedValues(prefValues[model.PrefBudget]); len(budget) > 0 {
		merged.Preferences.BudgetSensitivity = budget[0]
	}

	return merged
}

func addPrefs(dst map[model.PreferenceType]map[string]struct{}, ptype model.PreferenceType, values []string) {
	for _, v := range values {
		if v == "" {
			continue
		}
		if dst[ptype] == nil {
			dst[ptype] = map[string]struct{}{}
		}
		dst[ptype][v] = struct{}{}
	}
}

func sortedValues(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// Recommend derives personalized suggestions from a profile. Confidence is
// the fraction of completeness checks satisfied: interests present,
// preferences present, personality traits present, more than one visit.
func Recommend(p *model.ProfileData) model.Recommendations {
	rec := model.Recommendations{
		SuggestedCategories: p.TopInterests(3),
		SuggestedLocations:  p.Preferences.PreferredLocations,
		SuggestedTimes:      p.Preferences.PreferredTimes,
	}

	social := p.Trait("social_level", 0)
	adventure := p.Trait("adventure_seeking", 0)
	switch {
	case social > 0.7:
		rec.PersonalizedMessage = "You seem to enjoy lively group scenes. I found some gatherings and social events that could be a great fit."
	case adventure > 0.7:
		rec.PersonalizedMessage = "You like trying new things. Here are some out-of-the-ordinary picks worth a look."
	case len(rec.SuggestedCategories) > 0:
		rec.PersonalizedMessage = fmt.Sprintf("Based on your interest in %s, here are events you might enjoy.", rec.SuggestedCategories[0])
	default:
		rec.PersonalizedMessage = "Here are some popular events to get you started."
	}

	checks := 0
	if len(p.Interests) > 0 {
		checks++
	}
	if hasPreferences(p.Preferences) {
		checks++
	}
	if len(p.PersonalityTraits) > 0 {
		checks++
	}
	if p.VisitCount > 1 {
		checks++
	}
	rec.Confidence = float64(checks) / 4.0

	return rec
}

func hasPreferences(prefs model.ActivityPreferences) bool {
	return len(prefs.PreferredCategories) > 0 ||
		len(prefs.PreferredLocations) > 0 ||
		len(prefs.PreferredTimes) > 0 ||
		prefs.GroupPreference != "" ||
		prefs.BudgetSensitivity != ""
}
