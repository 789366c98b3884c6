package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luff543/EventChatBotBackend/internal/model"
)

func TestIntegrateKeepsMaxConfidencePerInterest(t *testing.T) {
	a := model.ProfileData{
		Interests: []model.Interest{
			{Name: "music", Confidence: 0.9},
			{Name: "art", Confidence: 0.6},
		},
	}
	b := model.ProfileData{
		Interests: []model.Interest{
			{Name: "music", Confidence: 0.5},
			{Name: "food", Confidence: 0.7},
		},
	}

	merged := Integrate([]model.ProfileData{a, b})

	require.Len(t, merged.Interests, 3)
	assert.Equal(t, "music", merged.Interests[0].Name)
	assert.InDelta(t, 0.9, merged.Interests[0].Confidence, 1e-9)
	assert.Equal(t, "food", merged.Interests[1].Name)
	assert.InDelta(t, 0.7, merged.Interests[1].Confidence, 1e-9)
	assert.Equal(t, "art", merged.Interests[2].Name)
	assert.InDelta(t, 0.6, merged.Interests[2].Confidence, 1e-9)
}

func TestIntegrateIsOrderIndependent(t *testing.T) {
	score1, score2 := 0.8, 0.4
	now := time.Now()
	a := model.ProfileData{
		TotalInteractions: 5,
		SatisfactionScore: &score1,
		LastActivity:      now,
		Interests:         []model.Interest{{Name: "music", Confidence: 0.9}},
		Preferences: model.ActivityPreferences{
			PreferredLocations: []string{"taipei"},
			GroupPreference:    "solo",
		},
	}
	b := model.ProfileData{
		TotalInteractions: 3,
		SatisfactionScore: &score2,
		LastActivity:      now.Add(-time.Hour),
		Interests:         []model.Interest{{Name: "food", Confidence: 0.7}},
		Preferences: model.ActivityPreferences{
			PreferredLocations: []string{"tainan"},
			GroupPreference:    "group",
		},
	}

	ab := Integrate([]model.ProfileData{a, b})
	ba := Integrate([]model.ProfileData{b, a})

	assert.Equal(t, ab, ba)
	assert.Equal(t, 2, ab.VisitCount)
	assert.Equal(t, 8, ab.TotalInteractions)
	require.NotNil(t, ab.SatisfactionScore)
	assert.InDelta(t, 0.6, *ab.SatisfactionScore, 1e-9)
	assert.Equal(t, now, ab.LastActivity)
	assert.Equal(t, []string{"tainan", "taipei"}, ab.Preferences.PreferredLocations)
	assert.Equal(t, "group", ab.Preferences.GroupPreference)
}

func TestIntegrateEmptyInput(t *testing.T) {
	merged := Integrate(nil)

	assert.Equal(t, 0, merged.VisitCount)
	assert.Nil(t, merged.SatisfactionScore)
	assert.Empty(t, merged.Interests)
}

func TestRecommendConfidenceTracksCompleteness(t *testing.T) {
	empty := &model.ProfileData{VisitCount: 1}
	assert.InDelta(t, 0.0, Recommend(empty).Confidence, 1e-9)

	full := &model.ProfileData{
		VisitCount: 3,
		Interests:  []model.Interest{{Name: "music", Confidence: 0.9}},
		Preferences: model.ActivityPreferences{
			PreferredLocations: []string{"taipei"},
		},
		PersonalityTraits: map[string]any{"social_level": 0.5},
	}
	assert.InDelta(t, 1.0, Recommend(full).Confidence, 1e-9)

	partial := &model.ProfileData{
		VisitCount: 1,
		Interests:  []model.Interest{{Name: "music", Confidence: 0.9}},
	}
	assert.InDelta(t, 0.25, Recommend(partial).Confidence, 1e-9)
}

func TestRecommendPersonalizedMessageBranches(t *testing.T) {
	social := &model.ProfileData{
		PersonalityTraits: map[string]any{"social_level": 0.9},
	}
	assert.Contains(t, Recommend(social).PersonalizedMessage, "group")

	adventurous := &model.ProfileData{
		PersonalityTraits: map[string]any{"adventure_seeking": 0.8},
	}
	assert.Contains(t, Recommend(adventurous).PersonalizedMessage, "new")

	interested := &model.ProfileData{
		Interests: []model.Interest{{Name: "music", Confidence: 0.9}},
	}
	assert.Contains(t, Recommend(interested).PersonalizedMessage, "music")

	assert.Contains(t, Recommend(&model.ProfileData{}).PersonalizedMessage, "popular")
}

func TestRecommendTopThreeCategories(t *testing.T) {
	prof := &model.ProfileData{
		Interests: []model.Interest{
			{Name: "music", Confidence: 0.9},
			{Name: "food", Confidence: 0.8},
			{Name: "arts", Confidence: 0.7},
			{Name: "sports", Confidence: 0.6},
		},
	}

	rec := Recommend(prof)

	assert.Equal(t, []string{"music", "food", "arts"}, rec.SuggestedCategories)
}
