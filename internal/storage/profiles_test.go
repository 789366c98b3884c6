package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luff543/EventChatBotBackend/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInterestReinforcementIsMonotonic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureProfile(ctx, "s1"))

	require.NoError(t, store.UpsertInterest(ctx, "s1", "music", 0, model.SourceConversation))

	prof, err := store.GetProfile(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, prof.Interests, 1)
	assert.InDelta(t, 0.7, prof.Interests[0].Confidence, 1e-9)

	require.NoError(t, store.UpsertInterest(ctx, "s1", "music", 0, model.SourceConversation))
	prof, err = store.GetProfile(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, prof.Interests, 1)
	assert.InDelta(t, 0.8, prof.Interests[0].Confidence, 1e-9)

	// Repeated reinforcement clamps at 1.0 and never resets downward.
	for i := 0; i < 10; i++ {
		require.NoError(t, store.UpsertInterest(ctx, "s1", "music", 0, model.SourceConversation))
	}
	prof, err = store.GetProfile(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, prof.Interests, 1)
	assert.InDelta(t, 1.0, prof.Interests[0].Confidence, 1e-9)
}

func TestInterestCallerConfidence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureProfile(ctx, "s1"))

	require.NoError(t, store.UpsertInterest(ctx, "s1", "food", 0.5, model.SourceExplicit))

	prof, err := store.GetProfile(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, prof.Interests, 1)
	assert.InDelta(t, 0.5, prof.Interests[0].Confidence, 1e-9)
	assert.Equal(t, model.SourceExplicit, prof.Interests[0].Source)
}

func TestPreferenceRoundTripAppearsOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureProfile(ctx, "s1"))

	require.NoError(t, store.UpsertPreference(ctx, "s1", model.PrefLocation, "taipei"))
	require.NoError(t, store.UpsertPreference(ctx, "s1", model.PrefLocation, "taipei"))

	prof, err := store.GetProfile(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"taipei"}, prof.Preferences.PreferredLocations)
}

func TestPreferenceBuckets(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureProfile(ctx, "s1"))

	require.NoError(t, store.UpsertPreference(ctx, "s1", model.PrefCategory, "music"))
	require.NoError(t, store.UpsertPreference(ctx, "s1", model.PrefTime, "weekend"))
	require.NoError(t, store.UpsertPreference(ctx, "s1", model.PrefGroupSize, "small group"))
	require.NoError(t, store.UpsertPreference(ctx, "s1", model.PrefBudget, "low"))

	prof, err := store.GetProfile(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"music"}, prof.Preferences.PreferredCategories)
	assert.Equal(t, []string{"weekend"}, prof.Preferences.PreferredTimes)
	assert.Equal(t, "small group", prof.Preferences.GroupPreference)
	assert.Equal(t, "low", prof.Preferences.BudgetSensitivity)
}

func TestTraitMergePreservesOtherKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureProfile(ctx, "s1"))

	require.NoError(t, store.UpdateTraits(ctx, "s1",
		map[string]any{"social_level": 0.4, "adventure_seeking": 0.6}, nil, nil))
	require.NoError(t, store.UpdateTraits(ctx, "s1",
		map[string]any{"social_level": 0.8}, nil, nil))

	prof, err := store.GetProfile(ctx, "s1")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, prof.Trait("social_level", 0), 1e-9)
	assert.InDelta(t, 0.6, prof.Trait("adventure_seeking", 0), 1e-9)
}

func TestBehaviorsAreAppendOnlyAndBounded(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureProfile(ctx, "s1"))

	for i := 0; i < 12; i++ {
		require.NoError(t, store.AddBehavior(ctx, "s1", "search", map[string]any{"n": i}))
	}

	prof, err := store.GetProfile(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, prof.RecentBehaviors, 10)
}

func TestFeedbackUpdatesSatisfaction(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureProfile(ctx, "s1"))

	five := 5.0
	require.NoError(t, store.AddFeedback(ctx, "s1", model.Feedback{Type: "rating", Rating: &five}))

	prof, err := store.GetProfile(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, prof.SatisfactionScore)
	assert.InDelta(t, 1.0, *prof.SatisfactionScore, 1e-9)

	three := 3.0
	require.NoError(t, store.AddFeedback(ctx, "s1", model.Feedback{Type: "rating", Rating: &three}))

	prof, err = store.GetProfile(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, prof.SatisfactionScore)
	assert.InDelta(t, 0.75, *prof.SatisfactionScore, 1e-9)
	assert.Len(t, prof.FeedbackHistory, 2)
}

func TestApplyAnalysisWritesThroughUpsertSemantics(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureProfile(ctx, "s1"))

	analysis := model.ConversationAnalysis{
		Interests: []string{"music", "arts"},
		ActivityPreferences: model.ActivityPreferences{
			PreferredLocations: []string{"taipei"},
		},
		PersonalityTraits: map[string]any{"social_level": 0.8},
	}
	require.NoError(t, store.ApplyAnalysis(ctx, "s1", analysis))
	require.NoError(t, store.ApplyAnalysis(ctx, "s1", analysis))

	prof, err := store.GetProfile(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, prof.Interests, 2)
	for _, interest := range prof.Interests {
		assert.InDelta(t, 0.8, interest.Confidence, 1e-9)
	}
	assert.Equal(t, []string{"taipei"}, prof.Preferences.PreferredLocations)
	// Each analysis run is itself recorded as a behavior event.
	assert.Len(t, prof.RecentBehaviors, 2)
}

func TestMissingProfileYieldsFreshDefault(t *testing.T) {
	store := newTestStore(t)

	prof, err := store.GetProfile(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Equal(t, "never-seen", prof.SessionID)
	assert.Equal(t, 1, prof.VisitCount)
	assert.Empty(t, prof.Interests)
}
