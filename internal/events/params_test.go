package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractParamsQueryAndCity(t *testing.T) {
	params := ExtractParams("find concerts in taipei today", 1)

	assert.Equal(t, "music", params.Query)
	assert.Equal(t, "Taipei", params.City)
	assert.Equal(t, "Web Post", params.Type)
	assert.Equal(t, "start_time", params.TimeKey)
	assert.Equal(t, "_score", params.Sort)
	assert.False(t, params.Asc)
	assert.Equal(t, 10, params.Num)
	assert.Equal(t, 1, params.Page)
	assert.Greater(t, params.To, params.From)
	assert.Greater(t, params.From, int64(0))
}

func TestExtractParamsWithoutQuerySortsByTime(t *testing.T) {
	params := ExtractParams("anything happening in tainan", 0)

	assert.Empty(t, params.Query)
	assert.Equal(t, "Tainan", params.City)
	assert.Equal(t, "start_time", params.Sort)
	assert.True(t, params.Asc)
	assert.Equal(t, 1, params.Page)
	assert.Zero(t, params.From)
	assert.Zero(t, params.To)
}

func TestExtractParamsNewTaipeiNotShadowed(t *testing.T) {
	params := ExtractParams("exhibitions in new taipei", 1)

	assert.Equal(t, "New Taipei", params.City)
	assert.Equal(t, "arts", params.Query)
}

func TestExtractParamsFirstListedCityWins(t *testing.T) {
	// Two city mentions must resolve identically on every call.
	for i := 0; i < 50; i++ {
		params := ExtractParams("events in taipei or tainan this weekend", 1)
		require.Equal(t, "Taipei", params.City, "iteration %d", i)
	}
}

func TestExtractParamsTimePhrases(t *testing.T) {
	cases := []string{"today", "tomorrow", "this weekend", "next week", "this week", "this month", "next month"}
	for _, phrase := range cases {
		params := ExtractParams("events "+phrase, 1)
		require.Greater(t, params.From, int64(0), phrase)
		require.Greater(t, params.To, params.From, phrase)
	}

	open := ExtractParams("events someday", 1)
	assert.Zero(t, open.From)
	assert.Zero(t, open.To)
}

func TestExtractParamsPassesPageThrough(t *testing.T) {
	params := ExtractParams("find concerts", 3)
	assert.Equal(t, 3, params.Page)
}
