package history

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luff543/EventChatBotBackend/internal/model"
)

func listingWithLinks(n int) string {
	var b strings.Builder
	b.WriteString("Here you go:\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%d. [Event %d](https://example.com/%d)\n", i, i, i)
	}
	return b.String()
}

func TestIsResultListingManyLinks(t *testing.T) {
	assert.True(t, IsResultListing(listingWithLinks(5)))
	assert.False(t, IsResultListing(listingWithLinks(2)))
}

func TestIsResultListingIndicatorPhrases(t *testing.T) {
	dump := "🔍 **Search results** (3 events found):\n---\n📅 Sat"
	assert.True(t, IsResultListing(dump))

	assert.False(t, IsResultListing("Want me to search for concerts?"))
}

func TestFilterDropsAssistantListingsOnly(t *testing.T) {
	listing := listingWithLinks(6)
	hist := []model.Message{
		{Role: model.RoleUser, Content: "find concerts"},
		{Role: model.RoleAssistant, Content: listing},
		{Role: model.RoleUser, Content: listing},
		{Role: model.RoleAssistant, Content: "anything catch your eye?"},
	}

	filtered := Filter(hist)

	require.Len(t, filtered, 3)
	assert.Equal(t, model.RoleUser, filtered[0].Role)
	assert.Equal(t, model.RoleUser, filtered[1].Role)
	assert.Equal(t, "anything catch your eye?", filtered[2].Content)
}

func TestWindowTakesMostRecentAfterFiltering(t *testing.T) {
	var hist []model.Message
	for i := 0; i < 10; i++ {
		hist = append(hist, model.Message{
			Role:    model.RoleUser,
			Content: fmt.Sprintf("message %d", i),
		})
	}
	hist = append(hist, model.Message{Role: model.RoleAssistant, Content: listingWithLinks(7)})

	window := Window(hist, 4)

	require.Len(t, window, 4)
	assert.Equal(t, "message 6", window[0].Content)
	assert.Equal(t, "message 9", window[3].Content)
}

func TestWindowShorterThanLimit(t *testing.T) {
	hist := []model.Message{{Role: model.RoleUser, Content: "hi"}}
	assert.Len(t, Window(hist, 6), 1)
}
