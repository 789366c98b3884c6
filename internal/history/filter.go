// Package history prepares conversation history windows for prompt
// construction. Assistant turns that are raw formatted result listings add
// noise without signal, so they are dropped before the window is built.
package history

import (
	"regexp"
	"strings"

	"github.com/luff543/EventChatBotBackend/internal/model"
)

var (
	markdownLinkRe = regexp.MustCompile(`\[[^\]]+\]\([^)]+\)`)
	numberedLinkRe = regexp.MustCompile(`(?m)^\s*\d+\.\s+.*\[[^\]]+\]\([^)]+\)`)
)

// listingIndicators are phrasings an assistant result dump opens with.
var listingIndicators = []string{
	"search results",
	"here are the events",
	"found the following",
	"event list",
	"📅",
	"🔍",
	"---",
}

// activityKeywords mark event-listing vocabulary in assistant turns.
var activityKeywords = []string{
	"event", "activity", "exhibition", "concert", "workshop",
	"venue", "ticket", "register",
}

// IsResultListing reports whether an assistant message is a formatted result
// dump rather than conversational text.
func IsResultListing(content string) bool {
	lower := strings.ToLower(content)

	indicators := 0
	for _, marker := range listingIndicators {
		if strings.Contains(lower, marker) {
			indicators++
		}
	}
	if indicators >= 3 {
		return true
	}

	links := len(markdownLinkRe.FindAllString(content, -1))
	if links >= 5 {
		return true
	}

	if len(numberedLinkRe.FindAllString(content, -1)) >= 3 {
		return true
	}

	keywords := 0
	for _, kw := range activityKeywords {
		if strings.Contains(lower, kw) {
			keywords++
		}
	}
	return keywords >= 3 && links >= 2
}

// Filter returns the history with assistant result listings removed. User
// turns always survive.
func Filter(history []model.Message) []model.Message {
	filtered := make([]model.Message, 0, len(history))
	for _, msg := range history {
		if msg.Role == model.RoleAssistant && IsResultListing(msg.Content) {
			continue
		}
		filtered = append(filtered, msg)
	}
	return filtered
}

// Window returns the last n messages of the filtered history.
func Window(history []model.Message, n int) []model.Message {
	filtered := Filter(history)
	if len(filtered) <= n {
		return filtered
	}
	return filtered[len(filtered)-n:]
}
