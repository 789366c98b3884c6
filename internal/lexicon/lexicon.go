// Package lexicon holds the shared keyword tables used by every rule-based
// fallback path. Keeping them in one place keeps the deterministic fallbacks
// consistent across the intent router, the stage classifier, the proactive
// engine and the profile analyzer.
package lexicon

import "strings"

// Version identifies the keyword table revision, logged alongside fallback
// decisions so classifier behavior changes are traceable.
const Version = "2024-06"

// Intent fallback keyword sets, evaluated in router priority order.
var (
	SearchIntent = []string{
		"find", "search", "look for", "looking for", "event", "events",
		"concert", "exhibition", "workshop", "activities", "things to do",
	}
	DetailIntent = []string{
		"details", "detail", "more info", "tell me more", "information about",
		"describe",
	}
	AnalysisIntent = []string{
		"analyze", "analysis", "statistics", "trend", "trends", "report",
		"distribution",
	}
	RecommendationIntent = []string{
		"recommend", "suggestion", "suggest", "suitable", "for me",
	}
	GreetingIntent = []string{
		"hello", "hi", "hey", "good morning", "good afternoon", "good evening",
	}
	GoodbyeIntent = []string{
		"bye", "goodbye", "see you", "farewell",
	}
	HelpIntent = []string{
		"help", "how do i", "what can you do",
	}
)

// Stage fallback keyword families, evaluated in the classifier's fixed
// priority order.
var (
	ClosingStage = []string{
		"thanks", "thank you", "bye", "goodbye", "that's all", "no more",
		"i'm done",
	}
	SearchingStage = []string{
		"search", "find", "look for", "looking for", "events", "activities",
	}
	RecommendingStage = []string{
		"recommend", "suggest", "you might like", "found for you",
		"here are some", "great options",
	}
	DecidingStage = []string{
		"considering", "think about", "decide", "choose", "sign up",
		"register", "interested", "sounds good",
	}
	ClarifyingStage = []string{
		"specifically", "details", "confirm", "is that", "correct",
		"you mean", "do you mean",
	}
	ExploringStage = []string{
		"like", "want", "prefer", "interest", "type of", "kind of",
	}
	OpeningStage = []string{
		"hello", "hi", "hey", "good morning", "get started", "help",
	}
)

// Proactive gating markers.
var (
	VaguenessMarkers = []string{
		"not sure", "whatever", "don't know", "dont know", "no idea",
		"anything is fine", "just looking", "idk",
	}
	TentativeInterestMarkers = []string{
		"sounds nice", "looks good", "interesting", "seems like",
		"looks like", "feels like",
	}
	OpenInterrogatives = []string{
		"what", "how", "why", "where", "which",
	}
	// SearchResultMarker is the marker a search handler embeds in its draft
	// response; a draft carrying it without a question mark needs follow-through.
	SearchResultMarker = "search results"
)

// InterestKeywords maps interest categories to the message keywords that
// signal them. Used by the profile analyzer's fallback path.
var InterestKeywords = map[string][]string{
	"music":    {"music", "concert", "gig", "band", "singer", "festival", "live show"},
	"arts":     {"art", "exhibition", "gallery", "museum", "painting", "theatre", "photography"},
	"sports":   {"sport", "fitness", "yoga", "running", "gym", "swimming", "hiking", "cycling"},
	"food":     {"food", "restaurant", "cooking", "cuisine", "wine", "coffee", "dessert", "tasting"},
	"learning": {"learning", "course", "lecture", "workshop", "seminar", "class", "training"},
	"family":   {"family", "kids", "children", "parent", "child-friendly"},
	"outdoors": {"outdoor", "picnic", "camping", "nature", "park", "beach"},
	"social":   {"social", "meetup", "party", "networking", "gathering"},
}

// LocationKeywords are the city names recognized by the fallback analyzers
// and search parameter extraction.
var LocationKeywords = []string{
	"taipei", "new taipei", "taoyuan", "taichung", "tainan", "kaohsiung",
	"keelung", "hsinchu", "chiayi", "yilan", "hualien", "taitung",
}

// Personality indicator keyword lists for the fallback conversation analysis.
var (
	SocialIndicators    = []string{"friends", "together", "group", "everyone", "party", "meetup"}
	AdventureIndicators = []string{"new", "special", "exciting", "adventure", "experience", "try something"}
)

// StarterCategories seed the suggestion list for first-time visitors.
var StarterCategories = []string{
	"live music", "arts & culture", "outdoor activities", "food experiences", "courses & workshops",
}

// ContainsAny reports whether the lowercased text contains any of the given
// keywords as a substring.
func ContainsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// MatchCategories returns the interest categories whose keywords appear in
// text, capped at limit, in stable (sorted) category order.
func MatchCategories(text string, limit int) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, category := range interestOrder {
		if ContainsAny(lower, InterestKeywords[category]) {
			found = append(found, category)
			if len(found) == limit {
				break
			}
		}
	}
	return found
}

// interestOrder fixes the iteration order over InterestKeywords so fallback
// results are deterministic.
var interestOrder = []string{
	"arts", "music", "sports", "food", "learning", "family", "outdoors", "social",
}
