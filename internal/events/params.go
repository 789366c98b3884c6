// Package events talks to the EventGo search backend and extracts search
// parameters from free-text messages.
package events

import (
	"strings"
	"time"

	"github.com/luff543/EventChatBotBackend/internal/lexicon"
	"github.com/luff543/EventChatBotBackend/internal/model"
)

const (
	defaultType    = "Web Post"
	defaultTimeKey = "start_time"
	defaultNum     = 10
)

// cityNames maps recognized city mentions to the canonical form the search
// backend indexes.
var cityNames = map[string]string{
	"taipei":     "Taipei",
	"new taipei": "New Taipei",
	"taoyuan":    "Taoyuan",
	"taichung":   "Taichung",
	"tainan":     "Tainan",
	"kaohsiung":  "Kaohsiung",
	"keelung":    "Keelung",
	"hsinchu":    "Hsinchu",
	"chiayi":     "Chiayi",
	"yilan":      "Yilan",
	"hualien":    "Hualien",
	"taitung":    "Taitung",
}

// ExtractParams derives search parameters from a user message. Relevance
// sorting applies only when a query term was found; otherwise results come
// back in start-time order.
func ExtractParams(message string, page int) *model.SearchParams {
	lower := strings.ToLower(message)
	now := time.Now()

	params := &model.SearchParams{
		Type:    defaultType,
		TimeKey: defaultTimeKey,
		Num:     defaultNum,
		Page:    page,
	}
	if params.Page < 1 {
		params.Page = 1
	}

	// Longer city names first so "new taipei" is not shadowed by "taipei";
	// the rest scan in the fixed lexicon order so a message naming several
	// cities always resolves the same way.
	if strings.Contains(lower, "new taipei") {
		params.City = cityNames["new taipei"]
	} else {
		for _, key := range lexicon.LocationKeywords {
			if key != "new taipei" && strings.Contains(lower, key) {
				params.City = cityNames[key]
				break
			}
		}
	}

	params.From, params.To = extractTimeRange(lower, now)

	if categories := lexicon.MatchCategories(lower, 1); len(categories) > 0 {
		params.Query = categories[0]
	}

	if params.Query != "" {
		params.Sort = "_score"
		params.Asc = false
	} else {
		params.Sort = defaultTimeKey
		params.Asc = true
	}

	return params
}

// extractTimeRange resolves relative time phrases to millisecond timestamps.
// An unrecognized phrase leaves the range open.
func extractTimeRange(lower string, now time.Time) (int64, int64) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case strings.Contains(lower, "today"):
		return millis(dayStart), millis(dayStart.AddDate(0, 0, 1))
	case strings.Contains(lower, "tomorrow"):
		start := dayStart.AddDate(0, 0, 1)
		return millis(start), millis(start.AddDate(0, 0, 1))
	case strings.Contains(lower, "this weekend"):
		// Saturday through end of Sunday.
		daysUntilSaturday := (int(time.Saturday) - int(now.Weekday()) + 7) % 7
		start := dayStart.AddDate(0, 0, daysUntilSaturday)
		return millis(start), millis(start.AddDate(0, 0, 2))
	case strings.Contains(lower, "next week"):
		daysUntilMonday := (int(time.Monday) - int(now.Weekday()) + 7) % 7
		if daysUntilMonday == 0 {
			daysUntilMonday = 7
		}
		start := dayStart.AddDate(0, 0, daysUntilMonday)
		return millis(start), millis(start.AddDate(0, 0, 7))
	case strings.Contains(lower, "this week"):
		daysSinceMonday := (int(now.Weekday()) - int(time.Monday) + 7) % 7
		start := dayStart.AddDate(0, 0, -daysSinceMonday)
		return millis(start), millis(start.AddDate(0, 0, 7))
	case strings.Contains(lower, "next month"):
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
		return millis(start), millis(start.AddDate(0, 1, 0))
	case strings.Contains(lower, "this month"):
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return millis(start), millis(start.AddDate(0, 1, 0))
	}
	return 0, 0
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}
