package model

// Intent is the closed-set category describing what a user turn asks for.
type Intent string

const (
	IntentSearchEvents       Intent = "search_events"
	IntentGetEventDetails    Intent = "get_event_details"
	IntentAnalyzeTrends      Intent = "analyze_trends"
	IntentAnalyzeStatistics  Intent = "analyze_statistics"
	IntentGetRecommendations Intent = "get_recommendations"
	IntentCompareEvents      Intent = "compare_events"
	IntentAnalyzeGeographic  Intent = "analyze_geographic"
	IntentGenerateReport     Intent = "generate_report"
	IntentGreeting           Intent = "greeting"
	IntentGoodbye            Intent = "goodbye"
	IntentHelp               Intent = "help"
	IntentOther              Intent = "other"
)

// AllIntents lists every valid intent in a stable order.
var AllIntents = []Intent{
	IntentSearchEvents,
	IntentGetEventDetails,
	IntentAnalyzeTrends,
	IntentAnalyzeStatistics,
	IntentGetRecommendations,
	IntentCompareEvents,
	IntentAnalyzeGeographic,
	IntentGenerateReport,
	IntentGreeting,
	IntentGoodbye,
	IntentHelp,
	IntentOther,
}

// ValidIntent reports whether s names a member of the intent set.
func ValidIntent(s string) bool {
	for _, i := range AllIntents {
		if string(i) == s {
			return true
		}
	}
	return false
}
