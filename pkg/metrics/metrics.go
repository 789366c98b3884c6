// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// IntentClassifications tracks intent routing decisions by resolution path.
	IntentClassifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_classifications_total",
			Help: "Intent classifications by intent and resolution path",
		},
		[]string{"intent", "path"},
	)

	// StageClassifications tracks conversation stage decisions.
	StageClassifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stage_classifications_total",
			Help: "Conversation stage classifications by stage and resolution path",
		},
		[]string{"stage", "path"},
	)

	// ProactiveGating tracks proactive gate decisions by reason.
	ProactiveGating = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proactive_gating_total",
			Help: "Proactive gate decisions by outcome and reason",
		},
		[]string{"decision", "reason"},
	)

	// LLMCallDuration tracks LLM completion call duration.
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "LLM completion call duration",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"provider", "outcome"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// ProfileWrites tracks profile store mutations.
	ProfileWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_writes_total",
			Help: "Profile store writes by kind",
		},
		[]string{"kind"},
	)

	// EventSearches tracks calls to the event search backend.
	EventSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_searches_total",
			Help: "Event search backend calls by status",
		},
		[]string{"status"},
	)

	// SessionsActive tracks sessions created minus expired in this process.
	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessions_total",
			Help: "Sessions by lifecycle event",
		},
		[]string{"event"},
	)

	// MessagesTotal tracks total messages persisted.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages persisted",
		},
		[]string{"role"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordIntent records an intent classification.
func RecordIntent(intent, path string) {
	IntentClassifications.WithLabelValues(intent, path).Inc()
}

// RecordStage records a stage classification.
func RecordStage(stage, path string) {
	StageClassifications.WithLabelValues(stage, path).Inc()
}

// RecordGate records a proactive gate decision.
func RecordGate(engaged bool, reason string) {
	decision := "pass"
	if engaged {
		decision = "engage"
	}
	ProactiveGating.WithLabelValues(decision, reason).Inc()
}

// RecordLLMCall records metrics for an LLM completion call.
func RecordLLMCall(provider, outcome string, duration float64, model string, tokensIn, tokensOut int) {
	LLMCallDuration.WithLabelValues(provider, outcome).Observe(duration)
	if tokensIn > 0 {
		LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	}
	if tokensOut > 0 {
		LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
	}
}

// RecordProfileWrite records a profile store mutation.
func RecordProfileWrite(kind string) {
	ProfileWrites.WithLabelValues(kind).Inc()
}

// RecordEventSearch records an event search backend call.
func RecordEventSearch(status string) {
	EventSearches.WithLabelValues(status).Inc()
}

// RecordSession records a session lifecycle event.
func RecordSession(event string) {
	SessionsTotal.WithLabelValues(event).Inc()
}

// RecordMessage records a persisted message.
func RecordMessage(role string) {
	MessagesTotal.WithLabelValues(role).Inc()
}
