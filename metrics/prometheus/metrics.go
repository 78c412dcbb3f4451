// Package prometheus provides Prometheus metrics for hookline dispatch and
// the well-known lifecycle hooks.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hookline"

var (
	// dispatchDuration is a histogram of Trigger dispatch duration in seconds.
	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Histogram of hook dispatch duration in seconds",
			Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
		},
		[]string{"hook"},
	)

	// dispatchesTotal is a counter of Trigger calls by hook.
	dispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Total number of hook dispatches",
		},
		[]string{"hook"},
	)

	// handlerInvocationsTotal is a counter of handler invocations by hook.
	handlerInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_invocations_total",
			Help:      "Total number of handler invocations",
		},
		[]string{"hook"},
	)

	// handlerPanicsTotal is a counter of recovered handler panics by hook.
	handlerPanicsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_panics_total",
			Help:      "Total number of recovered handler panics",
		},
		[]string{"hook"},
	)

	// conversationsActive is a gauge of conversations started and not yet ended.
	conversationsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conversations_active",
			Help:      "Number of currently active conversations",
		},
	)

	// turnsTotal is a counter of completed conversational turns.
	turnsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of completed conversational turns",
		},
	)

	// userInputsTotal is a counter of received user inputs.
	userInputsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_inputs_total",
			Help:      "Total number of received user inputs",
		},
	)

	// responsesTotal is a counter of completed assistant responses.
	responsesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Total number of completed assistant responses",
		},
	)

	// errorsTotal is a counter of runtime errors reported through the error hook.
	errorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of runtime errors",
		},
	)

	// toolCallDuration is a histogram of tool call duration.
	toolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Duration of tool calls in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"tool"},
	)

	// toolCallsTotal is a counter of tool calls.
	toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of tool calls",
		},
		[]string{"tool", "status"}, // status: success, error
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		dispatchDuration,
		dispatchesTotal,
		handlerInvocationsTotal,
		handlerPanicsTotal,
		conversationsActive,
		turnsTotal,
		userInputsTotal,
		responsesTotal,
		errorsTotal,
		toolCallDuration,
		toolCallsTotal,
	}
)

// RecordDispatch records one Trigger call.
func RecordDispatch(hook string, handlers, panics int, durationSeconds float64) {
	dispatchesTotal.WithLabelValues(hook).Inc()
	dispatchDuration.WithLabelValues(hook).Observe(durationSeconds)
	if handlers > 0 {
		handlerInvocationsTotal.WithLabelValues(hook).Add(float64(handlers))
	}
	if panics > 0 {
		handlerPanicsTotal.WithLabelValues(hook).Add(float64(panics))
	}
}

// RecordConversationStart records a conversation start.
func RecordConversationStart() {
	conversationsActive.Inc()
}

// RecordConversationEnd records a conversation end.
func RecordConversationEnd() {
	conversationsActive.Dec()
}

// RecordTurn records a completed conversational turn.
func RecordTurn() {
	turnsTotal.Inc()
}

// RecordUserInput records a received user input.
func RecordUserInput() {
	userInputsTotal.Inc()
}

// RecordResponse records a completed assistant response.
func RecordResponse() {
	responsesTotal.Inc()
}

// RecordError records a runtime error.
func RecordError() {
	errorsTotal.Inc()
}

// RecordToolCall records a tool call.
func RecordToolCall(toolName, status string, durationSeconds float64) {
	toolCallDuration.WithLabelValues(toolName).Observe(durationSeconds)
	toolCallsTotal.WithLabelValues(toolName, status).Inc()
}
