package prometheus

import (
	"github.com/taliolabs/hookline/hooks"
)

// Status constants for metric labels.
const (
	statusSuccess = "success"
	statusError   = "error"
)

// MetricsListener records lifecycle hook events as Prometheus metrics. It
// reads the payload shapes the hooks.Emitter produces; tool events with
// map payloads missing those fields count under fallback labels.
type MetricsListener struct{}

// NewMetricsListener creates a new MetricsListener.
func NewMetricsListener() *MetricsListener {
	return &MetricsListener{}
}

// Handle processes an event and records relevant metrics.
func (l *MetricsListener) Handle(event hooks.Event) {
	switch event.Type {
	case hooks.HookConversationStart:
		RecordConversationStart()
	case hooks.HookConversationEnd:
		RecordConversationEnd()
	case hooks.HookTurnComplete:
		RecordTurn()
	case hooks.HookUserInput:
		RecordUserInput()
	case hooks.HookResponseComplete:
		RecordResponse()
	case hooks.HookError:
		RecordError()
	case hooks.HookToolAfter:
		l.handleToolAfter(event)
	default:
		// Other hooks have no dedicated metrics
	}
}

func (l *MetricsListener) handleToolAfter(event hooks.Event) {
	data, ok := event.Data.(map[string]any)
	if !ok {
		return
	}

	tool, _ := data["tool_name"].(string)
	if tool == "" {
		tool = "unknown"
	}
	status, _ := data["status"].(string)
	if status != statusError {
		status = statusSuccess
	}
	durationMs, _ := data["duration_ms"].(float64)

	RecordToolCall(tool, status, durationMs/1000)
}

// Handler returns a hooks.Handler that can be registered on a registry.
func (l *MetricsListener) Handler() hooks.Handler {
	return l.Handle
}

// Attach registers the listener on every well-known lifecycle hook.
func (l *MetricsListener) Attach(reg *hooks.Registry) {
	for _, name := range hooks.KnownHooks() {
		reg.Register(name, l.Handle)
	}
}

// Observer returns a hooks.Observer recording per-dispatch metrics. Pass it
// to hooks.NewRegistry via hooks.WithObserver to cover every hook name,
// including custom ones.
func Observer() hooks.Observer {
	return func(d hooks.Dispatch) {
		RecordDispatch(string(d.Hook), d.Handlers, d.Panics, d.Duration.Seconds())
	}
}
