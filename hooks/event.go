package hooks

// Event is the payload delivered to handlers when a hook fires. Type names
// the occurrence, by convention the hook name itself, and Data optionally
// carries a JSON-like value: nil, bool, float64, string, []any, or
// map[string]any, nested to any depth.
//
// Events are plain values. Every handler invocation receives its own copy
// with Data cloned through the JSON container kinds, so a handler that
// mutates a map or slice it was handed cannot affect the triggering caller
// or sibling handlers. Data values outside the JSON kinds are shared by
// reference and handlers must treat them as read-only.
type Event struct {
	Type Name `json:"event_type"`
	Data any  `json:"data,omitempty"`
}

// NewEvent creates an event with no payload.
func NewEvent(eventType Name) Event {
	return Event{Type: eventType}
}

// WithData returns a copy of the event carrying data as its payload.
func (e Event) WithData(data any) Event {
	e.Data = data
	return e
}

// Clone returns an independent copy of the event. Maps and slices in Data
// are copied recursively; scalar and non-JSON values are shared.
func (e Event) Clone() Event {
	e.Data = cloneValue(e.Data)
	return e
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
