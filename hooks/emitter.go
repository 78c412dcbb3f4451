package hooks

import (
	"time"

	"github.com/google/uuid"
)

// Emitter fires the well-known lifecycle hooks on a registry, stamping
// shared conversation metadata into every payload. A nil Emitter is safe
// to call; every emit becomes a no-op.
type Emitter struct {
	registry       *Registry
	conversationID string
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithConversationID sets the conversation ID stamped into emitted
// payloads. When unset, NewEmitter generates one.
func WithConversationID(id string) EmitterOption {
	return func(e *Emitter) {
		e.conversationID = id
	}
}

// NewEmitter creates an emitter bound to reg.
func NewEmitter(reg *Registry, opts ...EmitterOption) *Emitter {
	e := &Emitter{registry: reg}
	for _, opt := range opts {
		opt(e)
	}
	if e.conversationID == "" {
		e.conversationID = uuid.New().String()
	}
	return e
}

// ConversationID returns the ID stamped into every emitted payload.
func (e *Emitter) ConversationID() string {
	if e == nil {
		return ""
	}
	return e.conversationID
}

// emit triggers hook with the shared metadata merged into data. Caller
// keys win over the stamped ones.
func (e *Emitter) emit(hook Name, data map[string]any) {
	if e == nil || e.registry == nil {
		return
	}
	payload := map[string]any{
		"conversation_id": e.conversationID,
		"timestamp":       time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range data {
		payload[k] = v
	}
	e.registry.Trigger(hook, NewEvent(hook).WithData(payload))
}

// ConversationStart fires the conversation_start hook.
func (e *Emitter) ConversationStart() {
	e.emit(HookConversationStart, nil)
}

// ConversationEnd fires the conversation_end hook.
func (e *Emitter) ConversationEnd() {
	e.emit(HookConversationEnd, nil)
}

// UserInput fires the user_input hook with the received input.
func (e *Emitter) UserInput(input string) {
	e.emit(HookUserInput, map[string]any{"input": input})
}

// ResponseStart fires the response_start hook.
func (e *Emitter) ResponseStart() {
	e.emit(HookResponseStart, nil)
}

// ResponseComplete fires the response_complete hook with the final text.
func (e *Emitter) ResponseComplete(response string) {
	e.emit(HookResponseComplete, map[string]any{"response": response})
}

// TurnComplete fires the turn_complete hook with the 1-based turn number.
func (e *Emitter) TurnComplete(turn int) {
	e.emit(HookTurnComplete, map[string]any{"turn": float64(turn)})
}

// Error fires the error hook with the error message. A nil err emits
// nothing.
func (e *Emitter) Error(err error) {
	if err == nil {
		return
	}
	e.emit(HookError, map[string]any{"message": err.Error()})
}

// ToolBefore fires the tool_before hook with the tool name and arguments.
func (e *Emitter) ToolBefore(tool string, args map[string]any) {
	data := map[string]any{"tool_name": tool}
	if len(args) > 0 {
		data["args"] = args
	}
	e.emit(HookToolBefore, data)
}

// ToolAfter fires the tool_after hook with the tool name, outcome, and
// elapsed time.
func (e *Emitter) ToolAfter(tool, status string, elapsed time.Duration) {
	e.emit(HookToolAfter, map[string]any{
		"tool_name":   tool,
		"status":      status,
		"duration_ms": float64(elapsed.Milliseconds()),
	})
}
