package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/taliolabs/hookline/hooks"
)

// spanEntry tracks an in-flight span and its context.
type spanEntry struct {
	span trace.Span
	ctx  context.Context //nolint:containedctx // needed to parent child spans
}

// SpanListener converts lifecycle hook events into OTel spans. Each
// conversation gets a root span; responses and tool calls become child
// spans opened and closed by their start/complete hook pairs. Dispatch for
// a single trigger is synchronous and ordered, so the listener never sees a
// completion race ahead of its start within one conversation; completions
// with no matching start (for example after ClearAll mid-conversation) are
// ignored. Safe for concurrent use across conversations.
type SpanListener struct {
	tracer trace.Tracer

	mu            sync.Mutex
	conversations map[string]*spanEntry // conversation_id → root span
	responses     map[string]*spanEntry // conversation_id → in-flight response span
	tools         map[string]*spanEntry // conversation_id + tool → in-flight tool span
}

// NewSpanListener creates a listener producing spans through tracer.
func NewSpanListener(tracer trace.Tracer) *SpanListener {
	return &SpanListener{
		tracer:        tracer,
		conversations: make(map[string]*spanEntry),
		responses:     make(map[string]*spanEntry),
		tools:         make(map[string]*spanEntry),
	}
}

// Handle processes one hook event. It can be registered directly as a
// hooks.Handler.
func (l *SpanListener) Handle(event hooks.Event) {
	data, _ := event.Data.(map[string]any)
	id, _ := data["conversation_id"].(string)
	if id == "" {
		return
	}

	switch event.Type {
	case hooks.HookConversationStart:
		l.startConversation(id)
	case hooks.HookConversationEnd:
		l.endConversation(id)
	case hooks.HookResponseStart:
		l.startResponse(id)
	case hooks.HookResponseComplete:
		l.endResponse(id)
	case hooks.HookToolBefore:
		l.startTool(id, data)
	case hooks.HookToolAfter:
		l.endTool(id, data)
	case hooks.HookTurnComplete:
		l.markTurn(id, data)
	case hooks.HookError:
		l.markError(id, data)
	}
}

// Attach registers the listener on every well-known lifecycle hook.
func (l *SpanListener) Attach(reg *hooks.Registry) {
	for _, name := range hooks.KnownHooks() {
		reg.Register(name, l.Handle)
	}
}

// EndAll ends every span still in flight, deepest first. Call during
// shutdown so abandoned conversations still export.
func (l *SpanListener) EndAll() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, entry := range l.tools {
		entry.span.End()
		delete(l.tools, key)
	}
	for id, entry := range l.responses {
		entry.span.End()
		delete(l.responses, id)
	}
	for id, entry := range l.conversations {
		entry.span.End()
		delete(l.conversations, id)
	}
}

func (l *SpanListener) startConversation(id string) {
	ctx, span := l.tracer.Start(context.Background(), "hookline.conversation",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("conversation.id", id)),
	)
	l.mu.Lock()
	l.conversations[id] = &spanEntry{span: span, ctx: ctx}
	l.mu.Unlock()
}

func (l *SpanListener) endConversation(id string) {
	l.mu.Lock()
	entry, ok := l.conversations[id]
	if ok {
		delete(l.conversations, id)
	}
	l.mu.Unlock()
	if ok {
		entry.span.End()
	}
}

// conversationCtx returns the context parenting child spans for id.
func (l *SpanListener) conversationCtx(id string) context.Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry, ok := l.conversations[id]; ok {
		return entry.ctx
	}
	return context.Background()
}

func (l *SpanListener) startResponse(id string) {
	ctx, span := l.tracer.Start(l.conversationCtx(id), "hookline.response",
		trace.WithAttributes(attribute.String("conversation.id", id)),
	)
	l.mu.Lock()
	l.responses[id] = &spanEntry{span: span, ctx: ctx}
	l.mu.Unlock()
}

func (l *SpanListener) endResponse(id string) {
	l.mu.Lock()
	entry, ok := l.responses[id]
	if ok {
		delete(l.responses, id)
	}
	l.mu.Unlock()
	if ok {
		entry.span.End()
	}
}

func (l *SpanListener) startTool(id string, data map[string]any) {
	tool, _ := data["tool_name"].(string)
	ctx, span := l.tracer.Start(l.conversationCtx(id), "hookline.tool",
		trace.WithAttributes(
			attribute.String("conversation.id", id),
			attribute.String("tool.name", tool),
		),
	)
	l.mu.Lock()
	l.tools[id+"/"+tool] = &spanEntry{span: span, ctx: ctx}
	l.mu.Unlock()
}

func (l *SpanListener) endTool(id string, data map[string]any) {
	tool, _ := data["tool_name"].(string)

	l.mu.Lock()
	entry, ok := l.tools[id+"/"+tool]
	if ok {
		delete(l.tools, id+"/"+tool)
	}
	l.mu.Unlock()
	if !ok {
		return
	}

	if status, _ := data["status"].(string); status == "error" {
		entry.span.SetStatus(codes.Error, "tool call failed")
	}
	entry.span.End()
}

// markTurn records a turn-completion event on the conversation span.
func (l *SpanListener) markTurn(id string, data map[string]any) {
	l.mu.Lock()
	entry, ok := l.conversations[id]
	l.mu.Unlock()
	if !ok {
		return
	}

	attrs := []attribute.KeyValue{}
	if turn, ok := data["turn"].(float64); ok {
		attrs = append(attrs, attribute.Int("turn", int(turn)))
	}
	entry.span.AddEvent("turn_complete", trace.WithAttributes(attrs...))
}

// markError flags the conversation span as failed.
func (l *SpanListener) markError(id string, data map[string]any) {
	l.mu.Lock()
	entry, ok := l.conversations[id]
	l.mu.Unlock()
	if !ok {
		return
	}

	msg, _ := data["message"].(string)
	entry.span.SetStatus(codes.Error, msg)
	entry.span.AddEvent("error", trace.WithAttributes(attribute.String("message", msg)))
}
