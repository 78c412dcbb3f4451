// Package logger provides structured logging with automatic secret redaction.
package logger

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys for common logging fields.
// These keys are used to store values in context.Context that will be
// automatically extracted and added to log entries.
const (
	// ContextKeyConversationID identifies the conversation whose lifecycle
	// is being dispatched.
	ContextKeyConversationID contextKey = "conversation_id"

	// ContextKeyHook identifies the hook name being dispatched.
	ContextKeyHook contextKey = "hook"

	// ContextKeyAction identifies the bound action handling a hook.
	ContextKeyAction contextKey = "action"

	// ContextKeyTurnID identifies the current conversation turn.
	ContextKeyTurnID contextKey = "turn_id"

	// ContextKeyRequestID identifies the individual request.
	ContextKeyRequestID contextKey = "request_id"

	// ContextKeyCorrelationID is used for distributed tracing.
	ContextKeyCorrelationID contextKey = "correlation_id"

	// ContextKeyEnvironment identifies the deployment environment.
	ContextKeyEnvironment contextKey = "environment"
)

// allContextKeys lists all context keys that should be extracted for logging.
// This is used by the handler to iterate over all possible context values.
var allContextKeys = []contextKey{
	ContextKeyConversationID,
	ContextKeyHook,
	ContextKeyAction,
	ContextKeyTurnID,
	ContextKeyRequestID,
	ContextKeyCorrelationID,
	ContextKeyEnvironment,
}

// WithConversationID returns a new context with the conversation ID set.
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, ContextKeyConversationID, conversationID)
}

// WithHook returns a new context with the hook name set.
func WithHook(ctx context.Context, hook string) context.Context {
	return context.WithValue(ctx, ContextKeyHook, hook)
}

// WithAction returns a new context with the action name set.
func WithAction(ctx context.Context, action string) context.Context {
	return context.WithValue(ctx, ContextKeyAction, action)
}

// WithTurnID returns a new context with the turn ID set.
func WithTurnID(ctx context.Context, turnID string) context.Context {
	return context.WithValue(ctx, ContextKeyTurnID, turnID)
}

// WithRequestID returns a new context with the request ID set.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// WithCorrelationID returns a new context with the correlation ID set.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationID, correlationID)
}

// WithEnvironment returns a new context with the environment set.
func WithEnvironment(ctx context.Context, environment string) context.Context {
	return context.WithValue(ctx, ContextKeyEnvironment, environment)
}

// WithLoggingContext returns a new context with multiple logging fields set at once.
// This is a convenience function for setting multiple fields in one call.
// Only non-empty values are set.
func WithLoggingContext(ctx context.Context, fields *LoggingFields) context.Context {
	if fields == nil {
		return ctx
	}
	if fields.ConversationID != "" {
		ctx = WithConversationID(ctx, fields.ConversationID)
	}
	if fields.Hook != "" {
		ctx = WithHook(ctx, fields.Hook)
	}
	if fields.Action != "" {
		ctx = WithAction(ctx, fields.Action)
	}
	if fields.TurnID != "" {
		ctx = WithTurnID(ctx, fields.TurnID)
	}
	if fields.RequestID != "" {
		ctx = WithRequestID(ctx, fields.RequestID)
	}
	if fields.CorrelationID != "" {
		ctx = WithCorrelationID(ctx, fields.CorrelationID)
	}
	if fields.Environment != "" {
		ctx = WithEnvironment(ctx, fields.Environment)
	}
	return ctx
}

// LoggingFields holds all standard logging context fields.
// This struct is used with WithLoggingContext for bulk field setting.
type LoggingFields struct {
	ConversationID string
	Hook           string
	Action         string
	TurnID         string
	RequestID      string
	CorrelationID  string
	Environment    string
}

// ExtractLoggingFields extracts all logging fields from a context.
// Returns a LoggingFields struct with all values found in the context.
func ExtractLoggingFields(ctx context.Context) LoggingFields {
	fields := LoggingFields{}
	if v := ctx.Value(ContextKeyConversationID); v != nil {
		fields.ConversationID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyHook); v != nil {
		fields.Hook, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyAction); v != nil {
		fields.Action, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyTurnID); v != nil {
		fields.TurnID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyRequestID); v != nil {
		fields.RequestID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyCorrelationID); v != nil {
		fields.CorrelationID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyEnvironment); v != nil {
		fields.Environment, _ = v.(string)
	}
	return fields
}
