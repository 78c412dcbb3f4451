package logger

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
)

// ContextHandler is a slog.Handler that copies the hook-dispatch fields
// carried in the context (conversation_id, hook, action, turn_id, and the
// tracing IDs from context.go) onto every record before delegating to an
// inner handler. A handler running under a context built with WithHook and
// WithConversationID gets those attributes on its log lines for free.
type ContextHandler struct {
	inner        slog.Handler
	commonFields []slog.Attr
}

// ModuleHandler extends ContextHandler with per-package level filtering:
// a host can run the hooks package at debug while keeping journal writes
// at warn. The package name is derived from the record's program counter.
type ModuleHandler struct {
	ContextHandler
	moduleConfig *ModuleConfig
}

// NewContextHandler creates a ContextHandler wrapping inner. commonFields
// are stamped on every record, useful for environment or service name.
func NewContextHandler(inner slog.Handler, commonFields ...slog.Attr) *ContextHandler {
	return &ContextHandler{
		inner:        inner,
		commonFields: commonFields,
	}
}

// Enabled delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enriches the record with common and context fields and hands it
// to the inner handler.
//
//nolint:gocritic // slog.Record is passed by value per slog.Handler interface contract
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, h.enrich(ctx, r, ""))
}

// enrich rebuilds r with the handler's common fields, the dispatch fields
// found in ctx, an optional logger/module attribute, and finally the
// record's own attributes, in that order so callers win on key clashes.
func (h *ContextHandler) enrich(ctx context.Context, r slog.Record, module string) slog.Record {
	newRecord := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	for _, attr := range h.commonFields {
		newRecord.AddAttrs(attr)
	}
	if module != "" {
		newRecord.AddAttrs(slog.String("logger", module))
	}
	for _, key := range allContextKeys {
		if v := ctx.Value(key); v != nil {
			if s, ok := v.(string); ok && s != "" {
				newRecord.AddAttrs(slog.String(string(key), s))
			}
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		newRecord.AddAttrs(a)
		return true
	})

	return newRecord
}

// WithAttrs returns a new handler with the given attributes added to the
// inner handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{
		inner:        h.inner.WithAttrs(attrs),
		commonFields: h.commonFields,
	}
}

// WithGroup returns a new handler with the group added to the inner handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{
		inner:        h.inner.WithGroup(name),
		commonFields: h.commonFields,
	}
}

// Unwrap returns the inner handler for chains that need to inspect or
// replace it.
func (h *ContextHandler) Unwrap() slog.Handler {
	return h.inner
}

var _ slog.Handler = (*ContextHandler)(nil)

// NewModuleHandler creates a ModuleHandler filtering by the levels in
// moduleConfig.
func NewModuleHandler(inner slog.Handler, moduleConfig *ModuleConfig, commonFields ...slog.Attr) *ModuleHandler {
	return &ModuleHandler{
		ContextHandler: ContextHandler{
			inner:        inner,
			commonFields: commonFields,
		},
		moduleConfig: moduleConfig,
	}
}

// Enabled applies the configured level for the calling package.
func (h *ModuleHandler) Enabled(ctx context.Context, level slog.Level) bool {
	module := getCallerModule()
	return level >= h.moduleConfig.LevelFor(module)
}

// Handle drops records below the calling package's configured level and
// enriches the rest, naming the package in a "logger" attribute.
//
//nolint:gocritic // slog.Record is passed by value per slog.Handler interface contract
func (h *ModuleHandler) Handle(ctx context.Context, r slog.Record) error {
	module := getCallerModuleFromPC(r.PC)
	if r.Level < h.moduleConfig.LevelFor(module) {
		return nil
	}
	return h.inner.Handle(ctx, h.enrich(ctx, r, module))
}

// WithAttrs returns a new handler with the given attributes added.
func (h *ModuleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ModuleHandler{
		ContextHandler: ContextHandler{
			inner:        h.inner.WithAttrs(attrs),
			commonFields: h.commonFields,
		},
		moduleConfig: h.moduleConfig,
	}
}

// WithGroup returns a new handler with the given group name.
func (h *ModuleHandler) WithGroup(name string) slog.Handler {
	return &ModuleHandler{
		ContextHandler: ContextHandler{
			inner:        h.inner.WithGroup(name),
			commonFields: h.commonFields,
		},
		moduleConfig: h.moduleConfig,
	}
}

// getCallerModule walks up the stack to the first frame outside this
// package and returns its package name. Used by Enabled, where no record
// PC is available yet.
func getCallerModule() string {
	const maxDepth = 10
	var pcs [maxDepth]uintptr
	//nolint:mnd // skip getCallerModule, Enabled, and the slog entry point
	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		module := extractModuleFromFunction(frame.Function)
		if module != "" && !strings.HasPrefix(module, "logger") {
			return module
		}
		if !more {
			break
		}
	}
	return ""
}

// getCallerModuleFromPC extracts the package name from a record's program
// counter.
func getCallerModuleFromPC(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	frame, _ := frames.Next()
	return extractModuleFromFunction(frame.Function)
}

// extractModuleFromFunction maps a fully qualified function name to a
// package name relative to the module root:
// "github.com/taliolabs/hookline/journal.(*FileJournal).Append" becomes
// "journal", "metrics/prometheus.(*Exporter).Start" becomes
// "metrics.prometheus". Functions outside the module map to "".
func extractModuleFromFunction(fn string) string {
	if fn == "" {
		return ""
	}

	const moduleRoot = "github.com/taliolabs/hookline/"
	idx := strings.Index(fn, moduleRoot)
	if idx == -1 {
		return ""
	}
	path := fn[idx+len(moduleRoot):]

	if parenIdx := strings.Index(path, "("); parenIdx != -1 {
		path = path[:parenIdx]
	}
	if dotIdx := strings.LastIndex(path, "."); dotIdx != -1 {
		path = path[:dotIdx]
	}

	return strings.ReplaceAll(path, "/", ".")
}

var _ slog.Handler = (*ModuleHandler)(nil)
