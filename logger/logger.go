// Package logger provides structured logging with automatic secret redaction.
//
// This package wraps Go's standard log/slog with convenience functions for:
//   - Hook dispatch logging (triggers, handler counts, panics)
//   - Journal and binding activity logging
//   - Automatic API key and bearer token redaction
//   - Contextual logging with conversation and request tracing
//   - Level-based verbosity control
//
// All exported functions use the global DefaultLogger which can be configured
// for different output formats and log levels.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

var (
	// DefaultLogger is the global structured logger instance.
	// It is safe for concurrent use and initialized with slog.LevelInfo by default.
	DefaultLogger *slog.Logger

	// logOutput is the writer every constructed handler logs to.
	logOutput io.Writer = os.Stderr

	// customHandler, when non-nil, was installed via SetLogger and takes
	// precedence over Configure and SetLevel.
	customHandler slog.Handler
)

func init() {
	level := slog.LevelInfo
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		level = ParseLevel(envLevel)
	}

	handler := slog.NewTextHandler(logOutput, &slog.HandlerOptions{
		Level: level,
	})
	DefaultLogger = slog.New(handler)
}

// SetLevel changes the logging level for all subsequent log operations.
// This is safe for concurrent use as it replaces the entire logger instance.
func SetLevel(level slog.Level) {
	handler := slog.NewTextHandler(logOutput, &slog.HandlerOptions{
		Level: level,
	})
	DefaultLogger = slog.New(handler)
}

// SetVerbose enables debug-level logging when verbose is true, otherwise sets info-level.
// This is a convenience wrapper around SetLevel for command-line verbose flags.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
	} else {
		SetLevel(slog.LevelInfo)
	}
}

// SetOutput redirects all subsequent log output to w. Passing nil resets
// output to stderr. Primarily useful in tests.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	logOutput = w
	SetLevel(slog.LevelInfo)
}

// SetLogger installs a caller-provided handler as the global logger,
// overriding any configuration applied through Configure. Passing nil
// removes the override.
func SetLogger(handler slog.Handler) {
	customHandler = handler
	if handler != nil {
		DefaultLogger = slog.New(handler)
		slog.SetDefault(DefaultLogger)
	}
}

// Info logs an informational message with structured key-value attributes.
// Args should be provided in key-value pairs: key1, value1, key2, value2, ...
func Info(msg string, args ...any) {
	DefaultLogger.Info(msg, args...)
}

// InfoContext logs an informational message with context and structured attributes.
// The context can be used for request tracing and cancellation.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.InfoContext(ctx, msg, args...)
}

// Debug logs a debug-level message with structured attributes.
// Debug messages are only output when the log level is set to LevelDebug or lower.
func Debug(msg string, args ...any) {
	DefaultLogger.Debug(msg, args...)
}

// DebugContext logs a debug message with context and structured attributes.
func DebugContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.DebugContext(ctx, msg, args...)
}

// Warn logs a warning message with structured attributes.
// Use for recoverable errors or unexpected but non-critical situations.
func Warn(msg string, args ...any) {
	DefaultLogger.Warn(msg, args...)
}

// WarnContext logs a warning message with context and structured attributes.
func WarnContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.WarnContext(ctx, msg, args...)
}

// Error logs an error message with structured attributes.
// Use for errors that affect operation but don't cause complete failure.
func Error(msg string, args ...any) {
	DefaultLogger.Error(msg, args...)
}

// ErrorContext logs an error message with context and structured attributes.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.ErrorContext(ctx, msg, args...)
}

// Dispatch logs one hook dispatch at debug level with structured fields.
// This function is a no-op when debug logging is disabled, so it is cheap
// enough to call on the dispatch path.
func Dispatch(hook string, handlers, panics int, attrs ...any) {
	if !DefaultLogger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"hook", hook,
		"handlers", handlers,
		"panics", panics,
	)
	allAttrs = append(allAttrs, attrs...)
	Debug("🪝 Hook Dispatch", allAttrs...)
}

// HandlerPanic logs a recovered handler panic for debugging and monitoring.
// The recovered value is rendered as a string and redacted before logging.
func HandlerPanic(hook string, recovered any, attrs ...any) {
	allAttrs := make([]any, 0, 4+len(attrs))
	allAttrs = append(allAttrs,
		"hook", hook,
		"panic", RedactSensitiveData(fmt.Sprint(recovered)),
	)
	allAttrs = append(allAttrs, attrs...)
	Error("❌ Hook Handler Panicked", allAttrs...)
}

// JournalAppend logs a journaled hook event at debug level.
func JournalAppend(journal, hook string, sequence uint64, attrs ...any) {
	if !DefaultLogger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"journal", journal,
		"hook", hook,
		"sequence", sequence,
	)
	allAttrs = append(allAttrs, attrs...)
	Debug("📝 Journal Append", allAttrs...)
}

// BindingApplied logs a hook binding that was registered from a manifest.
func BindingApplied(binding, action string, hooks int, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"binding", binding,
		"action", action,
		"hooks", hooks,
	)
	allAttrs = append(allAttrs, attrs...)
	Info("🔗 Hook Binding Applied", allAttrs...)
}

// BindingSkipped logs a manifest binding that was not registered, with the
// reason it was skipped.
func BindingSkipped(binding, reason string, attrs ...any) {
	allAttrs := make([]any, 0, 4+len(attrs))
	allAttrs = append(allAttrs,
		"binding", binding,
		"reason", reason,
	)
	allAttrs = append(allAttrs, attrs...)
	Debug("⏭️ Hook Binding Skipped", allAttrs...)
}

var (
	// apiKeyPatterns contains compiled regular expressions for detecting sensitive data.
	// Patterns match common API key formats from various providers.
	apiKeyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`sk-[a-zA-Z0-9]{32,}`),     // OpenAI API keys
		regexp.MustCompile(`AIza[a-zA-Z0-9_-]{35}`),   // Google API keys
		regexp.MustCompile(`Bearer\s+[a-zA-Z0-9_-]+`), // Bearer tokens
	}
)

// RedactSensitiveData removes API keys and other sensitive information from strings.
// It replaces matched patterns with a redacted form that preserves the first few characters
// for debugging while hiding the sensitive portion.
//
// Supported patterns:
//   - OpenAI keys (sk-...): Shows first 4 chars
//   - Google keys (AIza...): Shows first 4 chars
//   - Bearer tokens: Shows only "Bearer [REDACTED]"
//
// Hook payloads are host-controlled and routinely end up in panic reports
// and journal debug lines, so the helpers above pass through here first.
//
// This function is safe for concurrent use as it only reads from the compiled patterns.
func RedactSensitiveData(input string) string {
	result := input

	for _, pattern := range apiKeyPatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			if strings.HasPrefix(match, "Bearer ") {
				return "Bearer [REDACTED]"
			}
			// Show first 4 characters for debugging context
			if len(match) > 8 {
				return match[:4] + "...[REDACTED]"
			}
			return "[REDACTED]"
		})
	}

	return result
}
