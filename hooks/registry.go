// Package hooks provides an in-process registry of named hook points.
// Host code registers handlers under a hook name and later triggers every
// handler for that name with an event payload, letting unrelated parts of
// an application observe lifecycle milestones without the emitting code
// knowing who is listening.
//
// Dispatch is synchronous and ordered: Trigger runs the handlers on the
// calling goroutine in registration order and returns when the last one
// finishes. A panicking handler is recovered and reported to the panic
// sink; its siblings still run.
package hooks

import (
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/taliolabs/hookline/logger"
)

// Handler is a callable registered for a hook name. Handlers run
// synchronously on the triggering goroutine and must be safe to invoke
// from any goroutine.
type Handler func(Event)

// PanicFunc receives handler panics recovered during Trigger. hook is the
// name being dispatched, recovered is the value the handler panicked with,
// and stack is the goroutine stack captured at recovery.
type PanicFunc func(hook Name, recovered any, stack []byte)

// Dispatch summarizes one Trigger call for observers.
type Dispatch struct {
	Hook     Name
	Handlers int
	Panics   int
	Duration time.Duration
}

// Observer is called after every Trigger with the dispatch summary.
type Observer func(Dispatch)

// Registry maps hook names to ordered handler lists and dispatches events
// to them. All methods are safe for concurrent use. The internal lock is
// never held while handler bodies run, so handlers may re-enter the
// registry freely; mutations made during a dispatch take effect on the
// next Trigger, not the in-flight one.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Name][]Handler

	// panicFn and observer are fixed at construction and read without
	// the lock during dispatch.
	panicFn  PanicFunc
	observer Observer
}

// Option configures a Registry during construction.
type Option func(*Registry)

// WithPanicHandler replaces the default panic sink. The default logs the
// hook name, recovered value, and stack through the logger package. A nil
// fn leaves the default in place.
func WithPanicHandler(fn PanicFunc) Option {
	return func(r *Registry) {
		if fn != nil {
			r.panicFn = fn
		}
	}
}

// WithObserver installs an observer invoked once per Trigger, after all
// handlers have run. Useful for wiring metrics or tracing.
func WithObserver(obs Observer) Option {
	return func(r *Registry) {
		r.observer = obs
	}
}

// WithDispatchLogging installs an observer that logs a debug-level summary
// of every Trigger through the logger package. Hosts that need their own
// observer alongside the log line can call logger.Dispatch from it.
func WithDispatchLogging() Option {
	return WithObserver(func(d Dispatch) {
		logger.Dispatch(string(d.Hook), d.Handlers, d.Panics,
			"duration_ms", d.Duration.Milliseconds())
	})
}

// NewRegistry creates an empty registry with the given options.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		handlers: make(map[Name][]Handler),
		panicFn:  defaultPanicHandler,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultPanicHandler(hook Name, recovered any, stack []byte) {
	logger.HandlerPanic(string(hook), recovered, "stack", string(stack))
}

// Register appends handler to the list for name, creating the list on
// first registration. Registration order is dispatch order, and the same
// handler may be registered more than once.
func (r *Registry) Register(name Name, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = append(r.handlers[name], handler)
}

// Trigger dispatches event to every handler registered for name at the
// moment of the call. Handlers run in registration order on the calling
// goroutine, each receiving its own copy of the event. A panic inside a
// handler is recovered and reported to the panic sink without disturbing
// the remaining handlers, and Trigger itself always returns normally.
// Triggering a name with no handlers is a harmless no-op.
func (r *Registry) Trigger(name Name, event Event) {
	r.mu.RLock()
	registered := r.handlers[name]
	snapshot := make([]Handler, len(registered))
	copy(snapshot, registered)
	r.mu.RUnlock()

	start := time.Now()
	panics := 0
	for _, handler := range snapshot {
		if !r.invoke(name, handler, event) {
			panics++
		}
	}

	if r.observer != nil {
		r.notify(Dispatch{
			Hook:     name,
			Handlers: len(snapshot),
			Panics:   panics,
			Duration: time.Since(start),
		})
	}
}

// invoke runs one handler behind its own panic boundary and reports
// whether it returned normally.
func (r *Registry) invoke(name Name, handler Handler, event Event) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
			r.reportPanic(name, rec, debug.Stack())
		}
	}()
	handler(event.Clone())
	return true
}

// reportPanic hands a recovered fault to the panic sink. The sink runs
// behind its own recover so a faulty sink cannot break dispatch.
func (r *Registry) reportPanic(name Name, recovered any, stack []byte) {
	defer func() { _ = recover() }()
	r.panicFn(name, recovered, stack)
}

// notify delivers the dispatch summary to the observer behind the same
// fault boundary handlers get.
func (r *Registry) notify(d Dispatch) {
	defer func() { _ = recover() }()
	r.observer(d)
}

// HandlerCount returns the number of handlers currently registered for name.
func (r *Registry) HandlerCount(name Name) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[name])
}

// HasHandlers reports whether at least one handler is registered for name.
func (r *Registry) HasHandlers(name Name) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Clear removes every handler registered for name. Clearing a name with no
// handlers is a no-op. Dispatches already in flight finish with the
// handlers they snapshotted.
func (r *Registry) Clear(name Name) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, name)
}

// ClearAll removes every handler for every name, returning the registry to
// its initial empty state.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[Name][]Handler)
}

// Names returns the hook names that currently have at least one handler,
// sorted lexically.
func (r *Registry) Names() []Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]Name, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
