package journal

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/taliolabs/hookline/hooks"
	"github.com/taliolabs/hookline/logger"
)

// Recorder bridges a hook registry to a journal: its handlers append every
// dispatched event. Appends happen synchronously on the dispatching
// goroutine, so a slow journal slows the trigger that feeds it; use the
// rate limit option to shed load instead of blocking.
type Recorder struct {
	journal Journal
	limiter *rate.Limiter
	onError func(hook hooks.Name, err error)
	dropped atomic.Uint64
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRateLimit caps journal appends at r per second with the given burst.
// Events arriving above the limit are dropped, not queued; drops are
// counted and visible through Dropped.
func WithRateLimit(r rate.Limit, burst int) RecorderOption {
	return func(rec *Recorder) {
		rec.limiter = rate.NewLimiter(r, burst)
	}
}

// WithErrorHandler replaces the default append-failure handler, which logs
// through the logger package. A nil fn leaves the default in place.
func WithErrorHandler(fn func(hook hooks.Name, err error)) RecorderOption {
	return func(rec *Recorder) {
		if fn != nil {
			rec.onError = fn
		}
	}
}

// NewRecorder creates a recorder that appends to j.
func NewRecorder(j Journal, opts ...RecorderOption) *Recorder {
	rec := &Recorder{
		journal: j,
		onError: func(hook hooks.Name, err error) {
			logger.Error("journal append failed", "hook", string(hook), "error", err)
		},
	}
	for _, opt := range opts {
		opt(rec)
	}
	return rec
}

// Handler returns a hooks.Handler that journals every event dispatched to
// hook.
func (rec *Recorder) Handler(hook hooks.Name) hooks.Handler {
	return func(event hooks.Event) {
		rec.record(hook, event)
	}
}

// Attach registers a recording handler on reg for each name. With no names
// it covers the well-known lifecycle catalogue.
func (rec *Recorder) Attach(reg *hooks.Registry, names ...hooks.Name) {
	if len(names) == 0 {
		names = hooks.KnownHooks()
	}
	for _, name := range names {
		reg.Register(name, rec.Handler(name))
	}
}

// Dropped returns the number of events shed by the rate limiter.
func (rec *Recorder) Dropped() uint64 {
	return rec.dropped.Load()
}

func (rec *Recorder) record(hook hooks.Name, event hooks.Event) {
	if rec.limiter != nil && !rec.limiter.Allow() {
		rec.dropped.Add(1)
		return
	}
	entry, err := rec.journal.Append(context.Background(), hook, event)
	if err != nil {
		rec.onError(hook, err)
		return
	}
	logger.JournalAppend(fmt.Sprintf("%T", rec.journal), string(hook), entry.Sequence)
}
