// Package journal provides persistence for dispatched hook events, so a
// host can record lifecycle activity for later inspection and replay.
// Handler registrations themselves are never persisted; only the events
// that flowed through a registry are.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/taliolabs/hookline/hooks"
)

// Journal persists hook events in dispatch order.
type Journal interface {
	// Append records one dispatched event under its hook name and returns
	// the stored entry with its assigned sequence number.
	Append(ctx context.Context, hook hooks.Name, event hooks.Event) (Entry, error)

	// Query returns entries matching the filter in sequence order.
	Query(ctx context.Context, filter Filter) ([]Entry, error)

	// Stream returns a channel replaying the entries recorded for a hook.
	// The channel is closed when all entries have been sent or the context
	// is canceled.
	Stream(ctx context.Context, hook hooks.Name) (<-chan Entry, error)

	// Close releases any resources held by the journal. Operations on a
	// closed journal return ErrClosed.
	Close() error
}

// Entry is one journaled hook event.
type Entry struct {
	Sequence  uint64      `json:"seq"`
	Hook      hooks.Name  `json:"hook"`
	Timestamp time.Time   `json:"timestamp"`
	Event     hooks.Event `json:"event"`
}

// Filter specifies criteria for querying journal entries.
// Zero-valued fields match everything.
type Filter struct {
	// Hooks restricts results to the listed hook names.
	Hooks []hooks.Name

	// Since excludes entries recorded before this time.
	Since time.Time

	// Until excludes entries recorded after this time.
	Until time.Time

	// Limit caps the number of returned entries. 0 means no cap.
	Limit int
}

// matches reports whether an entry passes the filter, ignoring Limit.
func (f Filter) matches(e Entry) bool {
	if len(f.Hooks) > 0 {
		found := false
		for _, h := range f.Hooks {
			if e.Hook == h {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	return true
}

// ErrClosed is returned when operating on a closed journal.
var ErrClosed = errors.New("journal closed")

// ErrInvalidHook is returned when an empty hook name is appended.
var ErrInvalidHook = errors.New("invalid hook name")
