package journal

import (
	"context"
	"sync"
	"time"

	"github.com/taliolabs/hookline/hooks"
)

// MemoryJournal provides an in-memory implementation of the Journal interface.
// It is thread-safe and suitable for development, testing, and single-instance
// deployments. For durable or distributed recording, use FileJournal or
// RedisJournal.
type MemoryJournal struct {
	mu         sync.RWMutex
	entries    []Entry
	seq        uint64
	maxEntries int
	closed     bool
}

// MemoryOption configures a MemoryJournal.
type MemoryOption func(*MemoryJournal)

// WithCapacity bounds the journal to the most recent n entries.
// Older entries are dropped as new ones arrive. Zero means unbounded.
func WithCapacity(n int) MemoryOption {
	return func(j *MemoryJournal) {
		j.maxEntries = n
	}
}

// NewMemoryJournal creates a new in-memory journal.
func NewMemoryJournal(opts ...MemoryOption) *MemoryJournal {
	j := &MemoryJournal{}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Append records an event under the given hook name.
// The event is stored as a copy so later caller mutations cannot reach it.
func (j *MemoryJournal) Append(ctx context.Context, hook hooks.Name, event hooks.Event) (Entry, error) {
	if hook == "" {
		return Entry{}, ErrInvalidHook
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return Entry{}, ErrClosed
	}

	j.seq++
	entry := Entry{
		Sequence:  j.seq,
		Hook:      hook,
		Timestamp: time.Now().UTC(),
		Event:     event.Clone(),
	}
	j.entries = append(j.entries, entry)
	if j.maxEntries > 0 && len(j.entries) > j.maxEntries {
		j.entries = j.entries[len(j.entries)-j.maxEntries:]
	}

	return entry, nil
}

// Query returns entries matching the filter in sequence order.
// Returned entries carry copies of their events.
func (j *MemoryJournal) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return nil, ErrClosed
	}

	var out []Entry
	for _, entry := range j.entries {
		if !filter.matches(entry) {
			continue
		}
		entry.Event = entry.Event.Clone()
		out = append(out, entry)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}

	return out, nil
}

// Stream replays the entries recorded for a hook over a channel.
func (j *MemoryJournal) Stream(ctx context.Context, hook hooks.Name) (<-chan Entry, error) {
	entries, err := j.Query(ctx, Filter{Hooks: []hooks.Name{hook}})
	if err != nil {
		return nil, err
	}

	ch := make(chan Entry, streamChanSize)
	go func() {
		defer close(ch)
		for _, entry := range entries {
			select {
			case <-ctx.Done():
				return
			case ch <- entry:
			}
		}
	}()

	return ch, nil
}

// Len returns the number of recorded entries.
func (j *MemoryJournal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}

// Close marks the journal closed. Subsequent operations return ErrClosed.
func (j *MemoryJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closed = true
	return nil
}

// Ensure MemoryJournal implements Journal.
var _ Journal = (*MemoryJournal)(nil)
