package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taliolabs/hookline/hooks"
)

// Default Redis journal settings.
const (
	defaultRedisPrefix = "hookline"
	defaultRedisTTL    = 24 * time.Hour
)

// RedisJournal provides a Redis-backed implementation of the Journal
// interface. Entries live in a single list with a companion counter key for
// sequence numbers, so multiple processes appending to the same journal see
// a consistent ordering. Suitable for distributed deployments; the client
// is owned by the caller and is not closed by Close.
type RedisJournal struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	max    int64

	mu     sync.RWMutex
	closed bool
}

// RedisOption configures a RedisJournal.
type RedisOption func(*RedisJournal)

// WithPrefix sets the key prefix for Redis keys. Default is "hookline".
func WithPrefix(prefix string) RedisOption {
	return func(j *RedisJournal) {
		j.prefix = prefix
	}
}

// WithTTL sets the time-to-live refreshed on every append. After this
// duration of inactivity the journal keys expire. Default is 24 hours.
// Set to 0 for no expiration.
func WithTTL(ttl time.Duration) RedisOption {
	return func(j *RedisJournal) {
		j.ttl = ttl
	}
}

// WithMaxEntries caps the number of retained entries; older entries are
// trimmed on append. 0 (the default) retains everything.
func WithMaxEntries(n int) RedisOption {
	return func(j *RedisJournal) {
		j.max = int64(n)
	}
}

// NewRedisJournal creates a Redis-backed journal.
//
// Example:
//
//	j := NewRedisJournal(
//	    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    WithPrefix("myapp"),
//	    WithTTL(time.Hour),
//	)
func NewRedisJournal(client *redis.Client, opts ...RedisOption) *RedisJournal {
	j := &RedisJournal{
		client: client,
		prefix: defaultRedisPrefix,
		ttl:    defaultRedisTTL,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// entriesKey generates the Redis key for the entry list.
func (j *RedisJournal) entriesKey() string {
	return fmt.Sprintf("%s:journal:entries", j.prefix)
}

// seqKey generates the Redis key for the sequence counter.
func (j *RedisJournal) seqKey() string {
	return fmt.Sprintf("%s:journal:seq", j.prefix)
}

// Append records one entry.
// Uses a pipeline to batch the RPUSH, optional LTRIM, and EXPIRE refresh
// into a single round-trip after the sequence INCR.
func (j *RedisJournal) Append(ctx context.Context, hook hooks.Name, event hooks.Event) (Entry, error) {
	if hook == "" {
		return Entry{}, ErrInvalidHook
	}
	if err := j.checkOpen(); err != nil {
		return Entry{}, err
	}

	seq, err := j.client.Incr(ctx, j.seqKey()).Result()
	if err != nil {
		return Entry{}, fmt.Errorf("redis incr failed: %w", err)
	}

	entry := Entry{
		Sequence:  uint64(seq),
		Hook:      hook,
		Timestamp: time.Now().UTC(),
		Event:     event,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal entry: %w", err)
	}

	key := j.entriesKey()
	pipe := j.client.Pipeline()
	pipe.RPush(ctx, key, data)
	if j.max > 0 {
		pipe.LTrim(ctx, key, -j.max, -1)
	}
	if j.ttl > 0 {
		pipe.Expire(ctx, key, j.ttl)
		pipe.Expire(ctx, j.seqKey(), j.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return Entry{}, fmt.Errorf("redis pipeline failed: %w", err)
	}

	return entry, nil
}

// Query returns entries matching the filter in sequence order.
// Malformed list elements are skipped.
func (j *RedisJournal) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	if err := j.checkOpen(); err != nil {
		return nil, err
	}

	vals, err := j.client.LRange(ctx, j.entriesKey(), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis lrange failed: %w", err)
	}

	var entries []Entry
	for _, v := range vals {
		var entry Entry
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			continue
		}
		if !filter.matches(entry) {
			continue
		}
		entries = append(entries, entry)
		if filter.Limit > 0 && len(entries) >= filter.Limit {
			break
		}
	}

	return entries, nil
}

// Stream replays the entries recorded for a hook over a channel.
func (j *RedisJournal) Stream(ctx context.Context, hook hooks.Name) (<-chan Entry, error) {
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

// checkOpen returns ErrClosed once Close has been called.
func (j *RedisJournal) checkOpen() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the journal closed. The Redis client belongs to the caller
// and stays open.
func (j *RedisJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closed = true
	return nil
}

// Ensure RedisJournal implements Journal.
var _ Journal = (*RedisJournal)(nil)
