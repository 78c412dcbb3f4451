package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/taliolabs/hookline/hooks"
)

// File system constants.
const (
	dirPermissions  = 0750
	filePermissions = 0600
	scannerBufSize  = 1024 * 1024 // 1MB buffer for large payloads
	streamChanSize  = 100
)

// FileJournal implements Journal using a JSON Lines file. Each entry is one
// line, appended in dispatch order, so the file can be tailed or processed
// with standard line tools. Reopening an existing file resumes sequence
// numbering after the last recorded entry.
type FileJournal struct {
	path string

	mu     sync.Mutex
	file   *os.File
	seq    uint64
	closed bool
}

// NewFileJournal opens (or creates) a JSON Lines journal at path, creating
// parent directories as needed.
func NewFileJournal(path string) (*FileJournal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	seq, err := lastSequence(path)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // path is caller-supplied configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, filePermissions)
	if err != nil {
		return nil, fmt.Errorf("open journal file: %w", err)
	}

	return &FileJournal{path: path, file: f, seq: seq}, nil
}

// lastSequence scans an existing journal file for the highest sequence
// number. A missing file yields zero.
func lastSequence(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // path is caller-supplied configuration
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open journal file: %w", err)
	}
	defer f.Close()

	var seq uint64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, scannerBufSize), scannerBufSize)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue // Skip malformed lines
		}
		if entry.Sequence > seq {
			seq = entry.Sequence
		}
	}
	return seq, scanner.Err()
}

// Append writes one entry as a JSON line.
func (j *FileJournal) Append(ctx context.Context, hook hooks.Name, event hooks.Event) (Entry, error) {
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
		Event:     event,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal entry: %w", err)
	}
	if _, err := j.file.Write(append(data, '\n')); err != nil {
		return Entry{}, fmt.Errorf("write entry: %w", err)
	}

	return entry, nil
}

// Query scans the journal file and returns entries matching the filter.
// Malformed lines are skipped.
func (j *FileJournal) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil, ErrClosed
	}
	j.mu.Unlock()

	f, err := os.Open(j.path) //nolint:gosec // path fixed at construction
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, scannerBufSize), scannerBufSize)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return entries, ctx.Err()
		default:
		}

		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
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

	return entries, scanner.Err()
}

// Stream replays the entries recorded for a hook over a channel.
func (j *FileJournal) Stream(ctx context.Context, hook hooks.Name) (<-chan Entry, error) {
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

// Sync flushes pending writes to disk.
func (j *FileJournal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("sync journal file: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true

	if err := j.file.Sync(); err != nil {
		j.file.Close()
		return fmt.Errorf("sync journal file: %w", err)
	}
	if err := j.file.Close(); err != nil {
		return fmt.Errorf("close journal file: %w", err)
	}
	return nil
}

// Ensure FileJournal implements Journal.
var _ Journal = (*FileJournal)(nil)
