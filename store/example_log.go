package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/hupe1980/modepilot/core"
)

// Compile-time assertion that ExampleLog satisfies the store contract.
var _ core.ExampleStore = (*ExampleLog)(nil)

// lockRetryDelay is the poll interval while waiting for the advisory lock.
const lockRetryDelay = 50 * time.Millisecond

// maxRecordBytes bounds a single JSONL record during resync.
const maxRecordBytes = 1 << 20

// ExampleLog is a JSONL-backed core.ExampleStore. One JSON object per line,
// append order equals id order, interaction ids are dense starting at 1.
//
// Concurrent access is safe at two levels: a sync.Mutex serializes goroutines
// sharing one ExampleLog, and an advisory lock on <path>.lock serializes
// instances in different processes. Every operation resynchronizes from the
// last known byte offset, so records appended by other processes become
// visible without re-reading the whole file.
type ExampleLog struct {
	path  string
	flock *flock.Flock

	mu     sync.Mutex
	cache  []core.Example
	offset int64
	line   int
}

// NewExampleLog opens (creating if necessary) the example log at path and
// loads any existing records. Existing content is validated eagerly so a
// corrupt log surfaces at construction, not mid-run.
func NewExampleLog(path string) (*ExampleLog, error) {
	if path == "" {
		return nil, fmt.Errorf("example log: empty path")
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create example log dir: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open example log: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("open example log: %w", err)
	}

	l := &ExampleLog{
		path:  path,
		flock: flock.New(path + ".lock"),
	}

	if err := l.withRLock(context.Background(), l.resyncLocked); err != nil {
		return nil, err
	}

	return l, nil
}

// Append implements core.ExampleStore. The stored record carries the next
// dense interaction id; the id on the input is ignored. A zero timestamp is
// replaced with the current UTC time.
func (l *ExampleLog) Append(ctx context.Context, ex core.Example) (core.Example, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	locked, err := l.flock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return core.Example{}, fmt.Errorf("lock example log: %w", err)
	}
	if !locked {
		return core.Example{}, fmt.Errorf("lock example log: not acquired")
	}
	defer l.flock.Unlock() //nolint:errcheck

	if err := l.resyncLocked(); err != nil {
		return core.Example{}, err
	}

	ex.InteractionID = int64(len(l.cache)) + 1
	if ex.Timestamp.IsZero() {
		ex.Timestamp = time.Now().UTC()
	}

	record, err := json.Marshal(ex)
	if err != nil {
		return core.Example{}, fmt.Errorf("encode example: %w", err)
	}
	record = append(record, '\n')

	if err := l.writeLocked(record); err != nil {
		return core.Example{}, err
	}

	l.cache = append(l.cache, ex)
	l.offset += int64(len(record))
	l.line++

	return ex, nil
}

// Slice implements core.ExampleStore: zero-based positions [from, to) in
// append order. Bounds beyond the persisted records are an error, because
// cursors are only ever committed after the records they count exist.
func (l *ExampleLog) Slice(ctx context.Context, from, to int) ([]core.Example, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.withRLock(ctx, l.resyncLocked); err != nil {
		return nil, err
	}

	if from < 0 || to < from {
		return nil, fmt.Errorf("example log: invalid slice bounds [%d,%d)", from, to)
	}
	if to > len(l.cache) {
		return nil, fmt.Errorf("example log: slice bounds [%d,%d) exceed %d records", from, to, len(l.cache))
	}

	out := make([]core.Example, to-from)
	copy(out, l.cache[from:to])

	return out, nil
}

// Recent implements core.ExampleStore: up to n records, most recent first.
func (l *ExampleLog) Recent(ctx context.Context, n int) ([]core.Example, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.withRLock(ctx, l.resyncLocked); err != nil {
		return nil, err
	}

	if n <= 0 {
		return nil, nil
	}
	if n > len(l.cache) {
		n = len(l.cache)
	}

	out := make([]core.Example, n)
	for i := 0; i < n; i++ {
		out[i] = l.cache[len(l.cache)-1-i]
	}

	return out, nil
}

// Len implements core.ExampleStore.
func (l *ExampleLog) Len(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.withRLock(ctx, l.resyncLocked); err != nil {
		return 0, err
	}

	return len(l.cache), nil
}

// withRLock runs fn while holding the shared advisory lock, so a writer in
// another process cannot expose a half-written record to this reader.
func (l *ExampleLog) withRLock(ctx context.Context, fn func() error) error {
	locked, err := l.flock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock example log: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock example log: not acquired")
	}
	defer l.flock.Unlock() //nolint:errcheck

	return fn()
}

// writeLocked appends one already-encoded record with a single write followed
// by fsync. Callers hold both the mutex and the exclusive advisory lock.
func (l *ExampleLog) writeLocked(record []byte) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open example log: %w", err)
	}

	if _, err := f.Write(record); err != nil {
		f.Close() //nolint:errcheck,gosec
		return fmt.Errorf("append example: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close() //nolint:errcheck,gosec
		return fmt.Errorf("sync example log: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close example log: %w", err)
	}

	return nil
}

// resyncLocked folds records appended since the last read into the cache.
// Callers hold the mutex and at least the shared advisory lock.
func (l *ExampleLog) resyncLocked() error {
	info, err := os.Stat(l.path)
	if err != nil {
		return fmt.Errorf("stat example log: %w", err)
	}

	size := info.Size()
	if size < l.offset {
		return &core.CorruptRecordError{
			Path: l.path,
			Line: l.line,
			Err:  fmt.Errorf("log shrank from %d to %d bytes", l.offset, size),
		}
	}
	if size == l.offset {
		return nil
	}

	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("open example log: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if _, err := f.Seek(l.offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek example log: %w", err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read example log: %w", err)
	}

	for len(data) > 0 {
		nl := bytes.IndexByte(data, '\n')
		if nl < 0 {
			return &core.CorruptRecordError{
				Path: l.path,
				Line: l.line + 1,
				Err:  errors.New("unterminated record"),
			}
		}
		if nl > maxRecordBytes {
			return &core.CorruptRecordError{
				Path: l.path,
				Line: l.line + 1,
				Err:  fmt.Errorf("record exceeds %d bytes", maxRecordBytes),
			}
		}

		line := data[:nl]
		data = data[nl+1:]
		consumed := int64(nl) + 1
		lineno := l.line + 1

		if len(bytes.TrimSpace(line)) == 0 {
			l.offset += consumed
			l.line = lineno
			continue
		}

		var ex core.Example
		if err := json.Unmarshal(line, &ex); err != nil {
			return &core.CorruptRecordError{Path: l.path, Line: lineno, Err: err}
		}
		if want := int64(len(l.cache)) + 1; ex.InteractionID != want {
			return &core.CorruptRecordError{
				Path: l.path,
				Line: lineno,
				Err:  fmt.Errorf("interaction id %d, want %d", ex.InteractionID, want),
			}
		}

		l.cache = append(l.cache, ex)
		l.offset += consumed
		l.line = lineno
	}

	return nil
}
