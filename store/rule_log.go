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

	"github.com/gofrs/flock"

	"github.com/hupe1980/modepilot/core"
)

// Compile-time assertion that RuleLog satisfies the store contract.
var _ core.RuleStore = (*RuleLog)(nil)

// RuleLog is a JSONL-backed core.RuleStore. One JSON object per line in
// creation order. A whole summarization batch is appended with a single
// write, so a crash never persists half a batch.
//
// Locking mirrors ExampleLog: a sync.Mutex for goroutines sharing the
// instance, an advisory lock on <path>.lock across processes, and resync
// from the last known offset on every operation.
type RuleLog struct {
	path  string
	flock *flock.Flock

	mu     sync.Mutex
	cache  []core.Rule
	offset int64
	line   int
}

// NewRuleLog opens (creating if necessary) the rule log at path and loads
// any existing records, validating them eagerly.
func NewRuleLog(path string) (*RuleLog, error) {
	if path == "" {
		return nil, fmt.Errorf("rule log: empty path")
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create rule log dir: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open rule log: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("open rule log: %w", err)
	}

	l := &RuleLog{
		path:  path,
		flock: flock.New(path + ".lock"),
	}

	if err := l.withRLock(context.Background(), l.resyncLocked); err != nil {
		return nil, err
	}

	return l, nil
}

// Append implements core.RuleStore. All rules are encoded into one buffer
// and written with a single write plus fsync, all-or-nothing.
func (l *RuleLog) Append(ctx context.Context, rules ...core.Rule) error {
	if len(rules) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	locked, err := l.flock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock rule log: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock rule log: not acquired")
	}
	defer l.flock.Unlock() //nolint:errcheck

	if err := l.resyncLocked(); err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, r := range rules {
		if r.ID == "" || r.Text == "" {
			return fmt.Errorf("rule log: rule with empty id or text")
		}
		record, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode rule: %w", err)
		}
		buf.Write(record)
		buf.WriteByte('\n')
	}

	if err := l.writeLocked(buf.Bytes()); err != nil {
		return err
	}

	l.cache = append(l.cache, rules...)
	l.offset += int64(buf.Len())
	l.line += len(rules)

	return nil
}

// Active implements core.RuleStore: up to maxCount rules, newest first.
// maxCount <= 0 returns all rules newest first. Evicted rules stay in the
// log; they are just not presented.
func (l *RuleLog) Active(ctx context.Context, maxCount int) ([]core.Rule, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.withRLock(ctx, l.resyncLocked); err != nil {
		return nil, err
	}

	n := len(l.cache)
	if maxCount > 0 && maxCount < n {
		n = maxCount
	}

	out := make([]core.Rule, n)
	for i := 0; i < n; i++ {
		out[i] = l.cache[len(l.cache)-1-i]
	}

	return out, nil
}

// All implements core.RuleStore: every rule in append order, including ones
// no longer presented by Active.
func (l *RuleLog) All(ctx context.Context) ([]core.Rule, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.withRLock(ctx, l.resyncLocked); err != nil {
		return nil, err
	}

	out := make([]core.Rule, len(l.cache))
	copy(out, l.cache)

	return out, nil
}

// Len implements core.RuleStore.
func (l *RuleLog) Len(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.withRLock(ctx, l.resyncLocked); err != nil {
		return 0, err
	}

	return len(l.cache), nil
}

func (l *RuleLog) withRLock(ctx context.Context, fn func() error) error {
	locked, err := l.flock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock rule log: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock rule log: not acquired")
	}
	defer l.flock.Unlock() //nolint:errcheck

	return fn()
}

func (l *RuleLog) writeLocked(records []byte) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open rule log: %w", err)
	}

	if _, err := f.Write(records); err != nil {
		f.Close() //nolint:errcheck,gosec
		return fmt.Errorf("append rules: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close() //nolint:errcheck,gosec
		return fmt.Errorf("sync rule log: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close rule log: %w", err)
	}

	return nil
}

func (l *RuleLog) resyncLocked() error {
	info, err := os.Stat(l.path)
	if err != nil {
		return fmt.Errorf("stat rule log: %w", err)
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
		return fmt.Errorf("open rule log: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if _, err := f.Seek(l.offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek rule log: %w", err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read rule log: %w", err)
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

		line := data[:nl]
		data = data[nl+1:]
		consumed := int64(nl) + 1
		lineno := l.line + 1

		if len(bytes.TrimSpace(line)) == 0 {
			l.offset += consumed
			l.line = lineno
			continue
		}

		var r core.Rule
		if err := json.Unmarshal(line, &r); err != nil {
			return &core.CorruptRecordError{Path: l.path, Line: lineno, Err: err}
		}
		if r.ID == "" || r.Text == "" {
			return &core.CorruptRecordError{
				Path: l.path,
				Line: lineno,
				Err:  errors.New("rule with empty id or text"),
			}
		}

		l.cache = append(l.cache, r)
		l.offset += consumed
		l.line = lineno
	}

	return nil
}
