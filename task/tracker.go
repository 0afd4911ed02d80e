package task

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/hupe1980/modepilot/core"
)

const lockRetryDelay = 50 * time.Millisecond

// Compile-time assertion that FileTracker satisfies the tracker contract.
var _ core.Tracker = (*FileTracker)(nil)

// FileTracker is a core.Tracker backed by the task's JSON file. The file is
// authored by an operator; only the two cursor fields are ever rewritten, and
// every other field is preserved byte for byte. Replacement is atomic (temp
// file plus rename), guarded by an advisory lock shared with any concurrent
// process committing the same task.
type FileTracker struct {
	path  string
	flock *flock.Flock

	mu sync.Mutex
}

// NewFileTracker creates a tracker for the task file at path. The file must
// already exist; trackers never invent task contexts.
func NewFileTracker(path string) (*FileTracker, error) {
	if path == "" {
		return nil, fmt.Errorf("task tracker: empty path")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("task file: %w", err)
	}

	return &FileTracker{
		path:  path,
		flock: flock.New(path + ".lock"),
	}, nil
}

// Load implements core.Tracker. The parsed context is validated before it is
// returned, so callers never see a structurally broken task.
func (t *FileTracker) Load(ctx context.Context) (*core.TaskContext, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	locked, err := t.flock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock task file: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("lock task file: not acquired")
	}
	defer t.flock.Unlock() //nolint:errcheck

	raw, err := os.ReadFile(t.path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}

	var tc core.TaskContext
	if err := json.Unmarshal(raw, &tc); err != nil {
		return nil, fmt.Errorf("parse task file %s: %w", t.path, err)
	}
	if err := tc.Validate(); err != nil {
		return nil, err
	}

	return &tc, nil
}

// Commit implements core.Tracker. Cursors are merged with the file's current
// values field by field, taking the maximum, so a stale commit can never
// regress a checkpoint. A commit that changes nothing leaves the file
// untouched.
func (t *FileTracker) Commit(ctx context.Context, c core.Cursors) error {
	if c.ExampleIndex < 0 || c.InteractIndex < 0 {
		return fmt.Errorf("commit cursors: negative cursor")
	}
	if c.InteractIndex > c.ExampleIndex {
		return fmt.Errorf("commit cursors: interact_index %d exceeds example_index %d",
			c.InteractIndex, c.ExampleIndex)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	locked, err := t.flock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock task file: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock task file: not acquired")
	}
	defer t.flock.Unlock() //nolint:errcheck

	raw, err := os.ReadFile(t.path)
	if err != nil {
		return fmt.Errorf("read task file: %w", err)
	}

	cur := core.Cursors{
		ExampleIndex:  int(gjson.GetBytes(raw, "example_index").Int()),
		InteractIndex: int(gjson.GetBytes(raw, "interact_index").Int()),
	}

	next := core.Cursors{
		ExampleIndex:  max(cur.ExampleIndex, c.ExampleIndex),
		InteractIndex: max(cur.InteractIndex, c.InteractIndex),
	}
	if next == cur {
		return nil
	}

	updated, err := sjson.SetBytes(raw, "example_index", next.ExampleIndex)
	if err != nil {
		return fmt.Errorf("update task file: %w", err)
	}
	updated, err = sjson.SetBytes(updated, "interact_index", next.InteractIndex)
	if err != nil {
		return fmt.Errorf("update task file: %w", err)
	}

	return t.replaceFile(updated)
}

func (t *FileTracker) replaceFile(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(t.path), ".task-*.json")
	if err != nil {
		return fmt.Errorf("write task file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck,gosec
		os.Remove(tmpPath) //nolint:errcheck,gosec
		return fmt.Errorf("write task file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()        //nolint:errcheck,gosec
		os.Remove(tmpPath) //nolint:errcheck,gosec
		return fmt.Errorf("sync task file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath) //nolint:errcheck,gosec
		return fmt.Errorf("close task file: %w", err)
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath) //nolint:errcheck,gosec
		return fmt.Errorf("write task file: %w", err)
	}
	if err := os.Rename(tmpPath, t.path); err != nil {
		os.Remove(tmpPath) //nolint:errcheck,gosec
		return fmt.Errorf("replace task file: %w", err)
	}

	return nil
}
