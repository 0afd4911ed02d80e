package core

import "fmt"

// Cursors holds the two persisted offsets that make runs resumable.
// ExampleIndex counts examples committed to the example store;
// InteractIndex counts how many of them have been distilled into rules.
// InteractIndex never exceeds ExampleIndex.
type Cursors struct {
	ExampleIndex  int `json:"example_index"`
	InteractIndex int `json:"interact_index"`
}

// TaskContext is the per-run configuration for one teleoperation task.
// It is loaded once at run start; the two cursor fields are the only state
// mutated across a run, and their persistence is owned exclusively by the
// tracker. The decision cycle is synchronous, so TaskContext is not guarded
// for concurrent mutation.
type TaskContext struct {
	ID          string     `json:"task_id"`
	Description string     `json:"description"`
	Modes       []ModeSpec `json:"modes"`

	ExamplePath string `json:"example_path,omitempty"`
	RulePath    string `json:"rule_path,omitempty"`

	ExampleIndex  int `json:"example_index"`
	InteractIndex int `json:"interact_index"`

	// SummarizeThreshold is the minimum number of pending examples before
	// maybeSummarize distills them into rules. MaxActiveRules caps how many
	// rules enter a prompt; RecencyWindow caps the trailing example window.
	// Zero values defer to engine/loop defaults.
	SummarizeThreshold int `json:"summarize_threshold,omitempty"`
	MaxActiveRules     int `json:"max_active_rules,omitempty"`
	RecencyWindow      int `json:"recency_window,omitempty"`
}

// Validate checks the structural invariants of a task context.
func (t *TaskContext) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task context: missing task_id")
	}
	if len(t.Modes) == 0 {
		return fmt.Errorf("task context %s: empty mode catalogue", t.ID)
	}
	seen := make(map[string]bool, len(t.Modes))
	for _, m := range t.Modes {
		if m.Name == "" {
			return fmt.Errorf("task context %s: mode with empty name", t.ID)
		}
		if seen[m.Name] {
			return fmt.Errorf("task context %s: duplicate mode %q", t.ID, m.Name)
		}
		seen[m.Name] = true
	}
	if t.ExampleIndex < 0 || t.InteractIndex < 0 {
		return fmt.Errorf("task context %s: negative cursor", t.ID)
	}
	if t.InteractIndex > t.ExampleIndex {
		return fmt.Errorf("task context %s: interact_index %d exceeds example_index %d",
			t.ID, t.InteractIndex, t.ExampleIndex)
	}
	return nil
}

// HasMode reports whether name is one of the declared modes.
func (t *TaskContext) HasMode(name string) bool {
	for _, m := range t.Modes {
		if m.Name == name {
			return true
		}
	}
	return false
}

// ModeNames returns the catalogue names in declaration order.
func (t *TaskContext) ModeNames() []string {
	names := make([]string, len(t.Modes))
	for i, m := range t.Modes {
		names[i] = m.Name
	}
	return names
}

// Cursors returns the current cursor pair.
func (t *TaskContext) Cursors() Cursors {
	return Cursors{ExampleIndex: t.ExampleIndex, InteractIndex: t.InteractIndex}
}

// SetCursors applies a committed cursor pair back onto the context.
func (t *TaskContext) SetCursors(c Cursors) {
	t.ExampleIndex = c.ExampleIndex
	t.InteractIndex = c.InteractIndex
}

// Pending returns how many committed examples have not yet been summarized.
func (t *TaskContext) Pending() int { return t.ExampleIndex - t.InteractIndex }

// Clone returns a deep copy of the task context safe for independent mutation.
func (t *TaskContext) Clone() *TaskContext {
	clone := *t
	clone.Modes = make([]ModeSpec, len(t.Modes))
	copy(clone.Modes, t.Modes)
	return &clone
}
