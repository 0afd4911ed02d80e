package testutil

import (
	"github.com/hupe1980/modepilot/core"
)

// TaskBuilder provides a fluent helper for constructing task contexts in tests.
// Example:
//
//	task := NewTaskBuilder("pick_and_place").
//		Mode("translate", "joystick moves the end effector").
//		Mode("gripper", "trigger opens and closes the gripper").
//		Build()
//
// Chain only the parts you need; sensible defaults are applied.
type TaskBuilder struct {
	id          string
	description string
	modes       []core.ModeSpec
	examplePath string
	rulePath    string
	cursors     *core.Cursors
	threshold   int
	maxRules    int
	window      int
}

// NewTaskBuilder creates a builder for a task context with the given id.
func NewTaskBuilder(id string) *TaskBuilder {
	return &TaskBuilder{id: id, description: "test task"}
}

// Description sets the task description shown to the model (chainable).
func (b *TaskBuilder) Description(d string) *TaskBuilder { b.description = d; return b }

// Mode appends one catalogue entry (chainable).
func (b *TaskBuilder) Mode(name, description string) *TaskBuilder {
	b.modes = append(b.modes, core.ModeSpec{Name: name, Description: description})
	return b
}

// Paths sets the example and rule store locations (chainable).
func (b *TaskBuilder) Paths(examplePath, rulePath string) *TaskBuilder {
	b.examplePath = examplePath
	b.rulePath = rulePath
	return b
}

// Cursors sets the persisted cursor pair (chainable).
func (b *TaskBuilder) Cursors(exampleIndex, interactIndex int) *TaskBuilder {
	b.cursors = &core.Cursors{ExampleIndex: exampleIndex, InteractIndex: interactIndex}
	return b
}

// Threshold sets the summarization threshold (chainable).
func (b *TaskBuilder) Threshold(n int) *TaskBuilder { b.threshold = n; return b }

// MaxActiveRules caps the rules presented per prompt (chainable).
func (b *TaskBuilder) MaxActiveRules(n int) *TaskBuilder { b.maxRules = n; return b }

// RecencyWindow caps the trailing examples presented per prompt (chainable).
func (b *TaskBuilder) RecencyWindow(n int) *TaskBuilder { b.window = n; return b }

// Build constructs the *core.TaskContext value. A task built without any
// Mode calls gets a three-mode default catalogue so Validate passes.
func (b *TaskBuilder) Build() *core.TaskContext {
	modes := b.modes
	if len(modes) == 0 {
		modes = []core.ModeSpec{
			{Name: "translate", Description: "joystick moves the end effector in the plane"},
			{Name: "rotate", Description: "joystick rotates the wrist"},
			{Name: "gripper", Description: "trigger opens and closes the gripper"},
		}
	}

	task := &core.TaskContext{
		ID:                 b.id,
		Description:        b.description,
		Modes:              modes,
		ExamplePath:        b.examplePath,
		RulePath:           b.rulePath,
		SummarizeThreshold: b.threshold,
		MaxActiveRules:     b.maxRules,
		RecencyWindow:      b.window,
	}
	if b.cursors != nil {
		task.SetCursors(*b.cursors)
	}

	return task
}
