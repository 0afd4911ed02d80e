package core

import (
	"fmt"
	"sort"
	"strings"
)

// Snapshot is an opaque, serializable description of the scene and task state
// at decision time. Summary is free text (e.g. object positions, gripper
// state); Fields carries optional structured details. The engine treats a
// snapshot as prompt material only and never interprets it.
type Snapshot struct {
	Summary string            `json:"summary"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// String renders the snapshot deterministically: the summary followed by the
// structured fields in sorted key order. Prompts built from equal snapshots
// are byte-identical.
func (s Snapshot) String() string {
	if len(s.Fields) == 0 {
		return s.Summary
	}

	keys := make([]string, 0, len(s.Fields))
	for k := range s.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(s.Summary)
	for _, k := range keys {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s", k, s.Fields[k])
	}

	return b.String()
}

// TemplateState exposes the snapshot to text templates. Fields appear under
// their own keys and the summary under "summary"; a field named "summary"
// wins over the summary text.
func (s Snapshot) TemplateState() map[string]any {
	state := make(map[string]any, len(s.Fields)+1)
	state["summary"] = s.Summary
	for k, v := range s.Fields {
		state[k] = v
	}
	return state
}

// IsZero reports whether the snapshot carries no information.
func (s Snapshot) IsZero() bool { return s.Summary == "" && len(s.Fields) == 0 }

// Clone returns a copy of the snapshot with its own Fields map.
func (s Snapshot) Clone() Snapshot {
	if s.Fields == nil {
		return s
	}

	fields := make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		fields[k] = v
	}

	return Snapshot{Summary: s.Summary, Fields: fields}
}
