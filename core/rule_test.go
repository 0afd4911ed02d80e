package core

import "testing"

func TestRange_ContainsLenString(t *testing.T) {
	r := Range{From: 4, To: 7}

	for id := int64(4); id <= 7; id++ {
		if !r.Contains(id) {
			t.Errorf("range %s should contain %d", r, id)
		}
	}
	if r.Contains(3) || r.Contains(8) {
		t.Errorf("range %s should exclude neighbors", r)
	}
	if r.Len() != 4 {
		t.Errorf("expected length 4, got %d", r.Len())
	}
	if r.String() != "[4..7]" {
		t.Errorf("unexpected rendering %q", r.String())
	}

	empty := Range{From: 5, To: 4}
	if empty.Len() != 0 {
		t.Errorf("inverted range should have length 0, got %d", empty.Len())
	}
}

func TestNewRule(t *testing.T) {
	r := NewRule("prefer rotate when wrist is near a joint limit", Range{From: 1, To: 3})

	if r.ID == "" {
		t.Error("expected generated rule id")
	}
	if r.CreatedAt.IsZero() {
		t.Error("expected creation timestamp")
	}
	if r.DerivedFrom != (Range{From: 1, To: 3}) {
		t.Errorf("derived range not carried: %+v", r.DerivedFrom)
	}

	other := NewRule("other", Range{From: 4, To: 4})
	if other.ID == r.ID {
		t.Error("expected unique rule ids")
	}
}

func TestExample_IsOverride(t *testing.T) {
	confirmed := Example{ProposedMode: "translate", CorrectedMode: "translate"}
	if confirmed.IsOverride() {
		t.Error("matching modes should not count as override")
	}

	overridden := Example{ProposedMode: "translate", CorrectedMode: "gripper"}
	if !overridden.IsOverride() {
		t.Error("differing modes should count as override")
	}
}
