package statechart

import "testing"

// TestState_Matches_NoMachine covers the degenerate case: a State built
// directly from a struct literal (no Definition behind it, machine nil)
// falls back to literal Leaf equality — it can't walk ancestry it was
// never given. The ancestor-aware case this falls back from is exercised
// end to end against a real Definition by
// TestScenario_MatchesAgainstCompoundAncestor in scenarios_test.go.
func TestState_Matches_NoMachine(t *testing.T) {
	state := State[struct{}]{
		Value: Value{Leaf: "green"},
	}

	if !state.Matches(Value{Leaf: "green"}) {
		t.Error("expected state to match 'green'")
	}

	if state.Matches(Value{Leaf: "red"}) {
		t.Error("expected state not to match 'red'")
	}
}

func TestStateType_ReExports(t *testing.T) {
	if StateTypeAtomic.String() != "atomic" {
		t.Errorf("expected 'atomic', got %v", StateTypeAtomic.String())
	}
	if StateTypeCompound.String() != "compound" {
		t.Errorf("expected 'compound', got %v", StateTypeCompound.String())
	}
	if StateTypeFinal.String() != "final" {
		t.Errorf("expected 'final', got %v", StateTypeFinal.String())
	}
	if StateTypeParallel.String() != "parallel" {
		t.Errorf("expected 'parallel', got %v", StateTypeParallel.String())
	}
	if StateTypeHistory.String() != "history" {
		t.Errorf("expected 'history', got %v", StateTypeHistory.String())
	}
}

func TestEvent_Creation(t *testing.T) {
	event := Event{
		Type:    "TIMER",
		Payload: map[string]int{"count": 1},
	}

	if event.Type != "TIMER" {
		t.Errorf("expected event type 'TIMER', got %v", event.Type)
	}

	payload, ok := event.Payload.(map[string]int)
	if !ok {
		t.Fatal("expected payload to be map[string]int")
	}
	if payload["count"] != 1 {
		t.Errorf("expected count 1, got %v", payload["count"])
	}
}
