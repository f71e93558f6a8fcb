package primitives

import "testing"

type counter struct{ n int }

func (c *counter) Clone() any { return &counter{n: c.n} }

func TestNewEvent(t *testing.T) {
	e := NewEvent("test", 42)
	if e.ID != "test" {
		t.Errorf("got ID=%q want test", e.ID)
	}
	if v, ok := DataAs[int](e.Data); !ok || v != 42 {
		t.Errorf("got Data=%v (%T) want 42", e.Data, e.Data)
	}
}

func TestEventFreezeClonesPayload(t *testing.T) {
	orig := &counter{n: 1}
	frozen := NewEvent("inc", orig).Freeze()
	orig.n = 99

	got, ok := DataAs[*counter](frozen.Data)
	if !ok {
		t.Fatalf("payload type lost: %T", frozen.Data)
	}
	if got.n != 1 {
		t.Errorf("frozen payload mutated: got %d want 1", got.n)
	}
}

func TestStateFreezeKeepsPlainPayload(t *testing.T) {
	s := NewState("idle", "payload").Freeze()
	if s.ID != "idle" || s.Data != "payload" {
		t.Errorf("unexpected frozen state %+v", s)
	}
}

func TestStateSameIgnoresData(t *testing.T) {
	a := NewState("green", 1)
	b := NewState("green", 2)
	if !a.Same(b) {
		t.Error("states with equal IDs should be the same")
	}
	if a.Same(NewState("red", 1)) {
		t.Error("states with different IDs should differ")
	}
}

func TestDataAsMissing(t *testing.T) {
	if _, ok := DataAs[string](nil); ok {
		t.Error("DataAs on nil payload should report false")
	}
}

func TestFreezeCopiesGenericShapes(t *testing.T) {
	nested := []any{"x"}
	orig := map[string]any{"n": 1, "list": nested}
	frozen := NewState("s", orig).Freeze()

	orig["n"] = 2
	nested[0] = "y"

	got, ok := DataAs[map[string]any](frozen.Data)
	if !ok {
		t.Fatalf("payload type = %T", frozen.Data)
	}
	if got["n"] != 1 {
		t.Errorf("n = %v, want 1", got["n"])
	}
	if list := got["list"].([]any); list[0] != "x" {
		t.Errorf("list[0] = %v, want x", list[0])
	}
}
