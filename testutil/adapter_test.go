package testutil

import (
	"testing"
	"time"

	"github.com/comalice/statesvc/internal/core"
	"github.com/comalice/statesvc/internal/primitives"
)

func createTestChart() *core.Chart {
	goTo := func(id string) core.Handler {
		return func(c *core.Context) error {
			c.TransitionToID(id)
			return nil
		}
	}
	return &core.Chart{States: map[string]*core.StateDef{
		"a": {
			Enter: []core.Handler{func(c *core.Context) error {
				c.RunAfter(time.Second, goTo("b"))
				return nil
			}},
		},
		"b": {On: map[string][]core.Handler{"event1": {goTo("c")}}},
		"c": {Final: true},
	}}
}

func TestHarness(t *testing.T) {
	h := NewHarness(createTestChart(), primitives.NewState("a", nil), core.WithID("harness"))
	if err := h.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if h.CurrentState() != "a" {
		t.Errorf("Expected to start in a, got %s", h.CurrentState())
	}

	h.Advance(time.Second)
	if err := h.WaitForState("b", time.Second); err != nil {
		t.Fatal(err)
	}
	if err := h.SendEvent("event1"); err != nil {
		t.Fatalf("SendEvent failed: %v", err)
	}
	if err := h.WaitForSequence(2, time.Second); err != nil {
		t.Fatal(err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	ids := h.Recorder.StateIDs()
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "c" {
		t.Errorf("states = %v", ids)
	}
	records := h.Recorder.Records()
	if len(records) != 2 || !records[1].Final || records[1].Event != "event1" {
		t.Errorf("records = %+v", records)
	}
	snap, err := h.Recorder.Load(t.Context(), "harness")
	if err != nil {
		t.Fatal(err)
	}
	if snap.State.ID != "c" || snap.RunState != primitives.Disposed.String() {
		t.Errorf("last snapshot = %+v", snap)
	}
	if len(h.Recorder.Snapshots()) != 3 {
		t.Errorf("got %d snapshots, want 3", len(h.Recorder.Snapshots()))
	}
}

func TestHarnessWaitTimeout(t *testing.T) {
	h := NewHarness(createTestChart(), primitives.NewState("a", nil))
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	if err := h.WaitForState("b", 20*time.Millisecond); err == nil {
		t.Error("expected timeout before the clock advances")
	}
	if _, err := h.Recorder.Load(t.Context(), "other"); err == nil {
		t.Error("expected error for unknown machine")
	}
}
