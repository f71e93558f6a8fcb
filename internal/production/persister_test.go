// Tests for file persisters and their integration with Service.
package production

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/comalice/statesvc/internal/core"
	"github.com/comalice/statesvc/internal/primitives"
)

func testSnapshot() core.Snapshot {
	return core.Snapshot{
		MachineID:    "test-machine",
		ChartVersion: "v1",
		State:        primitives.NewState("s1", map[string]any{"key": "value", "counter": float64(42)}),
		Sequence:     3,
		RunState:     primitives.Started.String(),
		Timestamp:    time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
	}
}

func TestPersisters_RoundTrip(t *testing.T) {
	persisters := map[string]func(dir string) (core.Persister, error){
		"json": func(dir string) (core.Persister, error) { return NewJSONPersister(dir) },
		"yaml": func(dir string) (core.Persister, error) { return NewYAMLPersister(dir) },
	}
	for name, newPersister := range persisters {
		t.Run(name, func(t *testing.T) {
			p, err := newPersister(t.TempDir())
			if err != nil {
				t.Fatalf("new persister failed: %v", err)
			}
			want := testSnapshot()
			if err := p.Save(context.Background(), want); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			got, err := p.Load(context.Background(), "test-machine")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if got.State.ID != "s1" || got.Sequence != 3 || got.ChartVersion != "v1" || got.RunState != "started" {
				t.Errorf("loaded %+v", got)
			}
			if !got.Timestamp.Equal(want.Timestamp) {
				t.Errorf("timestamp = %v, want %v", got.Timestamp, want.Timestamp)
			}
			data, ok := primitives.DataAs[map[string]any](got.State.Data)
			if !ok || data["key"] != "value" {
				t.Errorf("state data = %#v", got.State.Data)
			}
		})
	}
}

func TestPersisters_NotFound(t *testing.T) {
	p, err := NewJSONPersister(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Load(context.Background(), "missing")
	if !errors.Is(err, os.ErrNotExist) || !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Load error = %v, want not found", err)
	}
}

func TestYAMLPersister_InvalidSnapshot(t *testing.T) {
	dir := t.TempDir()
	p, err := NewYAMLPersister(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("sequence: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Load(context.Background(), "broken"); !errors.Is(err, ErrInvalidSnapshot) {
		t.Errorf("Load error = %v, want ErrInvalidSnapshot", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "garbage.yaml"), []byte("state: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Load(context.Background(), "garbage"); err == nil {
		t.Error("expected unmarshal error")
	}
}

func TestJSONPersister_ServiceIntegration(t *testing.T) {
	dir := t.TempDir()
	p, err := NewJSONPersister(dir)
	if err != nil {
		t.Fatal(err)
	}
	chart := &core.Chart{States: map[string]*core.StateDef{
		"green":  {On: map[string][]core.Handler{"timer": {goToState("yellow")}}},
		"yellow": {},
	}}
	svc := core.New(chart, primitives.NewState("green", nil), core.WithID("light"), core.WithPersister(p))
	if err := svc.Start(); err != nil {
		t.Fatal(err)
	}
	if err := svc.SendID("timer"); err != nil {
		t.Fatal(err)
	}
	// Dispose drains the background sink.
	if err := svc.Dispose(true); err != nil {
		t.Fatal(err)
	}

	got, err := p.Load(context.Background(), "light")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.State.ID != "yellow" || got.RunState != "disposed" || got.Sequence != 1 {
		t.Errorf("loaded %+v", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "light.json.tmp")); !errors.Is(err, os.ErrNotExist) {
		t.Error("temporary file left behind")
	}
}

func goToState(id string) core.Handler {
	return func(c *core.Context) error {
		c.TransitionToID(id)
		return nil
	}
}
