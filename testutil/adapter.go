// Package testutil helps tests drive a Service deterministically.
package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/comalice/statesvc/internal/core"
	"github.com/comalice/statesvc/internal/primitives"
)

// Recorder keeps everything a Service reports: committed states, transition
// records and snapshots. It implements core.Persister and core.Publisher.
type Recorder struct {
	mu        sync.Mutex
	states    []primitives.State
	records   []core.TransitionRecord
	snapshots []core.Snapshot
}

func (r *Recorder) observe(s primitives.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *Recorder) Publish(_ context.Context, rec core.TransitionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *Recorder) Save(_ context.Context, s core.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
	return nil
}

// Load returns the latest snapshot saved for machineID.
func (r *Recorder) Load(_ context.Context, machineID string) (core.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.snapshots) - 1; i >= 0; i-- {
		if r.snapshots[i].MachineID == machineID {
			return r.snapshots[i], nil
		}
	}
	return core.Snapshot{}, fmt.Errorf("no snapshot for %q", machineID)
}

// StateIDs lists the ids of the committed states in order.
func (r *Recorder) StateIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.states))
	for i, s := range r.states {
		ids[i] = s.ID
	}
	return ids
}

// Records returns a copy of the published transition records.
func (r *Recorder) Records() []core.TransitionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.records)
}

// Snapshots returns a copy of the saved snapshots.
func (r *Recorder) Snapshots() []core.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.snapshots)
}

// Harness runs a Service on a fake clock and records what it reports.
type Harness struct {
	Service  *core.Service
	Clock    *clockwork.FakeClock
	Recorder *Recorder
}

// NewHarness creates a Service for chart. opts are applied after the
// harness's own clock and recorder options.
func NewHarness(chart *core.Chart, initial primitives.State, opts ...core.Option) *Harness {
	h := &Harness{
		Clock:    clockwork.NewFakeClock(),
		Recorder: &Recorder{},
	}
	base := []core.Option{
		core.WithClock(h.Clock),
		core.WithPersister(h.Recorder),
		core.WithPublisher(h.Recorder),
	}
	h.Service = core.New(chart, initial, append(base, opts...)...)
	h.Service.OnStateChange(h.Recorder.observe)
	return h
}

func (h *Harness) Start() error              { return h.Service.Start() }
func (h *Harness) Stop() error               { return h.Service.Stop() }
func (h *Harness) SendEvent(id string) error { return h.Service.SendID(id) }
func (h *Harness) CurrentState() string      { return h.Service.State().ID }

// Close disposes the service, which also flushes every pending record and
// snapshot to the Recorder. It waits for a timer handler that is running at
// the same time to finish first.
func (h *Harness) Close() error {
	err := h.Service.Dispose(false)
	<-h.Service.Done()
	return err
}

// Advance moves the fake clock by d. Timers fire on their own goroutines;
// use WaitForState or WaitForSequence to observe their effects.
func (h *Harness) Advance(d time.Duration) {
	h.Clock.Advance(d)
}

// WaitForState polls until the current state is id or timeout elapses.
func (h *Harness) WaitForState(id string, timeout time.Duration) error {
	return poll(timeout, func() bool { return h.Service.State().ID == id },
		func() error { return fmt.Errorf("state is %q, want %q", h.Service.State().ID, id) })
}

// WaitForSequence polls until at least n transitions have committed.
func (h *Harness) WaitForSequence(n uint64, timeout time.Duration) error {
	return poll(timeout, func() bool { return h.Service.Sequence() >= n },
		func() error { return fmt.Errorf("sequence is %d, want %d", h.Service.Sequence(), n) })
}

func poll(timeout time.Duration, done func() bool, fail func() error) error {
	deadline := time.Now().Add(timeout)
	for !done() {
		if time.Now().After(deadline) {
			return fail()
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}
