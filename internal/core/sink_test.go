package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/comalice/statesvc/internal/core"
	"github.com/comalice/statesvc/internal/primitives"
)

type memStore struct {
	mu        sync.Mutex
	snapshots []core.Snapshot
	records   []core.TransitionRecord
}

func (m *memStore) Save(_ context.Context, s core.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, s)
	return nil
}

func (m *memStore) Load(_ context.Context, machineID string) (core.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.snapshots) - 1; i >= 0; i-- {
		if m.snapshots[i].MachineID == machineID {
			return m.snapshots[i], nil
		}
	}
	return core.Snapshot{}, errors.New("not found")
}

func (m *memStore) Publish(_ context.Context, r core.TransitionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

type failingStore struct{}

func (failingStore) Save(context.Context, core.Snapshot) error { return errors.New("disk full") }
func (failingStore) Load(context.Context, string) (core.Snapshot, error) {
	return core.Snapshot{}, errors.New("disk full")
}

func TestSinkDeliversInCommitOrder(t *testing.T) {
	store := &memStore{}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	chart := &core.Chart{States: map[string]*core.StateDef{
		"a": {On: on("next", goTo("b"))},
		"b": {On: map[string][]core.Handler{"next": {goTo("c")}, "self": {goTo("b")}}},
		"c": {Final: true},
	}}
	svc := core.New(chart, primitives.NewState("a", nil),
		core.WithID("m1"),
		core.WithClock(clock),
		core.WithChartVersion("v1"),
		core.WithPersister(store),
		core.WithPersister(failingStore{}),
		core.WithPublisher(store),
		core.WithSinkBuffer(1),
	)
	require.NoError(t, svc.Start())
	require.NoError(t, svc.SendID("next"))
	require.NoError(t, svc.SendID("self"))
	require.NoError(t, svc.SendID("next"))
	require.NoError(t, svc.Dispose(false))

	require.Len(t, store.records, 3)
	assert.Equal(t, core.TransitionRecord{
		MachineID: "m1", Sequence: 1, From: "a", To: "b", Event: "next", Changed: true, Timestamp: clock.Now(),
	}, store.records[0])
	assert.False(t, store.records[1].Changed)
	assert.Equal(t, "self", store.records[1].Event)
	assert.True(t, store.records[2].Final)
	assert.Equal(t, uint64(3), store.records[2].Sequence)

	require.Len(t, store.snapshots, 4)
	for i, s := range store.snapshots[:3] {
		assert.Equal(t, uint64(i+1), s.Sequence)
		assert.Equal(t, "v1", s.ChartVersion)
	}
	last, err := store.Load(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "c", last.State.ID)
	assert.Equal(t, primitives.Disposed.String(), last.RunState)
}

func TestSnapshotRoundTripThroughRestore(t *testing.T) {
	store := &memStore{}
	chart := &core.Chart{States: map[string]*core.StateDef{
		"a": {On: on("next", goTo("b"))},
		"b": {},
	}}
	first := core.New(chart, primitives.NewState("a", nil), core.WithID("m1"), core.WithPersister(store))
	require.NoError(t, first.Start())
	require.NoError(t, first.SendID("next"))
	require.NoError(t, first.Dispose(true))

	snap, err := store.Load(context.Background(), "m1")
	require.NoError(t, err)

	second := core.New(chart, primitives.NewState("a", nil), core.WithID("m1"))
	require.NoError(t, second.Restore(snap))
	require.NoError(t, second.Start())
	assert.Equal(t, "b", second.State().ID)
	assert.Equal(t, uint64(1), second.Sequence())
}

func TestWatch(t *testing.T) {
	chart := &core.Chart{States: map[string]*core.StateDef{
		"a": {On: on("next", goTo("b"))},
		"b": {On: on("next", goTo("a"))},
	}}
	svc := core.New(chart, primitives.NewState("a", nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	states := svc.Watch(ctx, 1)
	require.NoError(t, svc.Start())
	require.NoError(t, svc.SendID("next"))
	// The buffer holds one state; the second transition is dropped.
	require.NoError(t, svc.SendID("next"))

	got := <-states
	assert.Equal(t, "b", got.ID)
	select {
	case s := <-states:
		t.Fatalf("unexpected state %v", s)
	default:
	}

	require.NoError(t, svc.Dispose(false))
	_, open := <-states
	assert.False(t, open)

	closed := svc.Watch(context.Background(), 4)
	_, open = <-closed
	assert.False(t, open)
}

func TestWatchClosedOnCancel(t *testing.T) {
	svc := core.New(nil, primitives.NewState("a", nil))
	ctx, cancel := context.WithCancel(context.Background())
	states := svc.Watch(ctx, 4)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, open := <-states:
			return !open
		default:
			return false
		}
	}, time.Second, time.Millisecond)
	require.NoError(t, svc.Dispose(false))
}

func TestTracingSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	chart := &core.Chart{States: map[string]*core.StateDef{
		"a": {On: map[string][]core.Handler{
			"next": {goTo("b")},
			"bad":  {func(*core.Context) error { return errors.New("nope") }},
		}},
		"b": {},
	}}
	svc := core.New(chart, primitives.NewState("a", nil), core.WithTracer(tp.Tracer("test")))
	require.NoError(t, svc.Start())
	require.Error(t, svc.SendID("bad"))
	require.NoError(t, svc.SendID("next"))

	spans := sr.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "statesvc.dispatch", spans[0].Name())
	assert.Equal(t, "Error", spans[0].Status().Code.String())

	transition, dispatch := spans[1], spans[2]
	assert.Equal(t, "statesvc.transition", transition.Name())
	assert.Equal(t, "statesvc.dispatch", dispatch.Name())
	assert.Equal(t, dispatch.SpanContext().SpanID(), transition.Parent().SpanID())
}
