// Package core provides the runtime of the state service: the dispatch loop,
// the transition protocol, callback batches, and the disposal scope that ties
// timers and other resources to the current state.
//
// A Service is single-threaded in the cooperative sense: handlers never run in
// parallel. The first call that finds the service idle becomes its driver and
// runs queued work until none is left. Calls made meanwhile, from other
// goroutines or from handlers and subscribers on the driver itself, only
// queue their work and return.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/comalice/statesvc/internal/primitives"
)

// Option applies configuration to Service via functional options pattern.
type Option func(*Service)

// Service runs one Chart.
type Service struct {
	id           string
	chart        *Chart
	chartVersion string

	// mu guards queues, pending and busy. It is never held while handlers or
	// subscribers run.
	mu      sync.Mutex
	queues  primitives.EventQueues
	pending []func()
	busy    bool

	runState atomic.Int32
	seq      atomic.Uint64
	current  primitives.State
	snapshot atomic.Pointer[primitives.State]
	scope    *primitives.DisposableStore
	changes  *primitives.Emitter[primitives.State]
	failures []error
	traceCtx context.Context

	watchMu  sync.Mutex
	watchers map[*watcher]struct{}

	logger     *zap.Logger
	clock      clockwork.Clock
	tracer     trace.Tracer
	persisters []Persister
	publishers []Publisher
	onError    func(error)
	sinkBuffer int
	sink       *sink
	done       chan struct{}
}

// New creates a Service for chart that starts in initial. It does nothing until
// Start is called.
func New(chart *Chart, initial primitives.State, opts ...Option) *Service {
	if chart == nil {
		chart = &Chart{}
	}
	s := &Service{
		id:         uuid.NewString(),
		chart:      chart,
		current:    initial.Freeze(),
		scope:      primitives.NewDisposableStore(),
		changes:    primitives.NewEmitter[primitives.State](),
		traceCtx:   context.Background(),
		watchers:   make(map[*watcher]struct{}),
		logger:     zap.NewNop(),
		clock:      clockwork.NewRealClock(),
		tracer:     noop.NewTracerProvider().Tracer(""),
		sinkBuffer: 64,
		done:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With(zap.String("machine", s.id))
	s.publish()
	if len(s.persisters) > 0 || len(s.publishers) > 0 {
		s.sink = newSink(s.sinkBuffer, s.persisters, s.publishers, s.logger)
	}
	return s
}

// ID returns the machine id.
func (s *Service) ID() string {
	return s.id
}

// State returns the current state. It never blocks and is safe to call from
// handlers and subscribers.
func (s *Service) State() primitives.State {
	return *s.snapshot.Load()
}

// Sequence returns the number of committed transitions so far.
func (s *Service) Sequence() uint64 {
	return s.seq.Load()
}

// RunState returns the lifecycle phase.
func (s *Service) RunState() primitives.RunState {
	return primitives.RunState(s.runState.Load())
}

// OnStateChange registers fn to be called once per committed transition,
// self-transitions included. fn runs on the goroutine processing the
// transition; calls it makes into the service are queued.
func (s *Service) OnStateChange(fn func(primitives.State)) (unsubscribe func()) {
	return s.changes.Subscribe(fn)
}

// Start runs the chart-wide enter handlers and then the initial state's enter
// handlers. It is a no-op unless the service is in its initial run state.
func (s *Service) Start() error {
	return s.exec(s.start)
}

func (s *Service) start() {
	if s.RunState() != primitives.Initial {
		return
	}
	s.setRunState(primitives.Started)
	s.logger.Debug("service started", zap.String("state", s.current.ID))

	seq := s.seq.Load()
	s.runBatch(PhaseEnter, s.chart.Root.Enter, s.current, nil, false)
	// The chart-wide batch may already have moved away from the initial state.
	if s.seq.Load() == seq {
		s.runBatch(PhaseEnter, s.chart.State(s.current.ID).enter(), s.current, nil, false)
	}
}

// Stop runs the current state's exit handlers and then the chart-wide exit
// handlers, and drops any queued events. It is a no-op unless the service is
// started or finished. Called while the service is busy, for instance from a
// handler, the stop is applied once the current event and the internal events
// it sent have been handled, and Stop returns without waiting for it.
func (s *Service) Stop() error {
	return s.exec(s.stop)
}

func (s *Service) stop() {
	if !s.RunState().CanStop() {
		return
	}
	s.runBatch(PhaseExit, s.chart.State(s.current.ID).exit(), s.current, nil, true)
	s.runBatch(PhaseExit, s.chart.Root.Exit, s.current, nil, true)

	s.mu.Lock()
	s.setRunState(primitives.Stopped)
	s.queues.Clear()
	s.mu.Unlock()
	s.logger.Debug("service stopped", zap.String("state", s.current.ID))
}

// Dispose tears the service down. With stopFirst it behaves like Stop first;
// otherwise queued events are dropped without running any exit handlers. In
// both cases every resource of the current state is released, subscribers are
// removed, and pending snapshots and records are flushed to the persisters and
// publishers. Dispose is terminal; later calls are no-ops.
//
// Like Stop, a Dispose made while the service is busy is applied by the call
// already processing and returns at once. Done reports when it has completed.
func (s *Service) Dispose(stopFirst bool) error {
	return s.exec(func() { s.dispose(stopFirst) })
}

func (s *Service) dispose(stopFirst bool) {
	if s.RunState() == primitives.Disposed {
		return
	}
	if stopFirst {
		s.stop()
	}

	s.mu.Lock()
	s.setRunState(primitives.Disposed)
	s.queues.Clear()
	s.mu.Unlock()

	s.scope.Dispose()
	s.changes.Dispose()
	s.emitSnapshot()
	s.closeWatchers()
	if s.sink != nil {
		s.sink.close()
	}
	s.logger.Debug("service disposed")
	close(s.done)
}

// Done returns a channel that is closed once Dispose has completed.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Send queues an external event. It is a no-op unless the service is started.
// When the service is idle, Send processes the event and everything it leads
// to before returning, and the returned error joins the failures of handlers
// run meanwhile. When the service is busy, Send only queues the event.
func (s *Service) Send(e primitives.Event) error {
	return s.sendExternal(e)
}

// SendID sends an event without payload.
func (s *Service) SendID(id string) error {
	return s.Send(primitives.Event{ID: id})
}

// Restore replaces the initial state and sequence with a persisted snapshot.
// It must be called before Start.
func (s *Service) Restore(snapshot Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy || s.RunState() != primitives.Initial {
		return ErrNotInitial
	}
	if snapshot.MachineID != "" && snapshot.MachineID != s.id {
		return fmt.Errorf("%w: have %q, snapshot %q", ErrMachineMismatch, s.id, snapshot.MachineID)
	}
	s.current = snapshot.State.Freeze()
	s.seq.Store(snapshot.Sequence)
	s.publish()
	s.logger.Debug("service restored", zap.String("state", s.current.ID), zap.Uint64("sequence", snapshot.Sequence))
	return nil
}

// Snapshot returns the current runtime state in serializable form.
func (s *Service) Snapshot() Snapshot {
	return Snapshot{
		MachineID:    s.id,
		ChartVersion: s.chartVersion,
		State:        s.State(),
		Sequence:     s.Sequence(),
		RunState:     s.RunState().String(),
		Timestamp:    s.clock.Now(),
	}
}

func (s *Service) setRunState(rs primitives.RunState) {
	s.runState.Store(int32(rs))
}

func (s *Service) started() bool {
	return s.RunState() == primitives.Started
}

// publish makes the current state visible to lock-free readers.
func (s *Service) publish() {
	st := s.current
	s.snapshot.Store(&st)
}

// report records a handler failure for the call driving the service.
func (s *Service) report(err error) {
	s.notify(err)
	s.failures = append(s.failures, err)
}

// notify logs err and hands it to the error hook.
func (s *Service) notify(err error) {
	s.logger.Error("handler failed", zap.Error(err))
	if s.onError != nil {
		s.onError(err)
	}
}

// takeFailures returns the recorded failures joined. Callers hold s.mu.
func (s *Service) takeFailures() error {
	if len(s.failures) == 0 {
		return nil
	}
	err := errors.Join(s.failures...)
	s.failures = nil
	return err
}
