// Package statesvc runs finite state machines defined as a chart of states and
// callbacks.
//
// A chart is built with Define or loaded from YAML with LoadChart, then run by
// a Service:
//
//	chart := statesvc.Define(func(b *statesvc.ChartBuilder) {
//		b.State("red", func(s *statesvc.StateBuilder) {
//			s.OnEnter(func(c *statesvc.Context) error {
//				c.RunAfter(3*time.Second, func(c *statesvc.Context) error {
//					c.SendID("tick")
//					return nil
//				})
//				return nil
//			})
//			s.OnEvent("tick", statesvc.Goto("green"))
//		})
//		// ...
//	})
//	svc := statesvc.New(chart, statesvc.NewState("red", nil))
//	svc.Start()
//
// Handlers run one at a time and normally reach the service through their
// *Context. Calls they make on the *Service itself are queued until the
// current event has been handled. Resources registered from a handler (timers,
// intervals, goroutines started with Context.Go) are released when the state
// is left.
package statesvc

import (
	"github.com/comalice/statesvc/internal/core"
	"github.com/comalice/statesvc/internal/primitives"
)

type (
	Service          = core.Service
	Chart            = core.Chart
	StateDef         = core.StateDef
	Handler          = core.Handler
	Context          = core.Context
	Option           = core.Option
	Snapshot         = core.Snapshot
	TransitionRecord = core.TransitionRecord
	Persister        = core.Persister
	Publisher        = core.Publisher
	HandlerError     = core.HandlerError
	Phase            = core.Phase

	State      = primitives.State
	Event      = primitives.Event
	RunState   = primitives.RunState
	Disposable = primitives.Disposable
)

const (
	Initial  = primitives.Initial
	Started  = primitives.Started
	Finished = primitives.Finished
	Stopped  = primitives.Stopped
	Disposed = primitives.Disposed
)

var (
	ErrHandlerPanic = core.ErrHandlerPanic

	WithID           = core.WithID
	WithLogger       = core.WithLogger
	WithClock        = core.WithClock
	WithTracer       = core.WithTracer
	WithPersister    = core.WithPersister
	WithPublisher    = core.WithPublisher
	WithErrorHandler = core.WithErrorHandler
	WithSinkBuffer   = core.WithSinkBuffer
	WithChartVersion = core.WithChartVersion

	NewState = primitives.NewState
	NewEvent = primitives.NewEvent
)

// New creates a Service running chart from initial. Call Start to run it.
func New(chart *Chart, initial State, opts ...Option) *Service {
	return core.New(chart, initial, opts...)
}

// DataAs returns a state or event payload as T.
func DataAs[T any](data any) (T, bool) {
	return primitives.DataAs[T](data)
}

// Goto returns a handler that transitions to the state id with no data.
func Goto(id string) Handler {
	return func(c *Context) error {
		c.TransitionToID(id)
		return nil
	}
}

// Emit returns a handler that queues the event id with no data.
func Emit(id string) Handler {
	return func(c *Context) error {
		c.SendID(id)
		return nil
	}
}
