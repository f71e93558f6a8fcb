package core

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/comalice/statesvc/internal/primitives"
)

// Context is handed to every handler of one batch. It remembers the sequence
// that was current when the batch began; once a transition commits, the
// context is stale and Send, TransitionTo, RegisterDisposable, RunAfter,
// RunEvery and Go do nothing.
//
// Contexts of exit batches are read-only: the same calls are inert there too.
type Context struct {
	svc      *Service
	phase    Phase
	state    primitives.State
	event    *primitives.Event
	seq      uint64
	readOnly bool
}

func (s *Service) newContext(phase Phase, state primitives.State, event *primitives.Event, readOnly bool) *Context {
	c := &Context{
		svc:      s,
		phase:    phase,
		state:    state,
		seq:      s.seq.Load(),
		readOnly: readOnly,
	}
	if event != nil {
		e := *event
		c.event = &e
	}
	return c
}

// State returns the state the batch runs for.
func (c *Context) State() primitives.State {
	return c.state
}

// Event returns the event being handled, if any.
func (c *Context) Event() (primitives.Event, bool) {
	if c.event == nil {
		return primitives.Event{}, false
	}
	return *c.event, true
}

// Phase returns the occasion the batch runs for.
func (c *Context) Phase() Phase {
	return c.phase
}

// Sequence returns the sequence captured when the batch began.
func (c *Context) Sequence() uint64 {
	return c.seq
}

// Stale reports whether a transition has committed since the batch began.
func (c *Context) Stale() bool {
	return c.svc.seq.Load() != c.seq
}

// Logger returns the service logger annotated with the batch state.
func (c *Context) Logger() *zap.Logger {
	return c.svc.logger.With(zap.String("state", c.state.ID), zap.String("phase", string(c.phase)))
}

// Clock returns the clock timers are scheduled on.
func (c *Context) Clock() clockwork.Clock {
	return c.svc.clock
}

func (c *Context) inert() bool {
	return c.readOnly || c.Stale()
}

// Send queues e on the internal queue, which is always drained before the
// next external event.
func (c *Context) Send(e primitives.Event) {
	if c.inert() {
		return
	}
	c.svc.sendInternal(e)
}

// SendID sends an event without payload.
func (c *Context) SendID(id string) {
	c.Send(primitives.Event{ID: id})
}

// TransitionTo commits a transition to target immediately. The event being
// handled, if any, is passed to the exit and enter handlers as the cause.
func (c *Context) TransitionTo(target primitives.State) {
	if c.inert() {
		return
	}
	c.svc.transitionTo(target, c.event)
}

// TransitionToID transitions to a state without payload.
func (c *Context) TransitionToID(id string) {
	c.TransitionTo(primitives.State{ID: id})
}

// RegisterDisposable ties d to the current state: it is released when a
// transition to a different state commits, or when the service is disposed.
// On an inert context d is released immediately.
func (c *Context) RegisterDisposable(d primitives.Disposable) {
	if d == nil {
		return
	}
	if c.inert() {
		d.Dispose()
		return
	}
	c.svc.scope.Add(d)
}

// RunAfter calls h with this context once delay has elapsed, unless the
// current state's resources are released first.
func (c *Context) RunAfter(delay time.Duration, h Handler) {
	if c.inert() || h == nil {
		return
	}
	svc := c.svc
	t := svc.clock.AfterFunc(delay, func() { svc.fire(c, h) })
	c.RegisterDisposable(primitives.DisposableFunc(func() { t.Stop() }))
	svc.logger.Debug("timer started", zap.String("state", c.state.ID), zap.Duration("delay", delay))
}

// RunEvery calls h with this context every interval until the current state's
// resources are released.
func (c *Context) RunEvery(interval time.Duration, h Handler) {
	if c.inert() || h == nil || interval <= 0 {
		return
	}
	iv := &repeating{svc: c.svc, ctx: c, h: h, interval: interval}
	iv.mu.Lock()
	iv.arm()
	iv.mu.Unlock()
	c.RegisterDisposable(primitives.DisposableFunc(iv.stop))
	c.svc.logger.Debug("interval started", zap.String("state", c.state.ID), zap.Duration("interval", interval))
}

// Go runs fn on its own goroutine. The context.Context passed to fn is
// canceled when the current state's resources are released. The handler fn
// returns, if any, is then called with this context exactly like a timer
// firing.
func (c *Context) Go(fn func(ctx context.Context) Handler) {
	if c.inert() || fn == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.RegisterDisposable(primitives.DisposableFunc(cancel))

	svc := c.svc
	go func() {
		next := fn(ctx)
		if next == nil || ctx.Err() != nil {
			return
		}
		svc.fire(c, next)
	}()
}

// fire re-enters the service from a timer or goroutine. If another call is
// driving the service, h runs once that call reaches it.
func (s *Service) fire(c *Context, h Handler) {
	// Nobody waits for these; they were logged and handed to the error hook.
	_ = s.exec(func() {
		if s.RunState() == primitives.Disposed {
			return
		}
		s.logger.Debug("timer fired", zap.String("state", c.state.ID), zap.Bool("stale", c.Stale()))
		if err := s.invoke(h, c); err != nil {
			var event *primitives.Event
			if e, ok := c.Event(); ok {
				event = &e
			}
			s.notify(newHandlerError(PhaseTimer, c.state, event, 0, err))
		}
	})
}

type repeating struct {
	svc      *Service
	ctx      *Context
	h        Handler
	interval time.Duration

	mu      sync.Mutex
	stopped bool
	timer   clockwork.Timer
}

// arm schedules the next tick. Callers hold r.mu.
func (r *repeating) arm() {
	r.timer = r.svc.clock.AfterFunc(r.interval, func() {
		r.mu.Lock()
		if r.stopped {
			r.mu.Unlock()
			return
		}
		r.arm()
		r.mu.Unlock()
		r.svc.fire(r.ctx, r.h)
	})
}

func (r *repeating) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.timer != nil {
		r.timer.Stop()
	}
}
