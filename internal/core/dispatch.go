package core

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/comalice/statesvc/internal/primitives"
)

// sendExternal queues an event from an outside caller and, unless another call
// is already driving the service, processes it.
func (s *Service) sendExternal(e primitives.Event) error {
	s.mu.Lock()
	if !s.started() {
		s.mu.Unlock()
		return nil
	}
	s.queues.PushExternal(e.Freeze())
	if s.busy {
		internal, external := s.queues.Len()
		s.mu.Unlock()
		s.logger.Debug("event queued while busy", zap.String("event", e.ID), zap.Int("internal", internal), zap.Int("external", external))
		return nil
	}
	s.busy = true
	s.mu.Unlock()

	return s.drain()
}

// sendInternal queues an event sent by a handler. Handlers only run while a
// call is driving the service, and that call dispatches the event once the
// current batch is done.
func (s *Service) sendInternal(e primitives.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started() {
		s.queues.PushInternal(e.Freeze())
	}
}

// exec runs op and then drains queued work, unless another call is already
// driving the service. In that case op is queued for that call and exec
// returns at once.
func (s *Service) exec(op func()) error {
	s.mu.Lock()
	if s.busy {
		s.pending = append(s.pending, op)
		s.mu.Unlock()
		return nil
	}
	s.busy = true
	s.mu.Unlock()

	op()
	return s.drain()
}

// drain processes queued work one unit at a time until none is left, then
// gives up the driver role. It returns the failures of every handler run
// while driving.
func (s *Service) drain() error {
	for {
		s.mu.Lock()
		next := s.nextLocked()
		if next == nil {
			s.busy = false
			err := s.takeFailures()
			s.mu.Unlock()
			return err
		}
		s.mu.Unlock()
		next()
	}
}

// nextLocked picks the next unit of work. Internal events come first and are
// re-checked after every unit; then deferred calls such as timer firings or a
// Stop made from a handler; then one external event. Events stay queued while
// the service is not started. Callers hold s.mu.
func (s *Service) nextLocked() func() {
	if s.started() {
		if e, ok := s.queues.PopInternal(); ok {
			return func() { s.dispatch(e) }
		}
	}
	if len(s.pending) > 0 {
		op := s.pending[0]
		s.pending[0] = nil
		s.pending = s.pending[1:]
		return op
	}
	if s.started() {
		if e, ok := s.queues.PopExternal(); ok {
			return func() { s.dispatch(e) }
		}
	}
	return nil
}

// dispatch runs the event batch of the current state for e.
func (s *Service) dispatch(e primitives.Event) {
	batch := s.chart.eventBatch(s.current.ID, e.ID)
	if len(batch) == 0 {
		s.logger.Debug("no handlers for event", zap.String("event", e.ID), zap.String("state", s.current.ID))
		return
	}

	ctx, span := s.tracer.Start(s.traceCtx, "statesvc.dispatch")
	span.SetAttributes(
		attribute.String("statesvc.machine", s.id),
		attribute.String("statesvc.state", s.current.ID),
		attribute.String("statesvc.event", e.ID),
	)
	prev := s.traceCtx
	s.traceCtx = ctx
	defer func() {
		s.traceCtx = prev
		span.End()
	}()

	s.logger.Debug("processing event", zap.String("event", e.ID), zap.String("state", s.current.ID))
	if failed := s.runBatch(PhaseEvent, batch, s.current, &e, false); failed {
		span.SetStatus(codes.Error, "handler failed")
	}
}

// runBatch runs handlers in order against one shared context. The batch is cut
// short as soon as a handler commits a transition, or when a handler fails.
// It reports whether a handler failed.
func (s *Service) runBatch(phase Phase, handlers []Handler, state primitives.State, event *primitives.Event, readOnly bool) bool {
	if len(handlers) == 0 {
		return false
	}

	c := s.newContext(phase, state, event, readOnly)
	for i, h := range handlers {
		if s.seq.Load() != c.seq {
			// An earlier handler of this batch already transitioned.
			return false
		}
		if h == nil {
			continue
		}
		if err := s.invoke(h, c); err != nil {
			s.report(newHandlerError(phase, state, event, i, err))
			return true
		}
	}
	return false
}

// invoke calls h, turning a panic into an error.
func (s *Service) invoke(h Handler, c *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h(c)
}

func newHandlerError(phase Phase, state primitives.State, event *primitives.Event, index int, err error) *HandlerError {
	he := &HandlerError{Phase: phase, StateID: state.ID, Index: index, Err: err}
	if event != nil {
		he.EventID = event.ID
	}
	return he
}
