package core

import (
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/comalice/statesvc/internal/primitives"
)

// transitionTo commits a transition to target. cause is the event being
// handled when the transition was requested, if any.
//
// A transition to a different id releases the current disposal scope and runs
// the exit batch before the swap, and the enter batch after it. A transition
// to the same id skips all three. Either way the sequence is bumped, which
// cuts short any batch still running against the old sequence.
func (s *Service) transitionTo(target primitives.State, cause *primitives.Event) {
	if !s.started() {
		return
	}

	from := s.current
	changed := !from.Same(target)

	ctx, span := s.tracer.Start(s.traceCtx, "statesvc.transition")
	span.SetAttributes(
		attribute.String("statesvc.machine", s.id),
		attribute.String("statesvc.from", from.ID),
		attribute.String("statesvc.to", target.ID),
		attribute.Bool("statesvc.changed", changed),
	)
	prev := s.traceCtx
	s.traceCtx = ctx
	defer func() {
		s.traceCtx = prev
		span.End()
	}()

	if changed {
		s.logger.Debug("exiting state", zap.String("state", from.ID), zap.Int("resources", s.scope.Len()))
		s.scope.Clear()
		s.runBatch(PhaseExit, s.chart.State(from.ID).exit(), from, cause, true)
	} else {
		s.logger.Debug("self transition", zap.String("state", from.ID))
	}

	s.current = target.Freeze()
	s.publish()
	seq := s.seq.Add(1)
	span.SetAttributes(attribute.Int64("statesvc.sequence", int64(seq)))

	s.changes.Fire(s.current)

	def := s.chart.State(target.ID)
	if def == nil {
		s.logger.Warn("transition to state without descriptor", zap.String("state", target.ID))
	}
	if def.final() {
		s.setRunState(primitives.Finished)
		s.logger.Debug("final state reached", zap.String("state", target.ID))
	}
	s.emitTransition(from, cause, changed, def.final(), seq)

	if changed {
		s.logger.Debug("entering state", zap.String("state", target.ID))
		s.runBatch(PhaseEnter, def.enter(), s.current, cause, false)
	}
}
