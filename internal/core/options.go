// Options for configuring Service instances.
package core

import (
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// WithID sets the machine id used in snapshots and transition records.
// Defaults to a random UUID.
func WithID(id string) Option {
	return func(s *Service) {
		if id != "" {
			s.id = id
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock driving RunAfter and RunEvery timers.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithTracer wraps dispatches and transitions in spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithPersister saves a snapshot after every committed transition and on
// Dispose. May be given more than once.
func WithPersister(p Persister) Option {
	return func(s *Service) {
		if p != nil {
			s.persisters = append(s.persisters, p)
		}
	}
}

// WithPublisher publishes a record of every committed transition. May be given
// more than once.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publishers = append(s.publishers, p)
		}
	}
}

// WithErrorHandler is called for every handler failure, including those of
// timer-fired handlers, which have no caller to return an error to. It runs on
// the goroutine driving the service; calls it makes into the Service are
// queued.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Service) {
		s.onError = fn
	}
}

// WithSinkBuffer sets how many pending snapshots/records may queue for the
// persisters and publishers before a transition blocks.
func WithSinkBuffer(n int) Option {
	return func(s *Service) {
		s.sinkBuffer = max(n, 1)
	}
}

// WithChartVersion tags snapshots with a chart version string.
func WithChartVersion(v string) Option {
	return func(s *Service) {
		s.chartVersion = v
	}
}
