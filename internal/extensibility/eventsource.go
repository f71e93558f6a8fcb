package extensibility

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/comalice/statesvc/internal/primitives"
)

// EventSource produces events from outside the service.
type EventSource interface {
	Events() <-chan primitives.Event
}

// Sender accepts external events. *core.Service implements it.
type Sender interface {
	Send(e primitives.Event) error
}

// ChannelEventSource is an EventSource implementation backed by a Go channel.
// Provides a simple way to feed external events into a Service via Pump.
type ChannelEventSource struct {
	ch chan primitives.Event
}

// Events returns the receive-only channel for events.
func (s *ChannelEventSource) Events() <-chan primitives.Event {
	return s.ch
}

// NewChannelEventSource creates a new ChannelEventSource with the given channel.
// The channel should be buffered if backpressure handling is needed.
func NewChannelEventSource(ch chan primitives.Event) *ChannelEventSource {
	return &ChannelEventSource{ch: ch}
}

// TimerEventSource generates periodic events from a clock ticker.
// Useful for heartbeat-driven charts.
type TimerEventSource struct {
	ch      chan primitives.Event
	eventID string
	data    any
	ticker  clockwork.Ticker
	stop    chan struct{}
}

// NewTimerEventSource creates a TimerEventSource that emits events every d
// duration of clock time. A nil clock means the real clock.
func NewTimerEventSource(clock clockwork.Clock, eventID string, data any, d time.Duration) *TimerEventSource {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	t := &TimerEventSource{
		ch:      make(chan primitives.Event, 10),
		eventID: eventID,
		data:    data,
		ticker:  clock.NewTicker(d),
		stop:    make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *TimerEventSource) run() {
	for {
		select {
		case <-t.ticker.Chan():
			select {
			case t.ch <- primitives.NewEvent(t.eventID, t.data):
			default:
				// drop if full
			}
		case <-t.stop:
			t.ticker.Stop()
			close(t.ch)
			return
		}
	}
}

// Events returns the event channel.
func (t *TimerEventSource) Events() <-chan primitives.Event {
	return t.ch
}

// Stop stops the ticker and closes the channel.
func (t *TimerEventSource) Stop() {
	close(t.stop)
}

// Pump forwards events from src to dst until ctx is done or the source
// channel is closed. Handler failures are logged and do not stop the pump.
func Pump(ctx context.Context, src EventSource, dst Sender, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	events := src.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if err := dst.Send(e); err != nil {
				logger.Warn("event handling failed", zap.String("event", e.ID), zap.Error(err))
			}
		}
	}
}
