package statesvc

import (
	"context"
)

// Task states and events.
const (
	TaskInitial  = "initial"
	TaskPending  = "pending"
	TaskResolved = "resolved"
	TaskRejected = "rejected"

	TaskResolve = "resolve"
	TaskReject  = "reject"
)

// FromTask returns a Service that runs task once started. It moves from
// "initial" to "pending" right away, then to the final state "resolved" with
// the task's value or "rejected" with its error. Stopping or disposing the
// service cancels the task's context; its outcome is then dropped.
func FromTask[T any](task func(ctx context.Context) (T, error), opts ...Option) *Service {
	chart := Define(func(b *ChartBuilder) {
		b.State(TaskInitial, func(s *StateBuilder) {
			s.OnEnter(Goto(TaskPending))
		})
		b.State(TaskPending, func(s *StateBuilder) {
			s.OnEnter(func(c *Context) error {
				c.Go(func(ctx context.Context) Handler {
					value, err := task(ctx)
					return func(c *Context) error {
						if err != nil {
							c.Send(NewEvent(TaskReject, err))
						} else {
							c.Send(NewEvent(TaskResolve, value))
						}
						return nil
					}
				})
				return nil
			})
			s.OnEvent(TaskResolve, settle(TaskResolved))
			s.OnEvent(TaskReject, settle(TaskRejected))
		})
		b.FinalState(TaskResolved)
		b.FinalState(TaskRejected)
	})
	return New(chart, NewState(TaskInitial, nil), opts...)
}

func settle(target string) Handler {
	return func(c *Context) error {
		e, _ := c.Event()
		c.TransitionTo(NewState(target, e.Data))
		return nil
	}
}
