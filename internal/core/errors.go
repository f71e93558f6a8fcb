package core

import (
	"errors"
	"fmt"
)

var (
	// ErrHandlerPanic wraps a value recovered from a panicking handler.
	ErrHandlerPanic = errors.New("statesvc: handler panicked")
	// ErrNotInitial is returned by Restore once the service has started.
	ErrNotInitial = errors.New("statesvc: service is not in its initial run state")
	// ErrMachineMismatch is returned by Restore for a snapshot of another service.
	ErrMachineMismatch = errors.New("statesvc: snapshot belongs to another machine")
)

// Phase names the occasion a batch runs for.
type Phase string

const (
	PhaseEnter Phase = "enter"
	PhaseEvent Phase = "event"
	PhaseExit  Phase = "exit"
	PhaseTimer Phase = "timer"
)

// HandlerError reports a failed handler. The rest of its batch was skipped.
type HandlerError struct {
	Phase   Phase
	StateID string
	EventID string
	Index   int
	Err     error
}

func (e *HandlerError) Error() string {
	if e.EventID != "" {
		return fmt.Sprintf("statesvc: %s handler %d in state %q for event %q: %v", e.Phase, e.Index, e.StateID, e.EventID, e.Err)
	}
	return fmt.Sprintf("statesvc: %s handler %d in state %q: %v", e.Phase, e.Index, e.StateID, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// IsHandlerError reports whether err contains a *HandlerError.
func IsHandlerError(err error) bool {
	var he *HandlerError
	return errors.As(err, &he)
}
