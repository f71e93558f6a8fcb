package chartconfig

import (
	"errors"
	"fmt"
	"time"

	"github.com/comalice/statesvc/internal/extensibility"
)

// ActionConfig is one step of a batch. Exactly one of Run, Send and Target is
// set. When guards the step with an expression such as "count < 3", evaluated
// against the event payload and then the state payload. After delays the step;
// Every repeats it until the state is left.
type ActionConfig struct {
	Run    string        `json:"run,omitempty" yaml:"run,omitempty"`
	Send   string        `json:"send,omitempty" yaml:"send,omitempty"`
	Target string        `json:"target,omitempty" yaml:"target,omitempty"`
	When   string        `json:"when,omitempty" yaml:"when,omitempty"`
	After  time.Duration `json:"after,omitempty" yaml:"after,omitempty"`
	Every  time.Duration `json:"every,omitempty" yaml:"every,omitempty"`
	Data   any           `json:"data,omitempty" yaml:"data,omitempty"`
}

// Validate checks the action fields and target id syntax.
func (a *ActionConfig) Validate() error {
	set := 0
	for _, v := range []string{a.Run, a.Send, a.Target} {
		if v != "" {
			set++
		}
	}
	switch {
	case set == 0:
		return errors.New("one of run, send or target is required")
	case set > 1:
		return errors.New("only one of run, send or target may be set")
	}
	if a.After < 0 || a.Every < 0 {
		return errors.New("after and every must be non-negative")
	}
	if a.After > 0 && a.Every > 0 {
		return errors.New("after and every are mutually exclusive")
	}
	if a.Target != "" {
		if err := validateID(a.Target); err != nil {
			return fmt.Errorf("invalid target: %w", err)
		}
	}
	if a.When != "" {
		if _, err := extensibility.ParseGuard(a.When); err != nil {
			return err
		}
	}
	return nil
}

// Kind returns "run", "send" or "target".
func (a *ActionConfig) Kind() string {
	switch {
	case a.Run != "":
		return "run"
	case a.Send != "":
		return "send"
	default:
		return "target"
	}
}

// validateID accepts non-empty ids made of letters, digits, '_' and '-'.
func validateID(id string) error {
	if id == "" {
		return errors.New("empty id")
	}
	for _, r := range id {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return fmt.Errorf("invalid id %q: invalid character '%c'", id, r)
		}
	}
	return nil
}
