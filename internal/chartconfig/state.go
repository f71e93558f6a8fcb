package chartconfig

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// StateConfig defines one state. ID is filled from the States map key when
// the chart is loaded.
type StateConfig struct {
	ID    string                    `json:"id,omitempty" yaml:"id,omitempty"`
	Final bool                      `json:"final,omitempty" yaml:"final,omitempty"`
	Entry []ActionConfig            `json:"entry,omitempty" yaml:"entry,omitempty"`
	Exit  []ActionConfig            `json:"exit,omitempty" yaml:"exit,omitempty"`
	On    map[string][]ActionConfig `json:"on,omitempty" yaml:"on,omitempty"`
}

// NewStateConfig creates a new StateConfig with ID.
func NewStateConfig(id string) *StateConfig {
	return &StateConfig{ID: id}
}

// WithFinal marks the state final.
func (s *StateConfig) WithFinal() *StateConfig {
	s.Final = true
	return s
}

// AddEntry adds an entry action.
func (s *StateConfig) AddEntry(action ActionConfig) *StateConfig {
	s.Entry = append(s.Entry, action)
	return s
}

// AddExit adds an exit action.
func (s *StateConfig) AddExit(action ActionConfig) *StateConfig {
	s.Exit = append(s.Exit, action)
	return s
}

// AddAction adds an action for an event.
func (s *StateConfig) AddAction(event string, action ActionConfig) *StateConfig {
	if s.On == nil {
		s.On = make(map[string][]ActionConfig)
	}
	s.On[event] = append(s.On[event], action)
	return s
}

// Transition adds a transition to target on event.
// Usage: NewStateConfig("red").Transition("tick", "green").
func (s *StateConfig) Transition(event, target string) *StateConfig {
	return s.AddAction(event, ActionConfig{Target: target})
}

// Validate checks the state's actions.
func (s *StateConfig) Validate() error {
	if s.ID == "" {
		return errors.New("state ID is required")
	}
	if err := validateID(s.ID); err != nil {
		return err
	}
	return s.validateActions()
}

func (s *StateConfig) validateActions() error {
	for i, a := range s.Entry {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("entry action %d of %s: %w", i, s.ID, err)
		}
	}
	for i, a := range s.Exit {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("exit action %d of %s: %w", i, s.ID, err)
		}
		if a.Kind() != "run" || a.After > 0 || a.Every > 0 {
			return fmt.Errorf("exit action %d of %s: exit actions may only run handlers", i, s.ID)
		}
	}
	for event, actions := range s.On {
		if strings.TrimSpace(event) == "" {
			return fmt.Errorf("empty event name in On map for state %s", s.ID)
		}
		for i, a := range actions {
			if err := a.Validate(); err != nil {
				return fmt.Errorf("action %d for event %q of %s: %w", i, event, s.ID, err)
			}
		}
	}
	return nil
}

// targets returns every transition target named by the state's actions.
func (s *StateConfig) targets() []string {
	var out []string
	add := func(actions []ActionConfig) {
		for _, a := range actions {
			if a.Target != "" && !slices.Contains(out, a.Target) {
				out = append(out, a.Target)
			}
		}
	}
	add(s.Entry)
	events := make([]string, 0, len(s.On))
	for e := range s.On {
		events = append(events, e)
	}
	slices.Sort(events)
	for _, e := range events {
		add(s.On[e])
	}
	return out
}
