// Package chartconfig describes charts declaratively, loads them from YAML,
// validates them, and compiles them into a core.Chart.
//
// A chart file names an initial state and a flat map of states. Each state
// lists actions to run on entry, on exit, and per event. An action either
// transitions (target), queues an event (send), or runs a handler registered
// in a Registry (run), optionally delayed (after) or repeated (every).
//
//	id: traffic-light
//	initial: red
//	states:
//	  red:
//	    entry:
//	      - send: tick
//	        after: 3s
//	    on:
//	      tick:
//	        - target: green
package chartconfig

import (
	"errors"
	"fmt"
	"slices"
)

// ChartConfig defines a complete chart. Entry, Exit and On hold chart-wide
// actions.
type ChartConfig struct {
	Version string                    `json:"version,omitempty" yaml:"version,omitempty"`
	ID      string                    `json:"id" yaml:"id"`
	Initial string                    `json:"initial" yaml:"initial"`
	Entry   []ActionConfig            `json:"entry,omitempty" yaml:"entry,omitempty"`
	Exit    []ActionConfig            `json:"exit,omitempty" yaml:"exit,omitempty"`
	On      map[string][]ActionConfig `json:"on,omitempty" yaml:"on,omitempty"`
	States  map[string]*StateConfig   `json:"states" yaml:"states"`
}

// Validate validates the chart:
// - Non-empty ID and Initial
// - Initial exists in States
// - Every state and action validates
// - Every transition target exists in States
// - No orphaned states (all reachable from Initial or a chart-wide action)
func (c *ChartConfig) Validate() error {
	if c.ID == "" {
		return errors.New("chart ID is required")
	}
	if c.Initial == "" {
		return errors.New("initial state ID is required")
	}
	if len(c.States) == 0 {
		return errors.New("states map is required and cannot be empty")
	}
	if _, ok := c.States[c.Initial]; !ok {
		return fmt.Errorf("initial state %q not found in states", c.Initial)
	}

	root := &StateConfig{ID: "(chart)", Entry: c.Entry, Exit: c.Exit, On: c.On}
	if err := root.validateActions(); err != nil {
		return err
	}
	for sid, state := range c.States {
		if state == nil {
			return fmt.Errorf("state %q is empty", sid)
		}
		if state.ID != "" && state.ID != sid {
			return fmt.Errorf("state %q declares mismatched id %q", sid, state.ID)
		}
		if err := state.Validate(); err != nil {
			return fmt.Errorf("state %q validation failed: %w", sid, err)
		}
	}

	for _, sid := range c.stateIDs() {
		for _, target := range c.States[sid].targets() {
			if _, ok := c.States[target]; !ok {
				return fmt.Errorf("invalid transition target %q in state %q", target, sid)
			}
		}
	}
	for _, target := range root.targets() {
		if _, ok := c.States[target]; !ok {
			return fmt.Errorf("invalid chart-wide transition target %q", target)
		}
	}

	visited := make(map[string]bool)
	c.markReachable(c.Initial, visited)
	for _, target := range root.targets() {
		c.markReachable(target, visited)
	}
	for _, sid := range c.stateIDs() {
		if !visited[sid] {
			return fmt.Errorf("orphaned state %q (not reachable from initial %q)", sid, c.Initial)
		}
	}
	return nil
}

// markReachable marks sid and every state its actions can transition to.
func (c *ChartConfig) markReachable(sid string, visited map[string]bool) {
	if visited[sid] {
		return
	}
	state, ok := c.States[sid]
	if !ok {
		return
	}
	visited[sid] = true
	for _, target := range state.targets() {
		c.markReachable(target, visited)
	}
}

// stateIDs returns the state ids in sorted order, so errors are deterministic.
func (c *ChartConfig) stateIDs() []string {
	ids := make([]string, 0, len(c.States))
	for id := range c.States {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// FinalStates returns the ids of the states flagged final, sorted.
func (c *ChartConfig) FinalStates() []string {
	var ids []string
	for _, id := range c.stateIDs() {
		if c.States[id].Final {
			ids = append(ids, id)
		}
	}
	return ids
}
