package core

// Handler is a user callback run as part of a batch. All handlers of one batch
// share the same Context.
type Handler func(c *Context) error

// StateDef describes the callbacks attached to one state.
type StateDef struct {
	Enter []Handler
	On    map[string][]Handler
	Exit  []Handler
	Final bool
}

func (d *StateDef) enter() []Handler {
	if d == nil {
		return nil
	}
	return d.Enter
}

func (d *StateDef) exit() []Handler {
	if d == nil {
		return nil
	}
	return d.Exit
}

func (d *StateDef) handlers(eventID string) []Handler {
	if d == nil || d.On == nil {
		return nil
	}
	return d.On[eventID]
}

func (d *StateDef) final() bool {
	return d != nil && d.Final
}

// Chart is the static definition a Service runs. Root holds chart-wide
// handlers that apply regardless of the current state.
//
// The runtime trusts the chart: ids passed to TransitionTo are not checked
// against States, and an unknown id simply has no handlers.
type Chart struct {
	Root   StateDef
	States map[string]*StateDef
}

// State returns the descriptor for id, or nil.
func (c *Chart) State(id string) *StateDef {
	if c == nil || c.States == nil {
		return nil
	}
	return c.States[id]
}

// eventBatch returns state-local handlers for eventID followed by chart-wide
// ones.
func (c *Chart) eventBatch(stateID, eventID string) []Handler {
	local := c.State(stateID).handlers(eventID)
	global := c.Root.handlers(eventID)
	if len(global) == 0 {
		return local
	}
	if len(local) == 0 {
		return global
	}
	batch := make([]Handler, 0, len(local)+len(global))
	batch = append(batch, local...)
	return append(batch, global...)
}
