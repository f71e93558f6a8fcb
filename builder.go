package statesvc

// ChartBuilder provides a fluent API for constructing a Chart. Handlers added
// directly on the ChartBuilder are chart-wide: they run for every state.
type ChartBuilder struct {
	chart *Chart
}

// StateBuilder configures the handlers of one state.
type StateBuilder struct {
	def *StateDef
}

// Define builds a Chart with fn.
func Define(fn func(b *ChartBuilder)) *Chart {
	b := &ChartBuilder{chart: &Chart{States: make(map[string]*StateDef)}}
	if fn != nil {
		fn(b)
	}
	return b.chart
}

// State defines the state id, replacing any earlier definition, and
// configures it with fn.
func (b *ChartBuilder) State(id string, fn ...func(s *StateBuilder)) *ChartBuilder {
	return b.define(id, false, fn)
}

// FinalState defines the final state id. Entering it finishes the service.
func (b *ChartBuilder) FinalState(id string, fn ...func(s *StateBuilder)) *ChartBuilder {
	return b.define(id, true, fn)
}

func (b *ChartBuilder) define(id string, final bool, fns []func(*StateBuilder)) *ChartBuilder {
	def := &StateDef{Final: final}
	sb := &StateBuilder{def: def}
	for _, fn := range fns {
		fn(sb)
	}
	b.chart.States[id] = def
	return b
}

// OnEnter adds a handler run when the service starts.
func (b *ChartBuilder) OnEnter(h Handler) *ChartBuilder {
	(&StateBuilder{def: &b.chart.Root}).OnEnter(h)
	return b
}

// OnEvent adds a handler for eventID that runs after the current state's own
// handlers for it.
func (b *ChartBuilder) OnEvent(eventID string, h Handler) *ChartBuilder {
	(&StateBuilder{def: &b.chart.Root}).OnEvent(eventID, h)
	return b
}

// OnExit adds a handler run when the service stops.
func (b *ChartBuilder) OnExit(h Handler) *ChartBuilder {
	(&StateBuilder{def: &b.chart.Root}).OnExit(h)
	return b
}

// OnEnter adds a handler run each time the state is entered.
func (s *StateBuilder) OnEnter(h Handler) *StateBuilder {
	s.def.Enter = append(s.def.Enter, h)
	return s
}

// OnEvent adds a handler for eventID.
func (s *StateBuilder) OnEvent(eventID string, h Handler) *StateBuilder {
	if s.def.On == nil {
		s.def.On = make(map[string][]Handler)
	}
	s.def.On[eventID] = append(s.def.On[eventID], h)
	return s
}

// OnExit adds a handler run each time the state is left.
func (s *StateBuilder) OnExit(h Handler) *StateBuilder {
	s.def.Exit = append(s.def.Exit, h)
	return s
}
