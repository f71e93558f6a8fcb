package chartconfig

import (
	"fmt"

	"github.com/comalice/statesvc/internal/core"
	"github.com/comalice/statesvc/internal/extensibility"
	"github.com/comalice/statesvc/internal/primitives"
)

// CompileOption adjusts how actions become handlers.
type CompileOption func(*compiler)

// WithWrapper wraps every compiled "run" handler, e.g. with
// extensibility.LoggingHandler.
func WithWrapper(wrap func(name string, h core.Handler) core.Handler) CompileOption {
	return func(c *compiler) {
		c.wrap = wrap
	}
}

type compiler struct {
	reg  *Registry
	wrap func(name string, h core.Handler) core.Handler
}

// Compile validates cfg and turns it into a core.Chart. Names used by "run"
// actions must be present in reg.
func Compile(cfg *ChartConfig, reg *Registry, opts ...CompileOption) (*core.Chart, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chart %q: %w", cfg.ID, err)
	}
	c := &compiler{reg: reg}
	for _, opt := range opts {
		opt(c)
	}

	chart := &core.Chart{States: make(map[string]*core.StateDef, len(cfg.States))}
	root, err := c.state(&StateConfig{ID: "(chart)", Entry: cfg.Entry, Exit: cfg.Exit, On: cfg.On})
	if err != nil {
		return nil, err
	}
	chart.Root = *root
	for id, sc := range cfg.States {
		def, err := c.state(sc)
		if err != nil {
			return nil, err
		}
		chart.States[id] = def
	}
	return chart, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(cfg *ChartConfig, reg *Registry, opts ...CompileOption) *core.Chart {
	chart, err := Compile(cfg, reg, opts...)
	if err != nil {
		panic(err)
	}
	return chart
}

func (c *compiler) state(sc *StateConfig) (*core.StateDef, error) {
	def := &core.StateDef{Final: sc.Final}
	var err error
	if def.Enter, err = c.actions(sc.ID, "entry", sc.Entry); err != nil {
		return nil, err
	}
	if def.Exit, err = c.actions(sc.ID, "exit", sc.Exit); err != nil {
		return nil, err
	}
	if len(sc.On) > 0 {
		def.On = make(map[string][]core.Handler, len(sc.On))
		for event, actions := range sc.On {
			if def.On[event], err = c.actions(sc.ID, event, actions); err != nil {
				return nil, err
			}
		}
	}
	return def, nil
}

func (c *compiler) actions(stateID, occasion string, actions []ActionConfig) ([]core.Handler, error) {
	if len(actions) == 0 {
		return nil, nil
	}
	out := make([]core.Handler, 0, len(actions))
	for i, a := range actions {
		h, err := c.action(a)
		if err != nil {
			return nil, fmt.Errorf("state %q, %s action %d: %w", stateID, occasion, i, err)
		}
		out = append(out, h)
	}
	return out, nil
}

func (c *compiler) action(a ActionConfig) (core.Handler, error) {
	var h core.Handler
	switch a.Kind() {
	case "run":
		run, err := c.reg.Lookup(a.Run)
		if err != nil {
			return nil, err
		}
		if c.wrap != nil {
			run = c.wrap(a.Run, run)
		}
		h = run
	case "send":
		event := primitives.NewEvent(a.Send, a.Data)
		h = func(ctx *core.Context) error {
			ctx.Send(event)
			return nil
		}
	default:
		target := primitives.NewState(a.Target, a.Data)
		h = func(ctx *core.Context) error {
			ctx.TransitionTo(target)
			return nil
		}
	}

	if a.When != "" {
		guard, err := extensibility.ParseGuard(a.When)
		if err != nil {
			return nil, err
		}
		inner := h
		h = func(ctx *core.Context) error {
			if !guard(ctx) {
				return nil
			}
			return inner(ctx)
		}
	}

	switch {
	case a.After > 0:
		inner, delay := h, a.After
		return func(ctx *core.Context) error {
			ctx.RunAfter(delay, inner)
			return nil
		}, nil
	case a.Every > 0:
		inner, interval := h, a.Every
		return func(ctx *core.Context) error {
			ctx.RunEvery(interval, inner)
			return nil
		}, nil
	}
	return h, nil
}
