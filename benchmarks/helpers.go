// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/comalice/statesvc/internal/chartconfig"
	"github.com/comalice/statesvc/internal/core"
	"github.com/comalice/statesvc/internal/primitives"
)

// GenFlatConfig creates a flat chart with n states cycling via "tick" events.
func GenFlatConfig(n int) *chartconfig.ChartConfig {
	if n < 1 {
		n = 1
	}
	config := &chartconfig.ChartConfig{
		ID:      fmt.Sprintf("flat_%d", n),
		Initial: "s0",
		States:  make(map[string]*chartconfig.StateConfig, n),
	}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("s%d", i)
		target := fmt.Sprintf("s%d", (i+1)%n)
		config.States[id] = chartconfig.NewStateConfig(id).Transition("tick", target)
	}
	return config
}

// GenFlatChart compiles GenFlatConfig(n).
func GenFlatChart(n int) *core.Chart {
	return chartconfig.MustCompile(GenFlatConfig(n), chartconfig.NewRegistry())
}

// GenWideChart creates one main state whose "tick" batch holds numHandlers
// handlers; only the last one transitions. Every target transitions back.
func GenWideChart(numHandlers int) *core.Chart {
	if numHandlers < 1 {
		numHandlers = 1
	}
	chart := &core.Chart{States: make(map[string]*core.StateDef, 2)}
	main := &core.StateDef{On: map[string][]core.Handler{}}
	for i := 0; i < numHandlers-1; i++ {
		main.On["tick"] = append(main.On["tick"], func(*core.Context) error { return nil })
	}
	main.On["tick"] = append(main.On["tick"], goTo("target"))
	chart.States["main"] = main
	chart.States["target"] = &core.StateDef{On: map[string][]core.Handler{"tick": {goTo("main")}}}
	return chart
}

func goTo(id string) core.Handler {
	return func(c *core.Context) error {
		c.TransitionToID(id)
		return nil
	}
}

// GenSnapshotYAML generates YAML bytes for a snapshot of a service whose
// state carries numKeys data entries.
func GenSnapshotYAML(numKeys int) []byte {
	data := make(map[string]any, numKeys)
	for i := 0; i < numKeys; i++ {
		data[fmt.Sprintf("key%d", i)] = i
	}
	svc := core.New(GenFlatChart(2), primitives.NewState("s0", data), core.WithID("snapshot"))
	if err := svc.Start(); err != nil {
		panic(err)
	}
	defer svc.Dispose(false)
	// Send one event to mutate state
	if err := svc.SendID("tick"); err != nil {
		panic(err)
	}
	snap := svc.Snapshot()
	snap.State.Data = data
	snap.Timestamp = time.Now()
	out, err := yaml.Marshal(snap)
	if err != nil {
		panic(err)
	}
	return out
}
