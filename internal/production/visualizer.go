package production

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/comalice/statesvc/internal/chartconfig"
)

// DefaultVisualizer renders chart configs.
type DefaultVisualizer struct{}

// Edge represents a transition edge.
type Edge struct {
	From    string
	To      string
	Label   string
	Guarded bool
}

// ExportDOT generates Graphviz DOT source for the chart, highlighting current.
func (v *DefaultVisualizer) ExportDOT(config *chartconfig.ChartConfig, current string) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", config.ID)
	buf.WriteString(`  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
  "__start" [shape=point];
`)
	fmt.Fprintf(&buf, "  \"__start\" -> %q;\n", config.Initial)

	for _, id := range sortedStates(config) {
		state := config.States[id]
		attrs := ""
		if state.Final {
			attrs += " shape=doublecircle"
		}
		if id == current {
			attrs += " style=filled fillcolor=lightgreen"
		}
		fmt.Fprintf(&buf, "  %q [label=%q%s];\n", id, id, attrs)
	}

	for _, edge := range CollectEdges(config) {
		style := ""
		if edge.Guarded {
			style = " style=dashed"
		}
		fmt.Fprintf(&buf, "  %q -> %q [label=%q%s];\n", edge.From, edge.To, edge.Label, style)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// ExportJSON serializes the chart config to JSON.
func (v *DefaultVisualizer) ExportJSON(config *chartconfig.ChartConfig) ([]byte, error) {
	return json.MarshalIndent(config, "", "  ")
}

// CollectEdges collects every transition in a stable order. Entry transitions
// are labeled "entry" plus their delay, if any. Chart-wide transitions start
// from "*".
func CollectEdges(config *chartconfig.ChartConfig) []Edge {
	var edges []Edge
	add := func(from, label string, actions []chartconfig.ActionConfig) {
		for _, a := range actions {
			if a.Target == "" {
				continue
			}
			l := label
			if a.After > 0 {
				l = fmt.Sprintf("%s after %s", label, a.After)
			}
			edges = append(edges, Edge{From: from, To: a.Target, Label: l, Guarded: a.When != ""})
		}
	}
	collect := func(from string, entry []chartconfig.ActionConfig, on map[string][]chartconfig.ActionConfig) {
		add(from, "entry", entry)
		events := make([]string, 0, len(on))
		for e := range on {
			events = append(events, e)
		}
		slices.Sort(events)
		for _, e := range events {
			add(from, e, on[e])
		}
	}

	for _, id := range sortedStates(config) {
		s := config.States[id]
		collect(id, s.Entry, s.On)
	}
	collect("*", config.Entry, config.On)
	return edges
}

func sortedStates(config *chartconfig.ChartConfig) []string {
	ids := make([]string, 0, len(config.States))
	for id := range config.States {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
