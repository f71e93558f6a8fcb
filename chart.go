package statesvc

import (
	"fmt"
	"io"
	"os"

	"github.com/comalice/statesvc/internal/chartconfig"
)

type (
	// Registry holds the named handlers YAML charts refer to with "run".
	Registry = chartconfig.Registry
	// ChartConfig is the declarative form of a chart.
	ChartConfig = chartconfig.ChartConfig
)

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return chartconfig.NewRegistry()
}

// LoadChart reads a YAML chart from r and compiles it against reg. It returns
// the chart, its initial state, and the options that carry the chart's id and
// version to a Service.
func LoadChart(r io.Reader, reg *Registry) (*Chart, State, []Option, error) {
	cfg, err := chartconfig.Load(r)
	if err != nil {
		return nil, State{}, nil, err
	}
	return compileConfig(cfg, reg)
}

// LoadChartFile is LoadChart for a file.
func LoadChartFile(path string, reg *Registry) (*Chart, State, []Option, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, State{}, nil, fmt.Errorf("open chart: %w", err)
	}
	defer f.Close()
	return LoadChart(f, reg)
}

func compileConfig(cfg *ChartConfig, reg *Registry) (*Chart, State, []Option, error) {
	chart, err := chartconfig.Compile(cfg, reg)
	if err != nil {
		return nil, State{}, nil, err
	}
	opts := []Option{WithID(cfg.ID), WithChartVersion(chartconfig.ComputeVersion(cfg))}
	return chart, NewState(cfg.Initial, nil), opts, nil
}
