package chartconfig

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load decodes a chart from YAML. Unknown fields are rejected. State ids are
// taken from the States map keys. The chart is not validated.
func Load(r io.Reader) (*ChartConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg ChartConfig
	if err := dec.Decode(&cfg); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("decode chart: empty document")
		}
		return nil, fmt.Errorf("decode chart: %w", err)
	}
	for id, sc := range cfg.States {
		if sc == nil {
			sc = &StateConfig{}
			cfg.States[id] = sc
		}
		if sc.ID == "" {
			sc.ID = id
		}
	}
	return &cfg, nil
}

// LoadFile reads and decodes the chart at path.
func LoadFile(path string) (*ChartConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chart file: %w", err)
	}
	cfg, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Marshal encodes cfg as YAML.
func Marshal(cfg *ChartConfig) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}
