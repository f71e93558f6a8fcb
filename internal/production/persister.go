// Package production provides production integrations for a Service:
// snapshot persistence, transition publishing, and chart visualization.
package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/comalice/statesvc/internal/core"
)

var (
	// ErrSnapshotNotFound is returned by Load when nothing was saved for a machine.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrInvalidSnapshot is returned by Load for a snapshot without a state.
	ErrInvalidSnapshot = errors.New("snapshot has no state")
)

// JSONPersister is a file-based persister using JSON serialization, one file
// per machine.
type JSONPersister struct {
	dir string
}

// NewJSONPersister creates a JSONPersister, ensuring the directory exists.
func NewJSONPersister(dir string) (*JSONPersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &JSONPersister{dir: dir}, nil
}

func (p *JSONPersister) Save(ctx context.Context, snapshot core.Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	return writeFile(filepath.Join(p.dir, snapshot.MachineID+".json"), data)
}

func (p *JSONPersister) Load(ctx context.Context, machineID string) (core.Snapshot, error) {
	data, err := readFile(filepath.Join(p.dir, machineID+".json"), machineID)
	if err != nil {
		return core.Snapshot{}, err
	}

	var snapshot core.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return core.Snapshot{}, fmt.Errorf("json unmarshal: %w", err)
	}
	return checkSnapshot(snapshot, machineID)
}

// YAMLPersister is a file-based persister using YAML serialization.
type YAMLPersister struct {
	dir string
}

// NewYAMLPersister creates a YAMLPersister, ensuring the directory exists.
func NewYAMLPersister(dir string) (*YAMLPersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &YAMLPersister{dir: dir}, nil
}

func (p *YAMLPersister) Save(ctx context.Context, snapshot core.Snapshot) error {
	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}
	return writeFile(filepath.Join(p.dir, snapshot.MachineID+".yaml"), data)
}

func (p *YAMLPersister) Load(ctx context.Context, machineID string) (core.Snapshot, error) {
	data, err := readFile(filepath.Join(p.dir, machineID+".yaml"), machineID)
	if err != nil {
		return core.Snapshot{}, err
	}

	var snapshot core.Snapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return core.Snapshot{}, fmt.Errorf("yaml unmarshal: %w", err)
	}
	return checkSnapshot(snapshot, machineID)
}

// writeFile replaces fn atomically so a crash never leaves half a snapshot.
func writeFile(fn string, data []byte) error {
	tmp := fn + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, fn); err != nil {
		return fmt.Errorf("rename %s: %w", fn, err)
	}
	return nil
}

func readFile(fn, machineID string) ([]byte, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("machine %q: %w: %w", machineID, ErrSnapshotNotFound, os.ErrNotExist)
		}
		return nil, fmt.Errorf("read %s: %w", fn, err)
	}
	return data, nil
}

func checkSnapshot(snapshot core.Snapshot, machineID string) (core.Snapshot, error) {
	snapshot.MachineID = machineID // Ensure ID
	if snapshot.State.ID == "" {
		return core.Snapshot{}, fmt.Errorf("machine %q: %w", machineID, ErrInvalidSnapshot)
	}
	return snapshot, nil
}
