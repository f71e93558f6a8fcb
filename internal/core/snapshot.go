package core

import (
	"context"
	"time"

	"github.com/comalice/statesvc/internal/primitives"
)

// Persister stores the latest snapshot of a service.
type Persister interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Load(ctx context.Context, machineID string) (Snapshot, error)
}

// Publisher receives a record of every committed transition, in commit order.
type Publisher interface {
	Publish(ctx context.Context, record TransitionRecord) error
}

// Snapshot is the serializable runtime state of a service.
type Snapshot struct {
	MachineID    string           `json:"machineID" yaml:"machineID"`
	ChartVersion string           `json:"chartVersion,omitempty" yaml:"chartVersion,omitempty"`
	State        primitives.State `json:"state" yaml:"state"`
	Sequence     uint64           `json:"sequence" yaml:"sequence"`
	RunState     string           `json:"runState" yaml:"runState"`
	Timestamp    time.Time        `json:"timestamp" yaml:"timestamp"`
}

// TransitionRecord describes one committed transition. Changed is false for
// self-transitions.
type TransitionRecord struct {
	MachineID string    `json:"machineID" yaml:"machineID"`
	Sequence  uint64    `json:"sequence" yaml:"sequence"`
	From      string    `json:"from" yaml:"from"`
	To        string    `json:"to" yaml:"to"`
	Event     string    `json:"event,omitempty" yaml:"event,omitempty"`
	Changed   bool      `json:"changed" yaml:"changed"`
	Final     bool      `json:"final,omitempty" yaml:"final,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}
