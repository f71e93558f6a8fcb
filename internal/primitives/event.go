// Event and State provide the immutable value primitives of the runtime.
//
// Both are small tagged values: an ID discriminant plus an optional payload.
// Equality for transition purposes is by ID only; the payload is carried
// opaquely.
//
// # Immutability
//
// Fields are exported for convenience in read-only contexts, but the runtime
// never hands out a value it still owns. Freeze returns a copy whose payload is
// deep-copied when it implements Cloner or is one of the generic JSON-like
// shapes (map[string]any, []any and their string variants), so a caller that
// keeps the value it passed in cannot mutate committed history.
//
// Example:
//
//	evt := NewEvent("tick", nil)
//	st := NewState("pending", task)
package primitives

import (
	"maps"
	"slices"
)

// Cloner is implemented by payloads that can produce an independent deep copy
// of themselves.
type Cloner interface {
	Clone() any
}

type Event struct {
	ID   string `json:"id" yaml:"id"`
	Data any    `json:"data,omitempty" yaml:"data,omitempty"`
}

// NewEvent creates and returns a new Event.
func NewEvent(id string, data any) Event {
	return Event{
		ID:   id,
		Data: data,
	}
}

// Freeze returns a copy of e safe to retain after the caller mutates its payload.
func (e Event) Freeze() Event {
	return Event{ID: e.ID, Data: freezeData(e.Data)}
}

type State struct {
	ID   string `json:"id" yaml:"id"`
	Data any    `json:"data,omitempty" yaml:"data,omitempty"`
}

// NewState creates and returns a new State.
func NewState(id string, data any) State {
	return State{
		ID:   id,
		Data: data,
	}
}

// Freeze returns a copy of s safe to install as the current state.
func (s State) Freeze() State {
	return State{ID: s.ID, Data: freezeData(s.Data)}
}

// Same reports whether s and other name the same state. Payloads are ignored.
func (s State) Same(other State) bool {
	return s.ID == other.ID
}

func freezeData(data any) any {
	switch v := data.(type) {
	case Cloner:
		return v.Clone()
	case map[string]any:
		if v == nil {
			return v
		}
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = freezeData(e)
		}
		return out
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = freezeData(e)
		}
		return out
	case map[string]string:
		return maps.Clone(v)
	case []string:
		return slices.Clone(v)
	case []byte:
		return slices.Clone(v)
	default:
		return data
	}
}

// DataAs returns the payload as T. The second result is false when the payload
// is absent or of another type.
func DataAs[T any](data any) (T, bool) {
	v, ok := data.(T)
	return v, ok
}
