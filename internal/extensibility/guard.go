package extensibility

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/comalice/statesvc/internal/core"
)

// Guard reports whether a guarded action may run.
type Guard func(c *core.Context) bool

// ParseGuard parses simple expressions like "temp > 30" or "loggedIn == true".
// The key is looked up in the event payload and then in the state payload,
// both of which must be map[string]any. A missing key fails the guard.
//
// Supported operators: == != > >= < <=. Values true, false and nil compare by
// identity; numbers compare numerically; anything else compares as a string.
func ParseGuard(expr string) (Guard, error) {
	parts := strings.Fields(expr)
	if len(parts) != 3 {
		return nil, fmt.Errorf("guard %q: want \"key op value\"", expr)
	}
	key, op, raw := parts[0], parts[1], parts[2]

	var cmp func(v any) bool
	switch op {
	case "==":
		cmp = func(v any) bool { return equal(v, raw) }
	case "!=":
		cmp = func(v any) bool { return !equal(v, raw) }
	case ">", ">=", "<", "<=":
		want, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("guard %q: %s needs a number", expr, op)
		}
		cmp = func(v any) bool {
			f, ok := toFloat(v)
			if !ok {
				return false
			}
			switch op {
			case ">":
				return f > want
			case ">=":
				return f >= want
			case "<":
				return f < want
			default:
				return f <= want
			}
		}
	default:
		return nil, fmt.Errorf("guard %q: unknown operator %q", expr, op)
	}

	return func(c *core.Context) bool {
		v, ok := lookup(c, key)
		if !ok {
			return false
		}
		return cmp(v)
	}, nil
}

func lookup(c *core.Context, key string) (any, bool) {
	if e, ok := c.Event(); ok {
		if m, ok := e.Data.(map[string]any); ok {
			if v, ok := m[key]; ok {
				return v, true
			}
		}
	}
	if m, ok := c.State().Data.(map[string]any); ok {
		v, ok := m[key]
		return v, ok
	}
	return nil, false
}

func equal(v any, raw string) bool {
	switch raw {
	case "true":
		return v == true
	case "false":
		return v == false
	case "nil":
		return v == nil
	}
	if want, err := strconv.ParseFloat(raw, 64); err == nil {
		if f, ok := toFloat(v); ok {
			return f == want
		}
	}
	if s, ok := v.(string); ok {
		return s == raw
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint:
		return float64(n), true
	default:
		return 0, false
	}
}
