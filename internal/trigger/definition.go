// internal/trigger/definition.go
package trigger

import (
	"fmt"
	"time"
)

// Kind classifies how a trigger's condition is evaluated.
type Kind string

const (
	KindPeriodic  Kind = "periodic"
	KindEvent     Kind = "event"
	KindThreshold Kind = "threshold"
	KindPattern   Kind = "pattern"
	KindEmergency Kind = "emergency"
)

// ParseKind converts a config string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindPeriodic, KindEvent, KindThreshold, KindPattern, KindEmergency:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown trigger kind: %s", s)
	}
}

// Definition describes one registered trigger. Definitions are created at
// registration and mutated only through the catalog; they are never
// deleted at runtime, only disabled.
type Definition struct {
	ID          string
	Kind        Kind
	Priority    int // 1..10 base weight, used for score tie-breaks
	Cooldown    time.Duration
	Enabled     bool
	Description string
}

// Validate reports whether the definition is acceptable for registration.
func (d Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("trigger id is empty")
	}
	if _, err := ParseKind(string(d.Kind)); err != nil {
		return err
	}
	if d.Cooldown <= 0 {
		return fmt.Errorf("trigger %s: cooldown must be positive", d.ID)
	}
	if d.Priority < 1 || d.Priority > 10 {
		return fmt.Errorf("trigger %s: priority %d out of range 1-10", d.ID, d.Priority)
	}
	return nil
}

// Params is the schema-free parameter bag attached to a trigger. Values
// arrive from YAML or JSON, so numbers may be int, int64, or float64.
type Params map[string]any

// Float returns the named numeric parameter, or def if absent or not a
// number.
func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// Int returns the named integer parameter, or def.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// String returns the named string parameter, or def.
func (p Params) String(key string, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

// Clone returns a shallow copy of the bag.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge copies the partial bag's keys into p, overwriting existing keys
// and leaving all others untouched.
func (p Params) Merge(partial map[string]any) {
	for k, v := range partial {
		p[k] = v
	}
}
