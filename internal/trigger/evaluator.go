// internal/trigger/evaluator.go
package trigger

import (
	"context"
	"fmt"

	"github.com/colebrumley/interruptd/internal/signal"
)

// Signal is the result of a condition evaluation: how time-sensitive the
// situation is, how valuable showing it would be, and an opaque payload
// describing what was observed.
type Signal struct {
	Urgency    float64
	Importance float64
	Payload    map[string]any
}

// Evaluator is the interface all trigger kinds implement. Evaluate
// returns nil when the condition does not hold; an error is treated by
// the caller as "no signal this cycle".
type Evaluator interface {
	// Kind returns the trigger kind this evaluator implements
	Kind() Kind
	// Evaluate checks the condition against collaborator state
	Evaluate(ctx context.Context, userID string, params Params, src signal.Sources) (*Signal, error)
}

// New creates the evaluator for a trigger kind
func New(kind Kind) (Evaluator, error) {
	switch kind {
	case KindPeriodic:
		return NewPeriodic(), nil
	case KindEvent:
		return NewEvent(), nil
	case KindThreshold:
		return NewThreshold(), nil
	case KindPattern:
		return NewPattern(), nil
	case KindEmergency:
		return NewEmergency(), nil
	default:
		return nil, fmt.Errorf("unknown trigger kind: %s", kind)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
