// internal/trigger/periodic.go
package trigger

import (
	"context"
	"time"

	"github.com/colebrumley/interruptd/internal/signal"
)

// Periodic fires only inside a configured hour-of-day window. Urgency and
// importance are low fixed constants; time-boxing keeps the trigger quiet
// outside the intended window even though the loop runs continuously.
//
// Parameters: start_hour, end_hour (window is [start, end)), urgency,
// importance.
type Periodic struct {
	Now func() time.Time
}

// NewPeriodic creates a periodic evaluator
func NewPeriodic() *Periodic {
	return &Periodic{Now: time.Now}
}

func (e *Periodic) Kind() Kind {
	return KindPeriodic
}

func (e *Periodic) Evaluate(ctx context.Context, userID string, params Params, src signal.Sources) (*Signal, error) {
	start := params.Int("start_hour", 9)
	end := params.Int("end_hour", 10)
	hour := e.Now().Hour()

	inWindow := false
	if start <= end {
		inWindow = hour >= start && hour < end
	} else {
		// window wraps midnight, e.g. 22-6
		inWindow = hour >= start || hour < end
	}
	if !inWindow {
		return nil, nil
	}

	return &Signal{
		Urgency:    clamp01(params.Float("urgency", 0.3)),
		Importance: clamp01(params.Float("importance", 0.4)),
		Payload: map[string]any{
			"hour":       hour,
			"start_hour": start,
			"end_hour":   end,
		},
	}, nil
}
