// internal/trigger/emergency.go
package trigger

import (
	"context"
	"time"

	"github.com/colebrumley/interruptd/internal/signal"
)

// Emergency has the same shape as Threshold but models conditions that
// must never be silently missed: the catalog pins its priority to the top
// of the range and a short fixed cooldown, and the default urgency floor
// is high.
//
// Parameters: same as Threshold, with base_urgency defaulting to 0.9 and
// importance to 1.0.
type Emergency struct {
	Now func() time.Time
}

// NewEmergency creates an emergency evaluator
func NewEmergency() *Emergency {
	return &Emergency{Now: time.Now}
}

func (e *Emergency) Kind() Kind {
	return KindEmergency
}

func (e *Emergency) Evaluate(ctx context.Context, userID string, params Params, src signal.Sources) (*Signal, error) {
	if src.Behavior == nil {
		return nil, nil
	}

	events, err := src.Behavior.RecentEvents(ctx, userID, 200)
	if err != nil {
		return nil, err
	}

	metric := params.String("metric", "")
	if metric == "" {
		return nil, nil
	}
	observed, ok := observeMetric(e.Now(), metric, events, params)
	if !ok {
		return nil, nil
	}

	threshold := params.Float("threshold", 0.9)
	if observed < threshold {
		return nil, nil
	}

	base := params.Float("base_urgency", 0.9)
	rate := params.Float("urgency_per_unit", 0.1)
	maxU := params.Float("max_urgency", 1.0)

	urgency := base + (observed-threshold)*rate
	if urgency > maxU {
		urgency = maxU
	}

	return &Signal{
		Urgency:    clamp01(urgency),
		Importance: clamp01(params.Float("importance", 1.0)),
		Payload: map[string]any{
			"metric":    metric,
			"observed":  observed,
			"threshold": threshold,
		},
	}, nil
}
