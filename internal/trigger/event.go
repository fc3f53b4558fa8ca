// internal/trigger/event.go
package trigger

import (
	"context"
	"time"

	"github.com/colebrumley/interruptd/internal/signal"
)

// Event fires when a matching behavior event occurred recently. Urgency
// scales with elapsed time since the event, bounded to the configured
// window; events older than the window are stale and never fire.
//
// Parameters: event_type, window_minutes, min_urgency, max_urgency,
// importance.
type Event struct {
	Now func() time.Time
}

// NewEvent creates an event evaluator
func NewEvent() *Event {
	return &Event{Now: time.Now}
}

func (e *Event) Kind() Kind {
	return KindEvent
}

func (e *Event) Evaluate(ctx context.Context, userID string, params Params, src signal.Sources) (*Signal, error) {
	if src.Behavior == nil {
		return nil, nil
	}

	eventType := params.String("event_type", "context_switch")
	window := time.Duration(params.Float("window_minutes", 30)) * time.Minute

	events, err := src.Behavior.RecentEvents(ctx, userID, 50)
	if err != nil {
		return nil, err
	}

	// events are newest first; take the most recent match
	var match *signal.BehaviorEvent
	for i := range events {
		if events[i].Type == eventType {
			match = &events[i]
			break
		}
	}
	if match == nil {
		return nil, nil
	}

	elapsed := e.Now().Sub(match.Timestamp)
	if elapsed < 0 || elapsed > window {
		return nil, nil
	}

	minU := params.Float("min_urgency", 0.4)
	maxU := params.Float("max_urgency", 0.9)
	urgency := minU + (maxU-minU)*(elapsed.Seconds()/window.Seconds())

	return &Signal{
		Urgency:    clamp01(urgency),
		Importance: clamp01(params.Float("importance", 0.5)),
		Payload: map[string]any{
			"event_type":      eventType,
			"event_timestamp": match.Timestamp,
			"elapsed_seconds": int(elapsed.Seconds()),
			"metadata":        match.Metadata,
		},
	}, nil
}
