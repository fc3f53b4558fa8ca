// internal/trigger/pattern.go
package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/colebrumley/interruptd/internal/signal"
)

// Pattern fires when the same event repeats enough times inside a
// lookback window, e.g. the user running the identical search again and
// again. Urgency and importance are fixed mid-range constants.
//
// Parameters: event_type, match_key (metadata key whose value must
// repeat; empty matches on type alone), lookback_minutes,
// min_occurrences, urgency, importance.
type Pattern struct {
	Now func() time.Time
}

// NewPattern creates a pattern evaluator
func NewPattern() *Pattern {
	return &Pattern{Now: time.Now}
}

func (e *Pattern) Kind() Kind {
	return KindPattern
}

func (e *Pattern) Evaluate(ctx context.Context, userID string, params Params, src signal.Sources) (*Signal, error) {
	if src.Behavior == nil {
		return nil, nil
	}

	eventType := params.String("event_type", "search")
	matchKey := params.String("match_key", "")
	lookback := time.Duration(params.Float("lookback_minutes", 30)) * time.Minute
	minOccurrences := params.Int("min_occurrences", 3)

	events, err := src.Behavior.RecentEvents(ctx, userID, 200)
	if err != nil {
		return nil, err
	}

	cutoff := e.Now().Add(-lookback)
	counts := make(map[string]int)
	for _, ev := range events {
		if ev.Timestamp.Before(cutoff) {
			break
		}
		if ev.Type != eventType {
			continue
		}
		key := ""
		if matchKey != "" {
			v, ok := ev.Metadata[matchKey]
			if !ok {
				continue
			}
			key = fmt.Sprintf("%v", v)
		}
		counts[key]++
	}

	var bestKey string
	best := 0
	for k, n := range counts {
		if n > best || (n == best && k < bestKey) {
			bestKey, best = k, n
		}
	}
	if best < minOccurrences {
		return nil, nil
	}

	payload := map[string]any{
		"event_type":  eventType,
		"occurrences": best,
	}
	if matchKey != "" {
		payload[matchKey] = bestKey
	}

	return &Signal{
		Urgency:    clamp01(params.Float("urgency", 0.5)),
		Importance: clamp01(params.Float("importance", 0.6)),
		Payload:    payload,
	}, nil
}
