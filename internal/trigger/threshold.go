// internal/trigger/threshold.go
package trigger

import (
	"context"
	"time"

	"github.com/colebrumley/interruptd/internal/signal"
)

// Threshold fires once an observed metric reaches a configured threshold.
// Urgency grows linearly with the overshoot: base + (observed −
// threshold) × per-unit rate, clamped to a configured maximum.
//
// Most metrics are derived from recent behavior events; the
// "pending_suggestions" metric instead counts what the suggestion
// provider has queued.
//
// Parameters: metric, threshold, base_urgency, urgency_per_unit,
// max_urgency, importance, plus metric-specific knobs (gap_minutes,
// count_event_type, lookback_minutes).
type Threshold struct {
	Now func() time.Time
}

// NewThreshold creates a threshold evaluator
func NewThreshold() *Threshold {
	return &Threshold{Now: time.Now}
}

func (e *Threshold) Kind() Kind {
	return KindThreshold
}

func (e *Threshold) Evaluate(ctx context.Context, userID string, params Params, src signal.Sources) (*Signal, error) {
	metric := params.String("metric", "work_duration_hours")

	var observed float64
	var ok bool
	var pending []string

	if metric == "pending_suggestions" {
		if src.Suggestions == nil {
			return nil, nil
		}
		var err error
		pending, err = src.Suggestions.PendingSuggestions(ctx, userID)
		if err != nil {
			return nil, err
		}
		observed, ok = float64(len(pending)), len(pending) > 0
	} else {
		if src.Behavior == nil {
			return nil, nil
		}
		events, err := src.Behavior.RecentEvents(ctx, userID, 200)
		if err != nil {
			return nil, err
		}
		observed, ok = observeMetric(e.Now(), metric, events, params)
	}
	if !ok {
		return nil, nil
	}

	threshold := params.Float("threshold", 2)
	if observed < threshold {
		return nil, nil
	}

	base := params.Float("base_urgency", 0.5)
	rate := params.Float("urgency_per_unit", 0.1)
	maxU := params.Float("max_urgency", 1.0)

	urgency := base + (observed-threshold)*rate
	if urgency > maxU {
		urgency = maxU
	}

	payload := map[string]any{
		"metric":    metric,
		"observed":  observed,
		"threshold": threshold,
	}
	if pending != nil {
		payload["suggestions"] = pending
	}

	return &Signal{
		Urgency:    clamp01(urgency),
		Importance: clamp01(params.Float("importance", 0.6)),
		Payload:    payload,
	}, nil
}

// observeMetric derives the observed value for a threshold metric from
// recent behavior events (newest first).
//
//   - "work_duration_hours": hours covered by the current activity
//     streak, where a gap longer than gap_minutes breaks the streak.
//   - "event_count": number of events of count_event_type within
//     lookback_minutes.
//   - anything else: the newest event whose metadata carries the metric
//     name as a numeric value.
func observeMetric(now time.Time, metric string, events []signal.BehaviorEvent, params Params) (float64, bool) {
	switch metric {
	case "work_duration_hours":
		if len(events) == 0 {
			return 0, false
		}
		gap := time.Duration(params.Float("gap_minutes", 30)) * time.Minute
		if now.Sub(events[0].Timestamp) > gap {
			// streak already ended
			return 0, false
		}
		streakStart := events[0].Timestamp
		prev := events[0].Timestamp
		for _, ev := range events[1:] {
			if prev.Sub(ev.Timestamp) > gap {
				break
			}
			streakStart = ev.Timestamp
			prev = ev.Timestamp
		}
		return now.Sub(streakStart).Hours(), true

	case "event_count":
		countType := params.String("count_event_type", "")
		if countType == "" {
			return 0, false
		}
		lookback := time.Duration(params.Float("lookback_minutes", 60)) * time.Minute
		cutoff := now.Add(-lookback)
		count := 0
		for _, ev := range events {
			if ev.Timestamp.Before(cutoff) {
				break
			}
			if ev.Type == countType {
				count++
			}
		}
		return float64(count), count > 0

	default:
		for _, ev := range events {
			if v, ok := numericMetadata(ev.Metadata, metric); ok {
				return v, true
			}
		}
		return 0, false
	}
}

func numericMetadata(meta map[string]any, key string) (float64, bool) {
	if meta == nil {
		return 0, false
	}
	switch v := meta[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
