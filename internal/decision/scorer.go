// internal/decision/scorer.go
package decision

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/colebrumley/interruptd/internal/trigger"
)

// Scoring weights and the single global firing threshold.
const (
	weightUrgency     = 0.4
	weightImportance  = 0.4
	weightDisturbance = 0.2

	// FireThreshold is the minimum final score for should_interact.
	FireThreshold = 0.35
)

// Score combines urgency, importance, and disturbance cost into the
// final score. The score can go negative when cost dominates.
func Score(urgency, importance, disturbanceCost float64) float64 {
	return urgency*weightUrgency + importance*weightImportance - disturbanceCost*weightDisturbance
}

// TierFor maps a final score to its discrete priority tier.
func TierFor(score float64) Tier {
	switch {
	case score >= 0.8:
		return TierCritical
	case score >= 0.6:
		return TierHigh
	case score >= 0.4:
		return TierMedium
	default:
		return TierLow
	}
}

// TypeFor selects the interaction type for a signal. Emergencies always
// alert; otherwise the ladder runs from urgency down to importance.
func TypeFor(kind trigger.Kind, urgency, importance float64) InteractionType {
	switch {
	case kind == trigger.KindEmergency:
		return Alert
	case urgency >= 0.8:
		return Alert
	case urgency >= 0.6:
		return Dialogue
	case kind == trigger.KindPattern:
		return Question
	case importance >= 0.7:
		return Action
	default:
		return Notification
	}
}

// Build turns one evaluated signal into a candidate decision. The content
// payload always carries the originating trigger id.
func Build(snap trigger.Snapshot, sig *trigger.Signal, disturbanceCost float64, now time.Time) Decision {
	def := snap.Definition
	score := Score(sig.Urgency, sig.Importance, disturbanceCost)

	content := make(map[string]any, len(sig.Payload)+1)
	for k, v := range sig.Payload {
		content[k] = v
	}
	content["trigger_id"] = def.ID

	return Decision{
		ID:              uuid.NewString(),
		ShouldInteract:  score >= FireThreshold,
		TriggerID:       def.ID,
		TriggerPriority: def.Priority,
		InteractionType: TypeFor(def.Kind, sig.Urgency, sig.Importance),
		PriorityTier:    TierFor(score),
		Content:         content,
		Reason: fmt.Sprintf("%s: %s (urgency %.2f, importance %.2f, cost %.2f)",
			def.ID, def.Description, sig.Urgency, sig.Importance, disturbanceCost),
		Urgency:         sig.Urgency,
		Importance:      sig.Importance,
		DisturbanceCost: disturbanceCost,
		FinalScore:      score,
		CreatedAt:       now,
	}
}

// SelectBest picks the single decision to act on this cycle: the highest
// final score among candidates that clear the firing threshold. Ties
// break to the higher declared trigger priority, then the
// lexicographically smaller trigger id, so selection is deterministic.
func SelectBest(candidates []Decision) *Decision {
	var best *Decision
	for i := range candidates {
		c := &candidates[i]
		if !c.ShouldInteract {
			continue
		}
		if best == nil || better(c, best) {
			best = c
		}
	}
	return best
}

func better(a, b *Decision) bool {
	if a.FinalScore != b.FinalScore {
		return a.FinalScore > b.FinalScore
	}
	if a.TriggerPriority != b.TriggerPriority {
		return a.TriggerPriority > b.TriggerPriority
	}
	return a.TriggerID < b.TriggerID
}
