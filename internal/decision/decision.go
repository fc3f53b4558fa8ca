// internal/decision/decision.go
package decision

import "time"

// InteractionType is the shape of interaction a decision asks for.
type InteractionType string

const (
	Notification InteractionType = "notification"
	Dialogue     InteractionType = "dialogue"
	Action       InteractionType = "action"
	Question     InteractionType = "question"
	Alert        InteractionType = "alert"
)

// Tier is the discrete priority band derived from the final score.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierMedium   Tier = "medium"
	TierLow      Tier = "low"
)

// Decision is a point-in-time interaction decision. It is immutable once
// created; feedback is recorded later against its history row, never by
// mutating the decision.
type Decision struct {
	ID              string          `json:"decision_id"`
	ShouldInteract  bool            `json:"should_interact"`
	TriggerID       string          `json:"trigger_id"`
	TriggerPriority int             `json:"-"` // declared base weight, used for tie-breaks
	InteractionType InteractionType `json:"interaction_type"`
	PriorityTier    Tier            `json:"priority_tier"`
	Content         map[string]any  `json:"content"`
	Reason          string          `json:"reason"`
	Urgency         float64         `json:"urgency"`
	Importance      float64         `json:"importance"`
	DisturbanceCost float64         `json:"disturbance_cost"`
	FinalScore      float64         `json:"final_score"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Outcome is a user's reaction to a dispatched decision.
type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDismissed Outcome = "dismissed"
)

// ParseOutcome validates a feedback outcome string.
func ParseOutcome(s string) (Outcome, bool) {
	switch Outcome(s) {
	case OutcomeAccepted, OutcomeIgnored, OutcomeDismissed:
		return Outcome(s), true
	default:
		return "", false
	}
}
