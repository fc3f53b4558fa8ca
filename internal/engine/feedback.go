// internal/engine/feedback.go
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/colebrumley/interruptd/internal/decision"
	"github.com/colebrumley/interruptd/internal/logging"
	"github.com/colebrumley/interruptd/internal/store"
	"github.com/colebrumley/interruptd/internal/trigger"
)

var (
	// ErrUnknownTrigger means feedback referenced a trigger id the
	// catalog has never seen.
	ErrUnknownTrigger = errors.New("unknown trigger")
	// ErrNoPendingDecision means the trigger has no decision awaiting
	// feedback.
	ErrNoPendingDecision = errors.New("no decision awaiting feedback")
)

// Cooldown adaptation bounds. The multiplier can never drive a cooldown
// to zero, and repeated low-acceptance feedback cannot inflate it past a
// day.
const (
	minAdaptiveCooldown = 15 * time.Minute
	maxAdaptiveCooldown = 24 * time.Hour

	lowAcceptanceRate  = 0.3
	highAcceptanceRate = 0.7
	backoffMultiplier  = 1.5
	speedupMultiplier  = 0.8
)

// FeedbackAdapter applies user reactions to the trigger that caused
// them: it updates the matching history row, rebuilds the effectiveness
// aggregate, and adapts the trigger's cooldown. This is the engine's
// only self-tuning mechanism.
type FeedbackAdapter struct {
	catalog *trigger.Catalog
	store   *store.Store
	logger  *slog.Logger
}

// NewFeedbackAdapter creates the adapter.
func NewFeedbackAdapter(catalog *trigger.Catalog, st *store.Store, logger *slog.Logger) *FeedbackAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackAdapter{catalog: catalog, store: st, logger: logger}
}

// Record attaches an outcome to the trigger's most recent pending
// decision and adapts the cooldown from the recomputed acceptance rate.
func (a *FeedbackAdapter) Record(triggerID string, outcome decision.Outcome, latency time.Duration) error {
	snap, ok := a.catalog.Get(triggerID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTrigger, triggerID)
	}
	if a.store == nil {
		return nil
	}

	updated, err := a.store.SetFeedback(triggerID, string(outcome), latency)
	if err != nil {
		return fmt.Errorf("recording feedback: %w", err)
	}
	if !updated {
		return fmt.Errorf("%w: %s", ErrNoPendingDecision, triggerID)
	}

	a.adapt(snap, triggerID)
	return nil
}

// Expire marks a specific dispatched decision as ignored when no
// explicit feedback arrived in time. First-write-wins: explicit feedback
// that landed earlier makes this a no-op.
func (a *FeedbackAdapter) Expire(triggerID, decisionID string) {
	if a.store == nil {
		return
	}
	updated, err := a.store.SetFeedbackByDecision(decisionID, string(decision.OutcomeIgnored), 0)
	if err != nil {
		a.logger.Warn("expiring decision feedback", "decision", decisionID, "error", err)
		return
	}
	if !updated {
		return
	}
	if snap, ok := a.catalog.Get(triggerID); ok {
		a.adapt(snap, triggerID)
	}
}

func (a *FeedbackAdapter) adapt(snap trigger.Snapshot, triggerID string) {
	eff, err := a.store.RecomputeEffectiveness(triggerID)
	if err != nil {
		a.logger.Warn("recomputing effectiveness", "trigger", triggerID, "error", err)
		return
	}

	logger := logging.WithTrigger(a.logger, triggerID)

	cooldown := snap.Definition.Cooldown
	switch {
	case eff.AcceptanceRate < lowAcceptanceRate:
		// interactions are not landing, become less naggy
		cooldown = time.Duration(float64(cooldown) * backoffMultiplier)
		if cooldown > maxAdaptiveCooldown {
			cooldown = maxAdaptiveCooldown
		}
	case eff.AcceptanceRate > highAcceptanceRate:
		// interactions are welcome, become more responsive
		cooldown = time.Duration(float64(cooldown) * speedupMultiplier)
		if cooldown < minAdaptiveCooldown {
			cooldown = minAdaptiveCooldown
		}
	default:
		return
	}

	if cooldown != snap.Definition.Cooldown {
		a.catalog.SetCooldown(triggerID, cooldown)
		logger.Info("adapted cooldown",
			"acceptance_rate", eff.AcceptanceRate,
			"old_cooldown", snap.Definition.Cooldown,
			"new_cooldown", cooldown,
		)
	}
}
