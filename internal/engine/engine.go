// internal/engine/engine.go
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/colebrumley/interruptd/internal/decision"
	"github.com/colebrumley/interruptd/internal/logging"
	"github.com/colebrumley/interruptd/internal/schedule"
	"github.com/colebrumley/interruptd/internal/security"
	"github.com/colebrumley/interruptd/internal/signal"
	"github.com/colebrumley/interruptd/internal/store"
	"github.com/colebrumley/interruptd/internal/trigger"
)

// Executor delivers a decision to whatever renders it to the user.
// Delivery is fire-and-forget: the engine logs a failure but never rolls
// back the decision, so a flaky channel cannot cause repeat-spamming.
type Executor interface {
	Dispatch(ctx context.Context, dec decision.Decision) error
}

// Options tunes engine behavior.
type Options struct {
	// EvaluatorTimeout bounds each evaluator call; a timeout is treated
	// as no signal.
	EvaluatorTimeout time.Duration
	// FeedbackTimeout, when positive, marks a dispatched decision as
	// ignored after this long without explicit feedback.
	FeedbackTimeout time.Duration
	// DefaultUser is the user id the monitoring loop evaluates for.
	DefaultUser string
}

// Engine is the proactive trigger decision engine. One instance is
// constructed at process start and shared by the monitoring loop, the
// HTTP API, and any other callers; all entry points are safe for
// concurrent use.
type Engine struct {
	catalog   *trigger.Catalog
	store     *store.Store
	cost      *decision.CostModel
	cooldowns *CooldownTracker
	feedback  *FeedbackAdapter
	sources   signal.Sources
	executor  Executor
	sched     *schedule.Scheduler
	logger    *slog.Logger
	opts      Options

	loop loopState
}

// New creates an engine over the given catalog, store, and
// collaborators. st and executor may be nil (nothing persisted /
// dispatched); sources fields may be nil (evaluators see no signal).
func New(catalog *trigger.Catalog, st *store.Store, sources signal.Sources, executor Executor, logger *slog.Logger, opts Options) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.EvaluatorTimeout <= 0 {
		opts.EvaluatorTimeout = 2 * time.Second
	}
	if opts.DefaultUser == "" {
		opts.DefaultUser = "default"
	}

	e := &Engine{
		catalog:   catalog,
		store:     st,
		cost:      decision.NewCostModel(st, sources.Context, logger),
		cooldowns: NewCooldownTracker(),
		feedback:  NewFeedbackAdapter(catalog, st, logger),
		sources:   sources,
		executor:  executor,
		sched:     schedule.NewScheduler(),
		logger:    logger,
		opts:      opts,
	}

	if st != nil {
		if last, err := st.LastFired(); err != nil {
			logger.Warn("could not seed cooldowns from history", "error", err)
		} else {
			e.cooldowns.Seed(last)
		}
	}

	return e
}

// RegisterTrigger inserts-or-replaces a trigger definition and its
// initial parameters. Invalid definitions are silently dropped.
func (e *Engine) RegisterTrigger(def trigger.Definition, params map[string]any) {
	e.catalog.Register(def, params)
}

// ListTriggers returns all registered triggers sorted by priority
// descending then trigger id.
func (e *Engine) ListTriggers() []trigger.Snapshot {
	return e.catalog.List()
}

// GetTriggerParameters returns a copy of a trigger's parameter bag.
func (e *Engine) GetTriggerParameters(id string) (trigger.Params, bool) {
	return e.catalog.Parameters(id)
}

// UpdateTriggerParameters merges the partial bag into the trigger's
// parameters. Returns false for an unknown trigger id.
func (e *Engine) UpdateTriggerParameters(id string, partial map[string]any) bool {
	return e.catalog.UpdateParameters(id, partial)
}

// UpdateTriggerConfig applies the non-nil fields of the update. Returns
// false for an unknown trigger id.
func (e *Engine) UpdateTriggerConfig(id string, update trigger.ConfigUpdate) bool {
	return e.catalog.UpdateConfig(id, update)
}

// EvaluateInteractionNeed runs every enabled, non-cooling trigger's
// evaluator and returns the single best decision that clears the firing
// threshold, or nil when nothing met the bar. Safe to call concurrently
// with the monitoring loop. The caller decides whether to act on the
// decision (ExecuteInteraction).
func (e *Engine) EvaluateInteractionNeed(ctx context.Context, userID string) *decision.Decision {
	now := time.Now()

	var currentCtx *signal.UserContext
	if e.sources.Context != nil {
		uc, err := e.sources.Context.CurrentContext(ctx, userID)
		if err != nil {
			e.logger.Warn("context lookup failed", "error", err)
		} else {
			currentCtx = uc
		}
	}

	var candidates []decision.Decision
	for _, snap := range e.catalog.List() {
		def := snap.Definition
		if !e.cooldowns.Eligible(def) {
			continue
		}
		eval, ok := e.catalog.Evaluator(def.ID)
		if !ok {
			continue
		}

		logger := logging.WithTrigger(e.logger, def.ID)

		evalCtx, cancel := context.WithTimeout(ctx, e.opts.EvaluatorTimeout)
		sig, err := eval.Evaluate(evalCtx, userID, snap.Parameters, e.sources)
		cancel()
		if err != nil {
			// an evaluator failure never aborts the cycle
			logger.Warn("evaluator failed, treating as no signal", "error", err)
			continue
		}
		if sig == nil {
			continue
		}

		pass, err := trigger.CheckGuard(snap.Parameters, sig, currentCtx, now)
		if err != nil {
			logger.Warn("guard failed, suppressing signal", "error", err)
			continue
		}
		if !pass {
			logger.Debug("guard suppressed signal")
			continue
		}

		cost := e.cost.Cost(ctx, userID, def.ID)
		candidates = append(candidates, decision.Build(snap, sig, cost, now))
	}

	return decision.SelectBest(candidates)
}

// ExecuteInteraction persists the decision, stamps the trigger's
// cooldown, and dispatches to the executor. A persistence failure aborts
// before the cooldown is stamped, so the trigger simply re-evaluates
// next cycle; a dispatch failure does not roll anything back.
func (e *Engine) ExecuteInteraction(ctx context.Context, dec decision.Decision, userID string) error {
	if e.store != nil {
		payload, err := json.Marshal(dec.Content)
		if err != nil {
			payload = []byte("{}")
		}
		rec := store.DecisionRecord{
			DecisionID:      dec.ID,
			TriggerID:       dec.TriggerID,
			InteractionType: string(dec.InteractionType),
			PriorityTier:    string(dec.PriorityTier),
			Reason:          dec.Reason,
			Urgency:         dec.Urgency,
			Importance:      dec.Importance,
			DisturbanceCost: dec.DisturbanceCost,
			FinalScore:      dec.FinalScore,
			Payload:         security.ScrubPayload(string(payload)),
			CreatedAt:       dec.CreatedAt,
		}
		if _, err := e.store.AppendDecision(rec); err != nil {
			return fmt.Errorf("persisting decision: %w", err)
		}
	}

	e.cooldowns.Stamp(dec.TriggerID)

	if e.opts.FeedbackTimeout > 0 && e.store != nil {
		triggerID, decisionID := dec.TriggerID, dec.ID
		e.sched.After(e.opts.FeedbackTimeout, func() {
			e.feedback.Expire(triggerID, decisionID)
		})
	}

	if e.executor != nil {
		if err := e.executor.Dispatch(ctx, dec); err != nil {
			e.logger.Warn("dispatch failed, decision stays recorded",
				"trigger", dec.TriggerID, "decision", dec.ID, "error", err)
		}
	}

	e.logger.Info("interaction executed",
		"trigger", dec.TriggerID,
		"type", dec.InteractionType,
		"tier", dec.PriorityTier,
		"score", dec.FinalScore,
	)
	return nil
}

// RecordUserFeedback records a user's reaction to the trigger's most
// recent decision and lets the feedback adapter retune the cooldown.
func (e *Engine) RecordUserFeedback(triggerID, outcome string, responseLatency time.Duration) error {
	parsed, ok := decision.ParseOutcome(outcome)
	if !ok {
		return fmt.Errorf("invalid feedback outcome: %s", outcome)
	}
	return e.feedback.Record(triggerID, parsed, responseLatency)
}

// TriggerCount is one trigger's decision count within the statistics
// window.
type TriggerCount struct {
	TriggerID string `json:"trigger_id"`
	Count     int    `json:"count"`
}

// Statistics summarizes recent decision activity and per-trigger
// effectiveness.
type Statistics struct {
	Days          int                      `json:"days"`
	TotalTriggers int                      `json:"total_triggers"`
	ByTrigger     []TriggerCount           `json:"by_trigger"`
	Effectiveness []store.EffectivenessRow `json:"effectiveness"`
}

// TriggerStatistics aggregates decision counts over the last `days` days
// plus the effectiveness table.
func (e *Engine) TriggerStatistics(days int) (*Statistics, error) {
	if days <= 0 {
		days = 7
	}
	stats := &Statistics{Days: days}
	if e.store == nil {
		return stats, nil
	}

	counts, err := e.store.TriggerCounts(days)
	if err != nil {
		return nil, fmt.Errorf("loading trigger counts: %w", err)
	}
	for id, n := range counts {
		stats.TotalTriggers += n
		stats.ByTrigger = append(stats.ByTrigger, TriggerCount{TriggerID: id, Count: n})
	}
	sort.Slice(stats.ByTrigger, func(i, j int) bool {
		if stats.ByTrigger[i].Count != stats.ByTrigger[j].Count {
			return stats.ByTrigger[i].Count > stats.ByTrigger[j].Count
		}
		return stats.ByTrigger[i].TriggerID < stats.ByTrigger[j].TriggerID
	})

	eff, err := e.store.AllEffectiveness()
	if err != nil {
		return nil, fmt.Errorf("loading effectiveness: %w", err)
	}
	stats.Effectiveness = eff

	return stats, nil
}

// Close stops the monitoring loop and the task scheduler.
func (e *Engine) Close() {
	e.StopMonitoring()
	e.sched.Stop()
}
