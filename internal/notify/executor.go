// internal/notify/executor.go
// Interaction executors: the delivery side of the engine boundary. The
// engine hands a decision over and moves on; how (or whether) it reaches
// the user is this package's problem.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/colebrumley/interruptd/internal/decision"
)

// LogExecutor writes decisions to the structured log. Used when no real
// delivery channel is configured, and as the fallback in tests.
type LogExecutor struct {
	Logger *slog.Logger
}

// NewLogExecutor creates a log-only executor.
func NewLogExecutor(logger *slog.Logger) *LogExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogExecutor{Logger: logger}
}

func (e *LogExecutor) Dispatch(ctx context.Context, dec decision.Decision) error {
	e.Logger.Info("interaction",
		"trigger", dec.TriggerID,
		"type", dec.InteractionType,
		"tier", dec.PriorityTier,
		"reason", dec.Reason,
	)
	return nil
}

// Multi fans a decision out to several executors. Errors are collected;
// one failing channel does not stop the others.
type Multi struct {
	executors []Dispatcher
}

// Dispatcher matches the engine's executor contract.
type Dispatcher interface {
	Dispatch(ctx context.Context, dec decision.Decision) error
}

// NewMulti combines executors.
func NewMulti(executors ...Dispatcher) *Multi {
	return &Multi{executors: executors}
}

func (m *Multi) Dispatch(ctx context.Context, dec decision.Decision) error {
	var errs []string
	for _, e := range m.executors {
		if err := e.Dispatch(ctx, dec); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("dispatch: %s", strings.Join(errs, "; "))
	}
	return nil
}

// renderMessage builds the user-facing text for a decision. The payload
// drives the detail line through {{var}} expansion.
func renderMessage(dec decision.Decision) string {
	var b strings.Builder
	switch dec.PriorityTier {
	case decision.TierCritical:
		b.WriteString(":rotating_light: ")
	case decision.TierHigh:
		b.WriteString(":warning: ")
	}
	b.WriteString(dec.Reason)

	if tmpl, ok := dec.Content["message_template"].(string); ok && tmpl != "" {
		b.WriteString("\n")
		b.WriteString(Expand(tmpl, dec.Content))
	}
	return b.String()
}
