// internal/trigger/guard.go
package trigger

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"

	"github.com/colebrumley/interruptd/internal/signal"
)

// GuardParam is the parameter key holding an optional guard expression.
const GuardParam = "guard"

// CheckGuard evaluates a trigger's guard expression, if any, against the
// signal payload, the current user context, and the hour of day. The
// expression must evaluate to a boolean; a false result suppresses the
// signal. Example:
//
//	payload.occurrences >= 5 || (context != nil && context.context_type == "organizational")
func CheckGuard(params Params, sig *Signal, uc *signal.UserContext, now time.Time) (bool, error) {
	criteria := params.String(GuardParam, "")
	if criteria == "" {
		return true, nil
	}

	var ctxMap map[string]any
	if uc != nil {
		ctxMap = map[string]any{
			"context_type": uc.Type,
			"confidence":   uc.Confidence,
		}
	}
	env := map[string]any{
		"payload": sig.Payload,
		"context": ctxMap,
		"hour":    now.Hour(),
	}

	program, err := expr.Compile(criteria, expr.Env(env))
	if err != nil {
		return false, fmt.Errorf("compiling guard: %w", err)
	}

	output, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("evaluating guard: %w", err)
	}

	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("guard did not return a boolean")
	}
	return result, nil
}
