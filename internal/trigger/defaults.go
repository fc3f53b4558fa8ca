// internal/trigger/defaults.go
package trigger

import "time"

// Default is a built-in trigger definition plus its initial parameters.
type Default struct {
	Definition Definition
	Parameters map[string]any
}

// Defaults returns the built-in trigger set registered at daemon start.
// Each may be overridden by a definition file in the triggers directory.
func Defaults() []Default {
	return []Default{
		{
			Definition: Definition{
				ID:          "morning_greeting",
				Kind:        KindPeriodic,
				Priority:    2,
				Cooldown:    20 * time.Hour,
				Enabled:     true,
				Description: "Greet the user once at the start of the working day",
			},
			Parameters: map[string]any{
				"start_hour": 9, "end_hour": 10,
				"urgency": 0.3, "importance": 0.4,
			},
		},
		{
			Definition: Definition{
				ID:          "evening_summary",
				Kind:        KindPeriodic,
				Priority:    3,
				Cooldown:    20 * time.Hour,
				Enabled:     true,
				Description: "Offer a summary of the day before the user signs off",
			},
			Parameters: map[string]any{
				"start_hour": 18, "end_hour": 19,
				"urgency": 0.3, "importance": 0.5,
			},
		},
		{
			Definition: Definition{
				ID:          "context_switch",
				Kind:        KindEvent,
				Priority:    5,
				Cooldown:    30 * time.Minute,
				Enabled:     true,
				Description: "Offer help after the user switches to a different task",
			},
			Parameters: map[string]any{
				"event_type": "context_switch", "window_minutes": 15,
				"min_urgency": 0.4, "max_urgency": 0.7, "importance": 0.5,
			},
		},
		{
			Definition: Definition{
				ID:          "inactivity_return",
				Kind:        KindEvent,
				Priority:    4,
				Cooldown:    time.Hour,
				Enabled:     true,
				Description: "Re-orient the user after returning from a long break",
			},
			Parameters: map[string]any{
				"event_type": "inactive_return", "window_minutes": 10,
				"min_urgency": 0.4, "max_urgency": 0.8, "importance": 0.6,
			},
		},
		{
			Definition: Definition{
				ID:          "long_work_session",
				Kind:        KindThreshold,
				Priority:    6,
				Cooldown:    time.Hour,
				Enabled:     true,
				Description: "Suggest a break after a long continuous work session",
			},
			Parameters: map[string]any{
				"metric": "work_duration_hours", "threshold": 2.0,
				"base_urgency": 0.5, "urgency_per_unit": 0.1,
				"max_urgency": 1.0, "importance": 0.6, "gap_minutes": 30,
			},
		},
		{
			Definition: Definition{
				ID:          "unsaved_changes",
				Kind:        KindThreshold,
				Priority:    7,
				Cooldown:    45 * time.Minute,
				Enabled:     true,
				Description: "Warn when many edits have accumulated without a backup",
			},
			Parameters: map[string]any{
				"metric": "edits_since_backup", "threshold": 25.0,
				"base_urgency": 0.5, "urgency_per_unit": 0.01,
				"max_urgency": 0.9, "importance": 0.8,
			},
		},
		{
			Definition: Definition{
				ID:          "suggestion_backlog",
				Kind:        KindThreshold,
				Priority:    4,
				Cooldown:    2 * time.Hour,
				Enabled:     true,
				Description: "Surface queued suggestions once enough have piled up",
			},
			Parameters: map[string]any{
				"metric": "pending_suggestions", "threshold": 3.0,
				"base_urgency": 0.4, "urgency_per_unit": 0.05,
				"max_urgency": 0.7, "importance": 0.6,
			},
		},
		{
			Definition: Definition{
				ID:          "repeated_search",
				Kind:        KindPattern,
				Priority:    5,
				Cooldown:    30 * time.Minute,
				Enabled:     true,
				Description: "Offer help when the same search keeps coming back",
			},
			Parameters: map[string]any{
				"event_type": "search", "match_key": "query",
				"lookback_minutes": 30, "min_occurrences": 3,
				"urgency": 0.5, "importance": 0.6,
			},
		},
		{
			Definition: Definition{
				ID:          "repeated_error",
				Kind:        KindPattern,
				Priority:    6,
				Cooldown:    20 * time.Minute,
				Enabled:     true,
				Description: "Offer help when the same error keeps recurring",
			},
			Parameters: map[string]any{
				"event_type": "error", "match_key": "message",
				"lookback_minutes": 20, "min_occurrences": 3,
				"urgency": 0.5, "importance": 0.6,
			},
		},
		{
			Definition: Definition{
				ID:          "resource_critical",
				Kind:        KindEmergency,
				Priority:    emergencyPriority,
				Cooldown:    emergencyCooldown,
				Enabled:     true,
				Description: "Alert when disk or memory usage is critical",
			},
			Parameters: map[string]any{
				"metric": "resource_usage", "threshold": 0.95,
				"base_urgency": 0.9, "urgency_per_unit": 2.0,
				"max_urgency": 1.0, "importance": 1.0,
			},
		},
		{
			Definition: Definition{
				ID:          "deadline_risk",
				Kind:        KindEmergency,
				Priority:    emergencyPriority,
				Cooldown:    emergencyCooldown,
				Enabled:     true,
				Description: "Alert when a tracked deadline is at risk",
			},
			Parameters: map[string]any{
				"metric": "deadline_risk", "threshold": 0.8,
				"base_urgency": 0.9, "urgency_per_unit": 0.5,
				"max_urgency": 1.0, "importance": 1.0,
			},
		},
	}
}
