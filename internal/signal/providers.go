// internal/signal/providers.go
// Read-only collaborator interfaces the engine consumes. The engine never
// mutates collaborator state; it only issues queries during evaluation.
package signal

import (
	"context"
	"time"
)

// BehaviorEvent is one observed user action.
type BehaviorEvent struct {
	Type      string         `json:"type"`
	Path      string         `json:"path,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// UserContext describes what the user is currently doing, as reported by
// an external context detector.
type UserContext struct {
	Type       string  `json:"context_type"`
	Confidence float64 `json:"confidence"`
}

// BehaviorProvider exposes recent user activity, newest first.
type BehaviorProvider interface {
	RecentEvents(ctx context.Context, userID string, limit int) ([]BehaviorEvent, error)
}

// ContextProvider exposes the current user context. A nil result with a
// nil error means no context is known.
type ContextProvider interface {
	CurrentContext(ctx context.Context, userID string) (*UserContext, error)
}

// SuggestionProvider exposes pending suggestions accumulated elsewhere in
// the system.
type SuggestionProvider interface {
	PendingSuggestions(ctx context.Context, userID string) ([]string, error)
}

// Sources bundles the providers handed to evaluators. Any field may be
// nil; evaluators treat a missing provider as no signal.
type Sources struct {
	Behavior    BehaviorProvider
	Context     ContextProvider
	Suggestions SuggestionProvider
}
