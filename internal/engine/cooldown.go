// internal/engine/cooldown.go
package engine

import (
	"sync"
	"time"

	"github.com/colebrumley/interruptd/internal/trigger"
)

// CooldownTracker holds each trigger's last-fired timestamp and gates
// whether a trigger is evaluated at all. Checked before the evaluator
// runs, so a cooling trigger costs nothing.
type CooldownTracker struct {
	mu   sync.Mutex
	last map[string]time.Time
	Now  func() time.Time
}

// NewCooldownTracker creates an empty tracker.
func NewCooldownTracker() *CooldownTracker {
	return &CooldownTracker{
		last: make(map[string]time.Time),
		Now:  time.Now,
	}
}

// Seed loads last-fired timestamps, typically from the history table at
// startup so cooldowns survive restarts.
func (t *CooldownTracker) Seed(last map[string]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, at := range last {
		t.last[id] = at
	}
}

// Eligible reports whether a trigger may be evaluated: it must be
// enabled and its cooldown elapsed. A disabled trigger is ineligible
// regardless of cooldown.
func (t *CooldownTracker) Eligible(def trigger.Definition) bool {
	if !def.Enabled {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.last[def.ID]
	if !ok {
		return true
	}
	return t.Now().Sub(last) >= def.Cooldown
}

// Stamp marks a trigger as fired now, starting its cooldown.
func (t *CooldownTracker) Stamp(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last[id] = t.Now()
}

// LastFired returns a trigger's last-fired time, if any.
func (t *CooldownTracker) LastFired(id string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	at, ok := t.last[id]
	return at, ok
}
