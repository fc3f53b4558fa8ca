// internal/trigger/catalog.go
package trigger

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/colebrumley/interruptd/internal/store"
)

// Emergency triggers always run at the top of the priority range with a
// short fixed cooldown, so they cannot be starved or silenced by
// configuration.
const (
	emergencyPriority = 10
	emergencyCooldown = 5 * time.Minute
)

// Snapshot is a point-in-time copy of a registered trigger.
type Snapshot struct {
	Definition Definition
	Parameters Params
}

// ConfigUpdate carries optional definition changes; nil fields are left
// untouched.
type ConfigUpdate struct {
	Enabled   *bool
	Priority  *int
	Cooldown  *time.Duration
	Threshold *float64
}

type entry struct {
	def    Definition
	params Params
	eval   Evaluator
}

// Catalog owns the set of registered triggers and their parameter bags.
// The store, when present, holds a durable mirror of both.
type Catalog struct {
	store  *store.Store
	logger *slog.Logger
	mu     sync.RWMutex
	items  map[string]*entry
}

// NewCatalog creates a catalog. st may be nil, in which case nothing is
// persisted.
func NewCatalog(st *store.Store, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		store:  st,
		logger: logger,
		items:  make(map[string]*entry),
	}
}

// Register inserts-or-replaces a trigger definition and its parameter
// bag, persisting both. Invalid definitions are logged and dropped; a
// failed registration is a no-op, never an error surfaced to the caller.
func (c *Catalog) Register(def Definition, params map[string]any) {
	if def.Kind == KindEmergency {
		def.Priority = emergencyPriority
		def.Cooldown = emergencyCooldown
	}
	if err := def.Validate(); err != nil {
		c.logger.Warn("rejecting trigger registration", "trigger", def.ID, "error", err)
		return
	}

	eval, err := New(def.Kind)
	if err != nil {
		c.logger.Warn("rejecting trigger registration", "trigger", def.ID, "error", err)
		return
	}

	bag := Params{}
	bag.Merge(params)

	c.mu.Lock()
	c.items[def.ID] = &entry{def: def, params: bag, eval: eval}
	c.mu.Unlock()

	c.persist(def, bag)
}

// RegisterDefault registers a trigger only if no trigger with that id is
// already known, so restored or file-defined triggers win over built-ins.
func (c *Catalog) RegisterDefault(def Definition, params map[string]any) {
	c.mu.RLock()
	_, exists := c.items[def.ID]
	c.mu.RUnlock()
	if exists {
		return
	}
	c.Register(def, params)
}

// Restore loads persisted triggers and parameter bags into the catalog.
// Called once at startup, before any registration.
func (c *Catalog) Restore() error {
	if c.store == nil {
		return nil
	}

	rows, err := c.store.LoadTriggers()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, row := range rows {
		kind, err := ParseKind(row.Kind)
		if err != nil {
			c.logger.Warn("skipping persisted trigger", "trigger", row.ID, "error", err)
			continue
		}
		eval, err := New(kind)
		if err != nil {
			c.logger.Warn("skipping persisted trigger", "trigger", row.ID, "error", err)
			continue
		}

		params, err := c.store.LoadParameters(row.ID)
		if err != nil {
			c.logger.Warn("loading persisted parameters", "trigger", row.ID, "error", err)
			params = nil
		}
		bag := Params{}
		bag.Merge(params)

		c.items[row.ID] = &entry{
			def: Definition{
				ID:          row.ID,
				Kind:        kind,
				Priority:    row.Priority,
				Cooldown:    row.Cooldown,
				Enabled:     row.Enabled,
				Description: row.Description,
			},
			params: bag,
			eval:   eval,
		}
	}
	return nil
}

// Get returns a snapshot of a registered trigger.
func (c *Catalog) Get(id string) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[id]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{Definition: e.def, Parameters: e.params.Clone()}, true
}

// Evaluator returns the evaluator bound to a trigger.
func (c *Catalog) Evaluator(id string) (Evaluator, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[id]
	if !ok {
		return nil, false
	}
	return e.eval, true
}

// Parameters returns a copy of a trigger's parameter bag.
func (c *Catalog) Parameters(id string) (Params, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[id]
	if !ok {
		return nil, false
	}
	return e.params.Clone(), true
}

// UpdateParameters merges (not replaces) the partial bag into the
// trigger's existing parameters and persists the result. Returns false
// for an unknown trigger id.
func (c *Catalog) UpdateParameters(id string, partial map[string]any) bool {
	c.mu.Lock()
	e, ok := c.items[id]
	if !ok {
		c.mu.Unlock()
		return false
	}
	e.params.Merge(partial)
	def, bag := e.def, e.params.Clone()
	c.mu.Unlock()

	c.persist(def, bag)
	return true
}

// UpdateConfig applies the non-nil fields of the update to a trigger's
// definition and persists. Returns false for an unknown trigger id.
func (c *Catalog) UpdateConfig(id string, update ConfigUpdate) bool {
	c.mu.Lock()
	e, ok := c.items[id]
	if !ok {
		c.mu.Unlock()
		return false
	}
	if update.Enabled != nil {
		e.def.Enabled = *update.Enabled
	}
	if update.Priority != nil && e.def.Kind != KindEmergency {
		e.def.Priority = *update.Priority
	}
	if update.Cooldown != nil && *update.Cooldown > 0 && e.def.Kind != KindEmergency {
		e.def.Cooldown = *update.Cooldown
	}
	if update.Threshold != nil {
		e.params["threshold"] = *update.Threshold
	}
	def, bag := e.def, e.params.Clone()
	c.mu.Unlock()

	c.persist(def, bag)
	return true
}

// SetCooldown overwrites a trigger's cooldown and persists. Used by the
// feedback adapter; emergency cooldowns stay fixed.
func (c *Catalog) SetCooldown(id string, cooldown time.Duration) bool {
	c.mu.Lock()
	e, ok := c.items[id]
	if !ok || e.def.Kind == KindEmergency {
		c.mu.Unlock()
		return ok
	}
	e.def.Cooldown = cooldown
	def, bag := e.def, e.params.Clone()
	c.mu.Unlock()

	c.persist(def, bag)
	return true
}

// List returns snapshots of all registered triggers, sorted by priority
// descending then trigger id ascending, for deterministic display.
func (c *Catalog) List() []Snapshot {
	c.mu.RLock()
	out := make([]Snapshot, 0, len(c.items))
	for _, e := range c.items {
		out = append(out, Snapshot{Definition: e.def, Parameters: e.params.Clone()})
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Definition.Priority != out[j].Definition.Priority {
			return out[i].Definition.Priority > out[j].Definition.Priority
		}
		return out[i].Definition.ID < out[j].Definition.ID
	})
	return out
}

func (c *Catalog) persist(def Definition, params Params) {
	if c.store == nil {
		return
	}
	row := store.TriggerRow{
		ID:          def.ID,
		Kind:        string(def.Kind),
		Priority:    def.Priority,
		Cooldown:    def.Cooldown,
		Enabled:     def.Enabled,
		Description: def.Description,
	}
	if err := c.store.UpsertTrigger(row); err != nil {
		c.logger.Error("persisting trigger config", "trigger", def.ID, "error", err)
	}
	if err := c.store.UpsertParameters(def.ID, params); err != nil {
		c.logger.Error("persisting trigger parameters", "trigger", def.ID, "error", err)
	}
}
