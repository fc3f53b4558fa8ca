// internal/trigger/catalog_test.go
package trigger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/colebrumley/interruptd/internal/store"
)

func testDef(id string, kind Kind) Definition {
	return Definition{
		ID:       id,
		Kind:     kind,
		Priority: 5,
		Cooldown: time.Hour,
		Enabled:  true,
	}
}

func TestCatalog_RegisterAndGet(t *testing.T) {
	c := NewCatalog(nil, nil)

	c.Register(testDef("t1", KindPeriodic), map[string]any{"start_hour": 7})

	snap, ok := c.Get("t1")
	if !ok {
		t.Fatal("Get(t1) = false after Register")
	}
	if snap.Definition.Kind != KindPeriodic {
		t.Errorf("kind = %s", snap.Definition.Kind)
	}
	if snap.Parameters.Int("start_hour", 0) != 7 {
		t.Errorf("start_hour = %v", snap.Parameters["start_hour"])
	}

	if _, ok := c.Evaluator("t1"); !ok {
		t.Error("Evaluator(t1) = false")
	}
}

func TestCatalog_RegisterInvalidIsNoop(t *testing.T) {
	c := NewCatalog(nil, nil)

	c.Register(Definition{ID: "bad", Kind: "nope", Priority: 5, Cooldown: time.Hour}, nil)

	if _, ok := c.Get("bad"); ok {
		t.Error("invalid definition was registered")
	}
}

func TestCatalog_RegisterReplaces(t *testing.T) {
	c := NewCatalog(nil, nil)

	c.Register(testDef("t1", KindPeriodic), map[string]any{"a": 1})
	def := testDef("t1", KindPeriodic)
	def.Priority = 8
	c.Register(def, map[string]any{"b": 2})

	snap, _ := c.Get("t1")
	if snap.Definition.Priority != 8 {
		t.Errorf("priority = %d, want 8", snap.Definition.Priority)
	}
	// full re-registration replaces the bag, it does not merge
	if _, ok := snap.Parameters["a"]; ok {
		t.Error("old parameter survived re-registration")
	}
}

func TestCatalog_RegisterDefaultYieldsToExisting(t *testing.T) {
	c := NewCatalog(nil, nil)

	def := testDef("t1", KindPeriodic)
	def.Priority = 9
	c.Register(def, nil)

	dflt := testDef("t1", KindPeriodic)
	dflt.Priority = 2
	c.RegisterDefault(dflt, nil)

	snap, _ := c.Get("t1")
	if snap.Definition.Priority != 9 {
		t.Errorf("default overwrote explicit registration: priority = %d", snap.Definition.Priority)
	}
}

func TestCatalog_EmergencyPinned(t *testing.T) {
	c := NewCatalog(nil, nil)

	def := testDef("panic", KindEmergency)
	def.Priority = 3
	def.Cooldown = 6 * time.Hour
	c.Register(def, map[string]any{"metric": "disk_used_pct"})

	snap, _ := c.Get("panic")
	if snap.Definition.Priority != 10 {
		t.Errorf("emergency priority = %d, want 10", snap.Definition.Priority)
	}
	if snap.Definition.Cooldown != 5*time.Minute {
		t.Errorf("emergency cooldown = %v, want 5m", snap.Definition.Cooldown)
	}

	// config updates cannot move them either
	pri := 1
	cd := 2 * time.Hour
	c.UpdateConfig("panic", ConfigUpdate{Priority: &pri, Cooldown: &cd})
	snap, _ = c.Get("panic")
	if snap.Definition.Priority != 10 || snap.Definition.Cooldown != 5*time.Minute {
		t.Errorf("emergency pinning bypassed: %+v", snap.Definition)
	}

	c.SetCooldown("panic", time.Hour)
	snap, _ = c.Get("panic")
	if snap.Definition.Cooldown != 5*time.Minute {
		t.Errorf("SetCooldown changed emergency cooldown to %v", snap.Definition.Cooldown)
	}
}

func TestCatalog_UpdateParametersMerges(t *testing.T) {
	c := NewCatalog(nil, nil)
	c.Register(testDef("t1", KindThreshold), map[string]any{"threshold": 2.0, "metric": "work_duration_hours"})

	if !c.UpdateParameters("t1", map[string]any{"threshold": 3.0}) {
		t.Fatal("UpdateParameters() = false")
	}

	params, _ := c.Parameters("t1")
	if params.Float("threshold", 0) != 3.0 {
		t.Errorf("threshold = %v, want 3.0", params["threshold"])
	}
	// untouched keys survive a partial update
	if params.String("metric", "") != "work_duration_hours" {
		t.Errorf("metric lost in merge: %v", params["metric"])
	}

	// empty partial update changes nothing
	c.UpdateParameters("t1", nil)
	params, _ = c.Parameters("t1")
	if len(params) != 2 {
		t.Errorf("empty update mutated bag: %v", params)
	}
}

func TestCatalog_UpdateParametersUnknown(t *testing.T) {
	c := NewCatalog(nil, nil)
	if c.UpdateParameters("ghost", map[string]any{"x": 1}) {
		t.Error("UpdateParameters(ghost) = true")
	}
}

func TestCatalog_UpdateConfig(t *testing.T) {
	c := NewCatalog(nil, nil)
	c.Register(testDef("t1", KindThreshold), map[string]any{"threshold": 2.0})

	enabled := false
	pri := 7
	cd := 90 * time.Minute
	threshold := 4.5
	c.UpdateConfig("t1", ConfigUpdate{
		Enabled: &enabled, Priority: &pri, Cooldown: &cd, Threshold: &threshold,
	})

	snap, _ := c.Get("t1")
	if snap.Definition.Enabled {
		t.Error("enabled not updated")
	}
	if snap.Definition.Priority != 7 {
		t.Errorf("priority = %d", snap.Definition.Priority)
	}
	if snap.Definition.Cooldown != 90*time.Minute {
		t.Errorf("cooldown = %v", snap.Definition.Cooldown)
	}
	if snap.Parameters.Float("threshold", 0) != 4.5 {
		t.Errorf("threshold = %v", snap.Parameters["threshold"])
	}
}

func TestCatalog_ListOrdering(t *testing.T) {
	c := NewCatalog(nil, nil)

	low := testDef("zz_low", KindPeriodic)
	low.Priority = 2
	high := testDef("high", KindPeriodic)
	high.Priority = 9
	alsoHigh := testDef("also_high", KindPeriodic)
	alsoHigh.Priority = 9

	c.Register(low, nil)
	c.Register(high, nil)
	c.Register(alsoHigh, nil)

	list := c.List()
	if len(list) != 3 {
		t.Fatalf("List() returned %d items", len(list))
	}
	got := []string{list[0].Definition.ID, list[1].Definition.ID, list[2].Definition.ID}
	want := []string{"also_high", "high", "zz_low"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestCatalog_SnapshotIsolated(t *testing.T) {
	c := NewCatalog(nil, nil)
	c.Register(testDef("t1", KindPeriodic), map[string]any{"a": 1})

	snap, _ := c.Get("t1")
	snap.Parameters["a"] = 99

	fresh, _ := c.Parameters("t1")
	if fresh.Int("a", 0) != 1 {
		t.Error("mutating a snapshot leaked into the catalog")
	}
}

func TestCatalog_PersistAndRestore(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "triggers.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer st.Close()

	c := NewCatalog(st, nil)
	def := testDef("t1", KindThreshold)
	def.Priority = 6
	def.Description = "take a break"
	c.Register(def, map[string]any{"threshold": 2.0})

	// a fresh catalog over the same store sees the registration
	c2 := NewCatalog(st, nil)
	if err := c2.Restore(); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	snap, ok := c2.Get("t1")
	if !ok {
		t.Fatal("restored catalog missing t1")
	}
	if snap.Definition.Priority != 6 || snap.Definition.Description != "take a break" {
		t.Errorf("restored definition = %+v", snap.Definition)
	}
	if snap.Parameters.Float("threshold", 0) != 2.0 {
		t.Errorf("restored parameters = %v", snap.Parameters)
	}

	// built-ins registered after Restore defer to what was persisted
	dflt := testDef("t1", KindThreshold)
	dflt.Priority = 1
	c2.RegisterDefault(dflt, nil)
	snap, _ = c2.Get("t1")
	if snap.Definition.Priority != 6 {
		t.Error("RegisterDefault overwrote restored trigger")
	}
}

func TestDefaults_AllValid(t *testing.T) {
	defaults := Defaults()
	if len(defaults) == 0 {
		t.Fatal("no built-in triggers")
	}

	seen := make(map[string]bool)
	for _, d := range defaults {
		if err := d.Definition.Validate(); err != nil {
			t.Errorf("built-in %s invalid: %v", d.Definition.ID, err)
		}
		if seen[d.Definition.ID] {
			t.Errorf("duplicate built-in id %s", d.Definition.ID)
		}
		seen[d.Definition.ID] = true
	}

	// registering the full default set must succeed
	c := NewCatalog(nil, nil)
	for _, d := range defaults {
		c.RegisterDefault(d.Definition, d.Parameters)
	}
	if len(c.List()) != len(defaults) {
		t.Errorf("registered %d of %d built-ins", len(c.List()), len(defaults))
	}
}
