// internal/decision/cost_test.go
package decision

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/colebrumley/interruptd/internal/signal"
	"github.com/colebrumley/interruptd/internal/store"
)

type fixedContext struct {
	uc  *signal.UserContext
	err error
}

func (f *fixedContext) CurrentContext(ctx context.Context, userID string) (*signal.UserContext, error) {
	return f.uc, f.err
}

// midAfternoon avoids both the off-hours and lunchtime surcharges.
var midAfternoon = time.Date(2026, 8, 29, 15, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T, uc *signal.UserContext) (*CostModel, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "triggers.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	m := NewCostModel(st, &fixedContext{uc: uc}, nil)
	m.Now = func() time.Time { return midAfternoon }
	return m, st
}

func TestCost_AllQuiet(t *testing.T) {
	m, _ := newTestModel(t, nil)

	if got := m.Cost(context.Background(), "u", "t1"); got != 0 {
		t.Errorf("Cost() = %v, want 0 with no signals", got)
	}
}

func TestCost_ContextTypes(t *testing.T) {
	tests := []struct {
		contextType string
		want        float64
	}{
		{"creative", 0.3},
		{"learning", 0.3},
		{"organizational", 0.1},
		{"social", 0.2},
		{"anything_else", 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.contextType, func(t *testing.T) {
			m, _ := newTestModel(t, &signal.UserContext{Type: tt.contextType, Confidence: 0.9})
			got := m.Cost(context.Background(), "u", "t1")
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cost() with %s context = %v, want %v", tt.contextType, got, tt.want)
			}
		})
	}
}

func seedDecisions(t *testing.T, st *store.Store, triggerID string, n int, at time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := st.AppendDecision(store.DecisionRecord{
			DecisionID:      triggerID + string(rune('0'+i)),
			TriggerID:       triggerID,
			InteractionType: "notification",
			PriorityTier:    "low",
			CreatedAt:       at.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("AppendDecision() error = %v", err)
		}
	}
}

func TestCost_Frequency(t *testing.T) {
	tests := []struct {
		name   string
		recent int
		want   float64
	}{
		{"quiet", 1, 0},
		{"some activity", 2, 0.1},
		{"noisy", 4, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, st := newTestModel(t, nil)
			seedDecisions(t, st, "other", tt.recent, midAfternoon.Add(-10*time.Minute))

			got := m.Cost(context.Background(), "u", "t1")
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cost() with %d recent decisions = %v, want %v", tt.recent, got, tt.want)
			}
		})
	}
}

func TestCost_FrequencyIgnoresOldDecisions(t *testing.T) {
	m, st := newTestModel(t, nil)
	seedDecisions(t, st, "other", 5, midAfternoon.Add(-3*time.Hour))

	if got := m.Cost(context.Background(), "u", "t1"); got != 0 {
		t.Errorf("Cost() = %v, decisions older than an hour should not count", got)
	}
}

func TestCost_AcceptanceHistory(t *testing.T) {
	tests := []struct {
		name     string
		accepted int
		total    int
		want     float64
	}{
		{"mostly ignored", 1, 10, 0.2},  // rate 0.1 < 0.3
		{"mixed", 4, 10, 0.1},           // rate 0.4 < 0.5
		{"mostly accepted", 8, 10, 0.0}, // rate 0.8
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, st := newTestModel(t, nil)

			// keep these outside the frequency window
			at := midAfternoon.Add(-5 * time.Hour)
			for i := 0; i < tt.total; i++ {
				id := "d" + string(rune('a'+i))
				st.AppendDecision(store.DecisionRecord{
					DecisionID: id, TriggerID: "t1",
					InteractionType: "notification", PriorityTier: "low",
					CreatedAt: at.Add(time.Duration(i) * time.Second),
				})
				outcome := "ignored"
				if i < tt.accepted {
					outcome = "accepted"
				}
				st.SetFeedbackByDecision(id, outcome, 0)
			}
			if _, err := st.RecomputeEffectiveness("t1"); err != nil {
				t.Fatalf("RecomputeEffectiveness() error = %v", err)
			}

			got := m.Cost(context.Background(), "u", "t1")
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cost() at %d/%d accepted = %v, want %v", tt.accepted, tt.total, got, tt.want)
			}
		})
	}
}

func TestCost_TimeOfDay(t *testing.T) {
	tests := []struct {
		hour int
		want float64
	}{
		{6, 0.3},
		{7, 0.3},
		{8, 0},
		{12, 0.1},
		{13, 0.1},
		{14, 0},
		{21, 0},
		{22, 0.3},
		{23, 0.3},
	}
	for _, tt := range tests {
		m := NewCostModel(nil, nil, nil)
		m.Now = func() time.Time {
			return time.Date(2026, 8, 29, tt.hour, 30, 0, 0, time.UTC)
		}
		got := m.Cost(context.Background(), "u", "t1")
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Cost() at hour %d = %v, want %v", tt.hour, got, tt.want)
		}
	}
}

func TestCost_ClampedToOne(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "triggers.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer st.Close()

	m := NewCostModel(st, &fixedContext{uc: &signal.UserContext{Type: "creative"}}, nil)
	lateNight := time.Date(2026, 8, 29, 23, 0, 0, 0, time.UTC)
	m.Now = func() time.Time { return lateNight }

	seedDecisions(t, st, "other", 5, lateNight.Add(-10*time.Minute))

	// rate 0 acceptance on t1
	st.AppendDecision(store.DecisionRecord{
		DecisionID: "x", TriggerID: "t1",
		InteractionType: "notification", PriorityTier: "low",
		CreatedAt: lateNight.Add(-30 * time.Minute),
	})
	st.SetFeedbackByDecision("x", "dismissed", 0)
	st.RecomputeEffectiveness("t1")

	got := m.Cost(context.Background(), "u", "t1")
	// 0.3 + 0.2 + 0.2 + 0.3 = 1.0 exactly at the clamp
	if got > 1.0 {
		t.Errorf("Cost() = %v, must never exceed 1.0", got)
	}
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Cost() = %v, want 1.0", got)
	}
}

func TestCost_CollaboratorErrorContributesZero(t *testing.T) {
	m := NewCostModel(nil, &fixedContext{err: errors.New("detector offline")}, nil)
	m.Now = func() time.Time { return midAfternoon }

	if got := m.Cost(context.Background(), "u", "t1"); got != 0 {
		t.Errorf("Cost() with failing context provider = %v, want 0", got)
	}
}
