// internal/decision/cost.go
package decision

import (
	"context"
	"log/slog"
	"time"

	"github.com/colebrumley/interruptd/internal/signal"
	"github.com/colebrumley/interruptd/internal/store"
)

// Disturbance cost components. Each signal stays independently auditable
// and tunable; the sum is clamped to 1.0 so one lenient factor can never
// mask a strict one the way a multiplicative model would.
const (
	costDeepFocus      = 0.3
	costOrganizational = 0.1
	costOtherContext   = 0.2

	costFrequencyHigh = 0.2 // more than 3 decisions in the last hour
	costFrequencySome = 0.1 // more than 1

	costLowAcceptance = 0.2 // acceptance rate below 0.3
	costMidAcceptance = 0.1 // below 0.5

	costOffHours  = 0.3 // before 08:00 or after 22:00
	costLunchtime = 0.1 // 12:00-14:00
)

// CostModel computes the 0..1 cost of interrupting the user right now
// from current context, recent trigger frequency, historical acceptance,
// and time of day.
type CostModel struct {
	Store   *store.Store
	Context signal.ContextProvider
	Logger  *slog.Logger
	Now     func() time.Time
}

// NewCostModel creates a cost model over the given store and context
// provider. Either may be nil; a missing input contributes zero cost.
func NewCostModel(st *store.Store, ctxProvider signal.ContextProvider, logger *slog.Logger) *CostModel {
	if logger == nil {
		logger = slog.Default()
	}
	return &CostModel{
		Store:   st,
		Context: ctxProvider,
		Logger:  logger,
		Now:     time.Now,
	}
}

// Cost returns the disturbance cost of interrupting userID with the
// given trigger. Collaborator errors are logged and contribute zero.
func (m *CostModel) Cost(ctx context.Context, userID, triggerID string) float64 {
	cost := m.contextCost(ctx, userID) +
		m.frequencyCost() +
		m.historyCost(triggerID) +
		m.timeOfDayCost()
	if cost > 1.0 {
		cost = 1.0
	}
	return cost
}

func (m *CostModel) contextCost(ctx context.Context, userID string) float64 {
	if m.Context == nil {
		return 0
	}
	uc, err := m.Context.CurrentContext(ctx, userID)
	if err != nil {
		m.Logger.Warn("context lookup failed", "error", err)
		return 0
	}
	if uc == nil {
		return 0
	}
	switch uc.Type {
	case "creative", "learning":
		// deep focus
		return costDeepFocus
	case "organizational":
		return costOrganizational
	default:
		return costOtherContext
	}
}

func (m *CostModel) frequencyCost() float64 {
	if m.Store == nil {
		return 0
	}
	count, err := m.Store.RecentDecisionCount(m.Now().Add(-time.Hour))
	if err != nil {
		m.Logger.Warn("recent decision count failed", "error", err)
		return 0
	}
	switch {
	case count > 3:
		return costFrequencyHigh
	case count > 1:
		return costFrequencySome
	default:
		return 0
	}
}

func (m *CostModel) historyCost(triggerID string) float64 {
	if m.Store == nil {
		return 0
	}
	eff, err := m.Store.Effectiveness(triggerID)
	if err != nil {
		m.Logger.Warn("effectiveness lookup failed", "trigger", triggerID, "error", err)
		return 0
	}
	if eff == nil {
		// no feedback recorded yet
		return 0
	}
	switch {
	case eff.AcceptanceRate < 0.3:
		return costLowAcceptance
	case eff.AcceptanceRate < 0.5:
		return costMidAcceptance
	default:
		return 0
	}
}

func (m *CostModel) timeOfDayCost() float64 {
	hour := m.Now().Hour()
	switch {
	case hour < 8 || hour >= 22:
		return costOffHours
	case hour >= 12 && hour < 14:
		return costLunchtime
	default:
		return 0
	}
}
