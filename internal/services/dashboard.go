package services

import (
	"context"
	"strings"
	"time"

	"budgethero/internal/cache"
	"budgethero/internal/core"
	"budgethero/internal/log"
)

// TopCategoryCount is how many categories the dashboard ranks by frequency.
const TopCategoryCount = 3

type CategorySlice struct {
	Name   string
	Amount core.Money
	Colour string
}

// DashboardView is what the dashboard renders for one period.
type DashboardView struct {
	Period        string
	PeriodStart   time.Time
	MonthlyIncome core.Money
	FixedTotal    core.Money
	TotalExpenses core.Money
	TotalIncome   core.Money
	NetBalance    core.Money
	Categories    []CategorySlice
	TopCategories []core.CategoryCount
	Goals         []core.GoalProgress
}

// filterPeriod keeps the transactions that fall inside p.
func filterPeriod(txns []core.Transaction, p core.Period) []core.Transaction {
	out := make([]core.Transaction, 0, len(txns))
	for _, t := range txns {
		if p.Contains(t.EffectiveTime()) {
			out = append(out, t)
		}
	}
	return out
}

func summarize(txns []core.Transaction, fixed []core.FixedExpense, p core.UserProfile, period core.Period) core.Summary {
	return core.Aggregate(core.AggregateInput{
		Transactions:  filterPeriod(txns, period),
		FixedExpenses: fixed,
		MonthlyIncome: p.MonthlyIncome,
		Since:         period.Start,
	})
}

func topCategories(txns []core.Transaction, period core.Period) []core.CategoryCount {
	return core.TopCategoriesByFrequency(filterPeriod(txns, period), period.Start, TopCategoryCount)
}

func composeView(period core.Period, sum core.Summary, colours core.ColourResolver, top []core.CategoryCount, goals []core.GoalProgress) DashboardView {
	slices := make([]CategorySlice, len(sum.CategorySums))
	for i, c := range sum.CategorySums {
		slices[i] = CategorySlice{Name: c.Name, Amount: c.Amount, Colour: colours.ColourFor(c.Name).Hex()}
	}
	return DashboardView{
		Period:        period.Label,
		PeriodStart:   period.Start,
		MonthlyIncome: sum.MonthlyIncome,
		FixedTotal:    sum.FixedTotal,
		TotalExpenses: sum.TotalExpenses,
		TotalIncome:   sum.TotalIncome,
		NetBalance:    sum.NetBalance,
		Categories:    slices,
		TopCategories: top,
		Goals:         goals,
	}
}

// BuildDashboard computes the dashboard for one snapshot.
func BuildDashboard(snap Snapshot, period core.Period) DashboardView {
	txns := core.BucketUnknownCategories(snap.Transactions, snap.Categories)
	sum := summarize(txns, snap.FixedExpenses, snap.Profile, period)
	return composeView(period, sum,
		core.NewColourResolver(snap.Categories),
		topCategories(txns, period),
		core.EvaluateGoals(snap.Goals, sum.NetBalance))
}

type dashboardCache = cache.Cache[DashboardView]

// WithDashboardCache enables caching of one-shot dashboards. Entries of a
// user are dropped on every write made through this service and by
// InvalidateUser.
func (s *BudgetService) WithDashboardCache(c cache.Cache[DashboardView]) *BudgetService {
	s.cache = c
	return s
}

func dashboardKey(userID, label string) string {
	return userID + "|" + strings.ToLower(label)
}

// InvalidateUser drops cached dashboards of one user.
func (s *BudgetService) InvalidateUser(userID string) {
	s.invalidate(userID)
}

func (s *BudgetService) invalidate(userID string) {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	s.cacheGen[userID]++
	n := s.cache.DeletePrefix(userID + "|")
	s.cacheMu.Unlock()
	if n > 0 {
		s.logger.Debug("Dashboard cache invalidated", log.FieldUserID, userID, "entries", n)
	}
}

func (s *BudgetService) generation(userID string) uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.cacheGen[userID]
}

// storeIfCurrent caches view unless the user was invalidated since gen was
// read, in which case the view may predate a completed write.
func (s *BudgetService) storeIfCurrent(userID, key string, gen uint64, view DashboardView) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheGen[userID] != gen {
		return
	}
	s.cache.Set(key, view)
}

// Dashboard returns a one-shot dashboard for the period label. An empty
// user gets an empty dashboard.
func (s *BudgetService) Dashboard(ctx context.Context, userID, label string) (DashboardView, error) {
	period, err := core.ResolvePeriod(label, s.Now())
	if err != nil {
		return DashboardView{}, err
	}
	if userID == "" {
		return BuildDashboard(Snapshot{}, period), nil
	}
	key := dashboardKey(userID, period.Label)
	var gen uint64
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v, nil
		}
		gen = s.generation(userID)
	}
	snap, err := s.LoadSnapshot(ctx, userID, time.Time{})
	if err != nil {
		return DashboardView{}, err
	}
	view := BuildDashboard(snap, period)
	if s.cache != nil {
		s.storeIfCurrent(userID, key, gen, view)
	}
	return view, nil
}
