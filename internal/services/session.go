package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"budgethero/internal/core"
	"budgethero/internal/live"
	"budgethero/internal/log"
	"budgethero/internal/reactive"
	"budgethero/internal/store"
)

// DashboardSession keeps a dashboard view current for one user. Every
// collection is a graph source refreshed from the store whenever the change
// feed reports a write; derived nodes recompute only what depends on it.
type DashboardSession struct {
	svc    *BudgetService
	userID string
	ctx    context.Context
	cancel context.CancelFunc

	graph   *reactive.Graph
	txns    *reactive.Source[[]core.Transaction]
	fixed   *reactive.Source[[]core.FixedExpense]
	profile *reactive.Source[core.UserProfile]
	cats    *reactive.Source[[]core.Category]
	goals   *reactive.Source[[]core.Goal]
	period  *reactive.Source[string]

	bucketed *reactive.Derived[[]core.Transaction]
	summary  *reactive.Derived[core.Summary]
	colours  *reactive.Derived[core.ColourResolver]
	top      *reactive.Derived[[]core.CategoryCount]
	progress *reactive.Derived[[]core.GoalProgress]
	view     *reactive.Derived[DashboardView]

	// one lock per collection so a refresh reads and sets atomically with
	// respect to other refreshes of the same collection
	refreshMu map[store.Collection]*sync.Mutex
	unsubs    []func()
	closeOnce sync.Once
}

// OpenDashboard starts a live dashboard for the period label. The returned
// session holds a complete view; call Close to release its subscriptions.
func (s *BudgetService) OpenDashboard(ctx context.Context, userID, label string) (*DashboardSession, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	period, err := core.ResolvePeriod(label, s.Now())
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d := &DashboardSession{
		svc:       s,
		userID:    userID,
		ctx:       sctx,
		cancel:    cancel,
		refreshMu: map[store.Collection]*sync.Mutex{},
	}
	for _, c := range store.Collections() {
		d.refreshMu[c] = &sync.Mutex{}
	}
	d.build()
	d.period.Set(period.Label)

	// Subscribe before the first read so no write falls between them.
	if s.feed != nil {
		for _, c := range store.Collections() {
			c := c
			d.unsubs = append(d.unsubs, s.feed.Subscribe(userID, c, func(live.Change) {
				if err := d.refresh(c); err != nil && d.ctx.Err() == nil {
					s.logger.WarnContext(d.ctx, "Dashboard refresh failed",
						log.FieldUserID, userID, log.FieldCollection, c, log.FieldError, err)
				}
			}))
		}
	}

	g, _ := errgroup.WithContext(ctx)
	for _, c := range store.Collections() {
		c := c
		g.Go(func() error { return d.refresh(c) })
	}
	if err := g.Wait(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *DashboardSession) build() {
	g := reactive.New()
	d.graph = g
	d.txns = reactive.NewSource[[]core.Transaction](g)
	d.fixed = reactive.NewSource[[]core.FixedExpense](g)
	d.profile = reactive.NewSource[core.UserProfile](g)
	d.cats = reactive.NewSource[[]core.Category](g)
	d.goals = reactive.NewSource[[]core.Goal](g)
	d.period = reactive.NewSource[string](g)

	// transactions with their category checked against the current list
	d.bucketed = reactive.NewDerived(g, func() []core.Transaction {
		return core.BucketUnknownCategories(d.txns.Get(), d.cats.Get())
	}, d.txns, d.cats)
	d.summary = reactive.NewDerived(g, func() core.Summary {
		return summarize(d.bucketed.Get(), d.fixed.Get(), d.profile.Get(), d.resolve())
	}, d.bucketed, d.fixed, d.profile, d.period)
	d.colours = reactive.NewDerived(g, func() core.ColourResolver {
		return core.NewColourResolver(d.cats.Get())
	}, d.cats)
	d.top = reactive.NewDerived(g, func() []core.CategoryCount {
		return topCategories(d.bucketed.Get(), d.resolve())
	}, d.bucketed, d.period)
	d.progress = reactive.NewDerived(g, func() []core.GoalProgress {
		return core.EvaluateGoals(d.goals.Get(), d.summary.Get().NetBalance)
	}, d.goals, d.summary)
	d.view = reactive.NewDerived(g, func() DashboardView {
		return composeView(d.resolve(), d.summary.Get(), d.colours.Get(), d.top.Get(), d.progress.Get())
	}, d.summary, d.colours, d.top, d.progress)
}

// resolve re-evaluates the period label against the current time so a
// long-lived "Today" session moves on at midnight with the next recompute.
func (d *DashboardSession) resolve() core.Period {
	p, err := core.ResolvePeriod(d.period.Get(), d.svc.Now())
	if err != nil {
		return core.AllTime(d.svc.Now())
	}
	return p
}

// refresh re-reads one collection in full and replaces its source.
func (d *DashboardSession) refresh(c store.Collection) error {
	mu := d.refreshMu[c]
	mu.Lock()
	defer mu.Unlock()

	ctx, st, uid := d.ctx, d.svc.store, d.userID
	switch c {
	case store.Transactions:
		v, err := st.ListTransactions(ctx, uid, time.Time{})
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		d.txns.Set(v)
	case store.FixedExpenses:
		v, err := st.ListFixedExpenses(ctx, uid)
		if err != nil {
			return fmt.Errorf("list fixed expenses: %w", err)
		}
		d.fixed.Set(v)
	case store.Profile:
		v, err := st.GetProfile(ctx, uid)
		if err != nil {
			return fmt.Errorf("get profile: %w", err)
		}
		d.profile.Set(v)
	case store.Categories:
		v, err := st.ListCategories(ctx, uid)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		d.cats.Set(v)
	case store.Goals:
		v, err := st.ListGoals(ctx, uid)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		d.goals.Set(v)
	}
	return nil
}

// SetPeriod switches the session to another period label.
func (d *DashboardSession) SetPeriod(label string) error {
	p, err := core.ResolvePeriod(label, d.svc.Now())
	if err != nil {
		return err
	}
	d.period.Set(p.Label)
	return nil
}

// View returns the latest view.
func (d *DashboardSession) View() DashboardView {
	return d.view.Get()
}

// Watch calls fn after every recompute of the view. fn runs while the
// session's graph is locked and must not block.
func (d *DashboardSession) Watch(fn func(DashboardView)) (cancel func()) {
	return d.view.Watch(fn)
}

// Close cancels every subscription. It is safe to call more than once.
func (d *DashboardSession) Close() {
	d.closeOnce.Do(func() {
		for _, u := range d.unsubs {
			u()
		}
		d.cancel()
	})
}
