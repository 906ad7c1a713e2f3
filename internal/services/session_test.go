package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"budgethero/internal/core"
	"budgethero/internal/live"
)

func waitForView(t *testing.T, d *DashboardSession, cond func(DashboardView) bool) DashboardView {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		v := d.View()
		if cond(v) {
			return v
		}
		if time.Now().After(deadline) {
			t.Fatalf("view never reached expected state, last %+v", v)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newLiveService(t *testing.T) (*BudgetService, *live.Hub) {
	t.Helper()
	hub := live.NewHub()
	t.Cleanup(hub.Close)
	return newTestService(t, Options{Notifier: hub, Feed: hub}), hub
}

func TestOpenDashboardRequiresUser(t *testing.T) {
	svc, _ := newLiveService(t)
	if _, err := svc.OpenDashboard(context.Background(), "", "Today"); !errors.Is(err, ErrNoUser) {
		t.Errorf("expected ErrNoUser, got %v", err)
	}
	if _, err := svc.OpenDashboard(context.Background(), "u1", "Someday"); !errors.Is(err, core.ErrUnknownPeriod) {
		t.Errorf("expected ErrUnknownPeriod, got %v", err)
	}
}

func TestDashboardSessionInitialView(t *testing.T) {
	svc, _ := newLiveService(t)
	ctx := context.Background()

	if _, err := svc.SetMonthlyIncome(ctx, "u1", "1000"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddFixedExpense(ctx, "u1", FixedExpenseInput{Name: "Rent", Amount: "400"}); err != nil {
		t.Fatal(err)
	}

	d, err := svc.OpenDashboard(ctx, "u1", "")
	if err != nil {
		t.Fatalf("OpenDashboard: %v", err)
	}
	defer d.Close()

	v := d.View()
	if v.Period != "This month" {
		t.Errorf("period = %q", v.Period)
	}
	if v.NetBalance.Cents != 60000 || v.FixedTotal.Cents != 40000 {
		t.Errorf("unexpected view %+v", v)
	}
}

func TestDashboardSessionFollowsWrites(t *testing.T) {
	svc, _ := newLiveService(t)
	ctx := context.Background()

	d, err := svc.OpenDashboard(ctx, "u1", "This month")
	if err != nil {
		t.Fatalf("OpenDashboard: %v", err)
	}
	defer d.Close()

	if _, err := svc.AddGoal(ctx, "u1", "Buffer", "0", "100"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddCategory(ctx, "u1", "Food", "#ABCDEF"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddTransaction(ctx, "u1", TransactionInput{Name: "Lunch", Total: "-12", Category: "Food"}); err != nil {
		t.Fatal(err)
	}

	v := waitForView(t, d, func(v DashboardView) bool {
		return v.TotalExpenses.Cents == 1200 && len(v.Goals) == 1 &&
			len(v.Categories) == 1 && v.Categories[0].Colour == "#ABCDEF"
	})
	if v.NetBalance.Cents != -1200 {
		t.Errorf("net = %d", v.NetBalance.Cents)
	}
	if v.Goals[0].Status != core.GoalBelow {
		t.Errorf("goal status = %s", v.Goals[0].Status)
	}
}

func TestDashboardSessionMovesDeletedCategoryToOther(t *testing.T) {
	svc, _ := newLiveService(t)
	ctx := context.Background()

	food, err := svc.AddCategory(ctx, "u1", "Food", "#ABCDEF")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddTransaction(ctx, "u1", TransactionInput{Name: "Lunch", Total: "-12", Category: "Food"}); err != nil {
		t.Fatal(err)
	}
	d, err := svc.OpenDashboard(ctx, "u1", "All time")
	if err != nil {
		t.Fatalf("OpenDashboard: %v", err)
	}
	defer d.Close()

	if v := d.View(); len(v.Categories) != 1 || v.Categories[0].Name != "Food" {
		t.Fatalf("initial categories = %+v", v.Categories)
	}

	if err := svc.DeleteCategory(ctx, "u1", food.ID); err != nil {
		t.Fatal(err)
	}
	v := waitForView(t, d, func(v DashboardView) bool {
		return len(v.Categories) == 1 && v.Categories[0].Name == core.OtherCategory
	})
	if v.Categories[0].Amount.Cents != 1200 {
		t.Errorf("other amount = %d, want 1200", v.Categories[0].Amount.Cents)
	}
	if len(v.TopCategories) != 1 || v.TopCategories[0].Name != core.OtherCategory {
		t.Errorf("top categories = %+v", v.TopCategories)
	}
}

func TestDashboardSessionIgnoresOtherUsers(t *testing.T) {
	svc, _ := newLiveService(t)
	ctx := context.Background()

	d, err := svc.OpenDashboard(ctx, "u1", "All time")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	if _, err := svc.AddTransaction(ctx, "u2", TransactionInput{Name: "Other", Total: "-5", Category: "Misc"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddTransaction(ctx, "u1", TransactionInput{Name: "Mine", Total: "-7", Category: "Misc"}); err != nil {
		t.Fatal(err)
	}
	v := waitForView(t, d, func(v DashboardView) bool { return v.TotalExpenses.Cents != 0 })
	if v.TotalExpenses.Cents != 700 {
		t.Errorf("expenses = %d, want 700", v.TotalExpenses.Cents)
	}
}

func TestDashboardSessionSetPeriod(t *testing.T) {
	svc, _ := newLiveService(t)
	ctx := context.Background()

	old := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.AddTransaction(ctx, "u1", TransactionInput{Name: "Old", Total: "-50", Category: "Misc", Timestamp: old}); err != nil {
		t.Fatal(err)
	}

	d, err := svc.OpenDashboard(ctx, "u1", "This year")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	if d.View().TotalExpenses.Cents != 0 {
		t.Errorf("last year's expense counted in this year: %+v", d.View())
	}

	if err := d.SetPeriod("all TIME"); err != nil {
		t.Fatalf("SetPeriod: %v", err)
	}
	v := d.View()
	if v.Period != "All time" || v.TotalExpenses.Cents != 5000 {
		t.Errorf("after SetPeriod: %+v", v)
	}
	if err := d.SetPeriod("Never"); !errors.Is(err, core.ErrUnknownPeriod) {
		t.Errorf("expected ErrUnknownPeriod, got %v", err)
	}
}

func TestDashboardSessionWatchAndClose(t *testing.T) {
	svc, _ := newLiveService(t)
	ctx := context.Background()

	d, err := svc.OpenDashboard(ctx, "u1", "Today")
	if err != nil {
		t.Fatal(err)
	}

	views := make(chan DashboardView, 16)
	stop := d.Watch(func(v DashboardView) {
		select {
		case views <- v:
		default:
		}
	})
	defer stop()

	if _, err := svc.SetMonthlyIncome(ctx, "u1", "10"); err != nil {
		t.Fatal(err)
	}
	select {
	case v := <-views:
		if v.Period != "Today" {
			t.Errorf("period = %q", v.Period)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no view after write")
	}

	d.Close()
	d.Close()
	for len(views) > 0 {
		<-views
	}
	if _, err := svc.SetMonthlyIncome(ctx, "u1", "20"); err != nil {
		t.Fatal(err)
	}
	select {
	case v := <-views:
		if v.MonthlyIncome.Cents == 2000 {
			t.Error("closed session still receives updates")
		}
	case <-time.After(50 * time.Millisecond):
	}
}
