package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"budgethero/internal/core"
	"budgethero/internal/store"
)

func TestTransactionsAreScopedPerUser(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, err := s.AddTransaction(ctx, "alice", core.Transaction{Name: "Rent", Total: core.Money{Cents: -500}, Category: "Home"})
	if err != nil || id == "" {
		t.Fatalf("add: id=%q err=%v", id, err)
	}
	got, _ := s.ListTransactions(ctx, "bob", time.Time{})
	if len(got) != 0 {
		t.Fatalf("bob sees alice's data: %+v", got)
	}
	if _, err := s.GetTransaction(ctx, "bob", id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	tx, err := s.GetTransaction(ctx, "alice", id)
	if err != nil || tx.ID != id || tx.Name != "Rent" {
		t.Fatalf("get: %+v %v", tx, err)
	}
}

func TestListTransactionsSince(t *testing.T) {
	ctx := context.Background()
	s := New()
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	_, _ = s.AddTransaction(ctx, "u", core.Transaction{Name: "a", Timestamp: jan, Category: "c"})
	_, _ = s.AddTransaction(ctx, "u", core.Transaction{Name: "b", Timestamp: mar, Category: "c"})
	_, _ = s.AddTransaction(ctx, "u", core.Transaction{Name: "undated", Category: "c"})

	all, _ := s.ListTransactions(ctx, "u", time.Time{})
	if len(all) != 3 {
		t.Fatalf("want 3, got %d", len(all))
	}
	recent, _ := s.ListTransactions(ctx, "u", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if len(recent) != 1 || recent[0].Name != "b" {
		t.Fatalf("unexpected since result: %+v", recent)
	}
}

func TestReplaceAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, _ := s.AddTransaction(ctx, "u", core.Transaction{Name: "old", Category: "c"})
	if err := s.ReplaceTransaction(ctx, "u", core.Transaction{ID: id, Name: "new", Category: "c"}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	tx, _ := s.GetTransaction(ctx, "u", id)
	if tx.Name != "new" {
		t.Fatalf("replace not applied: %+v", tx)
	}
	if err := s.ReplaceTransaction(ctx, "u", core.Transaction{ID: "missing"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteTransaction(ctx, "u", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTransaction(ctx, "u", id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestCollectionsPreserveInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, n := range []string{"Rent", "Gym", "Phone"} {
		if _, err := s.AddFixedExpense(ctx, "u", core.FixedExpense{Name: n}); err != nil {
			t.Fatal(err)
		}
	}
	fixed, _ := s.ListFixedExpenses(ctx, "u")
	if len(fixed) != 3 || fixed[0].Name != "Rent" || fixed[2].Name != "Phone" {
		t.Fatalf("unexpected order: %+v", fixed)
	}
	if err := s.DeleteFixedExpense(ctx, "u", fixed[1].ID); err != nil {
		t.Fatal(err)
	}
	fixed2, _ := s.ListFixedExpenses(ctx, "u")
	if len(fixed2) != 2 || fixed2[1].Name != "Phone" {
		t.Fatalf("unexpected after delete: %+v", fixed2)
	}
	// The earlier snapshot must not be affected by the delete.
	if fixed[1].Name != "Gym" {
		t.Fatalf("snapshot mutated: %+v", fixed)
	}
}

func TestProfileAndUsers(t *testing.T) {
	ctx := context.Background()
	s := New()
	p, err := s.GetProfile(ctx, "new")
	if err != nil || p.MonthlyIncome.Cents != 0 {
		t.Fatalf("zero profile expected: %+v %v", p, err)
	}
	if err := s.SetMonthlyIncome(ctx, "b", core.Money{Cents: 100}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetProfile(ctx, "a", core.UserProfile{MonthlyIncome: core.Money{Cents: 5}}); err != nil {
		t.Fatal(err)
	}
	users, _ := s.ListUsers(ctx)
	if len(users) != 2 || users[0] != "a" || users[1] != "b" {
		t.Fatalf("unexpected users: %v", users)
	}
	p, _ = s.GetProfile(ctx, "b")
	if p.MonthlyIncome.Cents != 100 {
		t.Fatalf("income not stored: %+v", p)
	}
}
