package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"budgethero/internal/amqp"
	"budgethero/internal/core"
	"budgethero/internal/log"
	"budgethero/internal/services"
	"budgethero/internal/store"
	"budgethero/internal/store/memory"
)

type fakeMirror struct {
	mu       sync.Mutex
	rows     map[string][]core.LedgerRow
	writes   map[string]int
	writeErr error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{rows: map[string][]core.LedgerRow{}, writes: map[string]int{}}
}

func (m *fakeMirror) WriteLedger(_ context.Context, userID string, rows []core.LedgerRow) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return "", m.writeErr
	}
	m.rows[userID] = append([]core.LedgerRow(nil), rows...)
	m.writes[userID]++
	return "'Ledger " + userID + "'!A1", nil
}

func (m *fakeMirror) ReadLedger(_ context.Context, userID string) ([]core.LedgerRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.LedgerRow(nil), m.rows[userID]...), nil
}

func (m *fakeMirror) Writes(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[userID]
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelError, Output: io.Discard, Component: log.ComponentWorker})
}

func newTestWorker(t *testing.T) (*SyncWorker, *services.BudgetService, *fakeMirror) {
	t.Helper()
	st := memory.New()
	svc := services.NewBudgetService(services.Options{
		Store:    st,
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC) },
		Logger:   quietLogger(),
		Currency: "R",
	})
	mirror := newFakeMirror()
	return NewSyncWorker(svc, st, mirror, quietLogger(), 2), svc, mirror
}

func TestSyncUserWritesAllTimeLedger(t *testing.T) {
	w, svc, mirror := newTestWorker(t)
	ctx := context.Background()

	if _, err := svc.Onboard(ctx, "u1", services.OnboardingInput{
		MonthlyIncome: "1000",
		FixedExpenses: []services.FixedExpenseInput{{Name: "Rent", Amount: "500"}},
	}); err != nil {
		t.Fatal(err)
	}
	old := time.Date(2020, time.January, 1, 9, 0, 0, 0, time.UTC)
	if _, err := svc.AddTransaction(ctx, "u1", services.TransactionInput{Name: "Old", Total: "-5", Category: "Misc", Timestamp: old}); err != nil {
		t.Fatal(err)
	}

	written, err := w.SyncUser(ctx, "u1")
	if err != nil {
		t.Fatalf("SyncUser: %v", err)
	}
	if !written {
		t.Error("expected a write for a new mirror")
	}
	rows, _ := mirror.ReadLedger(ctx, "u1")
	if len(rows) != 3 || rows[0] != core.LedgerHeader || rows[1].Name != "Rent" || rows[2].Date != "2020-01-01 09:00" {
		t.Errorf("mirrored rows = %+v", rows)
	}

	written, err = w.SyncUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if written || mirror.Writes("u1") != 1 {
		t.Errorf("unchanged ledger rewritten (written=%v, writes=%d)", written, mirror.Writes("u1"))
	}
}

func TestHandleChangeMessage(t *testing.T) {
	w, svc, mirror := newTestWorker(t)
	ctx := context.Background()

	if _, err := svc.AddTransaction(ctx, "u1", services.TransactionInput{Name: "Lunch", Total: "-9", Category: "Food"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		collection store.Collection
		wantWrites int
	}{
		{store.Categories, 0},
		{store.Goals, 0},
		{store.Profile, 0},
		{store.Transactions, 1},
		{store.FixedExpenses, 1}, // rows unchanged since the last write
	}
	for _, tt := range tests {
		msg := amqp.NewChangeMessage("u1", tt.collection, "api-1")
		if err := w.HandleChangeMessage(ctx, msg); err != nil {
			t.Fatalf("%s: %v", tt.collection, err)
		}
		if got := mirror.Writes("u1"); got != tt.wantWrites {
			t.Errorf("after %s change: writes = %d, want %d", tt.collection, got, tt.wantWrites)
		}
	}
}

func TestHandleChangeMessageReturnsWriteError(t *testing.T) {
	w, svc, mirror := newTestWorker(t)
	ctx := context.Background()
	if _, err := svc.AddTransaction(ctx, "u1", services.TransactionInput{Name: "Lunch", Total: "-9", Category: "Food"}); err != nil {
		t.Fatal(err)
	}
	mirror.writeErr = errors.New("quota exceeded")

	err := w.HandleChangeMessage(ctx, amqp.NewChangeMessage("u1", store.Transactions, ""))
	if err == nil || !errors.Is(err, mirror.writeErr) {
		t.Errorf("expected wrapped write error, got %v", err)
	}
}

func TestSyncAll(t *testing.T) {
	w, svc, mirror := newTestWorker(t)
	ctx := context.Background()

	for _, u := range []string{"alice", "bob", "carol"} {
		if _, err := svc.SetMonthlyIncome(ctx, u, "100"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.AddTransaction(ctx, "bob", services.TransactionInput{Name: "Book", Total: "-20", Category: "Fun"}); err != nil {
		t.Fatal(err)
	}

	res, err := w.SyncAll(ctx)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if res.Written != 3 || res.Unchanged != 0 || len(res.Failed) != 0 {
		t.Errorf("first pass = %+v", res)
	}

	res, err = w.SyncAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Written != 0 || res.Unchanged != 3 {
		t.Errorf("second pass = %+v", res)
	}
	if rows, _ := mirror.ReadLedger(ctx, "bob"); len(rows) != 2 {
		t.Errorf("bob rows = %+v", rows)
	}
}

func TestSyncUsersCollectsFailures(t *testing.T) {
	w, svc, mirror := newTestWorker(t)
	ctx := context.Background()
	if _, err := svc.AddTransaction(ctx, "u1", services.TransactionInput{Name: "x", Total: "1", Category: "c"}); err != nil {
		t.Fatal(err)
	}
	mirror.writeErr = errors.New("boom")

	res := w.SyncUsers(ctx, []string{"u1", "u2"})
	if len(res.Failed) != 2 {
		t.Errorf("failed = %v", res.Failed)
	}
}
