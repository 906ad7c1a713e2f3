package live

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"budgethero/internal/store"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSubscribeReceivesOnlyMatchingChanges(t *testing.T) {
	h := NewHub()
	defer h.Close()

	var got atomic.Int32
	cancel := h.Subscribe("alice", store.Transactions, func(c Change) {
		if c.UserID != "alice" || c.Collection != store.Transactions {
			t.Errorf("unexpected change %+v", c)
		}
		got.Add(1)
	})
	defer cancel()

	ctx := context.Background()
	_ = h.Notify(ctx, "bob", store.Transactions)
	_ = h.Notify(ctx, "alice", store.Goals)
	_ = h.Notify(ctx, "alice", store.Transactions)

	waitFor(t, func() bool { return got.Load() == 1 })
	time.Sleep(20 * time.Millisecond)
	if n := got.Load(); n != 1 {
		t.Fatalf("want 1 delivery, got %d", n)
	}
}

func TestSlowSubscriberIsCoalesced(t *testing.T) {
	h := NewHub()
	defer h.Close()

	release := make(chan struct{})
	var calls atomic.Int32
	cancel := h.Subscribe("u", store.Goals, func(Change) {
		calls.Add(1)
		<-release
	})
	defer cancel()

	ctx := context.Background()
	_ = h.Notify(ctx, "u", store.Goals)
	waitFor(t, func() bool { return calls.Load() == 1 })

	// The first delivery is blocked; these must not block Notify and collapse
	// into a single pending delivery.
	for i := 0; i < 10; i++ {
		_ = h.Notify(ctx, "u", store.Goals)
	}
	close(release)
	waitFor(t, func() bool { return calls.Load() == 2 })
	time.Sleep(20 * time.Millisecond)
	if n := calls.Load(); n != 2 {
		t.Fatalf("want 2 calls, got %d", n)
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	h := NewHub()
	defer h.Close()

	var calls atomic.Int32
	cancel := h.Subscribe("u", store.Categories, func(Change) { calls.Add(1) })
	cancel()
	cancel()
	_ = h.Notify(context.Background(), "u", store.Categories)
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatal("cancelled subscriber was called")
	}
}

func TestSubscribeAllSeesEveryUser(t *testing.T) {
	h := NewHub()
	defer h.Close()

	var mu sync.Mutex
	var seen []Change
	cancel := h.SubscribeAll(func(c Change) {
		mu.Lock()
		seen = append(seen, c)
		mu.Unlock()
	})
	defer cancel()

	ctx := context.Background()
	_ = h.Notify(ctx, "a", store.Profile)
	_ = h.Notify(ctx, "b", store.FixedExpenses)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0].UserID != "a" || seen[1].Collection != store.FixedExpenses {
		t.Fatalf("unexpected: %+v", seen)
	}
}

func TestNotifyHonoursCancelledContext(t *testing.T) {
	h := NewHub()
	defer h.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.Notify(ctx, "u", store.Goals); err == nil {
		t.Fatal("expected context error")
	}
}

func TestClosedHubIgnoresSubscriptions(t *testing.T) {
	h := NewHub()
	h.Close()
	h.Close()
	cancel := h.Subscribe("u", store.Goals, func(Change) { t.Error("called after close") })
	cancel()
	_ = h.Notify(context.Background(), "u", store.Goals)
}

type errNotifier struct{ err error }

func (e errNotifier) Notify(context.Context, string, store.Collection) error { return e.err }

func TestMultiNotifierReturnsFirstError(t *testing.T) {
	h := NewHub()
	defer h.Close()
	var calls atomic.Int32
	cancel := h.SubscribeAll(func(Change) { calls.Add(1) })
	defer cancel()

	boom := context.DeadlineExceeded
	m := MultiNotifier{errNotifier{err: boom}, nil, h}
	if err := m.Notify(context.Background(), "u", store.Goals); err != boom {
		t.Fatalf("want %v, got %v", boom, err)
	}
	if calls.Load() != 1 {
		t.Fatal("later notifiers must still run")
	}
}
