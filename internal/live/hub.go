// Package live fans store changes out to in-process subscribers, standing in
// for the document store's snapshot listeners.
package live

import (
	"context"
	"sync"

	"budgethero/internal/store"
)

// Change identifies a collection of one user that was modified.
type Change struct {
	UserID     string
	Collection store.Collection
}

// Hub delivers change notifications. Each subscription owns a goroutine and a
// one-slot buffer, so a slow subscriber sees coalesced notifications instead of
// blocking Notify.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[store.Collection]map[int]*subscriber
	all    map[int]func(Change)
	nextID int
	closed bool
}

type subscriber struct {
	ch   chan Change
	done chan struct{}
	once sync.Once
}

func NewHub() *Hub {
	return &Hub{
		subs: map[string]map[store.Collection]map[int]*subscriber{},
		all:  map[int]func(Change){},
	}
}

func newSubscriber(fn func(Change)) *subscriber {
	s := &subscriber{ch: make(chan Change, 1), done: make(chan struct{})}
	go func() {
		for {
			select {
			case c := <-s.ch:
				fn(c)
			case <-s.done:
				return
			}
		}
	}()
	return s
}

func (s *subscriber) offer(c Change) {
	select {
	case s.ch <- c:
	default:
		// already pending; the subscriber re-reads the whole collection anyway
	}
}

func (s *subscriber) stop() { s.once.Do(func() { close(s.done) }) }

// Subscribe registers fn for changes to one user's collection. The returned
// function cancels the subscription and is safe to call more than once.
func (h *Hub) Subscribe(userID string, c store.Collection, fn func(Change)) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return func() {}
	}
	s := newSubscriber(fn)
	id := h.nextID
	h.nextID++
	byCol, ok := h.subs[userID]
	if !ok {
		byCol = map[store.Collection]map[int]*subscriber{}
		h.subs[userID] = byCol
	}
	if byCol[c] == nil {
		byCol[c] = map[int]*subscriber{}
	}
	byCol[c][id] = s
	return func() {
		h.mu.Lock()
		if m := h.subs[userID][c]; m != nil {
			delete(m, id)
			if len(m) == 0 {
				delete(h.subs[userID], c)
			}
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
		}
		h.mu.Unlock()
		s.stop()
	}
}

// SubscribeAll registers fn for every change of every user. fn runs
// synchronously inside Notify and must not block.
func (h *Hub) SubscribeAll(fn func(Change)) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return func() {}
	}
	id := h.nextID
	h.nextID++
	h.all[id] = fn
	return func() {
		h.mu.Lock()
		delete(h.all, id)
		h.mu.Unlock()
	}
}

// Notify reports that a user's collection changed. It never blocks on
// subscribers. ctx is accepted so Hub satisfies Notifier alongside
// transports that do block.
func (h *Hub) Notify(ctx context.Context, userID string, c store.Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.Deliver(Change{UserID: userID, Collection: c})
	return nil
}

// Deliver dispatches a change to local subscribers only.
func (h *Hub) Deliver(ch Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for _, fn := range h.all {
		fn(ch)
	}
	for _, s := range h.subs[ch.UserID][ch.Collection] {
		s.offer(ch)
	}
}

// Close stops every subscriber goroutine. Later subscriptions are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, byCol := range h.subs {
		for _, m := range byCol {
			for _, s := range m {
				s.stop()
			}
		}
	}
	h.subs = nil
	h.all = nil
}

// Notifier is implemented by anything that can broadcast a change: the hub
// itself, or a transport that forwards changes to other processes.
type Notifier interface {
	Notify(ctx context.Context, userID string, c store.Collection) error
}

// MultiNotifier notifies each target in order and returns the first error.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, userID string, c store.Collection) error {
	var first error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, userID, c); err != nil && first == nil {
			first = err
		}
	}
	return first
}
