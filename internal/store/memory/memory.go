// Package memory is an in-process Store used for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgethero/internal/core"
	"budgethero/internal/store"
)

type userData struct {
	profile *core.UserProfile
	txns    []core.Transaction
	cats    []core.Category
	goals   []core.Goal
	fixed   []core.FixedExpense
}

type Store struct {
	mu    sync.Mutex
	users map[string]*userData
	newID func() string
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{users: map[string]*userData{}, newID: uuid.NewString}
}

// user returns the bucket for id, creating it on first use. Callers hold mu.
func (s *Store) user(id string) *userData {
	u, ok := s.users[id]
	if !ok {
		u = &userData{}
		s.users[id] = u
	}
	return u
}

func (s *Store) AddTransaction(_ context.Context, userID string, t core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.newID()
	u := s.user(userID)
	u.txns = append(u.txns, t)
	return t.ID, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.user(userID).txns {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, store.ErrNotFound
}

func (s *Store) ListTransactions(_ context.Context, userID string, since time.Time) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.user(userID).txns))
	for _, t := range s.user(userID).txns {
		if !since.IsZero() && t.EffectiveTime().Before(since) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) ReplaceTransaction(_ context.Context, userID string, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	for i := range u.txns {
		if u.txns[i].ID == t.ID {
			u.txns[i] = t
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	var ok bool
	u.txns, ok = remove(u.txns, func(t core.Transaction) bool { return t.ID == id })
	if !ok {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AddCategory(_ context.Context, userID string, c core.Category) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.newID()
	u := s.user(userID)
	u.cats = append(u.cats, c)
	return c.ID, nil
}

func (s *Store) ListCategories(_ context.Context, userID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category(nil), s.user(userID).cats...), nil
}

func (s *Store) DeleteCategory(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	var ok bool
	u.cats, ok = remove(u.cats, func(c core.Category) bool { return c.ID == id })
	if !ok {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AddGoal(_ context.Context, userID string, g core.Goal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.newID()
	u := s.user(userID)
	u.goals = append(u.goals, g)
	return g.ID, nil
}

func (s *Store) ListGoals(_ context.Context, userID string) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Goal(nil), s.user(userID).goals...), nil
}

func (s *Store) DeleteGoal(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	var ok bool
	u.goals, ok = remove(u.goals, func(g core.Goal) bool { return g.ID == id })
	if !ok {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AddFixedExpense(_ context.Context, userID string, f core.FixedExpense) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.ID = s.newID()
	u := s.user(userID)
	u.fixed = append(u.fixed, f)
	return f.ID, nil
}

func (s *Store) ListFixedExpenses(_ context.Context, userID string) ([]core.FixedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.FixedExpense(nil), s.user(userID).fixed...), nil
}

func (s *Store) DeleteFixedExpense(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	var ok bool
	u.fixed, ok = remove(u.fixed, func(f core.FixedExpense) bool { return f.ID == id })
	if !ok {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (core.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.user(userID).profile
	if p == nil {
		return core.UserProfile{}, nil
	}
	out := *p
	out.FixedExpenses = append([]core.FixedExpense(nil), p.FixedExpenses...)
	return out, nil
}

func (s *Store) SetProfile(_ context.Context, userID string, p core.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.FixedExpenses = append([]core.FixedExpense(nil), p.FixedExpenses...)
	s.user(userID).profile = &p
	return nil
}

func (s *Store) SetMonthlyIncome(_ context.Context, userID string, income core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	if u.profile == nil {
		u.profile = &core.UserProfile{}
	}
	u.profile.MonthlyIncome = income
	return nil
}

// ListUsers returns every user that has a profile, sorted.
func (s *Store) ListUsers(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.users))
	for id, u := range s.users {
		if u.profile != nil {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func remove[T any](in []T, match func(T) bool) ([]T, bool) {
	for i, v := range in {
		if match(v) {
			return append(in[:i:i], in[i+1:]...), true
		}
	}
	return in, false
}
