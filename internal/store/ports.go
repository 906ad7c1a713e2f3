// Package store defines the per-user document store the services depend on.
package store

import (
	"context"
	"errors"
	"time"

	"budgethero/internal/core"
)

// Collection names a per-user sub-collection.
type Collection string

const (
	Transactions  Collection = "transactions"
	Categories    Collection = "categories"
	Goals         Collection = "goals"
	FixedExpenses Collection = "fixed_expenses"
	Profile       Collection = "profile"
)

// Collections lists every collection a change can be reported for.
func Collections() []Collection {
	return []Collection{Transactions, Categories, Goals, FixedExpenses, Profile}
}

func (c Collection) Valid() bool {
	for _, k := range Collections() {
		if c == k {
			return true
		}
	}
	return false
}

var ErrNotFound = errors.New("record not found")

// Ports for the document store. Every operation is scoped to one user;
// records of other users are never visible.
type (
	TransactionStore interface {
		AddTransaction(ctx context.Context, userID string, t core.Transaction) (id string, err error)
		GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
		// ListTransactions returns transactions with timestamp >= since.
		// A zero since returns every transaction, including undated ones.
		ListTransactions(ctx context.Context, userID string, since time.Time) ([]core.Transaction, error)
		ReplaceTransaction(ctx context.Context, userID string, t core.Transaction) error
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	CategoryStore interface {
		AddCategory(ctx context.Context, userID string, c core.Category) (id string, err error)
		ListCategories(ctx context.Context, userID string) ([]core.Category, error)
		DeleteCategory(ctx context.Context, userID, id string) error
	}

	GoalStore interface {
		AddGoal(ctx context.Context, userID string, g core.Goal) (id string, err error)
		ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
		DeleteGoal(ctx context.Context, userID, id string) error
	}

	FixedExpenseStore interface {
		AddFixedExpense(ctx context.Context, userID string, f core.FixedExpense) (id string, err error)
		ListFixedExpenses(ctx context.Context, userID string) ([]core.FixedExpense, error)
		DeleteFixedExpense(ctx context.Context, userID, id string) error
	}

	ProfileStore interface {
		// GetProfile returns a zero profile when the user has none yet.
		GetProfile(ctx context.Context, userID string) (core.UserProfile, error)
		SetProfile(ctx context.Context, userID string, p core.UserProfile) error
		SetMonthlyIncome(ctx context.Context, userID string, income core.Money) error
		ListUsers(ctx context.Context) ([]string, error)
	}

	// Store is the full document store.
	Store interface {
		TransactionStore
		CategoryStore
		GoalStore
		FixedExpenseStore
		ProfileStore
	}
)
