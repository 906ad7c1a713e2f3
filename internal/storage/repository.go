// Package storage is the SQLite-backed Store, with schema managed by
// embedded golang-migrate migrations.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"budgethero/internal/core"
	"budgethero/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func toMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64)
}

func toTransaction(t Transaction) core.Transaction {
	return core.Transaction{
		ID:           t.ID,
		Name:         t.Name,
		Timestamp:    fromMillis(t.TsMillis),
		Total:        core.Money{Cents: t.TotalCents},
		ReceiptImage: t.ReceiptImage,
		Category:     t.Category,
	}
}

func notFound(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) AddTransaction(ctx context.Context, userID string, t core.Transaction) (string, error) {
	id := uuid.NewString()
	err := r.queries.CreateTransaction(ctx, Transaction{
		ID:           id,
		UserID:       userID,
		Name:         t.Name,
		TsMillis:     toMillis(t.Timestamp),
		TotalCents:   t.Total.Cents,
		ReceiptImage: t.ReceiptImage,
		Category:     t.Category,
	})
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}
	slog.DebugContext(ctx, "Transaction saved to SQLite", "id", id, "user_id", userID, "total_cents", t.Total.Cents)
	return id, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	t, err := r.queries.GetTransaction(ctx, userID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return toTransaction(t), nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, since time.Time) ([]core.Transaction, error) {
	var (
		rows []Transaction
		err  error
	)
	if since.IsZero() {
		rows, err = r.queries.ListAllTransactions(ctx, userID)
	} else {
		rows, err = r.queries.ListTransactionsSince(ctx, userID, since.UnixMilli())
	}
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, len(rows))
	for i, t := range rows {
		out[i] = toTransaction(t)
	}
	return out, nil
}

func (r *SQLiteRepository) ReplaceTransaction(ctx context.Context, userID string, t core.Transaction) error {
	n, err := r.queries.UpdateTransaction(ctx, Transaction{
		ID:           t.ID,
		UserID:       userID,
		Name:         t.Name,
		TsMillis:     toMillis(t.Timestamp),
		TotalCents:   t.Total.Cents,
		ReceiptImage: t.ReceiptImage,
		Category:     t.Category,
	})
	if err := notFound(n, err); err != nil {
		return fmt.Errorf("update transaction %s: %w", t.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := notFound(r.queries.DeleteTransaction(ctx, userID, id)); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) AddCategory(ctx context.Context, userID string, c core.Category) (string, error) {
	id := uuid.NewString()
	if err := r.queries.CreateCategory(ctx, Category{ID: id, UserID: userID, Name: c.Name, Colour: c.Colour}); err != nil {
		return "", fmt.Errorf("create category: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, len(rows))
	for i, c := range rows {
		out[i] = core.Category{ID: c.ID, Name: c.Name, Colour: c.Colour}
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id string) error {
	if err := notFound(r.queries.DeleteCategory(ctx, userID, id)); err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) AddGoal(ctx context.Context, userID string, g core.Goal) (string, error) {
	id := uuid.NewString()
	err := r.queries.CreateGoal(ctx, Goal{ID: id, UserID: userID, Name: g.Name, MinCents: g.Min.Cents, MaxCents: g.Max.Cents})
	if err != nil {
		return "", fmt.Errorf("create goal: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.queries.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out := make([]core.Goal, len(rows))
	for i, g := range rows {
		out[i] = core.Goal{ID: g.ID, Name: g.Name, Min: core.Money{Cents: g.MinCents}, Max: core.Money{Cents: g.MaxCents}}
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, userID, id string) error {
	if err := notFound(r.queries.DeleteGoal(ctx, userID, id)); err != nil {
		return fmt.Errorf("delete goal %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) AddFixedExpense(ctx context.Context, userID string, f core.FixedExpense) (string, error) {
	id := uuid.NewString()
	err := r.queries.CreateFixedExpense(ctx, FixedExpense{ID: id, UserID: userID, Name: f.Name, AmountCents: f.Amount.Cents})
	if err != nil {
		return "", fmt.Errorf("create fixed expense: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListFixedExpenses(ctx context.Context, userID string) ([]core.FixedExpense, error) {
	rows, err := r.queries.ListFixedExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list fixed expenses: %w", err)
	}
	out := make([]core.FixedExpense, len(rows))
	for i, f := range rows {
		out[i] = core.FixedExpense{ID: f.ID, Name: f.Name, Amount: core.Money{Cents: f.AmountCents}}
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteFixedExpense(ctx context.Context, userID, id string) error {
	if err := notFound(r.queries.DeleteFixedExpense(ctx, userID, id)); err != nil {
		return fmt.Errorf("delete fixed expense %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, userID string) (core.UserProfile, error) {
	income, err := r.queries.GetProfileIncome(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserProfile{}, nil
	}
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("get profile: %w", err)
	}
	fixed, err := r.queries.ListProfileFixedExpenses(ctx, userID)
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("get profile fixed expenses: %w", err)
	}
	p := core.UserProfile{MonthlyIncome: core.Money{Cents: income}}
	for _, f := range fixed {
		p.FixedExpenses = append(p.FixedExpenses, core.FixedExpense{Name: f.Name, Amount: core.Money{Cents: f.AmountCents}})
	}
	return p, nil
}

// SetProfile overwrites the profile document, including its embedded fixed
// expense list, in one transaction.
func (r *SQLiteRepository) SetProfile(ctx context.Context, userID string, p core.UserProfile) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin profile tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.UpsertProfileIncome(ctx, userID, p.MonthlyIncome.Cents); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	if err := q.ClearProfileFixedExpenses(ctx, userID); err != nil {
		return fmt.Errorf("clear profile fixed expenses: %w", err)
	}
	for _, f := range p.FixedExpenses {
		if err := q.AddProfileFixedExpense(ctx, userID, f.Name, f.Amount.Cents); err != nil {
			return fmt.Errorf("add profile fixed expense: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SetMonthlyIncome(ctx context.Context, userID string, income core.Money) error {
	if err := r.queries.UpsertProfileIncome(ctx, userID, income.Cents); err != nil {
		return fmt.Errorf("set monthly income: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]string, error) {
	users, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
