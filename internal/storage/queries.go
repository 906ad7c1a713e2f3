package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Transaction struct {
	ID           string
	UserID       string
	Name         string
	TsMillis     sql.NullInt64
	TotalCents   int64
	ReceiptImage string
	Category     string
}

type Category struct {
	ID     string
	UserID string
	Name   string
	Colour string
}

type Goal struct {
	ID       string
	UserID   string
	Name     string
	MinCents int64
	MaxCents int64
}

type FixedExpense struct {
	ID          string
	UserID      string
	Name        string
	AmountCents int64
}

const createTransaction = `INSERT INTO transactions (id, user_id, name, ts_millis, total_cents, receipt_image, category)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, arg Transaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		arg.ID, arg.UserID, arg.Name, arg.TsMillis, arg.TotalCents, arg.ReceiptImage, arg.Category)
	return err
}

const getTransaction = `SELECT id, user_id, name, ts_millis, total_cents, receipt_image, category
FROM transactions WHERE user_id = ? AND id = ?`

func (q *Queries) GetTransaction(ctx context.Context, userID, id string) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, userID, id)
	var i Transaction
	err := row.Scan(&i.ID, &i.UserID, &i.Name, &i.TsMillis, &i.TotalCents, &i.ReceiptImage, &i.Category)
	return i, err
}

// Undated rows count as the epoch, so they pass any since <= 0.
const listTransactionsSince = `SELECT id, user_id, name, ts_millis, total_cents, receipt_image, category
FROM transactions WHERE user_id = ? AND COALESCE(ts_millis, 0) >= ?
ORDER BY seq`

func (q *Queries) ListTransactionsSince(ctx context.Context, userID string, sinceMillis int64) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsSince, userID, sinceMillis)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(&i.ID, &i.UserID, &i.Name, &i.TsMillis, &i.TotalCents, &i.ReceiptImage, &i.Category); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listAllTransactions = `SELECT id, user_id, name, ts_millis, total_cents, receipt_image, category
FROM transactions WHERE user_id = ? ORDER BY seq`

func (q *Queries) ListAllTransactions(ctx context.Context, userID string) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listAllTransactions, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(&i.ID, &i.UserID, &i.Name, &i.TsMillis, &i.TotalCents, &i.ReceiptImage, &i.Category); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateTransaction = `UPDATE transactions
SET name = ?, ts_millis = ?, total_cents = ?, receipt_image = ?, category = ?
WHERE user_id = ? AND id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, arg Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		arg.Name, arg.TsMillis, arg.TotalCents, arg.ReceiptImage, arg.Category, arg.UserID, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) deleteByID(ctx context.Context, query, userID, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `DELETE FROM transactions WHERE user_id = ? AND id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, userID, id string) (int64, error) {
	return q.deleteByID(ctx, deleteTransaction, userID, id)
}

const createCategory = `INSERT INTO categories (id, user_id, name, colour) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateCategory(ctx context.Context, arg Category) error {
	_, err := q.db.ExecContext(ctx, createCategory, arg.ID, arg.UserID, arg.Name, arg.Colour)
	return err
}

const listCategories = `SELECT id, user_id, name, colour FROM categories WHERE user_id = ? ORDER BY seq`

func (q *Queries) ListCategories(ctx context.Context, userID string) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.UserID, &i.Name, &i.Colour); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteCategory = `DELETE FROM categories WHERE user_id = ? AND id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, userID, id string) (int64, error) {
	return q.deleteByID(ctx, deleteCategory, userID, id)
}

const createGoal = `INSERT INTO goals (id, user_id, name, min_cents, max_cents) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateGoal(ctx context.Context, arg Goal) error {
	_, err := q.db.ExecContext(ctx, createGoal, arg.ID, arg.UserID, arg.Name, arg.MinCents, arg.MaxCents)
	return err
}

const listGoals = `SELECT id, user_id, name, min_cents, max_cents FROM goals WHERE user_id = ? ORDER BY seq`

func (q *Queries) ListGoals(ctx context.Context, userID string) ([]Goal, error) {
	rows, err := q.db.QueryContext(ctx, listGoals, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Goal
	for rows.Next() {
		var i Goal
		if err := rows.Scan(&i.ID, &i.UserID, &i.Name, &i.MinCents, &i.MaxCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteGoal = `DELETE FROM goals WHERE user_id = ? AND id = ?`

func (q *Queries) DeleteGoal(ctx context.Context, userID, id string) (int64, error) {
	return q.deleteByID(ctx, deleteGoal, userID, id)
}

const createFixedExpense = `INSERT INTO fixed_expenses (id, user_id, name, amount_cents) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateFixedExpense(ctx context.Context, arg FixedExpense) error {
	_, err := q.db.ExecContext(ctx, createFixedExpense, arg.ID, arg.UserID, arg.Name, arg.AmountCents)
	return err
}

const listFixedExpenses = `SELECT id, user_id, name, amount_cents FROM fixed_expenses WHERE user_id = ? ORDER BY seq`

func (q *Queries) ListFixedExpenses(ctx context.Context, userID string) ([]FixedExpense, error) {
	rows, err := q.db.QueryContext(ctx, listFixedExpenses, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FixedExpense
	for rows.Next() {
		var i FixedExpense
		if err := rows.Scan(&i.ID, &i.UserID, &i.Name, &i.AmountCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteFixedExpense = `DELETE FROM fixed_expenses WHERE user_id = ? AND id = ?`

func (q *Queries) DeleteFixedExpense(ctx context.Context, userID, id string) (int64, error) {
	return q.deleteByID(ctx, deleteFixedExpense, userID, id)
}

const getProfileIncome = `SELECT monthly_income_cents FROM profiles WHERE user_id = ?`

func (q *Queries) GetProfileIncome(ctx context.Context, userID string) (int64, error) {
	var cents int64
	err := q.db.QueryRowContext(ctx, getProfileIncome, userID).Scan(&cents)
	return cents, err
}

const upsertProfileIncome = `INSERT INTO profiles (user_id, monthly_income_cents) VALUES (?, ?)
ON CONFLICT(user_id) DO UPDATE SET monthly_income_cents = excluded.monthly_income_cents,
updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertProfileIncome(ctx context.Context, userID string, cents int64) error {
	_, err := q.db.ExecContext(ctx, upsertProfileIncome, userID, cents)
	return err
}

const listProfileFixedExpenses = `SELECT name, amount_cents FROM profile_fixed_expenses WHERE user_id = ? ORDER BY seq`

func (q *Queries) ListProfileFixedExpenses(ctx context.Context, userID string) ([]FixedExpense, error) {
	rows, err := q.db.QueryContext(ctx, listProfileFixedExpenses, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FixedExpense
	for rows.Next() {
		i := FixedExpense{UserID: userID}
		if err := rows.Scan(&i.Name, &i.AmountCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const clearProfileFixedExpenses = `DELETE FROM profile_fixed_expenses WHERE user_id = ?`

func (q *Queries) ClearProfileFixedExpenses(ctx context.Context, userID string) error {
	_, err := q.db.ExecContext(ctx, clearProfileFixedExpenses, userID)
	return err
}

const addProfileFixedExpense = `INSERT INTO profile_fixed_expenses (user_id, name, amount_cents) VALUES (?, ?, ?)`

func (q *Queries) AddProfileFixedExpense(ctx context.Context, userID, name string, cents int64) error {
	_, err := q.db.ExecContext(ctx, addProfileFixedExpense, userID, name, cents)
	return err
}

const listUsers = `SELECT user_id FROM profiles ORDER BY user_id`

func (q *Queries) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	return items, rows.Err()
}
