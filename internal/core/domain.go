package core

import (
	"errors"
	"strings"
	"time"
)

// OtherCategory buckets transactions whose category is empty or no longer exists.
const OtherCategory = "Other"

const maxNameLength = 200

type (
	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense entry. The sign of Total is
	// the only discriminator: negative is an expense, zero or positive is income.
	Transaction struct {
		ID           string
		Name         string
		Timestamp    time.Time // zero when the record carries no timestamp
		Total        Money
		ReceiptImage string // optional URL of the uploaded receipt
		Category     string
	}

	// FixedExpense is a recurring monthly cost, always treated as an expense.
	FixedExpense struct {
		ID     string
		Name   string
		Amount Money
	}

	Category struct {
		ID     string
		Name   string
		Colour string // opaque hex string, validated only at render time
	}

	// Goal is a savings band. Min may exceed Max; no ordering is enforced.
	Goal struct {
		ID   string
		Name string
		Min  Money
		Max  Money
	}

	UserProfile struct {
		MonthlyIncome Money
		// FixedExpenses is the legacy embedded copy written at first sign-in.
		// The canonical list lives in the fixed expenses collection.
		FixedExpenses []FixedExpense
	}
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount cannot be negative")
	ErrEmptyName      = errors.New("empty name")
	ErrNameTooLong    = errors.New("name too long (max 200 characters)")
	ErrEmptyCategory  = errors.New("empty category")
	ErrEmptyColour    = errors.New("empty colour")
)

// IsExpense reports whether the transaction reduces the balance.
func (t Transaction) IsExpense() bool {
	return t.Total.Cents < 0
}

// HasTimestamp reports whether the transaction was stored with a timestamp.
func (t Transaction) HasTimestamp() bool {
	return !t.Timestamp.IsZero()
}

// EffectiveTime is the instant used for period filtering and sorting.
// A missing timestamp counts as the Unix epoch.
func (t Transaction) EffectiveTime() time.Time {
	if t.Timestamp.IsZero() {
		return time.Unix(0, 0)
	}
	return t.Timestamp
}

// CategoryOrOther returns the bucket name used for aggregation. Only the
// empty name is resolved here; see BucketUnknownCategories for names that no
// longer match a category.
func (t Transaction) CategoryOrOther() string {
	if strings.TrimSpace(t.Category) == "" {
		return OtherCategory
	}
	return t.Category
}

// BucketUnknownCategories moves transactions whose category is not among
// cats into OtherCategory. Deleting a category does not touch its
// transactions, so the dangling name is resolved here at render time. The
// input slice is never modified.
func BucketUnknownCategories(txns []Transaction, cats []Category) []Transaction {
	known := make(map[string]bool, len(cats))
	for _, c := range cats {
		known[strings.TrimSpace(c.Name)] = true
	}
	var out []Transaction
	for i, t := range txns {
		name := strings.TrimSpace(t.Category)
		if name == "" || known[name] {
			continue
		}
		if out == nil {
			out = make([]Transaction, len(txns))
			copy(out, txns)
		}
		out[i].Category = OtherCategory
	}
	if out == nil {
		return txns
	}
	return out
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := validateName(t.Name); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (f FixedExpense) Validate() error {
	if err := validateName(f.Name); err != nil {
		return err
	}
	if f.Amount.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// Validate checks only that both fields are present. The colour format is
// not checked here; bad colours fall back at render time.
func (c Category) Validate() error {
	if err := validateName(c.Name); err != nil {
		return err
	}
	if strings.TrimSpace(c.Colour) == "" {
		return ErrEmptyColour
	}
	return nil
}

func (g Goal) Validate() error {
	return validateName(g.Name)
}

// FixedTotal sums the amounts of the given fixed expenses.
func FixedTotal(fixed []FixedExpense) Money {
	var total int64
	for _, f := range fixed {
		total += f.Amount.Cents
	}
	return Money{Cents: total}
}
