package core

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// TypeFilter restricts a ledger to income or expense transactions.
type TypeFilter string

const (
	TypeAll     TypeFilter = "all"
	TypeIncome  TypeFilter = "income"
	TypeExpense TypeFilter = "expense"
)

// SortOrder orders the filtered transactions of a ledger.
type SortOrder string

const (
	SortDateDesc   SortOrder = "date_desc"
	SortDateAsc    SortOrder = "date_asc"
	SortAmountDesc SortOrder = "amount_desc"
	SortAmountAsc  SortOrder = "amount_asc"
)

// AllCategories disables category filtering.
const AllCategories = "All"

const LedgerDateFormat = "2006-01-02 15:04"

var (
	ErrUnknownType = errors.New("unknown transaction type filter")
	ErrUnknownSort = errors.New("unknown sort order")
)

// ParseTypeFilter accepts "", "all", "income" or "expense".
func ParseTypeFilter(s string) (TypeFilter, error) {
	switch TypeFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "", TypeAll:
		return TypeAll, nil
	case TypeIncome:
		return TypeIncome, nil
	case TypeExpense:
		return TypeExpense, nil
	}
	return "", ErrUnknownType
}

// ParseSortOrder defaults to newest first.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortDateDesc:
		return SortDateDesc, nil
	case SortDateAsc:
		return SortDateAsc, nil
	case SortAmountDesc:
		return SortAmountDesc, nil
	case SortAmountAsc:
		return SortAmountAsc, nil
	}
	return "", ErrUnknownSort
}

type LedgerFilter struct {
	Period   Period
	Category string // "" or AllCategories matches everything
	Type     TypeFilter
}

func (f LedgerFilter) match(t Transaction) bool {
	if !f.Period.Contains(t.EffectiveTime()) {
		return false
	}
	if f.Category != "" && f.Category != AllCategories && t.Category != f.Category {
		return false
	}
	switch f.Type {
	case TypeIncome:
		return t.Total.Cents > 0
	case TypeExpense:
		return t.Total.Cents < 0
	}
	return true
}

type LedgerInput struct {
	Transactions  []Transaction
	FixedExpenses []FixedExpense
	MonthlyIncome Money
	Filter        LedgerFilter
	Sort          SortOrder
}

// LedgerSummary totals the filtered view. Fixed expenses are never filtered.
type LedgerSummary struct {
	MonthlyIncome Money
	FixedTotal    Money
	IncomeTotal   Money
	ExpenseTotal  Money
	Net           Money
}

// Ledger lists fixed expenses first, in stored order, then the filtered and
// sorted transactions.
type Ledger struct {
	FixedExpenses []FixedExpense
	Transactions  []Transaction
	Summary       LedgerSummary
}

// BuildLedger applies the filters (ANDed) and sort order.
func BuildLedger(in LedgerInput) Ledger {
	txns := make([]Transaction, 0, len(in.Transactions))
	for _, t := range in.Transactions {
		if in.Filter.match(t) {
			txns = append(txns, t)
		}
	}
	sortTransactions(txns, in.Sort)

	var income, expense int64
	for _, t := range txns {
		if t.Total.Cents > 0 {
			income += t.Total.Cents
		} else if t.Total.Cents < 0 {
			expense -= t.Total.Cents
		}
	}
	fixed := FixedTotal(in.FixedExpenses)
	net := in.MonthlyIncome.Cents + income - (expense + fixed.Cents)

	return Ledger{
		FixedExpenses: append([]FixedExpense(nil), in.FixedExpenses...),
		Transactions:  txns,
		Summary: LedgerSummary{
			MonthlyIncome: in.MonthlyIncome,
			FixedTotal:    fixed,
			IncomeTotal:   Money{Cents: income},
			ExpenseTotal:  Money{Cents: expense},
			Net:           Money{Cents: net},
		},
	}
}

func sortTransactions(txns []Transaction, order SortOrder) {
	var less func(a, b Transaction) bool
	switch order {
	case SortDateAsc:
		less = func(a, b Transaction) bool { return a.EffectiveTime().Before(b.EffectiveTime()) }
	case SortAmountDesc:
		less = func(a, b Transaction) bool { return a.Total.Abs().Cents > b.Total.Abs().Cents }
	case SortAmountAsc:
		less = func(a, b Transaction) bool { return a.Total.Abs().Cents < b.Total.Abs().Cents }
	default:
		less = func(a, b Transaction) bool { return a.EffectiveTime().After(b.EffectiveTime()) }
	}
	sort.SliceStable(txns, func(i, j int) bool { return less(txns[i], txns[j]) })
}

// LedgerRow is one printable ledger line.
type LedgerRow struct {
	Date     string
	Type     string
	Name     string
	Category string
	Amount   string
}

func (r LedgerRow) String() string {
	return strings.Join(r.Cells(), " | ")
}

// Cells returns the row as column values.
func (r LedgerRow) Cells() []string {
	return []string{r.Date, r.Type, r.Name, r.Category, r.Amount}
}

// LedgerHeader is the first row of every export.
var LedgerHeader = LedgerRow{Date: "DATE", Type: "TYPE", Name: "NAME", Category: "CATEGORY", Amount: "AMOUNT"}

// Rows renders the header, one row per fixed expense and one per
// transaction. Dates are shown in loc; a missing timestamp renders as "-".
func (l Ledger) Rows(loc *time.Location, currency string) []LedgerRow {
	if loc == nil {
		loc = time.Local
	}
	rows := make([]LedgerRow, 0, 1+len(l.FixedExpenses)+len(l.Transactions))
	rows = append(rows, LedgerHeader)
	for _, f := range l.FixedExpenses {
		rows = append(rows, LedgerRow{
			Date:     "-",
			Type:     "Fixed Expense",
			Name:     f.Name,
			Category: "-",
			Amount:   f.Amount.Format(currency),
		})
	}
	for _, t := range l.Transactions {
		date := "-"
		if t.HasTimestamp() {
			date = t.Timestamp.In(loc).Format(LedgerDateFormat)
		}
		kind := "Income"
		if t.IsExpense() {
			kind = "Expense"
		}
		rows = append(rows, LedgerRow{
			Date:     date,
			Type:     kind,
			Name:     t.Name,
			Category: t.Category,
			Amount:   t.Total.Format(currency),
		})
	}
	return rows
}
