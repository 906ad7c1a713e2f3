package core

import (
	"sort"
	"time"
)

// CategoryAmount is an amount aggregated under a category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// CategoryCount is the number of expense transactions in a category.
type CategoryCount struct {
	Name  string
	Count int
}

// AggregateInput is one consistent-enough snapshot of a user's data.
type AggregateInput struct {
	Transactions  []Transaction
	FixedExpenses []FixedExpense
	MonthlyIncome Money
	Since         time.Time
}

// Summary is everything the dashboard derives from a snapshot.
type Summary struct {
	// CategorySums holds absolute expense totals in first-encountered order.
	CategorySums  []CategoryAmount
	TotalExpenses Money
	TotalIncome   Money
	FixedTotal    Money
	MonthlyIncome Money
	NetBalance    Money
}

// Aggregate computes the period summary. Transactions before Since are
// ignored; a zero total counts as income.
func Aggregate(in AggregateInput) Summary {
	index := map[string]int{}
	var sums []CategoryAmount
	var expenses, income int64

	for _, t := range in.Transactions {
		if t.EffectiveTime().Before(in.Since) {
			continue
		}
		if !t.IsExpense() {
			income += t.Total.Cents
			continue
		}
		name := t.CategoryOrOther()
		i, ok := index[name]
		if !ok {
			i = len(sums)
			index[name] = i
			sums = append(sums, CategoryAmount{Name: name})
		}
		sums[i].Amount.Cents -= t.Total.Cents
		expenses -= t.Total.Cents
	}

	fixed := FixedTotal(in.FixedExpenses)
	net := in.MonthlyIncome.Cents - fixed.Cents - expenses + income
	return Summary{
		CategorySums:  sums,
		TotalExpenses: Money{Cents: expenses},
		TotalIncome:   Money{Cents: income},
		FixedTotal:    fixed,
		MonthlyIncome: in.MonthlyIncome,
		NetBalance:    Money{Cents: net},
	}
}

// CategoryMap returns the category sums keyed by name.
func (s Summary) CategoryMap() map[string]Money {
	m := make(map[string]Money, len(s.CategorySums))
	for _, c := range s.CategorySums {
		m[c.Name] = c.Amount
	}
	return m
}

// TopCategoriesByFrequency counts expense transactions per category since the
// given instant and returns the n most frequent. Ties keep first-encountered
// order.
func TopCategoriesByFrequency(txns []Transaction, since time.Time, n int) []CategoryCount {
	index := map[string]int{}
	var counts []CategoryCount
	for _, t := range txns {
		if !t.IsExpense() || t.EffectiveTime().Before(since) {
			continue
		}
		name := t.CategoryOrOther()
		i, ok := index[name]
		if !ok {
			i = len(counts)
			index[name] = i
			counts = append(counts, CategoryCount{Name: name})
		}
		counts[i].Count++
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if n >= 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// GoalState classifies a balance against a goal band.
type GoalState string

const (
	GoalBelow  GoalState = "Below"
	GoalWithin GoalState = "Within"
	GoalAbove  GoalState = "Above"
)

// GoalStatus compares literally, so a goal with Min > Max can never be Within.
func GoalStatus(g Goal, balance Money) GoalState {
	switch {
	case balance.Cents < g.Min.Cents:
		return GoalBelow
	case balance.Cents > g.Max.Cents:
		return GoalAbove
	default:
		return GoalWithin
	}
}

// GoalProgress is a goal evaluated against the current net balance.
type GoalProgress struct {
	Goal    Goal
	Balance Money
	Status  GoalState
}

// EvaluateGoals classifies every goal independently against the same balance.
func EvaluateGoals(goals []Goal, balance Money) []GoalProgress {
	out := make([]GoalProgress, len(goals))
	for i, g := range goals {
		out[i] = GoalProgress{Goal: g, Balance: balance, Status: GoalStatus(g, balance)}
	}
	return out
}
