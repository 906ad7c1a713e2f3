package services

import (
	"context"
	"io"
	"time"

	"budgethero/internal/core"
	"budgethero/internal/export"
	"budgethero/internal/log"
)

// StatementQuery holds the raw statement filters as received from a client.
type StatementQuery struct {
	Period   string
	Category string
	Type     string
	Sort     string
}

// Statement builds the filtered ledger and its summary. Unknown period,
// type or sort values return core.ErrUnknownPeriod, ErrUnknownType or
// ErrUnknownSort.
func (s *BudgetService) Statement(ctx context.Context, userID string, q StatementQuery) (core.Ledger, error) {
	in, err := s.ledgerInput(q, core.SortDateDesc)
	if err != nil {
		return core.Ledger{}, err
	}
	if userID == "" {
		return core.BuildLedger(in), nil
	}
	snap, err := s.LoadSnapshot(ctx, userID, time.Time{})
	if err != nil {
		return core.Ledger{}, err
	}
	in.Transactions = snap.Transactions
	in.FixedExpenses = snap.FixedExpenses
	in.MonthlyIncome = snap.Profile.MonthlyIncome
	return core.BuildLedger(in), nil
}

func (s *BudgetService) ledgerInput(q StatementQuery, defaultSort core.SortOrder) (core.LedgerInput, error) {
	period, err := core.ResolvePeriod(q.Period, s.Now())
	if err != nil {
		return core.LedgerInput{}, err
	}
	typ, err := core.ParseTypeFilter(q.Type)
	if err != nil {
		return core.LedgerInput{}, err
	}
	sort := defaultSort
	if q.Sort != "" {
		if sort, err = core.ParseSortOrder(q.Sort); err != nil {
			return core.LedgerInput{}, err
		}
	}
	return core.LedgerInput{
		Filter: core.LedgerFilter{Period: period, Category: q.Category, Type: typ},
		Sort:   sort,
	}, nil
}

// Report is an export-ready ledger.
type Report struct {
	Title   string
	Period  string
	Ledger  core.Ledger
	Rows    []core.LedgerRow
	Created time.Time
}

// LedgerReport builds the export rows for a period. Reports list the oldest
// transaction first unless another sort is requested.
func (s *BudgetService) LedgerReport(ctx context.Context, userID, period, sort string) (Report, error) {
	in, err := s.ledgerInput(StatementQuery{Period: period, Sort: sort}, core.SortDateAsc)
	if err != nil {
		return Report{}, err
	}
	if userID != "" {
		snap, err := s.LoadSnapshot(ctx, userID, time.Time{})
		if err != nil {
			return Report{}, err
		}
		in.Transactions = snap.Transactions
		in.FixedExpenses = snap.FixedExpenses
		in.MonthlyIncome = snap.Profile.MonthlyIncome
	}
	ledger := core.BuildLedger(in)
	label := in.Filter.Period.Label
	return Report{
		Title:   export.Title(label),
		Period:  label,
		Ledger:  ledger,
		Rows:    ledger.Rows(s.loc, s.currency),
		Created: s.Now(),
	}, nil
}

// WriteLedgerPDF renders the period's ledger report as a single-page PDF.
func (s *BudgetService) WriteLedgerPDF(ctx context.Context, w io.Writer, userID, period, sort string) (Report, error) {
	r, err := s.LedgerReport(ctx, userID, period, sort)
	if err != nil {
		return Report{}, err
	}
	res, err := export.WriteLedgerPDF(w, r.Title, r.Rows)
	if err != nil {
		return Report{}, storeErr("render ledger pdf", err)
	}
	if res.Truncated > 0 {
		s.logger.InfoContext(ctx, "Ledger PDF truncated",
			log.FieldUserID, userID, log.FieldPeriod, r.Period, "rows_written", res.Written, "rows_dropped", res.Truncated)
	}
	return r, nil
}
