package http

import (
	"time"

	"budgethero/internal/core"
	"budgethero/internal/services"
)

// Request bodies.

type transactionRequest struct {
	Name         string      `json:"name"`
	Total        amountField `json:"total"`
	Category     string      `json:"category"`
	Timestamp    string      `json:"timestamp,omitempty"`
	ReceiptImage string      `json:"receiptImage,omitempty"`
}

// input converts the body to a service input. A non-empty timestamp must be
// RFC 3339.
func (req transactionRequest) input() (services.TransactionInput, bool) {
	in := services.TransactionInput{
		Name:         sanitizeInput(req.Name),
		Total:        string(req.Total),
		Category:     sanitizeInput(req.Category),
		ReceiptImage: sanitizeInput(req.ReceiptImage),
	}
	if ts := sanitizeInput(req.Timestamp); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return in, false
		}
		in.Timestamp = t
	}
	return in, true
}

type categoryRequest struct {
	Name   string `json:"name"`
	Colour string `json:"colour"`
}

type goalRequest struct {
	Name string      `json:"name"`
	Min  amountField `json:"min"`
	Max  amountField `json:"max"`
}

type fixedExpenseRequest struct {
	Name   string      `json:"name"`
	Amount amountField `json:"amount"`
}

func (req fixedExpenseRequest) input() services.FixedExpenseInput {
	return services.FixedExpenseInput{Name: sanitizeInput(req.Name), Amount: string(req.Amount)}
}

type profileRequest struct {
	MonthlyIncome amountField `json:"monthlyIncome"`
}

type onboardingRequest struct {
	MonthlyIncome amountField           `json:"monthlyIncome"`
	FixedExpenses []fixedExpenseRequest `json:"fixedExpenses"`
}

func (req onboardingRequest) input() services.OnboardingInput {
	in := services.OnboardingInput{MonthlyIncome: string(req.MonthlyIncome)}
	for _, f := range req.FixedExpenses {
		in.FixedExpenses = append(in.FixedExpenses, f.input())
	}
	return in
}

// Responses. Amounts carry both the signed cents and the display text.

type moneyDTO struct {
	Cents   int64  `json:"cents"`
	Display string `json:"display"`
}

type transactionDTO struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Timestamp    *time.Time `json:"timestamp"`
	Total        moneyDTO   `json:"total"`
	Type         string     `json:"type"`
	Category     string     `json:"category"`
	ReceiptImage string     `json:"receiptImage,omitempty"`
}

type categoryDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Colour string `json:"colour"`
}

type goalDTO struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Min  moneyDTO `json:"min"`
	Max  moneyDTO `json:"max"`
}

type fixedExpenseDTO struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Amount moneyDTO `json:"amount"`
}

type profileDTO struct {
	MonthlyIncome moneyDTO          `json:"monthlyIncome"`
	FixedExpenses []fixedExpenseDTO `json:"fixedExpenses"`
}

type categorySliceDTO struct {
	Name   string   `json:"name"`
	Amount moneyDTO `json:"amount"`
	Colour string   `json:"colour"`
}

type categoryCountDTO struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type goalProgressDTO struct {
	Goal    goalDTO  `json:"goal"`
	Balance moneyDTO `json:"balance"`
	Status  string   `json:"status"`
}

type dashboardDTO struct {
	Period        string             `json:"period"`
	PeriodStart   time.Time          `json:"periodStart"`
	MonthlyIncome moneyDTO           `json:"monthlyIncome"`
	FixedTotal    moneyDTO           `json:"fixedTotal"`
	TotalExpenses moneyDTO           `json:"totalExpenses"`
	TotalIncome   moneyDTO           `json:"totalIncome"`
	NetBalance    moneyDTO           `json:"netBalance"`
	Categories    []categorySliceDTO `json:"categories"`
	TopCategories []categoryCountDTO `json:"topCategories"`
	Goals         []goalProgressDTO  `json:"goals"`
}

type summaryDTO struct {
	MonthlyIncome moneyDTO `json:"monthlyIncome"`
	FixedTotal    moneyDTO `json:"fixedTotal"`
	IncomeTotal   moneyDTO `json:"incomeTotal"`
	ExpenseTotal  moneyDTO `json:"expenseTotal"`
	Net           moneyDTO `json:"net"`
}

type statementDTO struct {
	FixedExpenses []fixedExpenseDTO `json:"fixedExpenses"`
	Transactions  []transactionDTO  `json:"transactions"`
	Summary       summaryDTO        `json:"summary"`
}

type reportDTO struct {
	Title   string     `json:"title"`
	Period  string     `json:"period"`
	Created time.Time  `json:"created"`
	Header  []string   `json:"header"`
	Rows    [][]string `json:"rows"`
}

// dtoMapper renders domain values with the configured currency symbol.
type dtoMapper struct {
	currency string
}

func (m dtoMapper) money(v core.Money) moneyDTO {
	return moneyDTO{Cents: v.Cents, Display: v.Format(m.currency)}
}

func (m dtoMapper) transaction(t core.Transaction) transactionDTO {
	dto := transactionDTO{
		ID:           t.ID,
		Name:         t.Name,
		Total:        m.money(t.Total),
		Type:         "income",
		Category:     t.CategoryOrOther(),
		ReceiptImage: t.ReceiptImage,
	}
	if t.IsExpense() {
		dto.Type = "expense"
	}
	if t.HasTimestamp() {
		ts := t.Timestamp
		dto.Timestamp = &ts
	}
	return dto
}

func (m dtoMapper) transactions(txns []core.Transaction) []transactionDTO {
	out := make([]transactionDTO, len(txns))
	for i, t := range txns {
		out[i] = m.transaction(t)
	}
	return out
}

// categories reports each category with its display colour, so a malformed
// stored colour is replaced by its fallback.
func (m dtoMapper) categories(cats []core.Category) []categoryDTO {
	colours := core.NewColourResolver(cats)
	out := make([]categoryDTO, len(cats))
	for i, c := range cats {
		out[i] = categoryDTO{ID: c.ID, Name: c.Name, Colour: colours.ColourFor(c.Name).Hex()}
	}
	return out
}

func (m dtoMapper) category(c core.Category) categoryDTO {
	return m.categories([]core.Category{c})[0]
}

func (m dtoMapper) goal(g core.Goal) goalDTO {
	return goalDTO{ID: g.ID, Name: g.Name, Min: m.money(g.Min), Max: m.money(g.Max)}
}

func (m dtoMapper) goals(goals []core.Goal) []goalDTO {
	out := make([]goalDTO, len(goals))
	for i, g := range goals {
		out[i] = m.goal(g)
	}
	return out
}

func (m dtoMapper) fixedExpense(f core.FixedExpense) fixedExpenseDTO {
	return fixedExpenseDTO{ID: f.ID, Name: f.Name, Amount: m.money(f.Amount)}
}

func (m dtoMapper) fixedExpenses(fixed []core.FixedExpense) []fixedExpenseDTO {
	out := make([]fixedExpenseDTO, len(fixed))
	for i, f := range fixed {
		out[i] = m.fixedExpense(f)
	}
	return out
}

func (m dtoMapper) dashboard(v services.DashboardView) dashboardDTO {
	dto := dashboardDTO{
		Period:        v.Period,
		PeriodStart:   v.PeriodStart,
		MonthlyIncome: m.money(v.MonthlyIncome),
		FixedTotal:    m.money(v.FixedTotal),
		TotalExpenses: m.money(v.TotalExpenses),
		TotalIncome:   m.money(v.TotalIncome),
		NetBalance:    m.money(v.NetBalance),
		Categories:    make([]categorySliceDTO, len(v.Categories)),
		TopCategories: make([]categoryCountDTO, len(v.TopCategories)),
		Goals:         make([]goalProgressDTO, len(v.Goals)),
	}
	for i, c := range v.Categories {
		dto.Categories[i] = categorySliceDTO{Name: c.Name, Amount: m.money(c.Amount), Colour: c.Colour}
	}
	for i, c := range v.TopCategories {
		dto.TopCategories[i] = categoryCountDTO{Name: c.Name, Count: c.Count}
	}
	for i, g := range v.Goals {
		dto.Goals[i] = goalProgressDTO{Goal: m.goal(g.Goal), Balance: m.money(g.Balance), Status: string(g.Status)}
	}
	return dto
}

func (m dtoMapper) statement(l core.Ledger) statementDTO {
	return statementDTO{
		FixedExpenses: m.fixedExpenses(l.FixedExpenses),
		Transactions:  m.transactions(l.Transactions),
		Summary: summaryDTO{
			MonthlyIncome: m.money(l.Summary.MonthlyIncome),
			FixedTotal:    m.money(l.Summary.FixedTotal),
			IncomeTotal:   m.money(l.Summary.IncomeTotal),
			ExpenseTotal:  m.money(l.Summary.ExpenseTotal),
			Net:           m.money(l.Summary.Net),
		},
	}
}

// report splits the header row off the export rows.
func (m dtoMapper) report(r services.Report) reportDTO {
	dto := reportDTO{
		Title:   r.Title,
		Period:  r.Period,
		Created: r.Created,
		Header:  core.LedgerHeader.Cells(),
		Rows:    [][]string{},
	}
	for i, row := range r.Rows {
		if i == 0 && row == core.LedgerHeader {
			continue
		}
		dto.Rows = append(dto.Rows, row.Cells())
	}
	return dto
}
