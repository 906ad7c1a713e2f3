// Package services holds the budget use cases: validated writes that notify
// live subscribers, snapshot reads, dashboard sessions and ledger reports.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"budgethero/internal/blob"
	"budgethero/internal/core"
	"budgethero/internal/live"
	"budgethero/internal/log"
	"budgethero/internal/store"
)

// ErrNoUser is returned by writes made without a signed-in user.
var ErrNoUser = errors.New("no signed-in user")

// User-facing validation messages.
const (
	MsgMissingFields  = "Enter all fields."
	MsgInvalidNumbers = "Invalid numbers."
)

// ValidationError is a rejected input. Message is safe to show to the user;
// Err is the underlying core sentinel.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + " (" + e.Err.Error() + ")"
}

func (e *ValidationError) Unwrap() error { return e.Err }

func missingFields(err error) error  { return &ValidationError{Message: MsgMissingFields, Err: err} }
func invalidNumbers(err error) error { return &ValidationError{Message: MsgInvalidNumbers, Err: err} }

// ChangeFeed delivers change notifications for one user's collection.
type ChangeFeed interface {
	Subscribe(userID string, c store.Collection, fn func(live.Change)) (cancel func())
}

type Options struct {
	Store    store.Store
	Notifier live.Notifier
	Feed     ChangeFeed
	Blobs    blob.Store
	Location *time.Location
	Now      func() time.Time
	Logger   *log.Logger
	Currency string
}

// BudgetService is the single entry point for reading and writing a user's
// budget data.
type BudgetService struct {
	store    store.Store
	notifier live.Notifier
	feed     ChangeFeed
	blobs    blob.Store
	loc      *time.Location
	clock    func() time.Time
	logger   *log.Logger
	audit    *log.StructuredLogger
	currency string
	cache    dashboardCache

	// cacheGen counts invalidations per user so a dashboard computed
	// across a write is never cached
	cacheMu  sync.Mutex
	cacheGen map[string]uint64
}

func NewBudgetService(opts Options) *BudgetService {
	s := &BudgetService{
		store:    opts.Store,
		notifier: opts.Notifier,
		feed:     opts.Feed,
		blobs:    opts.Blobs,
		loc:      opts.Location,
		clock:    opts.Now,
		logger:   opts.Logger,
		currency: opts.Currency,
		cacheGen: map[string]uint64{},
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentBudget)
	}
	s.audit = log.NewStructuredLogger(s.logger)
	return s
}

// Now is the current instant in the configured calendar.
func (s *BudgetService) Now() time.Time {
	return s.clock().In(s.loc)
}

func (s *BudgetService) Location() *time.Location { return s.loc }
func (s *BudgetService) Currency() string         { return s.currency }

// changed reports a successful write. Notification failures are logged and
// never fail the write, which has already been persisted.
func (s *BudgetService) changed(ctx context.Context, op, userID string, c store.Collection, id string) {
	s.audit.LogRecordChanged(ctx, op, userID, string(c), id)
	s.invalidate(userID)
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, c); err != nil {
		s.logger.WarnContext(ctx, "Change notification failed",
			log.FieldUserID, userID, log.FieldCollection, c, log.FieldError, err)
	}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// TransactionInput is a transaction as entered by the user.
type TransactionInput struct {
	Name         string
	Total        string
	Category     string
	Timestamp    time.Time
	ReceiptImage string
}

func (in TransactionInput) parse() (core.Transaction, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Total) == "" || strings.TrimSpace(in.Category) == "" {
		return core.Transaction{}, missingFields(core.ErrEmptyName)
	}
	total, err := core.ParseMoney(in.Total)
	if err != nil {
		return core.Transaction{}, invalidNumbers(err)
	}
	t := core.Transaction{
		Name:         strings.TrimSpace(in.Name),
		Timestamp:    in.Timestamp,
		Total:        total,
		ReceiptImage: in.ReceiptImage,
		Category:     strings.TrimSpace(in.Category),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, missingFields(err)
	}
	return t, nil
}

// AddTransaction stores a new transaction. A zero timestamp is replaced by
// the current time.
func (s *BudgetService) AddTransaction(ctx context.Context, userID string, in TransactionInput) (core.Transaction, error) {
	if userID == "" {
		return core.Transaction{}, ErrNoUser
	}
	t, err := in.parse()
	if err != nil {
		return core.Transaction{}, err
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = s.Now()
	}
	id, err := s.store.AddTransaction(ctx, userID, t)
	if err != nil {
		return core.Transaction{}, storeErr("add transaction", err)
	}
	t.ID = id
	s.changed(ctx, log.OpCreate, userID, store.Transactions, id)
	return t, nil
}

func (s *BudgetService) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	if userID == "" {
		return core.Transaction{}, store.ErrNotFound
	}
	t, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, storeErr("get transaction", err)
	}
	return t, nil
}

// ListTransactions returns the user's transactions with timestamp >= since;
// a zero since returns all of them.
func (s *BudgetService) ListTransactions(ctx context.Context, userID string, since time.Time) ([]core.Transaction, error) {
	if userID == "" {
		return nil, nil
	}
	txns, err := s.store.ListTransactions(ctx, userID, since)
	if err != nil {
		return nil, storeErr("list transactions", err)
	}
	return txns, nil
}

// UpdateTransaction overwrites a transaction. A zero timestamp keeps the
// stored one.
func (s *BudgetService) UpdateTransaction(ctx context.Context, userID, id string, in TransactionInput) (core.Transaction, error) {
	if userID == "" {
		return core.Transaction{}, ErrNoUser
	}
	t, err := in.parse()
	if err != nil {
		return core.Transaction{}, err
	}
	existing, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, storeErr("get transaction", err)
	}
	t.ID = id
	if t.Timestamp.IsZero() {
		t.Timestamp = existing.Timestamp
	}
	if t.ReceiptImage == "" {
		t.ReceiptImage = existing.ReceiptImage
	}
	if err := s.store.ReplaceTransaction(ctx, userID, t); err != nil {
		return core.Transaction{}, storeErr("replace transaction", err)
	}
	s.changed(ctx, log.OpUpdate, userID, store.Transactions, id)
	return t, nil
}

func (s *BudgetService) DeleteTransaction(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrNoUser
	}
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return storeErr("delete transaction", err)
	}
	s.changed(ctx, log.OpDelete, userID, store.Transactions, id)
	return nil
}

// AddCategory stores a category. The colour must be present but its format
// is not checked; malformed colours fall back to the palette when displayed.
func (s *BudgetService) AddCategory(ctx context.Context, userID, name, colour string) (core.Category, error) {
	if userID == "" {
		return core.Category{}, ErrNoUser
	}
	c := core.Category{Name: strings.TrimSpace(name), Colour: strings.TrimSpace(colour)}
	if err := c.Validate(); err != nil {
		return core.Category{}, missingFields(err)
	}
	id, err := s.store.AddCategory(ctx, userID, c)
	if err != nil {
		return core.Category{}, storeErr("add category", err)
	}
	c.ID = id
	s.changed(ctx, log.OpCreate, userID, store.Categories, id)
	return c, nil
}

func (s *BudgetService) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	if userID == "" {
		return nil, nil
	}
	cats, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	return cats, nil
}

// DeleteCategory removes the category only; transactions keep its name and
// are bucketed as Other wherever a category lookup is needed.
func (s *BudgetService) DeleteCategory(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrNoUser
	}
	if err := s.store.DeleteCategory(ctx, userID, id); err != nil {
		return storeErr("delete category", err)
	}
	s.changed(ctx, log.OpDelete, userID, store.Categories, id)
	return nil
}

// AddGoal stores a savings band. min > max is accepted as entered.
func (s *BudgetService) AddGoal(ctx context.Context, userID, name, minAmount, maxAmount string) (core.Goal, error) {
	if userID == "" {
		return core.Goal{}, ErrNoUser
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(minAmount) == "" || strings.TrimSpace(maxAmount) == "" {
		return core.Goal{}, missingFields(core.ErrEmptyName)
	}
	lo, err := core.ParseMoney(minAmount)
	if err != nil {
		return core.Goal{}, invalidNumbers(err)
	}
	hi, err := core.ParseMoney(maxAmount)
	if err != nil {
		return core.Goal{}, invalidNumbers(err)
	}
	g := core.Goal{Name: strings.TrimSpace(name), Min: lo, Max: hi}
	if err := g.Validate(); err != nil {
		return core.Goal{}, missingFields(err)
	}
	id, err := s.store.AddGoal(ctx, userID, g)
	if err != nil {
		return core.Goal{}, storeErr("add goal", err)
	}
	g.ID = id
	s.changed(ctx, log.OpCreate, userID, store.Goals, id)
	return g, nil
}

func (s *BudgetService) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	if userID == "" {
		return nil, nil
	}
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, storeErr("list goals", err)
	}
	return goals, nil
}

func (s *BudgetService) DeleteGoal(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrNoUser
	}
	if err := s.store.DeleteGoal(ctx, userID, id); err != nil {
		return storeErr("delete goal", err)
	}
	s.changed(ctx, log.OpDelete, userID, store.Goals, id)
	return nil
}

// FixedExpenseInput is a fixed expense as entered by the user.
type FixedExpenseInput struct {
	Name   string
	Amount string
}

func (in FixedExpenseInput) parse() (core.FixedExpense, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Amount) == "" {
		return core.FixedExpense{}, missingFields(core.ErrEmptyName)
	}
	amount, err := core.ParseNonNegativeMoney(in.Amount)
	if err != nil {
		return core.FixedExpense{}, invalidNumbers(err)
	}
	f := core.FixedExpense{Name: strings.TrimSpace(in.Name), Amount: amount}
	if err := f.Validate(); err != nil {
		return core.FixedExpense{}, missingFields(err)
	}
	return f, nil
}

func (s *BudgetService) AddFixedExpense(ctx context.Context, userID string, in FixedExpenseInput) (core.FixedExpense, error) {
	if userID == "" {
		return core.FixedExpense{}, ErrNoUser
	}
	f, err := in.parse()
	if err != nil {
		return core.FixedExpense{}, err
	}
	id, err := s.store.AddFixedExpense(ctx, userID, f)
	if err != nil {
		return core.FixedExpense{}, storeErr("add fixed expense", err)
	}
	f.ID = id
	s.changed(ctx, log.OpCreate, userID, store.FixedExpenses, id)
	return f, nil
}

func (s *BudgetService) ListFixedExpenses(ctx context.Context, userID string) ([]core.FixedExpense, error) {
	if userID == "" {
		return nil, nil
	}
	fixed, err := s.store.ListFixedExpenses(ctx, userID)
	if err != nil {
		return nil, storeErr("list fixed expenses", err)
	}
	return fixed, nil
}

func (s *BudgetService) DeleteFixedExpense(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrNoUser
	}
	if err := s.store.DeleteFixedExpense(ctx, userID, id); err != nil {
		return storeErr("delete fixed expense", err)
	}
	s.changed(ctx, log.OpDelete, userID, store.FixedExpenses, id)
	return nil
}

func (s *BudgetService) Profile(ctx context.Context, userID string) (core.UserProfile, error) {
	if userID == "" {
		return core.UserProfile{}, nil
	}
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return core.UserProfile{}, storeErr("get profile", err)
	}
	return p, nil
}

func (s *BudgetService) SetMonthlyIncome(ctx context.Context, userID, amount string) (core.Money, error) {
	if userID == "" {
		return core.Money{}, ErrNoUser
	}
	if strings.TrimSpace(amount) == "" {
		return core.Money{}, missingFields(core.ErrInvalidAmount)
	}
	income, err := core.ParseNonNegativeMoney(amount)
	if err != nil {
		return core.Money{}, invalidNumbers(err)
	}
	if err := s.store.SetMonthlyIncome(ctx, userID, income); err != nil {
		return core.Money{}, storeErr("set monthly income", err)
	}
	s.changed(ctx, log.OpUpdate, userID, store.Profile, "")
	return income, nil
}

// OnboardingInput is the first sign-in form.
type OnboardingInput struct {
	MonthlyIncome string
	FixedExpenses []FixedExpenseInput
}

// Onboard records the first sign-in: the profile (with its embedded copy of
// the fixed expenses) and one fixed expense record per entry. All inputs are
// validated before anything is written.
func (s *BudgetService) Onboard(ctx context.Context, userID string, in OnboardingInput) (core.UserProfile, error) {
	if userID == "" {
		return core.UserProfile{}, ErrNoUser
	}
	if strings.TrimSpace(in.MonthlyIncome) == "" {
		return core.UserProfile{}, missingFields(core.ErrInvalidAmount)
	}
	income, err := core.ParseNonNegativeMoney(in.MonthlyIncome)
	if err != nil {
		return core.UserProfile{}, invalidNumbers(err)
	}
	fixed := make([]core.FixedExpense, 0, len(in.FixedExpenses))
	for _, fi := range in.FixedExpenses {
		f, err := fi.parse()
		if err != nil {
			return core.UserProfile{}, err
		}
		fixed = append(fixed, f)
	}

	p := core.UserProfile{MonthlyIncome: income, FixedExpenses: fixed}
	if err := s.store.SetProfile(ctx, userID, p); err != nil {
		return core.UserProfile{}, storeErr("set profile", err)
	}
	for i := range fixed {
		id, err := s.store.AddFixedExpense(ctx, userID, fixed[i])
		if err != nil {
			return core.UserProfile{}, storeErr("add fixed expense", err)
		}
		fixed[i].ID = id
	}
	s.logger.InfoContext(ctx, "User onboarded",
		log.FieldUserID, userID, log.FieldOperation, log.OpOnboard, "fixed_expenses", len(fixed))
	s.changed(ctx, log.OpCreate, userID, store.Profile, "")
	if len(fixed) > 0 {
		s.changed(ctx, log.OpCreate, userID, store.FixedExpenses, "")
	}
	return p, nil
}

// ErrNoBlobStore is returned by UploadReceipt when uploads are disabled.
var ErrNoBlobStore = errors.New("receipt uploads are not configured")

// UploadReceipt stores a receipt image and returns its URL, to be saved on a
// transaction by the caller.
func (s *BudgetService) UploadReceipt(ctx context.Context, userID, contentType string, r io.Reader) (string, error) {
	if userID == "" {
		return "", ErrNoUser
	}
	if s.blobs == nil {
		return "", ErrNoBlobStore
	}
	key := blob.ReceiptKey(userID)
	url, err := s.blobs.Put(ctx, key, contentType, r)
	if err != nil {
		return "", storeErr("upload receipt", err)
	}
	s.logger.InfoContext(ctx, "Receipt uploaded",
		log.FieldUserID, userID, log.FieldBlobKey, key, log.FieldOperation, log.OpUpload)
	return url, nil
}

// Snapshot is every collection of one user, read together.
type Snapshot struct {
	Transactions  []core.Transaction
	FixedExpenses []core.FixedExpense
	Profile       core.UserProfile
	Categories    []core.Category
	Goals         []core.Goal
}

// LoadSnapshot reads all collections concurrently. Transactions are limited
// to timestamp >= since (zero for all).
func (s *BudgetService) LoadSnapshot(ctx context.Context, userID string, since time.Time) (Snapshot, error) {
	var snap Snapshot
	if userID == "" {
		return snap, nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Transactions, err = s.store.ListTransactions(ctx, userID, since)
		return wrapIf("list transactions", err)
	})
	g.Go(func() (err error) {
		snap.FixedExpenses, err = s.store.ListFixedExpenses(ctx, userID)
		return wrapIf("list fixed expenses", err)
	})
	g.Go(func() (err error) {
		snap.Profile, err = s.store.GetProfile(ctx, userID)
		return wrapIf("get profile", err)
	})
	g.Go(func() (err error) {
		snap.Categories, err = s.store.ListCategories(ctx, userID)
		return wrapIf("list categories", err)
	})
	g.Go(func() (err error) {
		snap.Goals, err = s.store.ListGoals(ctx, userID)
		return wrapIf("list goals", err)
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func wrapIf(op string, err error) error {
	if err == nil {
		return nil
	}
	return storeErr(op, err)
}
