// Package worker mirrors every user's all-time ledger into Google Sheets,
// driven by change messages and a periodic full resync.
package worker

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"budgethero/internal/amqp"
	"budgethero/internal/core"
	"budgethero/internal/log"
	"budgethero/internal/services"
	"budgethero/internal/sheets"
	"budgethero/internal/store"
)

// MirrorPeriod is the period every mirrored ledger covers.
const MirrorPeriod = "All time"

type (
	// LedgerSource builds the export rows of a user's ledger.
	LedgerSource interface {
		LedgerReport(ctx context.Context, userID, period, sort string) (services.Report, error)
	}

	UserLister interface {
		ListUsers(ctx context.Context) ([]string, error)
	}
)

// SyncWorker rewrites a user's ledger tab whenever its rows change.
type SyncWorker struct {
	ledgers     LedgerSource
	users       UserLister
	mirror      sheets.LedgerMirror
	logger      *log.Logger
	concurrency int

	// one lock per user so concurrent triggers never interleave clear+write
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSyncWorker(ledgers LedgerSource, users UserLister, mirror sheets.LedgerMirror, logger *log.Logger, concurrency int) *SyncWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &SyncWorker{
		ledgers:     ledgers,
		users:       users,
		mirror:      mirror,
		logger:      logger,
		concurrency: concurrency,
		locks:       map[string]*sync.Mutex{},
	}
}

// affectsLedger reports whether a change to c can alter ledger rows. The
// rows list fixed expenses and transactions only.
func affectsLedger(c store.Collection) bool {
	return c == store.Transactions || c == store.FixedExpenses
}

// HandleChangeMessage processes one change message from AMQP. An error
// leaves the message on the queue for redelivery.
func (w *SyncWorker) HandleChangeMessage(ctx context.Context, msg *amqp.ChangeMessage) error {
	if !affectsLedger(msg.Collection) {
		w.logger.DebugContext(ctx, "Ignoring change outside the ledger",
			log.FieldUserID, msg.UserID, log.FieldCollection, msg.Collection)
		return nil
	}
	w.logger.InfoContext(ctx, "Processing change message",
		log.FieldUserID, msg.UserID,
		log.FieldCollection, msg.Collection,
		"origin", msg.Origin,
		"timestamp", msg.Timestamp)

	if _, err := w.SyncUser(ctx, msg.UserID); err != nil {
		return fmt.Errorf("sync ledger of %s: %w", msg.UserID, err)
	}
	return nil
}

func (w *SyncWorker) userLock(userID string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		w.locks[userID] = l
	}
	return l
}

// SyncUser mirrors one user's ledger. It reports whether the sheet was
// rewritten; an unchanged sheet is left alone.
func (w *SyncWorker) SyncUser(ctx context.Context, userID string) (bool, error) {
	l := w.userLock(userID)
	l.Lock()
	defer l.Unlock()

	report, err := w.ledgers.LedgerReport(ctx, userID, MirrorPeriod, string(core.SortDateAsc))
	if err != nil {
		return false, fmt.Errorf("build ledger: %w", err)
	}
	current, err := w.mirror.ReadLedger(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("read mirror: %w", err)
	}
	if sheets.SameRows(current, report.Rows) {
		w.logger.DebugContext(ctx, "Ledger mirror up to date", log.FieldUserID, userID)
		return false, nil
	}
	ref, err := w.mirror.WriteLedger(ctx, userID, report.Rows)
	if err != nil {
		return false, fmt.Errorf("write mirror: %w", err)
	}
	w.logger.InfoContext(ctx, "Ledger mirrored",
		log.FieldUserID, userID,
		log.FieldOperation, log.OpSync,
		"rows", len(report.Rows),
		"sheets_ref", ref)
	return true, nil
}

// SyncResult summarizes a batch sync.
type SyncResult struct {
	Written   int
	Unchanged int
	Failed    map[string]error
}

// SyncUsers mirrors the given users with bounded concurrency. Failures are
// collected per user and never stop the batch.
func (w *SyncWorker) SyncUsers(ctx context.Context, userIDs []string) SyncResult {
	res := SyncResult{Failed: map[string]error{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, uid := range userIDs {
		uid := uid
		g.Go(func() error {
			written, err := w.SyncUser(gctx, uid)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				res.Failed[uid] = err
				w.logger.WarnContext(gctx, "Ledger sync failed", log.FieldUserID, uid, log.FieldError, err)
			case written:
				res.Written++
			default:
				res.Unchanged++
			}
			return nil
		})
	}
	_ = g.Wait()
	return res
}

// SyncAll mirrors every known user. It is the recovery path for change
// messages lost while the worker was down.
func (w *SyncWorker) SyncAll(ctx context.Context) (SyncResult, error) {
	users, err := w.users.ListUsers(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list users: %w", err)
	}
	res := w.SyncUsers(ctx, users)
	w.logger.InfoContext(ctx, "Full ledger sync completed",
		"users", len(users),
		"written", res.Written,
		"unchanged", res.Unchanged,
		"errors", len(res.Failed))
	return res, nil
}
