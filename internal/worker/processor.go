package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"budgethero/internal/log"
)

// ProcessorConfig holds the schedule of the resync processor.
type ProcessorConfig struct {
	// ResyncInterval is how often every user is mirrored again (default: 5m)
	ResyncInterval time.Duration

	// RetryInterval is how often users that failed are retried (default: 30s)
	RetryInterval time.Duration

	// MaxRetries is how many retries a user gets before waiting for the next
	// full resync (default: 3)
	MaxRetries int
}

func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		ResyncInterval: 5 * time.Minute,
		RetryInterval:  30 * time.Second,
		MaxRetries:     3,
	}
}

// Syncer is the part of SyncWorker the processor drives.
type Syncer interface {
	SyncAll(ctx context.Context) (SyncResult, error)
	SyncUsers(ctx context.Context, userIDs []string) SyncResult
}

// Processor runs the periodic full resync and retries failed users.
type Processor struct {
	syncer Syncer
	config ProcessorConfig
	logger *log.Logger

	failedMu sync.Mutex
	failed   map[string]int // user -> attempts so far

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewProcessor(syncer Syncer, config ProcessorConfig, logger *log.Logger) *Processor {
	def := DefaultProcessorConfig()
	if config.ResyncInterval <= 0 {
		config.ResyncInterval = def.ResyncInterval
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = def.RetryInterval
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	}
	return &Processor{
		syncer: syncer,
		config: config,
		logger: logger,
		failed: map[string]int{},
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("resync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Resync processor started",
		"resync_interval", p.config.ResyncInterval,
		"retry_interval", p.config.RetryInterval)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *Processor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Resync processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Resync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Processor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	resyncTicker := time.NewTicker(p.config.ResyncInterval)
	defer resyncTicker.Stop()

	retryTicker := time.NewTicker(p.config.RetryInterval)
	defer retryTicker.Stop()

	// Resync immediately on startup
	p.resync(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-resyncTicker.C:
			p.resync(ctx)
		case <-retryTicker.C:
			p.retryFailed(ctx)
		}
	}
}

func (p *Processor) resync(ctx context.Context) {
	res, err := p.syncer.SyncAll(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Full ledger sync failed", log.FieldError, err)
		return
	}
	p.failedMu.Lock()
	defer p.failedMu.Unlock()
	// a full pass starts every user's retry budget over
	p.failed = map[string]int{}
	for uid := range res.Failed {
		p.failed[uid] = 0
	}
}

func (p *Processor) retryFailed(ctx context.Context) {
	users := p.Pending()
	if len(users) == 0 {
		return
	}
	res := p.syncer.SyncUsers(ctx, users)

	p.failedMu.Lock()
	defer p.failedMu.Unlock()
	for _, uid := range users {
		if _, failed := res.Failed[uid]; !failed {
			delete(p.failed, uid)
			continue
		}
		p.failed[uid]++
		if p.failed[uid] >= p.config.MaxRetries {
			p.logger.ErrorContext(ctx, "Ledger sync failed after max retries, waiting for next full resync",
				log.FieldUserID, uid, "attempts", p.failed[uid], log.FieldError, res.Failed[uid])
			delete(p.failed, uid)
		}
	}
}

// Pending returns the users waiting for a retry, sorted.
func (p *Processor) Pending() []string {
	p.failedMu.Lock()
	defer p.failedMu.Unlock()
	out := make([]string, 0, len(p.failed))
	for uid := range p.failed {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out
}
