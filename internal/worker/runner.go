// Package worker runs pending audits in the background.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Bahjat/site-audit/internal/platform/errs"
	"github.com/Bahjat/site-audit/internal/store"
)

// Processor runs one pending audit to a terminal state.
type Processor interface {
	Run(ctx context.Context, id string) error
}

// Config sizes the pool.
type Config struct {
	Concurrency  int
	PollInterval time.Duration
	// StaleAfter is how long an audit may sit in processing before the
	// start-up sweep fails it.
	StaleAfter time.Duration
}

// Runner claims pending audits from the repository and hands them to
// Concurrency workers.
type Runner struct {
	repo   store.Repository
	proc   Processor
	logger *slog.Logger
	cfg    Config
	wake   chan struct{}
}

// New returns a Runner. Zero config fields get defaults.
func New(repo store.Repository, proc Processor, logger *slog.Logger, cfg Config) *Runner {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = store.ClaimTTL
	}
	return &Runner{
		repo:   repo,
		proc:   proc,
		logger: logger,
		cfg:    cfg,
		wake:   make(chan struct{}, 1),
	}
}

// Enqueue asks the dispatcher to claim immediately instead of waiting for
// the next tick. The audit itself is picked up through ClaimPending so a
// record is never run twice.
func (r *Runner) Enqueue(id string) {
	select {
	case r.wake <- struct{}{}:
		r.logger.Debug("dispatcher woken", "audit_id", id)
	default:
	}
}

// Run fails audits left in processing by a previous process, then dispatches
// until ctx is cancelled. It returns once every worker has exited.
func (r *Runner) Run(ctx context.Context) {
	if n, err := r.repo.FailStale(ctx, r.cfg.StaleAfter); err != nil {
		r.logger.Error("failing stale audits", "error", err)
	} else if n > 0 {
		r.logger.Warn("failed stale audits", "count", n)
	}

	jobs := make(chan string, r.cfg.Concurrency)

	var wg sync.WaitGroup
	for i := range r.cfg.Concurrency {
		wg.Go(func() { r.work(ctx, i, jobs) })
	}

	r.dispatch(ctx, jobs)
	close(jobs)
	wg.Wait()
}

func (r *Runner) dispatch(ctx context.Context, jobs chan<- string) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		r.claim(ctx, jobs)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-r.wake:
		}
	}
}

// claim fetches at most as many audits as the queue has room for, so a
// claimed id never waits behind a full channel.
func (r *Runner) claim(ctx context.Context, jobs chan<- string) {
	free := cap(jobs) - len(jobs)
	if free == 0 || ctx.Err() != nil {
		return
	}
	ids, err := r.repo.ClaimPending(ctx, free)
	if err != nil {
		r.logger.Error("claiming pending audits", "error", err)
		return
	}
	for _, id := range ids {
		select {
		case jobs <- id:
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) work(ctx context.Context, idx int, jobs <-chan string) {
	for id := range jobs {
		if ctx.Err() != nil {
			continue
		}
		err := r.proc.Run(ctx, id)
		switch errs.KindOf(err) {
		case errs.Unknown:
			if err != nil {
				r.logger.Error("audit run failed", "worker", idx, "audit_id", id, "error", err)
			}
		case errs.Conflict, errs.NotFound:
			r.logger.Debug("audit skipped", "worker", idx, "audit_id", id, "reason", err)
		default:
			r.logger.Warn("audit run failed", "worker", idx, "audit_id", id, "error", err)
		}
	}
}
