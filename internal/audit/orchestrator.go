// Package audit drives one audit from pending to a terminal state: it runs
// the category scanners, aggregates their scores, attaches a narrative and
// persists the outcome.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Bahjat/site-audit/internal/model"
	"github.com/Bahjat/site-audit/internal/narrative"
	"github.com/Bahjat/site-audit/internal/platform/errs"
	"github.com/Bahjat/site-audit/internal/platform/requestid"
	"github.com/Bahjat/site-audit/internal/scanner"
	"github.com/Bahjat/site-audit/internal/score"
	"github.com/Bahjat/site-audit/internal/store"
)

const (
	defaultMaxDuration   = 300 * time.Second
	terminalWriteTimeout = 5 * time.Second
	saveAttempts         = 3
	saveBaseDelay        = 200 * time.Millisecond
)

// Archiver receives completed audits. Failures are logged and ignored.
type Archiver interface {
	Put(ctx context.Context, a *model.AuditRequest) error
}

// Orchestrator runs audits against a Repository.
type Orchestrator struct {
	repo        store.Repository
	scanners    []scanner.Scanner
	summarizer  narrative.Summarizer
	archiver    Archiver
	logger      *slog.Logger
	maxDuration time.Duration
	now         func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithSummarizer sets the primary summarizer. The template is always used as
// a fallback.
func WithSummarizer(s narrative.Summarizer) Option {
	return func(o *Orchestrator) { o.summarizer = narrative.WithFallback(s, o.logger) }
}

// WithArchiver uploads every completed audit.
func WithArchiver(a Archiver) Option {
	return func(o *Orchestrator) { o.archiver = a }
}

// WithMaxDuration bounds a whole audit run.
func WithMaxDuration(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.maxDuration = d
		}
	}
}

// New returns an Orchestrator running the given scanners.
func New(repo store.Repository, scanners []scanner.Scanner, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		repo:        repo,
		scanners:    scanners,
		logger:      logger,
		maxDuration: defaultMaxDuration,
		now:         time.Now,
	}
	o.summarizer = narrative.WithFallback(nil, logger)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes the pending audit id to completion or failure. The record is
// always left in a terminal state once it has moved to processing.
func (o *Orchestrator) Run(ctx context.Context, id string) error {
	logger := o.logger.With("audit_id", id, "request_id", requestid.FromContext(ctx))

	a, err := o.repo.Load(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return &errs.AppError{Kind: errs.NotFound, Message: "Audit not found", Cause: err}
	}
	if err != nil {
		return &errs.AppError{Kind: errs.Persistence, Message: "Failed to load audit", Cause: err}
	}
	if a.Status != model.StatusPending {
		return &errs.AppError{Kind: errs.Conflict, Message: fmt.Sprintf("Audit is already %s", a.Status)}
	}
	logger = logger.With("url", a.URL)

	start := o.now()
	if err := ValidateURL(a.URL); err != nil {
		_ = o.fail(ctx, logger, a, err.Error(), start)
		return err
	}

	a.Status = model.StatusProcessing
	a.UpdatedAt = start
	if err := o.repo.Save(ctx, a); err != nil {
		return &errs.AppError{Kind: errs.Persistence, Message: "Failed to start audit", Cause: err}
	}
	logger.Info("audit started")

	runCtx, cancel := context.WithTimeout(ctx, o.maxDuration)
	defer cancel()

	results := o.scan(runCtx, logger, a.URL)

	// An overrun or cancellation is an outcome of the audit, recorded on the
	// failed record rather than returned.
	if err := runCtx.Err(); err != nil {
		msg := "audit cancelled"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("audit exceeded the maximum duration of %s", o.maxDuration)
		}
		if err := o.fail(ctx, logger, a, msg, start); err != nil {
			return &errs.AppError{Kind: errs.Persistence, Message: "Failed to save failed audit", Cause: err}
		}
		return nil
	}

	scores := &model.Scores{}
	for c, r := range results {
		scores.Set(c, r.Score)
	}
	scores.Overall = score.Overall(*scores)

	summary, _ := o.summarizer.Summarize(runCtx, a.URL, results, *scores)

	finished := o.now()
	elapsed := finished.Sub(start).Seconds()
	a.Status = model.StatusCompleted
	a.Results = results
	a.Scores = scores
	a.NarrativeSummary = summary
	a.CompletedAt = &finished
	a.ProcessingTime = &elapsed
	a.UpdatedAt = finished
	a.ErrorMessage = ""

	if err := o.saveTerminal(ctx, a); err != nil {
		logger.Error("saving completed audit failed", "error", err)
		_ = o.fail(ctx, logger, a, "failed to persist audit results", start)
		return &errs.AppError{Kind: errs.Persistence, Message: "Failed to save audit results", Cause: err}
	}

	logger.Info("audit completed",
		"overall", scores.Overall,
		"security", scores.Security,
		"performance", scores.Performance,
		"seo", scores.SEO,
		"ux", scores.UX,
		"accessibility", scores.Accessibility,
		"processing_time", elapsed,
	)

	if o.archiver != nil {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := o.archiver.Put(actx, a); err != nil {
			logger.Warn("archiving audit failed", "error", err)
		}
	}
	return nil
}

// RunURL creates an audit for rawURL and runs it. The final record is
// returned even when the run fails.
func (o *Orchestrator) RunURL(ctx context.Context, rawURL string) (*model.AuditRequest, error) {
	a := NewRequest(rawURL, o.now())
	if err := o.repo.Create(ctx, a); err != nil {
		return nil, &errs.AppError{Kind: errs.Persistence, Message: "Failed to create audit", Cause: err}
	}
	runErr := o.Run(ctx, a.ID)

	final, err := o.repo.Load(context.WithoutCancel(ctx), a.ID)
	if err != nil {
		return a, errors.Join(runErr, err)
	}
	return final, runErr
}

// scan runs every scanner concurrently. A scanner that panics past its own
// guard gets a zero-score result.
func (o *Orchestrator) scan(ctx context.Context, logger *slog.Logger, url string) map[model.Category]model.ScanResult {
	out := make([]model.ScanResult, len(o.scanners))

	var wg sync.WaitGroup
	for i, s := range o.scanners {
		wg.Go(func() {
			started := o.now()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("scanner panicked", "category", s.Category(), "panic", r)
					out[i] = scanner.InternalFailure(s.Category(), url, fmt.Errorf("panic: %v", r))
				}
			}()
			out[i] = s.Scan(ctx, url)
			logger.Debug("scanner finished",
				"category", s.Category(),
				"score", out[i].Score,
				"issues", len(out[i].Issues),
				"method", out[i].FetchMethod,
				"duration", o.now().Sub(started),
			)
		})
	}
	wg.Wait()

	results := make(map[model.Category]model.ScanResult, len(model.Categories))
	for i, s := range o.scanners {
		results[s.Category()] = out[i]
	}
	for _, c := range model.Categories {
		if _, ok := results[c]; !ok {
			results[c] = scanner.InternalFailure(c, url, errors.New("no scanner registered"))
		}
	}
	return results
}

// fail moves a to the failed state. The save error is logged and returned
// for callers with nothing else to report.
func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, a *model.AuditRequest, msg string, start time.Time) error {
	finished := o.now()
	elapsed := finished.Sub(start).Seconds()
	a.Status = model.StatusFailed
	a.ErrorMessage = msg
	a.CompletedAt = &finished
	a.ProcessingTime = &elapsed
	a.UpdatedAt = finished
	a.Results = nil
	a.Scores = nil
	a.NarrativeSummary = ""

	if err := o.saveTerminal(ctx, a); err != nil {
		logger.Error("saving failed audit failed", "error", err)
		return err
	}
	logger.Warn("audit failed", "reason", msg, "processing_time", elapsed)
	return nil
}

// saveTerminal writes a terminal record on a context detached from ctx's
// cancellation so shutdown never leaves an audit in processing.
func (o *Orchestrator) saveTerminal(ctx context.Context, a *model.AuditRequest) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
	defer cancel()
	var missing error
	err := retry(wctx, saveAttempts, saveBaseDelay, func() error {
		err := o.repo.Save(wctx, a)
		if errors.Is(err, store.ErrNotFound) {
			missing = err
			return nil
		}
		return err
	})
	if missing != nil {
		return missing
	}
	return err
}
