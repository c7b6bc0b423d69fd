package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Bahjat/site-audit/internal/audit"
	"github.com/Bahjat/site-audit/internal/model"
	"github.com/Bahjat/site-audit/internal/platform/errs"
	"github.com/Bahjat/site-audit/internal/platform/requestid"
	"github.com/Bahjat/site-audit/internal/store"
)

// Service creates, runs and looks up audits for the HTTP layer.
type Service struct {
	repo   store.Repository
	runner AuditRunner
	queue  Queue
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a Service. queue may be nil, in which case created
// audits wait for the next poll.
func NewService(repo store.Repository, runner AuditRunner, queue Queue, logger *slog.Logger) *Service {
	return &Service{repo: repo, runner: runner, queue: queue, logger: logger, now: time.Now}
}

// Create stores a pending audit for targetURL and hands it to the workers.
func (s *Service) Create(ctx context.Context, targetURL string) (*model.AuditRequest, error) {
	a, err := s.create(ctx, targetURL)
	if err != nil {
		return nil, err
	}
	if s.queue != nil {
		s.queue.Enqueue(a.ID)
	}
	return a, nil
}

// RunNow stores an audit for targetURL and runs it on the caller's context.
// The final record is returned with the run error, if any.
func (s *Service) RunNow(ctx context.Context, targetURL string) (*model.AuditRequest, error) {
	a, err := s.create(ctx, targetURL)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With("audit_id", a.ID, "url", a.URL, "request_id", requestid.FromContext(ctx))

	runErr := s.runner.Run(ctx, a.ID)
	if runErr != nil {
		logger.Error("inline audit failed", "error", runErr, "kind", errs.KindOf(runErr).String())
	}

	final, err := s.repo.Load(context.WithoutCancel(ctx), a.ID)
	if err != nil {
		return nil, &errs.AppError{Kind: errs.Persistence, Message: "Failed to load audit", Cause: err}
	}
	if runErr == nil {
		logger.Info("inline audit complete", "status", final.Status, "overall", overall(final))
	}
	return final, runErr
}

// Get returns the audit with the given id.
func (s *Service) Get(ctx context.Context, id string) (*model.AuditRequest, error) {
	a, err := s.repo.Load(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &errs.AppError{Kind: errs.NotFound, Message: "Audit not found", Cause: err}
	}
	if err != nil {
		s.logger.Error("loading audit failed", "audit_id", id, "request_id", requestid.FromContext(ctx), "error", err)
		return nil, &errs.AppError{Kind: errs.Persistence, Message: "Failed to load audit", Cause: err}
	}
	return a, nil
}

func (s *Service) create(ctx context.Context, targetURL string) (*model.AuditRequest, error) {
	if err := audit.ValidateURL(targetURL); err != nil {
		return nil, err
	}
	a := audit.NewRequest(targetURL, s.now())
	if err := s.repo.Create(ctx, a); err != nil {
		s.logger.Error("creating audit failed", "url", a.URL, "request_id", requestid.FromContext(ctx), "error", err)
		return nil, &errs.AppError{Kind: errs.Persistence, Message: "Failed to create audit", Cause: err}
	}
	s.logger.Info("audit created", "audit_id", a.ID, "url", a.URL, "domain", a.Domain,
		"request_id", requestid.FromContext(ctx))
	return a, nil
}

func overall(a *model.AuditRequest) float64 {
	if a.Scores == nil {
		return 0
	}
	return a.Scores.Overall
}
