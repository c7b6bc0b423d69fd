// Package store persists audit records.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Bahjat/site-audit/internal/model"
)

// ErrNotFound is returned when no audit has the requested id.
var ErrNotFound = errors.New("audit not found")

// ClaimTTL is how long a claimed pending audit is held before another
// dispatcher may claim it again.
const ClaimTTL = 10 * time.Minute

// StaleMessage is recorded on audits failed by FailStale.
const StaleMessage = "audit interrupted: processing did not finish before the service restarted"

// Repository is the storage contract used by the orchestrator, the worker
// and the HTTP API. Save writes the whole record atomically.
type Repository interface {
	Create(ctx context.Context, a *model.AuditRequest) error
	Load(ctx context.Context, id string) (*model.AuditRequest, error)
	Save(ctx context.Context, a *model.AuditRequest) error
	// ClaimPending returns up to limit pending audits, oldest first, that no
	// other dispatcher holds.
	ClaimPending(ctx context.Context, limit int) ([]string, error)
	// FailStale fails audits stuck in processing for longer than olderThan
	// and returns how many were changed.
	FailStale(ctx context.Context, olderThan time.Duration) (int, error)
}
