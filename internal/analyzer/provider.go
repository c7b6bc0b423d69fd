package analyzer

import (
	"context"
)

// AuditRunner defines the contract for whatever drives a pending audit to a
// terminal state.
type AuditRunner interface {
	Run(ctx context.Context, id string) error
}

// Queue hands newly created audits to the background workers.
type Queue interface {
	Enqueue(id string)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
