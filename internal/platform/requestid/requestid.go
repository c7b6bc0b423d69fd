// Package requestid carries a per-request correlation id through contexts
// and into logs and background audit runs.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header a request id is read from and echoed in.
const Header = "X-Request-ID"

type ctxKey struct{}

// New returns a fresh random id.
func New() string { return uuid.NewString() }

// NewContext returns a context that carries the given request ID.
func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request ID stored in ctx, or an empty string.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Detach returns a background context that keeps only the request id of ctx.
// Audits enqueued from a request outlive it but stay correlated in logs.
func Detach(ctx context.Context) context.Context {
	return NewContext(context.Background(), FromContext(ctx))
}
