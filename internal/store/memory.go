package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Bahjat/site-audit/internal/model"
)

// Memory is an in-process Repository. Records are copied on the way in and
// out so callers never share state with the store.
type Memory struct {
	mu      sync.Mutex
	audits  map[string]*model.AuditRequest
	claimed map[string]time.Time
	now     func() time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		audits:  make(map[string]*model.AuditRequest),
		claimed: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *Memory) Create(_ context.Context, a *model.AuditRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.audits[a.ID]; ok {
		return fmt.Errorf("audit %s already exists", a.ID)
	}
	m.audits[a.ID] = clone(a)
	return nil
}

func (m *Memory) Load(_ context.Context, id string) (*model.AuditRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.audits[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(a), nil
}

func (m *Memory) Save(_ context.Context, a *model.AuditRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.audits[a.ID]; !ok {
		return ErrNotFound
	}
	m.audits[a.ID] = clone(a)
	if a.Status != model.StatusPending {
		delete(m.claimed, a.ID)
	}
	return nil
}

func (m *Memory) ClaimPending(_ context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var pending []*model.AuditRequest
	for id, a := range m.audits {
		if a.Status != model.StatusPending {
			continue
		}
		if at, ok := m.claimed[id]; ok && now.Sub(at) < ClaimTTL {
			continue
		}
		pending = append(pending, a)
	}
	slices.SortFunc(pending, func(a, b *model.AuditRequest) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	ids := make([]string, 0, min(limit, len(pending)))
	for _, a := range pending[:min(limit, len(pending))] {
		m.claimed[a.ID] = now
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (m *Memory) FailStale(_ context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for _, a := range m.audits {
		if a.Status != model.StatusProcessing || now.Sub(a.UpdatedAt) < olderThan {
			continue
		}
		elapsed := now.Sub(a.UpdatedAt).Seconds()
		a.Status = model.StatusFailed
		a.ErrorMessage = StaleMessage
		a.UpdatedAt = now
		a.CompletedAt = &now
		a.ProcessingTime = &elapsed
		n++
	}
	return n, nil
}

// clone copies a record including the issue and recommendation slices of
// every result.
func clone(a *model.AuditRequest) *model.AuditRequest {
	c := a.Clone()
	for k, r := range c.Results {
		r.Issues = slices.Clone(r.Issues)
		r.Recommendations = slices.Clone(r.Recommendations)
		c.Results[k] = r
	}
	return c
}
