package fetcher

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// userAgents is the fixed identity rotation, picked round-robin by request count.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// PacerConfig holds the delay ranges. The zero value disables every delay.
type PacerConfig struct {
	MinDelay time.Duration
	MaxDelay time.Duration

	// RapidExtra is added when the previous request was less than MinDelay ago.
	RapidExtraMin time.Duration
	RapidExtraMax time.Duration

	// BurstExtra is added once more than BurstAfter requests have been made.
	BurstAfter    int
	BurstExtraMin time.Duration
	BurstExtraMax time.Duration
}

// DefaultPacerConfig returns the production delay policy.
func DefaultPacerConfig(minDelay, maxDelay time.Duration) PacerConfig {
	return PacerConfig{
		MinDelay:      minDelay,
		MaxDelay:      maxDelay,
		RapidExtraMin: 500 * time.Millisecond,
		RapidExtraMax: 1500 * time.Millisecond,
		BurstAfter:    5,
		BurstExtraMin: time.Second,
		BurstExtraMax: 2 * time.Second,
	}
}

// Ticket is what a caller receives after paying the delay.
type Ticket struct {
	Seq       int
	UserAgent string
	Delay     time.Duration
}

// Pacer spaces out requests and rotates identities. It is shared by every
// fetch in the process; the counter and last-request time are guarded by mu,
// while the sleep itself happens outside the lock so concurrent callers each
// pay their own delay.
type Pacer struct {
	cfg PacerConfig

	mu    sync.Mutex
	count int
	last  time.Time

	now    func() time.Time
	rand   func() float64
	sleep  func(ctx context.Context, d time.Duration) error
	agents []string
}

// NewPacer returns a Pacer using the wall clock and math/rand/v2.
func NewPacer(cfg PacerConfig) *Pacer {
	return &Pacer{
		cfg:    cfg,
		now:    time.Now,
		rand:   rand.Float64,
		sleep:  sleepContext,
		agents: userAgents,
	}
}

// Wait computes this call's delay, records the request, sleeps, and returns
// the identity to use. It returns ctx.Err() if the context ends while sleeping.
func (p *Pacer) Wait(ctx context.Context) (Ticket, error) {
	p.mu.Lock()
	now := p.now()
	delay := p.between(p.cfg.MinDelay, p.cfg.MaxDelay)
	if !p.last.IsZero() && now.Sub(p.last) < p.cfg.MinDelay {
		delay += p.between(p.cfg.RapidExtraMin, p.cfg.RapidExtraMax)
	}
	if p.cfg.BurstAfter > 0 && p.count > p.cfg.BurstAfter {
		delay += p.between(p.cfg.BurstExtraMin, p.cfg.BurstExtraMax)
	}
	p.count++
	seq := p.count
	// The next caller measures its gap from when this request will actually go out.
	p.last = now.Add(delay)
	p.mu.Unlock()

	t := Ticket{
		Seq:       seq,
		UserAgent: p.agents[seq%len(p.agents)],
		Delay:     delay,
	}

	if delay > 0 {
		if err := p.sleep(ctx, delay); err != nil {
			return t, err
		}
	}
	return t, nil
}

func (p *Pacer) between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(p.rand()*float64(hi-lo))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
