package scanner

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Bahjat/site-audit/internal/fetcher"
)

// sensitivePaths are checked for accidental public exposure.
var sensitivePaths = []string{"/.git/config", "/admin", "/wp-admin", "/phpmyadmin", "/.env"}

// ProbeResult is the outcome for one path.
type ProbeResult struct {
	Path       string `json:"path"`
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
	Error      string `json:"error,omitempty"`
}

// Exposed reports whether the path answered 200.
func (r ProbeResult) Exposed() bool { return r.StatusCode == http.StatusOK }

// PathProber requests a fixed list of paths with a small worker pool. It does
// not follow redirects, so a redirect to a login page is not an exposure.
type PathProber struct {
	client      *http.Client
	pacer       *fetcher.Pacer
	concurrency int
	limiter     *rate.Limiter
}

// NewPathProber returns a prober with the given per-request timeout. Each
// request waits on pacer and carries its identity, like a page fetch, and
// requests are capped at five per second. A nil pacer rotates identities
// without delays.
func NewPathProber(transport http.RoundTripper, pacer *fetcher.Pacer, timeout time.Duration, concurrency int) *PathProber {
	if concurrency < 1 {
		concurrency = 1
	}
	if pacer == nil {
		pacer = fetcher.NewPacer(fetcher.PacerConfig{})
	}
	return &PathProber{
		pacer:       pacer,
		concurrency: concurrency,
		limiter:     rate.NewLimiter(rate.Every(200*time.Millisecond), concurrency),
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// probe performs one GET and discards the body.
func (p *PathProber) probe(ctx context.Context, base *url.URL, path string) ProbeResult {
	target := base.ResolveReference(&url.URL{Path: path}).String()
	res := ProbeResult{Path: path, URL: target}

	if err := p.limiter.Wait(ctx); err != nil {
		res.Error = err.Error()
		return res
	}
	ticket, err := p.pacer.Wait(ctx)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	fetcher.SetBrowserHeaders(req.Header, ticket.UserAgent)
	resp, err := p.client.Do(req)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer func() { _ = resp.Body.Close() }()

	res.StatusCode = resp.StatusCode
	return res
}

// ProbeAll checks every path against pageURL's origin and returns results in
// path order.
func (p *PathProber) ProbeAll(ctx context.Context, pageURL string, paths []string) []ProbeResult {
	base, err := url.Parse(pageURL)
	if err != nil || len(paths) == 0 {
		return nil
	}
	base = &url.URL{Scheme: base.Scheme, Host: base.Host}

	type job struct {
		idx  int
		path string
	}
	jobs := make(chan job, len(paths))
	results := make([]ProbeResult, len(paths))

	var wg sync.WaitGroup
	for range min(len(paths), p.concurrency) {
		wg.Go(func() {
			for j := range jobs {
				results[j.idx] = p.probe(ctx, base, j.path)
			}
		})
	}

	for i, path := range paths {
		jobs <- job{idx: i, path: strings.TrimSpace(path)}
	}
	close(jobs)
	wg.Wait()

	return results
}
