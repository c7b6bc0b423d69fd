package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Method records which strategy produced a Result.
type Method string

const (
	MethodHeadless Method = "headless"
	MethodHTTP     Method = "http"
	MethodFailed   Method = "failed"
)

var errEmptyRender = errors.New("renderer returned no html")

// Rendered is what a headless render produces.
type Rendered struct {
	HTML       string
	StatusCode int
	Headers    http.Header
	LoadTime   time.Duration
}

// Renderer is the optional headless strategy. Available is checked before
// every attempt so a renderer can report a missing browser at runtime.
type Renderer interface {
	Available() bool
	Render(ctx context.Context, url, userAgent string) (*Rendered, error)
}

// Timing describes the measured request.
type Timing struct {
	LoadTime     time.Duration `json:"load_time"`
	PageSize     int           `json:"page_size"`
	Redirects    int           `json:"redirects"`
	UserAgent    string        `json:"user_agent"`
	RequestCount int           `json:"request_count"`
}

// Result is the outcome of one Fetch. Err is set whenever the page is not
// usable as-is: transport failures and statuses >= 400. HTML, status and
// headers are kept for context when a response arrived.
type Result struct {
	HTML         string
	StatusCode   int
	Headers      http.Header
	FinalURL     string
	Timing       Timing
	Method       Method
	Err          *Error
	FallbackUsed bool
}

// OK reports whether the fetch produced a usable page.
func (r *Result) OK() bool { return r.Err == nil }

// Fetcher retrieves a single page, headless first when available, falling
// back to plain HTTP. Every call is paced.
type Fetcher struct {
	http     *HTTPClient
	renderer Renderer
	pacer    *Pacer
	timeout  time.Duration
	logger   *slog.Logger
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithRenderer installs a headless strategy.
func WithRenderer(r Renderer) Option {
	return func(f *Fetcher) { f.renderer = r }
}

// WithTimeout bounds each strategy attempt.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// New returns a Fetcher using client for plain HTTP and pacer for delays.
func New(client *HTTPClient, pacer *Pacer, logger *slog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		http:    client,
		pacer:   pacer,
		timeout: 30 * time.Second,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves targetURL. It never returns nil. A headless attempt that
// errors, renders nothing or reports a status >= 400 falls back to HTTP.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) *Result {
	ticket, err := f.pacer.Wait(ctx)
	if err != nil {
		return &Result{Method: MethodFailed, Err: Classify(err)}
	}
	timing := Timing{UserAgent: ticket.UserAgent, RequestCount: ticket.Seq}
	logger := f.logger.With("url", targetURL, "request_seq", ticket.Seq)

	fallback := false
	if f.renderer != nil && f.renderer.Available() {
		res, err := f.render(ctx, targetURL, ticket.UserAgent, timing)
		if err == nil {
			return res
		}
		logger.Warn("headless render failed, falling back to http", "error", err)
		fallback = true
	}

	res := f.get(ctx, targetURL, ticket.UserAgent, timing)
	res.FallbackUsed = fallback
	if res.Err != nil {
		logger.Info("fetch degraded", "kind", res.Err.Kind, "status", res.StatusCode, "error", res.Err)
	}
	return res
}

func (f *Fetcher) render(ctx context.Context, targetURL, userAgent string, timing Timing) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	r, err := f.renderer.Render(ctx, targetURL, userAgent)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(r.HTML) == "" || r.StatusCode == 0 {
		return nil, errEmptyRender
	}
	if se := statusError(r.StatusCode); se != nil {
		return nil, se
	}

	timing.LoadTime = r.LoadTime
	timing.PageSize = len(r.HTML)
	headers := r.Headers
	if headers == nil {
		headers = http.Header{}
	}
	return &Result{
		HTML:       r.HTML,
		StatusCode: r.StatusCode,
		Headers:    headers,
		FinalURL:   targetURL,
		Timing:     timing,
		Method:     MethodHeadless,
	}, nil
}

func (f *Fetcher) get(ctx context.Context, targetURL, userAgent string, timing Timing) *Result {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	resp, err := f.http.Get(ctx, targetURL, userAgent)
	if err != nil {
		return &Result{
			Headers: http.Header{},
			Timing:  timing,
			Method:  MethodFailed,
			Err:     Classify(err),
		}
	}

	timing.LoadTime = resp.LoadTime
	timing.PageSize = resp.PageSize
	timing.Redirects = resp.Redirects
	return &Result{
		HTML:       resp.HTML,
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		FinalURL:   resp.FinalURL,
		Timing:     timing,
		Method:     MethodHTTP,
		Err:        statusError(resp.StatusCode),
	}
}
