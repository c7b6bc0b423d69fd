package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxRedirects matches what browsers tolerate. Long chains are scored by the
// performance scanner rather than failing the fetch.
const maxRedirects = 20

var (
	errTooManyRedirects = errors.New("too many redirects")
	errBlockedRedirect  = errors.New("redirect to non-http(s) scheme blocked")
)

// HTTPOptions configures the plain HTTP strategy and the transport shared
// with probes.
type HTTPOptions struct {
	Timeout      time.Duration
	AllowPrivate bool
	// TLSConfig overrides the transport's TLS settings (tests trust httptest CAs through it).
	TLSConfig *tls.Config
}

// HTTPClient performs a single GET with browser-like headers.
type HTTPClient struct {
	client *http.Client
}

// httpResponse is what one GET produced, after decompression and decoding.
type httpResponse struct {
	HTML       string
	StatusCode int
	Headers    http.Header
	FinalURL   string
	Redirects  int
	PageSize   int
	LoadTime   time.Duration
}

// NewTransport returns the transport used for every outbound HTTP request.
// Unless opts.AllowPrivate is set it refuses private/reserved addresses.
func NewTransport(opts HTTPOptions) *http.Transport {
	return &http.Transport{
		DialContext:           NewDialer(opts.AllowPrivate).DialContext,
		TLSClientConfig:       opts.TLSConfig,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxConnsPerHost:       10,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// NewHTTPClient returns an HTTPClient with the given timeout (30s if zero),
// a dedicated transport and redirect validation that prevents SSRF via
// redirect chains.
func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &HTTPClient{
		client: &http.Client{
			Timeout:       opts.Timeout,
			Transport:     NewTransport(opts),
			CheckRedirect: safeRedirectPolicy,
		},
	}
}

// safeRedirectPolicy validates redirect targets and limits the redirect chain length.
func safeRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("%w: %s", errBlockedRedirect, req.URL.Scheme)
	}
	return nil
}

// SetBrowserHeaders sets the headers a desktop browser sends with a page
// request, identifying as userAgent.
func SetBrowserHeaders(h http.Header, userAgent string) {
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Connection", "keep-alive")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Cache-Control", "max-age=0")
}

// Get fetches targetURL and reads the whole body. Load time runs from just
// before the request is sent until the body has been read.
func (c *HTTPClient) Get(ctx context.Context, targetURL, userAgent string) (*httpResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}
	SetBrowserHeaders(req.Header, userAgent)

	redirects := 0
	client := *c.client
	client.CheckRedirect = func(r *http.Request, via []*http.Request) error {
		redirects = len(via)
		return safeRedirectPolicy(r, via)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	loadTime := time.Since(start)

	body, err := decompress(raw, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, err
	}

	return &httpResponse{
		HTML:       toUTF8(body, resp.Header.Get("Content-Type")),
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		FinalURL:   resp.Request.URL.String(),
		Redirects:  redirects,
		PageSize:   len(body),
		LoadTime:   loadTime,
	}, nil
}
