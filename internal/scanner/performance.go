package scanner

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Bahjat/site-audit/internal/fetcher"
	"github.com/Bahjat/site-audit/internal/model"
)

// PerformanceMetrics is the raw data behind the performance score.
type PerformanceMetrics struct {
	LoadTimeMS      float64  `json:"load_time_ms"`
	PageSizeBytes   int      `json:"page_size_bytes"`
	StatusCode      int      `json:"status_code"`
	Redirects       int      `json:"redirects"`
	Compression     string   `json:"compression,omitempty"`
	HasCompression  bool     `json:"has_compression"`
	CacheHeaders    []string `json:"cache_headers"`
	HasCacheHeaders bool     `json:"has_cache_headers"`
	Method          string   `json:"method"`
}

var cacheHeaderNames = []string{"Cache-Control", "Expires", "Last-Modified", "ETag"}

// Performance scores load time, payload size, status, redirects,
// compression and cache headers from a single measured fetch.
type Performance struct {
	fetcher PageFetcher
}

// NewPerformance returns a Performance scanner.
func NewPerformance(f PageFetcher) *Performance {
	return &Performance{fetcher: f}
}

func (p *Performance) Category() model.Category { return model.CategoryPerformance }

// Scan measures the page. Statuses other than 403/404 are scored by the
// status tier instead of the failure policy, since the response itself is
// what is being measured.
func (p *Performance) Scan(ctx context.Context, url string) model.ScanResult {
	return guard(model.CategoryPerformance, url, func() (model.ScanResult, error) {
		page := p.fetcher.Fetch(ctx, url)
		if page.Err != nil && page.Err.Kind != fetcher.KindHTTPStatus {
			return degraded(model.CategoryPerformance, url, page), nil
		}
		return analyzePerformance(url, page), nil
	})
}

func analyzePerformance(url string, page *fetcher.Result) model.ScanResult {
	m := PerformanceMetrics{
		LoadTimeMS:    round1(float64(page.Timing.LoadTime) / float64(time.Millisecond)),
		PageSizeBytes: page.Timing.PageSize,
		StatusCode:    page.StatusCode,
		Redirects:     page.Timing.Redirects,
		Method:        string(page.Method),
		CacheHeaders:  []string{},
	}
	m.Compression, m.HasCompression = compression(page.Headers)
	for _, h := range cacheHeaderNames {
		if page.Headers.Get(h) != "" {
			m.CacheHeaders = append(m.CacheHeaders, strings.ToLower(h))
		}
	}
	m.HasCacheHeaders = len(m.CacheHeaders) > 0

	var (
		issues []model.Issue
		recs   []string
	)
	headers := location(url, "HTTP headers")
	general := location(url, "general")

	switch {
	case m.LoadTimeMS > 3000:
		issues = append(issues, model.Issue{
			Description: fmt.Sprintf("Very slow response time: %.0fms", m.LoadTimeMS),
			Severity:    model.SeverityHigh,
			Location:    general,
		})
		recs = append(recs, "Optimize server response time", "Consider using a CDN")
	case m.LoadTimeMS > 1000:
		issues = append(issues, model.Issue{
			Description: fmt.Sprintf("Slow response time: %.0fms", m.LoadTimeMS),
			Severity:    model.SeverityMedium,
			Location:    general,
		})
		recs = append(recs, "Optimize server response time")
	}

	if m.PageSizeBytes > 2<<20 {
		issues = append(issues, model.Issue{
			Description: fmt.Sprintf("Large page size: %.1fMB", float64(m.PageSizeBytes)/(1<<20)),
			Severity:    model.SeverityMedium,
			Location:    general,
		})
		recs = append(recs, "Optimize images and compress resources")
	}

	// 403 and 404 never get here: Scan hands them to the failure policy.
	if m.StatusCode >= 400 {
		issues = append(issues, model.Issue{
			Description: fmt.Sprintf("HTTP error status: %d", m.StatusCode),
			Severity:    model.SeverityHigh,
			Location:    general,
		})
		recs = append(recs, "Fix server errors")
	}

	if m.Redirects > 1 {
		issues = append(issues, model.Issue{
			Description: fmt.Sprintf("Multiple redirects: %d", m.Redirects),
			Severity:    model.SeverityMedium,
			Location:    general,
		})
		recs = append(recs, "Minimize redirect chains")
	}

	if !m.HasCompression {
		issues = append(issues, model.Issue{
			Description: "No compression enabled",
			Severity:    model.SeverityMedium,
			Location:    headers,
			Help:        "Serve HTML with gzip or brotli Content-Encoding.",
		})
		recs = append(recs, "Enable gzip or brotli compression")
	}

	if !m.HasCacheHeaders {
		issues = append(issues, model.Issue{
			Description: "No cache headers found",
			Severity:    model.SeverityLow,
			Location:    headers,
			Help:        "Send Cache-Control, ETag or Last-Modified so browsers can reuse responses.",
		})
		recs = append(recs, "Implement proper caching headers")
	}

	return model.ScanResult{
		Score:           performanceScore(m),
		Issues:          issues,
		Recommendations: recs,
		Metrics:         m,
		FetchMethod:     string(page.Method),
	}
}

// performanceScore applies the tiered penalties. Only the worst tier of each
// dimension counts.
func performanceScore(m PerformanceMetrics) float64 {
	score := 100.0

	switch {
	case m.LoadTimeMS > 3000:
		score -= 40
	case m.LoadTimeMS > 2000:
		score -= 30
	case m.LoadTimeMS > 1000:
		score -= 20
	case m.LoadTimeMS > 500:
		score -= 10
	}

	switch mb := float64(m.PageSizeBytes) / (1 << 20); {
	case mb > 5:
		score -= 25
	case mb > 2:
		score -= 15
	case mb > 1:
		score -= 10
	}

	switch {
	case m.StatusCode >= 400:
		score -= 30
	case m.StatusCode >= 300:
		score -= 10
	}

	switch {
	case m.Redirects > 3:
		score -= 20
	case m.Redirects > 1:
		score -= 10
	}

	if !m.HasCompression {
		score -= 15
	}
	if !m.HasCacheHeaders {
		score -= 10
	}

	return roundScore(score)
}

func compression(h http.Header) (string, bool) {
	enc := strings.ToLower(h.Get("Content-Encoding"))
	for _, known := range []string{"gzip", "deflate", "br"} {
		if strings.Contains(enc, known) {
			return enc, true
		}
	}
	return enc, false
}
