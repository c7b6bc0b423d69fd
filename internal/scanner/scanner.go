// Package scanner holds the five category scanners. Every scanner fetches
// its own copy of the page through a shared PageFetcher and returns a
// ScanResult; failures are folded into the result rather than returned.
package scanner

import (
	"context"
	"fmt"
	"math"
	"runtime/debug"

	"github.com/Bahjat/site-audit/internal/fetcher"
	"github.com/Bahjat/site-audit/internal/model"
)

// PageFetcher is satisfied by *fetcher.Fetcher.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) *fetcher.Result
}

// Scanner produces one category's result. Scan must not panic or block past ctx.
type Scanner interface {
	Category() model.Category
	Scan(ctx context.Context, url string) model.ScanResult
}

// roundScore clamps to [0,100] and rounds to one decimal.
func roundScore(v float64) float64 {
	v = max(0, min(100, v))
	return math.Round(v*10) / 10
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// guard runs fn and converts a returned error or a panic into a zero-score
// result carrying the error text as its only issue.
func guard(category model.Category, url string, fn func() (model.ScanResult, error)) (res model.ScanResult) {
	defer func() {
		if r := recover(); r != nil {
			res = InternalFailure(category, url, fmt.Errorf("panic: %v\n%s", r, debug.Stack()))
		}
	}()

	res, err := fn()
	if err != nil {
		return InternalFailure(category, url, err)
	}
	res.Category = category
	res.Score = roundScore(res.Score)
	if res.Issues == nil {
		res.Issues = []model.Issue{}
	}
	if res.Recommendations == nil {
		res.Recommendations = []string{}
	}
	return res
}

// InternalFailure is the zero-score result for a bug inside a scanner.
func InternalFailure(category model.Category, url string, err error) model.ScanResult {
	return model.ScanResult{
		Category: category,
		Score:    0,
		Issues: []model.Issue{{
			Description: fmt.Sprintf("%s scan failed: %v", noun(category), firstLine(err.Error())),
			Severity:    model.SeverityHigh,
			Location:    model.Location{URL: url, Selector: "general"},
		}},
		Recommendations: []string{},
		Note:            "internal scanner error",
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

func noun(c model.Category) string {
	switch c {
	case model.CategorySEO:
		return "SEO"
	case model.CategoryUX:
		return "UX"
	case model.CategorySecurity:
		return "Security"
	case model.CategoryPerformance:
		return "Performance"
	case model.CategoryAccessibility:
		return "Accessibility"
	}
	return string(c)
}

func location(url, selector string) model.Location {
	return model.Location{URL: url, Selector: selector}
}

// All returns the five category scanners sharing one fetcher.
func All(f PageFetcher, tlsProber *TLSProber, prober *PathProber) []Scanner {
	return []Scanner{
		NewSecurity(f, tlsProber, prober),
		NewPerformance(f),
		NewSEO(f),
		NewAccessibility(f),
		NewUX(f),
	}
}
