package scanner

import (
	"context"
	"strings"

	"github.com/Bahjat/site-audit/internal/model"
)

// SEO penalties per missing element.
const (
	seoMissingTitle       = 20
	seoMissingDescription = 15
	seoMissingH1          = 10
	seoMissingViewport    = 15
)

// SEOMetrics is the raw data behind the SEO score.
type SEOMetrics struct {
	Title             string `json:"title"`
	TitleLength       int    `json:"title_length"`
	DescriptionLength int    `json:"description_length"`
	H1Count           int    `json:"h1_count"`
	HasViewport       bool   `json:"has_viewport"`
}

// SEO checks the four on-page basics: title, meta description, h1 and viewport.
type SEO struct {
	fetcher PageFetcher
}

// NewSEO returns an SEO scanner.
func NewSEO(f PageFetcher) *SEO {
	return &SEO{fetcher: f}
}

func (s *SEO) Category() model.Category { return model.CategorySEO }

func (s *SEO) Scan(ctx context.Context, url string) model.ScanResult {
	return guard(model.CategorySEO, url, func() (model.ScanResult, error) {
		page := s.fetcher.Fetch(ctx, url)
		if !page.OK() {
			return degraded(model.CategorySEO, url, page), nil
		}
		res, err := analyzeSEO(url, page.HTML)
		res.FetchMethod = string(page.Method)
		return res, err
	})
}

func analyzeSEO(url, body string) (model.ScanResult, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return model.ScanResult{}, err
	}

	var (
		score   = 100.0
		issues  []model.Issue
		recs    []string
		metrics SEOMetrics
	)

	title := strings.TrimSpace(doc.FindMatcher(selTitle).First().Text())
	metrics.Title = title
	metrics.TitleLength = len([]rune(title))
	if title == "" {
		score -= seoMissingTitle
		issues = append(issues, model.Issue{
			Description: "Missing page title",
			Severity:    model.SeverityHigh,
			Location:    location(url, "head > title"),
			Help:        "Add a unique, descriptive <title> of roughly 50-60 characters.",
		})
		recs = append(recs, "Add a descriptive page title")
	}

	desc := strings.TrimSpace(metaByName(doc, "description").First().AttrOr("content", ""))
	metrics.DescriptionLength = len([]rune(desc))
	if desc == "" {
		score -= seoMissingDescription
		issues = append(issues, model.Issue{
			Description: "Missing meta description",
			Severity:    model.SeverityMedium,
			Location:    location(url, "head > meta[name='description']"),
			Help:        "Add a meta description of roughly 150-160 characters summarising the page.",
		})
		recs = append(recs, "Add a meta description")
	}

	metrics.H1Count = doc.FindMatcher(selH1).Length()
	if metrics.H1Count == 0 {
		score -= seoMissingH1
		issues = append(issues, model.Issue{
			Description: "Missing H1 heading",
			Severity:    model.SeverityMedium,
			Location:    location(url, "h1"),
			Help:        "Give the page one <h1> that states its main topic.",
		})
		recs = append(recs, "Add an H1 heading")
	}

	metrics.HasViewport = metaByName(doc, "viewport").Length() > 0
	if !metrics.HasViewport {
		score -= seoMissingViewport
		issues = append(issues, model.Issue{
			Description: "Missing viewport meta tag",
			Severity:    model.SeverityMedium,
			Location:    location(url, "head > meta[name='viewport']"),
			Help:        `Add <meta name="viewport" content="width=device-width, initial-scale=1">.`,
		})
		recs = append(recs, "Add a viewport meta tag for mobile devices")
	}

	return model.ScanResult{
		Score:           score,
		Issues:          issues,
		Recommendations: recs,
		Metrics:         metrics,
	}, nil
}
