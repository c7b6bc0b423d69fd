// Package narrative produces the human-readable summary attached to a
// completed audit.
package narrative

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"text/template"

	"github.com/Bahjat/site-audit/internal/model"
	"github.com/Bahjat/site-audit/internal/score"
)

// priorityThreshold is the category score below which an area is called out.
const priorityThreshold = 60

var errEmptySummary = errors.New("summarizer returned an empty summary")

// Summarizer turns scan results into prose.
type Summarizer interface {
	Summarize(ctx context.Context, url string, results map[model.Category]model.ScanResult, scores model.Scores) (string, error)
}

// impact describes a category when it scores under and over the threshold.
var impact = map[model.Category][2]string{
	model.CategorySecurity:      {"⚠️ Security issues may damage user trust and SEO rankings", "✅ Strong security foundation"},
	model.CategoryPerformance:   {"⚠️ Slow loading may reduce conversions by up to 20%", "✅ Good performance supporting user experience"},
	model.CategorySEO:           {"⚠️ Technical SEO issues may reduce organic traffic", "✅ Solid SEO foundation"},
	model.CategoryUX:            {"⚠️ Mobile and usability gaps may drive visitors away", "✅ Usable, mobile-friendly layout"},
	model.CategoryAccessibility: {"⚠️ Accessibility barriers exclude part of your audience", "✅ Accessible to most visitors"},
}

var areaNames = map[model.Category]string{
	model.CategorySecurity:      "Security Vulnerabilities",
	model.CategoryPerformance:   "Performance Issues",
	model.CategorySEO:           "SEO Problems",
	model.CategoryUX:            "User Experience Gaps",
	model.CategoryAccessibility: "Accessibility Barriers",
}

var summaryTmpl = template.Must(template.New("summary").Funcs(template.FuncMap{"join": strings.Join}).Parse(`**Website Health Assessment**

{{.URL}} scored {{printf "%.1f" .Overall}}/100 overall, indicating {{.Health}} technical health with {{.Impact}} impact on business performance.

**Critical Areas Requiring Attention:**
{{if .Priorities}}{{join .Priorities ", "}}{{else}}No critical issues identified{{end}}

**Business Impact:**
{{range .Lines}}- {{.Name}} Score ({{printf "%.1f" .Score}}/100): {{.Text}}
{{end}}
**Next Steps:**
Focus on addressing the lowest-scoring areas first, as these typically provide the highest return when improved.
`))

type impactLine struct {
	Name  string
	Score float64
	Text  string
}

type summaryData struct {
	URL        string
	Overall    float64
	Health     string
	Impact     string
	Priorities []string
	Lines      []impactLine
}

// Template is the deterministic summarizer. It never fails.
type Template struct{}

// Summarize renders a Markdown summary from the scores alone.
func (Template) Summarize(_ context.Context, url string, _ map[model.Category]model.ScanResult, scores model.Scores) (string, error) {
	data := summaryData{
		URL:     url,
		Overall: scores.Overall,
		Health:  score.Rating(scores.Overall),
		Impact:  impactLevel(scores.Overall),
	}
	for _, c := range model.Categories {
		v := scores.Get(c)
		text := impact[c][1]
		if v < priorityThreshold {
			text = impact[c][0]
			data.Priorities = append(data.Priorities, areaNames[c])
		}
		data.Lines = append(data.Lines, impactLine{Name: categoryName(c), Score: v, Text: text})
	}

	var buf bytes.Buffer
	if err := summaryTmpl.Execute(&buf, data); err != nil {
		// The template is fixed, so this only happens on a programming error.
		return "", err
	}
	return buf.String(), nil
}

func impactLevel(overall float64) string {
	switch score.Rating(overall) {
	case "excellent":
		return "minimal"
	case "good":
		return "moderate"
	case "fair":
		return "significant"
	default:
		return "critical"
	}
}

func categoryName(c model.Category) string {
	switch c {
	case model.CategorySEO:
		return "SEO"
	case model.CategoryUX:
		return "UX"
	}
	s := string(c)
	return strings.ToUpper(s[:1]) + s[1:]
}

// fallback wraps a primary summarizer with the template.
type fallback struct {
	primary  Summarizer
	template Template
	logger   *slog.Logger
}

// WithFallback returns a Summarizer that never fails: when primary errors or
// returns blank text the template summary is used instead. primary may be nil.
func WithFallback(primary Summarizer, logger *slog.Logger) Summarizer {
	return &fallback{primary: primary, logger: logger}
}

func (f *fallback) Summarize(ctx context.Context, url string, results map[model.Category]model.ScanResult, scores model.Scores) (string, error) {
	if f.primary != nil {
		text, err := f.primary.Summarize(ctx, url, results, scores)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errEmptySummary
		}
		if err == nil {
			return text, nil
		}
		f.logger.WarnContext(ctx, "summarizer failed, using template", "url", url, "error", err)
	}

	text, err := f.template.Summarize(ctx, url, results, scores)
	if err != nil {
		f.logger.ErrorContext(ctx, "template summary failed", "url", url, "error", err)
		return "", nil
	}
	return text, nil
}
