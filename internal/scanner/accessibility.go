package scanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Bahjat/site-audit/internal/model"
)

// Component weights of the accessibility blend.
const (
	a11yWeightContrast = 0.30
	a11yWeightKeyboard = 0.25
	a11yWeightSemantic = 0.25
	a11yWeightARIA     = 0.20
)

// impactPenalty is the per-violation penalty and its cap, keyed by severity.
var impactPenalty = map[model.Severity]struct{ each, limit float64 }{
	model.SeverityCritical: {each: 3, limit: 15},
	model.SeverityHigh:     {each: 2, limit: 10},
	model.SeverityMedium:   {each: 1, limit: 8},
	model.SeverityLow:      {each: 0.5, limit: 5},
}

// ariaRoles is the WAI-ARIA 1.2 role set.
var ariaRoles = map[string]bool{}

func init() {
	for _, r := range strings.Fields(`alert alertdialog application article banner blockquote button caption cell
		checkbox code columnheader combobox complementary contentinfo definition deletion dialog directory
		document emphasis feed figure form generic grid gridcell group heading img insertion link list
		listbox listitem log main marquee math menu menubar menuitem menuitemcheckbox menuitemradio meter
		navigation none note option paragraph presentation progressbar radio radiogroup region row
		rowgroup rowheader scrollbar search searchbox separator slider spinbutton status strong
		subscript superscript switch tab table tablist tabpanel term textbox time timer toolbar tooltip
		tree treegrid treeitem`) {
		ariaRoles[r] = true
	}
}

// Violation is one rule failure found in the markup.
type Violation struct {
	Rule     string         `json:"rule"`
	Impact   model.Severity `json:"impact"`
	Message  string         `json:"message"`
	Selector string         `json:"selector"`
	Snippet  string         `json:"html_snippet,omitempty"`
	Help     string         `json:"help"`
}

// A11yComponents holds the four component sub-scores.
type A11yComponents struct {
	Contrast float64 `json:"color_contrast"`
	Keyboard float64 `json:"keyboard_navigation"`
	Semantic float64 `json:"semantic_structure"`
	ARIA     float64 `json:"aria_usage"`
}

// AccessibilityMetrics is the raw data behind the accessibility score.
type AccessibilityMetrics struct {
	Violations         []Violation    `json:"violations"`
	ViolationCounts    map[string]int `json:"violation_counts"`
	Components         A11yComponents `json:"components"`
	TextNodes          int            `json:"text_nodes"`
	PositiveTabindex   int            `json:"positive_tabindex"`
	InvalidRoles       []string       `json:"invalid_roles"`
	DanglingLabelledBy []string       `json:"dangling_labelledby"`
}

// Accessibility runs a small set of WCAG-inspired heuristics.
type Accessibility struct {
	fetcher PageFetcher
}

// NewAccessibility returns an Accessibility scanner.
func NewAccessibility(f PageFetcher) *Accessibility {
	return &Accessibility{fetcher: f}
}

func (a *Accessibility) Category() model.Category { return model.CategoryAccessibility }

func (a *Accessibility) Scan(ctx context.Context, url string) model.ScanResult {
	return guard(model.CategoryAccessibility, url, func() (model.ScanResult, error) {
		page := a.fetcher.Fetch(ctx, url)
		if !page.OK() {
			return degraded(model.CategoryAccessibility, url, page), nil
		}
		res, err := analyzeAccessibility(url, page.HTML)
		res.FetchMethod = string(page.Method)
		return res, err
	})
}

func analyzeAccessibility(url, body string) (model.ScanResult, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return model.ScanResult{}, err
	}

	m := AccessibilityMetrics{
		Violations:         findViolations(doc),
		ViolationCounts:    map[string]int{},
		InvalidRoles:       []string{},
		DanglingLabelledBy: []string{},
	}
	for _, v := range m.Violations {
		m.ViolationCounts[string(v.Impact)]++
	}

	var componentIssues []model.Issue
	m.Components, componentIssues = a11yComponents(url, doc, &m)

	blend := a11yWeightContrast*m.Components.Contrast +
		a11yWeightKeyboard*m.Components.Keyboard +
		a11yWeightSemantic*m.Components.Semantic +
		a11yWeightARIA*m.Components.ARIA

	penalty := 0.0
	for sev, p := range impactPenalty {
		penalty += min(float64(m.ViolationCounts[string(sev)])*p.each, p.limit)
	}

	issues := make([]model.Issue, 0, len(m.Violations)+len(componentIssues))
	for _, v := range m.Violations {
		issues = append(issues, model.Issue{
			Description: fmt.Sprintf("%s: %s", impactLabel(v.Impact), v.Message),
			Severity:    v.Impact,
			Location: model.Location{
				URL:         url,
				Selector:    v.Selector,
				HTMLSnippet: v.Snippet,
			},
			Help: v.Help,
		})
	}
	issues = append(issues, componentIssues...)

	return model.ScanResult{
		Score:           roundScore(blend - penalty),
		Issues:          issues,
		Recommendations: a11yRecommendations(m),
		Metrics:         m,
	}, nil
}

func impactLabel(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "Critical"
	case model.SeverityHigh:
		return "Serious"
	case model.SeverityMedium:
		return "Moderate"
	default:
		return "Minor"
	}
}

func findViolations(doc *goquery.Document) []Violation {
	var out []Violation

	doc.FindMatcher(selImg).Each(func(_ int, img *goquery.Selection) {
		_, hasAlt := img.Attr("alt")
		label := strings.TrimSpace(img.AttrOr("aria-label", ""))
		if !hasAlt && label == "" {
			out = append(out, Violation{
				Rule:     "image-alt",
				Impact:   model.SeverityCritical,
				Message:  "Image without alt text",
				Selector: selectorFor(img),
				Snippet:  snippet(img),
				Help:     "Add an alt attribute describing the image, or alt=\"\" if it is decorative.",
			})
		}
	})

	if strings.TrimSpace(doc.FindMatcher(selTitle).First().Text()) == "" {
		out = append(out, Violation{
			Rule:     "document-title",
			Impact:   model.SeverityHigh,
			Message:  "Page missing title",
			Selector: "head",
			Help:     "Give the document a non-empty <title>.",
		})
	}

	if doc.FindMatcher(selMain).Length() == 0 {
		out = append(out, Violation{
			Rule:     "region",
			Impact:   model.SeverityMedium,
			Message:  "Page missing main landmark",
			Selector: "body",
			Help:     "Wrap the primary content in <main>.",
		})
	}

	if first := doc.FindMatcher(selHeadings).First(); first.Length() > 0 && goquery.NodeName(first) != "h1" {
		out = append(out, Violation{
			Rule:     "page-has-heading-one",
			Impact:   model.SeverityMedium,
			Message:  "Page should start with h1",
			Selector: selectorFor(first),
			Snippet:  snippet(first),
			Help:     "Start the heading hierarchy with an <h1>.",
		})
	}

	doc.FindMatcher(selFormFields).Each(func(_ int, field *goquery.Selection) {
		if !needsLabel(field) || hasLabel(doc, field) {
			return
		}
		out = append(out, Violation{
			Rule:     "label",
			Impact:   model.SeverityCritical,
			Message:  "Form input without label",
			Selector: selectorFor(field),
			Snippet:  snippet(field),
			Help:     "Associate a <label for>, wrap the field in a label, or add aria-label.",
		})
	})

	return out
}

// a11yComponents computes the four component sub-scores. It also fills the
// counters on m and returns informational issues for weak components.
func a11yComponents(url string, doc *goquery.Document, m *AccessibilityMetrics) (A11yComponents, []model.Issue) {
	var (
		c      A11yComponents
		issues []model.Issue
	)

	// Contrast cannot be measured without computed styles; one text node in
	// ten is assumed to be a potential problem.
	m.TextNodes = textNodeCount(doc)
	c.Contrast = 100
	if m.TextNodes > 0 {
		potential := m.TextNodes / 10
		c.Contrast = round1(float64(m.TextNodes-potential) / float64(m.TextNodes) * 100)
	}

	doc.FindMatcher(selTabindex).Each(func(_ int, s *goquery.Selection) {
		var n int
		if _, err := fmt.Sscanf(s.AttrOr("tabindex", ""), "%d", &n); err == nil && n > 0 {
			m.PositiveTabindex++
		}
	})
	c.Keyboard = 100 - min(50, 10*float64(m.PositiveTabindex))
	if m.PositiveTabindex > 0 {
		issues = append(issues, model.Issue{
			Description: fmt.Sprintf("Keyboard navigation: %d elements use a positive tabindex", m.PositiveTabindex),
			Severity:    model.SeverityMedium,
			Location:    location(url, "[tabindex]"),
			Help:        "Positive tabindex values override the natural focus order. Use 0 or -1.",
		})
	}

	c.Semantic = 100
	switch h1 := doc.FindMatcher(selH1).Length(); {
	case h1 == 0:
		c.Semantic -= 20
	case h1 > 1:
		c.Semantic -= 10
		issues = append(issues, model.Issue{
			Description: fmt.Sprintf("Semantic structure: %d h1 elements", h1),
			Severity:    model.SeverityMedium,
			Location:    location(url, "h1"),
		})
	}
	if doc.FindMatcher(selMain).Length() == 0 {
		c.Semantic -= 15
	}
	if doc.FindMatcher(selNav).Length() == 0 {
		c.Semantic -= 10
		issues = append(issues, model.Issue{
			Description: "Semantic structure: no navigation landmark",
			Severity:    model.SeverityMedium,
			Location:    location(url, "body"),
		})
	}

	doc.FindMatcher(selRole).Each(func(_ int, s *goquery.Selection) {
		for _, role := range strings.Fields(strings.ToLower(s.AttrOr("role", ""))) {
			if !ariaRoles[role] {
				m.InvalidRoles = append(m.InvalidRoles, role)
			}
		}
	})
	ids := make(map[string]bool)
	doc.FindMatcher(selWithID).Each(func(_ int, s *goquery.Selection) {
		ids[s.AttrOr("id", "")] = true
	})
	doc.FindMatcher(selLabelledBy).Each(func(_ int, s *goquery.Selection) {
		for _, id := range strings.Fields(s.AttrOr("aria-labelledby", "")) {
			if !ids[id] {
				m.DanglingLabelledBy = append(m.DanglingLabelledBy, id)
			}
		}
	})
	ariaErrors := len(m.InvalidRoles) + len(m.DanglingLabelledBy)
	c.ARIA = 100 - min(60, 15*float64(ariaErrors))
	for _, role := range m.InvalidRoles {
		issues = append(issues, model.Issue{
			Description: "ARIA usage: invalid role " + role,
			Severity:    model.SeverityMedium,
			Location:    location(url, fmt.Sprintf("[role=%q]", role)),
		})
	}
	for _, id := range m.DanglingLabelledBy {
		issues = append(issues, model.Issue{
			Description: "ARIA usage: aria-labelledby references missing id " + id,
			Severity:    model.SeverityMedium,
			Location:    location(url, "[aria-labelledby]"),
		})
	}

	return c, issues
}

func a11yRecommendations(m AccessibilityMetrics) []string {
	recs := []string{}
	rules := map[string]bool{}
	for _, v := range m.Violations {
		rules[v.Rule] = true
	}
	if rules["image-alt"] {
		recs = append(recs, "Add alternative text to all images")
	}
	if rules["label"] {
		recs = append(recs, "Label every form field")
	}
	if rules["region"] || m.Components.Semantic < 80 {
		recs = append(recs, "Use semantic landmarks (main, nav, header, footer)")
	}
	if rules["page-has-heading-one"] || rules["document-title"] {
		recs = append(recs, "Give the page a title and a logical heading structure")
	}
	if m.PositiveTabindex > 0 {
		recs = append(recs, "Remove positive tabindex values and keep focus indicators visible")
	}
	if len(m.InvalidRoles)+len(m.DanglingLabelledBy) > 0 {
		recs = append(recs, "Fix invalid ARIA roles and broken aria-labelledby references")
	}
	recs = append(recs, "Verify color contrast meets WCAG AA (4.5:1 for body text)")
	return recs
}
