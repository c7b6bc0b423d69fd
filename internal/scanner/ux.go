package scanner

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Bahjat/site-audit/internal/model"
)

// UX sub-analysis weights. With no forms on the page the form weight is
// dropped and the rest rescaled by 1/0.95.
const (
	uxWeightMobile      = 0.25
	uxWeightTouch       = 0.20
	uxWeightNavigation  = 0.20
	uxWeightReadability = 0.15
	uxWeightLayout      = 0.15
	uxWeightForms       = 0.05
)

const (
	minTouchFontPX    = 14
	maxInteractive    = 10
	maxNavLinks       = 20
	maxFixedWidths    = 5
	minWordCount      = 100
	longParagraphWord = 100
)

var fontSizePX = regexp.MustCompile(`font-size:\s*(\d+)px`)

// MobileReport is the mobile responsiveness sub-analysis.
type MobileReport struct {
	Score              float64 `json:"score"`
	ViewportConfigured bool    `json:"viewport_configured"`
	ResponsiveImages   int     `json:"responsive_images"`
	FixedWidthElements int     `json:"fixed_width_elements"`
	issues             []string
}

// TouchReport is the touch target sub-analysis.
type TouchReport struct {
	Score               float64 `json:"score"`
	InteractiveElements int     `json:"interactive_elements"`
	SmallTargets        int     `json:"potential_small_targets"`
	CloseElements       int     `json:"close_elements"`
	issues              []string
}

// NavigationReport is the navigation sub-analysis.
type NavigationReport struct {
	Score            float64 `json:"score"`
	MainNavigation   bool    `json:"main_navigation"`
	Breadcrumbs      bool    `json:"breadcrumbs"`
	Search           bool    `json:"search_functionality"`
	NavigationDepth  int     `json:"navigation_depth"`
	MobileNavigation bool    `json:"mobile_navigation"`
	issues           []string
}

// ReadabilityReport is the content readability sub-analysis.
type ReadabilityReport struct {
	Score          float64        `json:"score"`
	WordCount      int            `json:"word_count"`
	ParagraphCount int            `json:"paragraph_count"`
	LongParagraphs int            `json:"long_paragraphs"`
	Headings       map[string]int `json:"heading_distribution"`
	issues         []string
}

// LayoutReport is the layout stability sub-analysis.
type LayoutReport struct {
	Score                   float64 `json:"score"`
	ImagesWithoutDimensions int     `json:"images_without_dimensions"`
	DynamicContent          int     `json:"dynamic_content_indicators"`
	LoadingIndicators       bool    `json:"loading_indicators"`
	FontPreload             bool    `json:"font_loading_optimization"`
	issues                  []string
}

// FormReport is the form usability sub-analysis.
type FormReport struct {
	Score              float64 `json:"score"`
	FormsFound         int     `json:"forms_found"`
	LabeledInputs      int     `json:"inputs_with_labels"`
	UnlabeledInputs    int     `json:"inputs_without_labels"`
	RequiredIndicators int     `json:"required_field_indicators"`
	ErrorHandling      bool    `json:"error_handling"`
	issues             []string
}

// UXMetrics is the raw data behind the UX score.
type UXMetrics struct {
	Mobile      MobileReport      `json:"mobile_responsiveness"`
	Touch       TouchReport       `json:"touch_targets"`
	Navigation  NavigationReport  `json:"navigation"`
	Readability ReadabilityReport `json:"readability"`
	Layout      LayoutReport      `json:"layout_stability"`
	Forms       FormReport        `json:"form_usability"`
}

// UX is a mobile-first user experience scanner.
type UX struct {
	fetcher PageFetcher
}

// NewUX returns a UX scanner.
func NewUX(f PageFetcher) *UX {
	return &UX{fetcher: f}
}

func (u *UX) Category() model.Category { return model.CategoryUX }

func (u *UX) Scan(ctx context.Context, url string) model.ScanResult {
	return guard(model.CategoryUX, url, func() (model.ScanResult, error) {
		page := u.fetcher.Fetch(ctx, url)
		if !page.OK() {
			return degraded(model.CategoryUX, url, page), nil
		}
		res, err := analyzeUX(url, page.HTML)
		res.FetchMethod = string(page.Method)
		return res, err
	})
}

func analyzeUX(url, body string) (model.ScanResult, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return model.ScanResult{}, err
	}

	m := UXMetrics{
		Mobile:      analyzeMobile(doc),
		Touch:       analyzeTouch(doc),
		Navigation:  analyzeNavigation(doc),
		Readability: analyzeReadability(doc),
		Layout:      analyzeLayout(doc),
		Forms:       analyzeForms(doc),
	}

	issues, recs := uxFindings(url, m)
	return model.ScanResult{
		Score:           uxScore(m),
		Issues:          issues,
		Recommendations: recs,
		Metrics:         m,
	}, nil
}

func uxScore(m UXMetrics) float64 {
	total := uxWeightMobile*m.Mobile.Score +
		uxWeightTouch*m.Touch.Score +
		uxWeightNavigation*m.Navigation.Score +
		uxWeightReadability*m.Readability.Score +
		uxWeightLayout*m.Layout.Score
	if m.Forms.FormsFound == 0 {
		total /= 1 - uxWeightForms
	} else {
		total += uxWeightForms * m.Forms.Score
	}
	return roundScore(total)
}

func analyzeMobile(doc *goquery.Document) MobileReport {
	r := MobileReport{Score: 100}

	if vp := metaByName(doc, "viewport").First(); vp.Length() > 0 {
		r.ViewportConfigured = true
		if !strings.Contains(vp.AttrOr("content", ""), "width=device-width") {
			r.issues = append(r.issues, "Viewport meta tag should include width=device-width")
		}
	} else {
		r.issues = append(r.issues, "Missing viewport meta tag")
		r.Score -= 20
	}

	images := doc.FindMatcher(selImg)
	images.Each(func(_ int, img *goquery.Selection) {
		if img.AttrOr("srcset", "") != "" || goquery.NodeName(img.Parent()) == "picture" {
			r.ResponsiveImages++
		}
	})
	if n := images.Length(); n > 0 && float64(r.ResponsiveImages)/float64(n) < 0.5 {
		r.issues = append(r.issues, "Few images are responsive")
		r.Score -= 10
	}

	doc.FindMatcher(selStyled).Each(func(_ int, s *goquery.Selection) {
		style := s.AttrOr("style", "")
		if strings.Contains(style, "width:") && strings.Contains(style, "px") {
			r.FixedWidthElements++
		}
	})
	if r.FixedWidthElements > maxFixedWidths {
		r.issues = append(r.issues, "Many elements have fixed pixel widths")
		r.Score -= 15
	}
	return r
}

func analyzeTouch(doc *goquery.Document) TouchReport {
	r := TouchReport{Score: 100}

	interactive := doc.FindMatcher(selInteractive)
	r.InteractiveElements = interactive.Length()
	interactive.Each(func(_ int, s *goquery.Selection) {
		match := fontSizePX.FindStringSubmatch(s.AttrOr("style", ""))
		if match == nil {
			return
		}
		if px, err := strconv.Atoi(match[1]); err == nil && px < minTouchFontPX {
			r.SmallTargets++
		}
	})
	if r.SmallTargets > 0 {
		r.issues = append(r.issues, fmt.Sprintf("Found %d potentially small touch targets", r.SmallTargets))
		r.Score -= min(30, 5*float64(r.SmallTargets))
	}

	if r.InteractiveElements > maxInteractive {
		r.CloseElements = r.InteractiveElements / 5
		r.issues = append(r.issues, "Many interactive elements may be too close together")
		r.Score -= 10
	}
	return r
}

func analyzeNavigation(doc *goquery.Document) NavigationReport {
	r := NavigationReport{Score: 100}

	navs := doc.Find("nav")
	if navs.Length() > 0 {
		r.MainNavigation = true
		navs.Each(func(_ int, nav *goquery.Selection) {
			r.NavigationDepth = max(r.NavigationDepth, nav.Find("a").Length())
		})
	} else {
		r.issues = append(r.issues, "No main navigation found")
		r.Score -= 20
	}

	r.Breadcrumbs = hasClassMatching(doc, "breadcrumb")
	r.Search = hasSearch(doc)

	r.MobileNavigation = hasClassMatching(doc, "hamburger", "menu-toggle", "mobile-menu")
	if !r.MobileNavigation {
		r.issues = append(r.issues, "No mobile navigation pattern detected")
		r.Score -= 15
	}

	if r.NavigationDepth > maxNavLinks {
		r.issues = append(r.issues, "Navigation menu may be too complex")
		r.Score -= 10
	}
	return r
}

func analyzeReadability(doc *goquery.Document) ReadabilityReport {
	r := ReadabilityReport{Score: 100, Headings: map[string]int{}}

	r.WordCount = len(strings.Fields(visibleText(doc)))

	paragraphs := doc.FindMatcher(selParagraph)
	r.ParagraphCount = paragraphs.Length()
	paragraphs.Each(func(_ int, p *goquery.Selection) {
		if len(strings.Fields(p.Text())) > longParagraphWord {
			r.LongParagraphs++
		}
	})

	doc.FindMatcher(selHeadings).Each(func(_ int, h *goquery.Selection) {
		r.Headings[goquery.NodeName(h)]++
	})

	if r.WordCount < minWordCount {
		r.issues = append(r.issues, "Very little text content")
		r.Score -= 15
	}
	if r.ParagraphCount == 0 {
		r.issues = append(r.issues, "No paragraphs found")
		r.Score -= 10
	}
	if r.LongParagraphs > 0 {
		r.issues = append(r.issues, fmt.Sprintf("Found %d very long paragraphs", r.LongParagraphs))
		r.Score -= min(20, 5*float64(r.LongParagraphs))
	}
	if r.Headings["h1"] == 0 {
		r.issues = append(r.issues, "No H1 heading found")
		r.Score -= 10
	}
	return r
}

func analyzeLayout(doc *goquery.Document) LayoutReport {
	r := LayoutReport{Score: 100}

	doc.FindMatcher(selImg).Each(func(_ int, img *goquery.Selection) {
		if img.AttrOr("width", "") != "" || img.AttrOr("height", "") != "" {
			return
		}
		style := img.AttrOr("style", "")
		if !strings.Contains(style, "width:") && !strings.Contains(style, "height:") {
			r.ImagesWithoutDimensions++
		}
	})
	if r.ImagesWithoutDimensions > 0 {
		r.issues = append(r.issues, fmt.Sprintf("%d images without dimensions", r.ImagesWithoutDimensions))
		r.Score -= min(25, 5*float64(r.ImagesWithoutDimensions))
	}

	doc.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		class := strings.ToLower(s.AttrOr("class", ""))
		for _, n := range []string{"lazy", "loader", "placeholder"} {
			if strings.Contains(class, n) {
				r.DynamicContent++
				return
			}
		}
	})
	r.LoadingIndicators = hasClassMatching(doc, "loading", "spinner")
	r.FontPreload = doc.FindMatcher(selFontPreload).Length() > 0
	return r
}

func analyzeForms(doc *goquery.Document) FormReport {
	r := FormReport{Score: 100}

	r.FormsFound = doc.FindMatcher(selForm).Length()
	if r.FormsFound == 0 {
		return r
	}

	doc.FindMatcher(selFormFields).Each(func(_ int, field *goquery.Selection) {
		if !needsLabel(field) {
			return
		}
		if hasLabel(doc, field) {
			r.LabeledInputs++
		} else {
			r.UnlabeledInputs++
		}
	})
	if r.UnlabeledInputs > 0 {
		r.issues = append(r.issues, fmt.Sprintf("%d form inputs without labels", r.UnlabeledInputs))
		r.Score -= min(30, 10*float64(r.UnlabeledInputs))
	}

	r.RequiredIndicators = doc.Find("[required]").Length()
	r.ErrorHandling = hasClassMatching(doc, "error", "invalid", "warning")
	return r
}

func uxFindings(url string, m UXMetrics) ([]model.Issue, []string) {
	var (
		issues []model.Issue
		recs   []string
	)
	add := func(prefix string, list []string, sev model.Severity, selector, help string) {
		for _, msg := range list {
			issues = append(issues, model.Issue{
				Description: prefix + ": " + msg,
				Severity:    sev,
				Location: model.Location{
					URL:         url,
					Selector:    selector,
					HTMLSnippet: prefix + ": " + msg,
				},
				Help: help,
			})
		}
	}

	add("Mobile", m.Mobile.issues, model.SeverityHigh, "head > meta[name='viewport']", "Optimize for mobile devices")
	add("Touch targets", m.Touch.issues, model.SeverityMedium, "button, a, input[type='submit']", "Ensure touch targets are at least 44px in size")
	add("Navigation", m.Navigation.issues, model.SeverityMedium, "nav", "Improve navigation structure")
	add("Readability", m.Readability.issues, model.SeverityMedium, "body", "Improve content readability")
	add("Layout", m.Layout.issues, model.SeverityMedium, "img", "Improve layout stability")
	add("Forms", m.Forms.issues, model.SeverityMedium, "form, input, textarea, select", "Improve form usability")

	if !m.Mobile.ViewportConfigured {
		recs = append(recs, "Add viewport meta tag for mobile optimization")
	}
	if m.Mobile.ResponsiveImages == 0 && m.Layout.ImagesWithoutDimensions+m.Mobile.FixedWidthElements > 0 {
		recs = append(recs, "Implement responsive images with srcset")
	}
	if m.Touch.SmallTargets > 0 {
		recs = append(recs, "Ensure touch targets are at least 44px in size")
	}
	if !m.Navigation.MobileNavigation {
		recs = append(recs, "Implement mobile-friendly navigation pattern")
	}
	if m.Readability.WordCount < minWordCount {
		recs = append(recs, "Add more descriptive content for better user understanding")
	}
	if m.Layout.ImagesWithoutDimensions > 0 {
		recs = append(recs, "Add width and height attributes to images")
	}
	if m.Forms.UnlabeledInputs > 0 {
		recs = append(recs, "Add labels to all form inputs")
	}
	return issues, recs
}
