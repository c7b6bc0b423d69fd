package scanner

import (
	"context"
	"strings"
	"testing"

	"github.com/Bahjat/site-audit/internal/model"
)

func TestAccessibilityCleanPage(t *testing.T) {
	html := `<html><head><title>Home</title></head><body>
		<nav><a href="/">Home</a></nav>
		<main><h1>Welcome</h1><p>Hello there</p>
		<img src="divider.png" alt="">
		<label for="email">Email</label><input id="email" type="email">
		<label>Name <input type="text" name="name"></label>
		<input type="search" aria-label="Search">
		<input type="submit" value="Go">
		<section role="region" aria-labelledby="welcome"><h2 id="welcome">More</h2></section>
		</main></body></html>`

	res := NewAccessibility(servedPage(html, nil)).Scan(context.Background(), "https://example.com")
	if res.Score != 100 {
		t.Errorf("Score = %v, want 100 (issues %+v)", res.Score, res.Issues)
	}
	m := res.Metrics.(AccessibilityMetrics)
	if len(m.Violations) != 0 {
		t.Errorf("violations = %+v, want none", m.Violations)
	}
	want := A11yComponents{Contrast: 100, Keyboard: 100, Semantic: 100, ARIA: 100}
	if m.Components != want {
		t.Errorf("Components = %+v, want %+v", m.Components, want)
	}
}

func TestAccessibilityViolations(t *testing.T) {
	html := `<html><body>
		<h2>Sub</h2>
		<img src="hero.png">
		<form><input type="text" name="q"></form>
		<div role="bogus" tabindex="3">x</div>
		</body></html>`

	res, err := analyzeAccessibility("https://example.com", html)
	if err != nil {
		t.Fatal(err)
	}
	m := res.Metrics.(AccessibilityMetrics)

	rules := map[string]model.Severity{}
	for _, v := range m.Violations {
		rules[v.Rule] = v.Impact
	}
	wantRules := map[string]model.Severity{
		"image-alt":            model.SeverityCritical,
		"document-title":       model.SeverityHigh,
		"region":               model.SeverityMedium,
		"page-has-heading-one": model.SeverityMedium,
		"label":                model.SeverityCritical,
	}
	if len(rules) != len(wantRules) {
		t.Errorf("rules = %v, want %v", rules, wantRules)
	}
	for rule, sev := range wantRules {
		if rules[rule] != sev {
			t.Errorf("rule %s impact = %q, want %q", rule, rules[rule], sev)
		}
	}

	want := A11yComponents{Contrast: 100, Keyboard: 90, Semantic: 55, ARIA: 85}
	if m.Components != want {
		t.Errorf("Components = %+v, want %+v", m.Components, want)
	}
	if m.ViolationCounts["critical"] != 2 {
		t.Errorf("critical = %d, want 2", m.ViolationCounts["critical"])
	}
	// Blend is 83.25 and the capped penalties add up to 10.
	if res.Score < 73 || res.Score > 73.5 {
		t.Errorf("Score = %v, want about 73.3", res.Score)
	}

	for _, is := range res.Issues {
		if is.Location.Selector == "" {
			t.Errorf("issue %q has no selector", is.Description)
		}
	}
}

func TestAccessibilityImageSelector(t *testing.T) {
	res, err := analyzeAccessibility("https://example.com",
		`<html><head><title>x</title></head><body><main><h1>x</h1><img id="hero" class="wide banner" src="/a.png"></main></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Issues) == 0 {
		t.Fatal("expected an image-alt issue")
	}
	loc := res.Issues[0].Location
	if want := `img#hero.wide.banner[src="/a.png"]`; loc.Selector != want {
		t.Errorf("Selector = %q, want %q", loc.Selector, want)
	}
	if loc.HTMLSnippet == "" {
		t.Error("expected an html snippet")
	}
}

func TestContrastEstimate(t *testing.T) {
	body := ""
	for range 20 {
		body += "<p>text</p>"
	}
	res, err := analyzeAccessibility("https://example.com", "<html><body>"+body+"</body></html>")
	if err != nil {
		t.Fatal(err)
	}
	m := res.Metrics.(AccessibilityMetrics)
	if m.TextNodes != 20 {
		t.Errorf("TextNodes = %d, want 20", m.TextNodes)
	}
	if m.Components.Contrast != 90 {
		t.Errorf("Contrast = %v, want 90", m.Components.Contrast)
	}
}

func TestKeyboardPenaltyCaps(t *testing.T) {
	body := ""
	for range 8 {
		body += `<a href="#" tabindex="1">x</a>`
	}
	body += `<a href="#" tabindex="0">y</a><a href="#" tabindex="-1">z</a>`
	res, err := analyzeAccessibility("https://example.com", "<html><body>"+body+"</body></html>")
	if err != nil {
		t.Fatal(err)
	}
	m := res.Metrics.(AccessibilityMetrics)
	if m.PositiveTabindex != 8 {
		t.Errorf("PositiveTabindex = %d, want 8", m.PositiveTabindex)
	}
	if m.Components.Keyboard != 50 {
		t.Errorf("Keyboard = %v, want 50", m.Components.Keyboard)
	}
}

func TestAccessibilityDanglingLabelledBy(t *testing.T) {
	html := `<html><head><title>Form</title></head><body><nav></nav><main><h1>Sign up</h1>
		<span id="first">First</span><span id="second">Second</span>
		<div aria-labelledby="first missing"></div>
		<div aria-labelledby="second"></div>
		<div aria-labelledby="gone"></div>
		</main></body></html>`

	res, err := analyzeAccessibility("https://example.com", html)
	if err != nil {
		t.Fatal(err)
	}
	m := res.Metrics.(AccessibilityMetrics)
	if got := strings.Join(m.DanglingLabelledBy, ","); got != "missing,gone" {
		t.Errorf("DanglingLabelledBy = %v, want [missing gone]", m.DanglingLabelledBy)
	}
	if m.Components.ARIA != 70 {
		t.Errorf("ARIA = %v, want 70", m.Components.ARIA)
	}
}
