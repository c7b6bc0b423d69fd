package scanner

import (
	"context"
	"strings"
	"testing"

	"github.com/Bahjat/site-audit/internal/model"
)

func TestUXGoodPage(t *testing.T) {
	para := "<p>" + strings.Repeat("word ", 60) + "</p>"
	html := `<html><head><meta name="viewport" content="width=device-width, initial-scale=1"><title>t</title></head>
		<body><nav class="mobile-menu"><a href="/">Home</a><a href="/about">About</a></nav>
		<main><h1>Title</h1>` + para + para + `</main></body></html>`

	res := NewUX(servedPage(html, nil)).Scan(context.Background(), "https://example.com")
	if res.Score != 100 {
		t.Errorf("Score = %v, want 100 (issues %+v)", res.Score, res.Issues)
	}
	if len(res.Issues) != 0 {
		t.Errorf("issues = %+v, want none", res.Issues)
	}
}

func TestUXEmptyPage(t *testing.T) {
	res, err := analyzeUX("https://example.com", "<html><body></body></html>")
	if err != nil {
		t.Fatal(err)
	}
	m := res.Metrics.(UXMetrics)

	checks := []struct {
		name      string
		got, want float64
	}{
		{"mobile", m.Mobile.Score, 80},
		{"touch", m.Touch.Score, 100},
		{"navigation", m.Navigation.Score, 65},
		{"readability", m.Readability.Score, 65},
		{"layout", m.Layout.Score, 100},
		{"forms", m.Forms.Score, 100},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s score = %v, want %v", c.name, c.got, c.want)
		}
	}

	// No forms, so the remaining weights are rescaled: 77.75 / 0.95.
	if res.Score != 81.8 {
		t.Errorf("Score = %v, want 81.8", res.Score)
	}
	if len(res.Issues) != 6 {
		t.Errorf("issues = %d, want 6: %+v", len(res.Issues), res.Issues)
	}
	for _, is := range res.Issues {
		wantSev := model.SeverityMedium
		if strings.HasPrefix(is.Description, "Mobile:") {
			wantSev = model.SeverityHigh
		}
		if is.Severity != wantSev {
			t.Errorf("%q severity = %q, want %q", is.Description, is.Severity, wantSev)
		}
	}
}

func TestAnalyzeTouch(t *testing.T) {
	body := `<a href="#" style="font-size: 12px">tiny</a><button style="font-size:16px">ok</button>`
	for range 10 {
		body += `<a href="#">x</a>`
	}
	doc, err := parseDocument("<html><body>" + body + "</body></html>")
	if err != nil {
		t.Fatal(err)
	}
	r := analyzeTouch(doc)
	if r.InteractiveElements != 12 {
		t.Errorf("InteractiveElements = %d, want 12", r.InteractiveElements)
	}
	if r.SmallTargets != 1 {
		t.Errorf("SmallTargets = %d, want 1", r.SmallTargets)
	}
	if r.Score != 85 {
		t.Errorf("Score = %v, want 85", r.Score)
	}
}

func TestAnalyzeForms(t *testing.T) {
	doc, err := parseDocument(`<html><body><form>
		<label for="a">A</label><input id="a">
		<input name="b"><textarea name="c"></textarea>
		<input type="hidden" name="token"><input type="submit">
		<input name="d" required>
		<span class="field-error"></span>
		</form></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	r := analyzeForms(doc)
	if r.FormsFound != 1 {
		t.Errorf("FormsFound = %d, want 1", r.FormsFound)
	}
	if r.LabeledInputs != 1 || r.UnlabeledInputs != 3 {
		t.Errorf("labeled/unlabeled = %d/%d, want 1/3", r.LabeledInputs, r.UnlabeledInputs)
	}
	if r.Score != 70 {
		t.Errorf("Score = %v, want 70", r.Score)
	}
	if r.RequiredIndicators != 1 || !r.ErrorHandling {
		t.Errorf("required = %d, error handling = %v", r.RequiredIndicators, r.ErrorHandling)
	}
}

func TestAnalyzeNavigationAndLayout(t *testing.T) {
	links := strings.Repeat(`<a href="#">l</a>`, 21)
	doc, err := parseDocument(`<html><head><link rel="preload" as="font" href="f.woff2"></head><body>
		<nav class="hamburger">` + links + `</nav>
		<ol class="breadcrumbs"></ol>
		<input type="search" name="q">
		<img src="a.png" width="10"><img src="b.png" style="height: 20px"><img src="c.png"><img class="lazy" src="d.png">
		</body></html>`)
	if err != nil {
		t.Fatal(err)
	}

	nav := analyzeNavigation(doc)
	if nav.NavigationDepth != 21 || !nav.Breadcrumbs || !nav.Search || !nav.MobileNavigation {
		t.Errorf("navigation = %+v", nav)
	}
	if nav.Score != 90 {
		t.Errorf("navigation score = %v, want 90", nav.Score)
	}

	layout := analyzeLayout(doc)
	if layout.ImagesWithoutDimensions != 2 {
		t.Errorf("ImagesWithoutDimensions = %d, want 2", layout.ImagesWithoutDimensions)
	}
	if layout.Score != 90 || layout.DynamicContent != 1 || !layout.FontPreload {
		t.Errorf("layout = %+v", layout)
	}
}
