package scanner

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Selectors shared by the DOM scanners, compiled once.
var (
	selTitle       = cascadia.MustCompile("title")
	selMeta        = cascadia.MustCompile("meta[name]")
	selH1          = cascadia.MustCompile("h1")
	selHeadings    = cascadia.MustCompile("h1, h2, h3, h4, h5, h6")
	selImg         = cascadia.MustCompile("img")
	selMain        = cascadia.MustCompile(`main, [role="main"]`)
	selNav         = cascadia.MustCompile(`nav, [role="navigation"]`)
	selParagraph   = cascadia.MustCompile("p")
	selForm        = cascadia.MustCompile("form")
	selFormFields  = cascadia.MustCompile("input, select, textarea")
	selTabindex    = cascadia.MustCompile("[tabindex]")
	selRole        = cascadia.MustCompile("[role]")
	selLabelledBy  = cascadia.MustCompile("[aria-labelledby]")
	selWithID      = cascadia.MustCompile("[id]")
	selStyled      = cascadia.MustCompile("[style]")
	selFontPreload = cascadia.MustCompile(`link[rel="preload"][as="font"]`)
	selSearch      = cascadia.MustCompile(`input, [role="search"]`)
	selInteractive = cascadia.MustCompile(`a, button, input[type="submit"], input[type="button"]`)
	selNoText      = cascadia.MustCompile("script, style, noscript, template")
)

const maxSnippet = 200

// parseDocument builds a goquery document from fetched HTML.
func parseDocument(body string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// snippet returns the element's outer HTML, truncated.
func snippet(s *goquery.Selection) string {
	out, err := goquery.OuterHtml(s.First())
	if err != nil {
		return ""
	}
	if len(out) > maxSnippet {
		out = out[:maxSnippet] + "..."
	}
	return out
}

// selectorFor builds a CSS-ish hint for an element: tag, #id, .classes and,
// for images, the src attribute.
func selectorFor(s *goquery.Selection) string {
	s = s.First()
	var b strings.Builder
	b.WriteString(goquery.NodeName(s))
	if id, ok := s.Attr("id"); ok && id != "" {
		b.WriteString("#" + id)
	}
	if class, ok := s.Attr("class"); ok {
		for _, c := range strings.Fields(class) {
			b.WriteString("." + c)
		}
	}
	if src, ok := s.Attr("src"); ok && src != "" && goquery.NodeName(s) == "img" {
		fmt.Fprintf(&b, "[src=%q]", src)
	}
	return b.String()
}

// visibleText returns the body text without script and style content.
func visibleText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.FindMatcher(selNoText).Remove()
	return body.Text()
}

// textNodeCount counts non-blank text nodes outside script and style.
func textNodeCount(doc *goquery.Document) int {
	n := 0
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && selNoText.Match(node) {
			return
		}
		if node.Type == html.TextNode && strings.TrimSpace(node.Data) != "" {
			n++
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, node := range doc.Find("body").Nodes {
		walk(node)
	}
	return n
}

// hasLabel reports whether a form field has an accessible name through a
// label[for], a wrapping label, aria-label or aria-labelledby.
func hasLabel(doc *goquery.Document, field *goquery.Selection) bool {
	if v, ok := field.Attr("aria-label"); ok && strings.TrimSpace(v) != "" {
		return true
	}
	if v, ok := field.Attr("aria-labelledby"); ok && strings.TrimSpace(v) != "" {
		return true
	}
	if field.ParentsFiltered("label").Length() > 0 {
		return true
	}
	id, ok := field.Attr("id")
	if !ok || id == "" {
		return false
	}
	found := false
	doc.Find("label[for]").EachWithBreak(func(_ int, l *goquery.Selection) bool {
		if v, _ := l.Attr("for"); v == id {
			found = true
			return false
		}
		return true
	})
	return found
}

// metaByName finds <meta name=...> case-insensitively.
func metaByName(doc *goquery.Document, name string) *goquery.Selection {
	return doc.FindMatcher(selMeta).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.EqualFold(strings.TrimSpace(s.AttrOr("name", "")), name)
	})
}

// hasSearch looks for a search landmark or an input that looks like a search box.
func hasSearch(doc *goquery.Document) bool {
	return doc.FindMatcher(selSearch).FilterFunction(func(_ int, s *goquery.Selection) bool {
		if s.AttrOr("role", "") == "search" {
			return true
		}
		if strings.EqualFold(s.AttrOr("type", ""), "search") {
			return true
		}
		name := strings.ToLower(s.AttrOr("name", "") + " " + s.AttrOr("placeholder", ""))
		return strings.Contains(name, "search")
	}).Length() > 0
}

// needsLabel reports whether a form field is one a user types into or picks from.
func needsLabel(field *goquery.Selection) bool {
	if goquery.NodeName(field) != "input" {
		return true
	}
	switch strings.ToLower(field.AttrOr("type", "text")) {
	case "submit", "button", "hidden", "reset", "image":
		return false
	}
	return true
}

func hasClassMatching(doc *goquery.Document, needles ...string) bool {
	found := false
	doc.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class := strings.ToLower(s.AttrOr("class", ""))
		for _, n := range needles {
			if strings.Contains(class, n) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}
