package scanner

import (
	"context"
	"testing"

	"github.com/Bahjat/site-audit/internal/model"
)

func TestSEOScan(t *testing.T) {
	tests := []struct {
		name       string
		html       string
		wantScore  float64
		wantIssues []string
	}{
		{
			name: "complete page",
			html: `<html><head><title>Acme widgets</title>
				<meta name="description" content="Widgets for every occasion">
				<meta name="viewport" content="width=device-width, initial-scale=1"></head>
				<body><h1>Widgets</h1></body></html>`,
			wantScore:  100,
			wantIssues: nil,
		},
		{
			name:      "empty page",
			html:      `<html><head></head><body></body></html>`,
			wantScore: 40,
			wantIssues: []string{
				"Missing page title",
				"Missing meta description",
				"Missing H1 heading",
				"Missing viewport meta tag",
			},
		},
		{
			name: "blank title and uppercase meta names",
			html: `<html><head><title>   </title>
				<meta NAME="Description" content="About us">
				<meta name="VIEWPORT" content="width=device-width"></head>
				<body><h1>About</h1></body></html>`,
			wantScore:  80,
			wantIssues: []string{"Missing page title"},
		},
		{
			name: "empty description content",
			html: `<html><head><title>Home</title><meta name="description" content="">
				<meta name="viewport" content="width=device-width"></head><body><h2>x</h2></body></html>`,
			wantScore:  75,
			wantIssues: []string{"Missing meta description", "Missing H1 heading"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewSEO(servedPage(tt.html, nil)).Scan(context.Background(), "https://example.com")
			if res.Score != tt.wantScore {
				t.Errorf("Score = %v, want %v", res.Score, tt.wantScore)
			}
			if len(res.Issues) != len(tt.wantIssues) {
				t.Fatalf("issues = %d, want %d: %+v", len(res.Issues), len(tt.wantIssues), res.Issues)
			}
			for i, want := range tt.wantIssues {
				if res.Issues[i].Description != want {
					t.Errorf("issue[%d] = %q, want %q", i, res.Issues[i].Description, want)
				}
				if res.Issues[i].Location.Selector == "" {
					t.Errorf("issue[%d] has no selector", i)
				}
			}
			if res.FetchMethod != "http" {
				t.Errorf("FetchMethod = %q, want http", res.FetchMethod)
			}
		})
	}
}

func TestSEOSeverities(t *testing.T) {
	res, err := analyzeSEO("https://example.com", "<html></html>")
	if err != nil {
		t.Fatal(err)
	}
	want := []model.Severity{model.SeverityHigh, model.SeverityMedium, model.SeverityMedium, model.SeverityMedium}
	for i, is := range res.Issues {
		if is.Severity != want[i] {
			t.Errorf("issue %q severity = %q, want %q", is.Description, is.Severity, want[i])
		}
	}
	m, ok := res.Metrics.(SEOMetrics)
	if !ok {
		t.Fatalf("Metrics = %T, want SEOMetrics", res.Metrics)
	}
	if m.H1Count != 0 || m.HasViewport {
		t.Errorf("metrics = %+v", m)
	}
}
