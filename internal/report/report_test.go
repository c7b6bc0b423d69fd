package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Bahjat/site-audit/internal/model"
)

func sampleAudit() *model.AuditRequest {
	done := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	elapsed := 12.34
	results := map[model.Category]model.ScanResult{}
	for _, c := range model.Categories {
		results[c] = model.ScanResult{Category: c, Score: 90, Issues: []model.Issue{}, Recommendations: []string{}}
	}
	results[model.CategorySecurity] = model.ScanResult{
		Category: model.CategorySecurity,
		Score:    55,
		Issues: []model.Issue{
			{Description: "Missing security header: Referrer-Policy", Severity: model.SeverityMedium,
				Location: model.Location{Selector: "HTTP headers"}},
			{Description: "SSL/HTTPS not enabled", Severity: model.SeverityHigh,
				Location: model.Location{Selector: "https://protocol"}},
			{Description: "Server information disclosed: nginx|1.2", Severity: model.SeverityLow,
				Location: model.Location{Selector: "general"}},
		},
		Recommendations: []string{"Enable HTTPS with a valid SSL certificate"},
	}
	return &model.AuditRequest{
		ID:               "0b7e5b4e-0a39-4a53-9a57-4a1f3ad2c0de",
		URL:              "http://example.com",
		Status:           model.StatusCompleted,
		CompletedAt:      &done,
		ProcessingTime:   &elapsed,
		Scores:           &model.Scores{Security: 55, Performance: 90, SEO: 90, UX: 90, Accessibility: 90, Overall: 78.8},
		Results:          results,
		NarrativeSummary: "**Website Health Assessment**\n\nMostly fine.",
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in      string
		want    []Format
		wantErr bool
	}{
		{"json", []Format{FormatJSON}, false},
		{"json,md,xlsx", []Format{FormatJSON, FormatMarkdown, FormatXLSX}, false},
		{" JSON , markdown ", []Format{FormatJSON, FormatMarkdown}, false},
		{"md,md", []Format{FormatMarkdown}, false},
		{"pdf", nil, true},
		{"", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormats(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormats(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if strings.Join(formatStrings(got), ",") != strings.Join(formatStrings(tt.want), ",") {
				t.Errorf("ParseFormats(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func formatStrings(fs []Format) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleAudit())

	for _, want := range []string{
		"# Website Audit Report",
		"**Target:** `http://example.com`",
		"| Security | 55.0 | fair | 3 |",
		"| **Overall** | **78.8** | **good** | |",
		"## Summary",
		"- Enable HTTPS with a valid SSL certificate",
		`nginx\|1.2`,
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}

	high := strings.Index(md, "SSL/HTTPS not enabled")
	medium := strings.Index(md, "Missing security header")
	low := strings.Index(md, "Server information disclosed")
	if !(high < medium && medium < low) {
		t.Errorf("issues not sorted by severity: high=%d medium=%d low=%d", high, medium, low)
	}
}

func TestMarkdown_Failed(t *testing.T) {
	md := Markdown(&model.AuditRequest{
		ID:           "x",
		URL:          "https://example.com",
		Status:       model.StatusFailed,
		ErrorMessage: "audit exceeded the maximum duration of 5m0s",
	})
	if !strings.Contains(md, "The audit failed: audit exceeded") {
		t.Errorf("markdown = %s", md)
	}
	if strings.Contains(md, "## Scores") {
		t.Error("failed audits have no score table")
	}
}

func TestMarkdown_InProgress(t *testing.T) {
	a := sampleAudit()
	a.Status = model.StatusProcessing
	md := Markdown(a)
	if !strings.Contains(md, "_Audit is processing, no scores yet._") {
		t.Errorf("markdown = %s", md)
	}
	if strings.Contains(md, "## Scores") {
		t.Error("unfinished audits have no score table")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleAudit()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var got model.AuditRequest
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got.Scores.Overall != 78.8 || len(got.Results[model.CategorySecurity].Issues) != 3 {
		t.Errorf("decoded = %+v", got)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleAudit()); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer func() { _ = f.Close() }()

	if got := f.GetSheetList(); strings.Join(got, ",") != "Summary,Issues" {
		t.Errorf("sheets = %v, want [Summary Issues]", got)
	}

	if v, _ := f.GetCellValue(summarySheet, "B1"); v != "http://example.com" {
		t.Errorf("Summary!B1 = %q", v)
	}

	rows, err := f.GetRows(issuesSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("issue rows = %d, want header plus 3", len(rows))
	}
	if rows[1][1] != "high" || rows[3][1] != "low" {
		t.Errorf("issue severities = %q, %q, want high first and low last", rows[1][1], rows[3][1])
	}
}

func TestGenerate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	a := sampleAudit()

	paths, err := Generate(dir, a, []Format{FormatJSON, FormatMarkdown, FormatXLSX})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("paths = %v", paths)
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			t.Errorf("stat %s: %v", p, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", p)
		}
		if !strings.HasPrefix(filepath.Base(p), "audit-"+a.ID) {
			t.Errorf("unexpected file name %s", p)
		}
	}
}
