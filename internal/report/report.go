// Package report renders a finished audit as JSON, Markdown or a workbook.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Bahjat/site-audit/internal/model"
	"github.com/Bahjat/site-audit/internal/score"
)

// Format names an output format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatXLSX     Format = "xlsx"
)

// ParseFormats splits a comma separated list such as "json,md".
func ParseFormats(list string) ([]Format, error) {
	var out []Format
	for _, f := range strings.Split(list, ",") {
		switch Format(strings.ToLower(strings.TrimSpace(f))) {
		case FormatJSON:
			out = append(out, FormatJSON)
		case FormatMarkdown, "markdown":
			out = append(out, FormatMarkdown)
		case FormatXLSX:
			out = append(out, FormatXLSX)
		case "":
		default:
			return nil, fmt.Errorf("unknown report format %q", f)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no report format given")
	}
	return slices.Compact(out), nil
}

var categoryTitles = map[model.Category]string{
	model.CategorySecurity:      "Security",
	model.CategoryPerformance:   "Performance",
	model.CategorySEO:           "SEO",
	model.CategoryUX:            "User Experience",
	model.CategoryAccessibility: "Accessibility",
}

// Generate writes audit-<id>.<format> for each format into outDir and
// returns the paths written.
func Generate(outDir string, a *model.AuditRequest, formats []Format) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	var paths []string
	for _, f := range formats {
		path := filepath.Join(outDir, fmt.Sprintf("audit-%s.%s", a.ID, f))
		if err := writeFile(path, a, f); err != nil {
			return paths, fmt.Errorf("write %s report: %w", f, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, a *model.AuditRequest, f Format) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	switch f {
	case FormatJSON:
		return WriteJSON(out, a)
	case FormatMarkdown:
		_, err = io.WriteString(out, Markdown(a))
		return err
	case FormatXLSX:
		return WriteXLSX(out, a)
	}
	return fmt.Errorf("unknown report format %q", f)
}

// WriteJSON writes the audit record as indented JSON.
func WriteJSON(w io.Writer, a *model.AuditRequest) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}

// sortedIssues orders issues by severity, most urgent first, keeping the
// scanner's order within a severity.
func sortedIssues(issues []model.Issue) []model.Issue {
	out := slices.Clone(issues)
	slices.SortStableFunc(out, func(a, b model.Issue) int {
		return b.Severity.Rank() - a.Severity.Rank()
	})
	return out
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

// Markdown renders the audit for humans: the summary table, then one
// section per category with its issues sorted by severity.
func Markdown(a *model.AuditRequest) string {
	var sb strings.Builder

	sb.WriteString("# Website Audit Report\n\n")
	fmt.Fprintf(&sb, "**Target:** `%s`\n", a.URL)
	fmt.Fprintf(&sb, "**Audit ID:** %s\n", a.ID)
	fmt.Fprintf(&sb, "**Status:** %s\n", a.Status)
	if a.CompletedAt != nil {
		fmt.Fprintf(&sb, "**Completed:** %s\n", a.CompletedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	if a.ProcessingTime != nil {
		fmt.Fprintf(&sb, "**Processing time:** %.1fs\n", *a.ProcessingTime)
	}
	sb.WriteString("\n")

	if a.Status == model.StatusFailed {
		sb.WriteString("> [!WARNING]\n")
		fmt.Fprintf(&sb, "> The audit failed: %s\n", cell(a.ErrorMessage))
		return sb.String()
	}
	if !a.Status.Terminal() || a.Scores == nil {
		fmt.Fprintf(&sb, "_Audit is %s, no scores yet._\n", a.Status)
		return sb.String()
	}

	sb.WriteString("## Scores\n\n")
	sb.WriteString("| Category | Score | Rating | Issues |\n")
	sb.WriteString("| :--- | ---: | :--- | ---: |\n")
	for _, c := range model.Categories {
		v := a.Scores.Get(c)
		fmt.Fprintf(&sb, "| %s | %.1f | %s | %d |\n", categoryTitles[c], v, score.Rating(v), len(a.Results[c].Issues))
	}
	fmt.Fprintf(&sb, "| **Overall** | **%.1f** | **%s** | |\n\n", a.Scores.Overall, score.Rating(a.Scores.Overall))

	if a.NarrativeSummary != "" {
		sb.WriteString("## Summary\n\n")
		sb.WriteString(strings.TrimSpace(a.NarrativeSummary))
		sb.WriteString("\n\n")
	}

	for _, c := range model.Categories {
		res, ok := a.Results[c]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "## %s (%.1f)\n\n", categoryTitles[c], res.Score)
		if res.Note != "" {
			fmt.Fprintf(&sb, "> %s\n\n", cell(res.Note))
		}
		if len(res.Issues) == 0 {
			sb.WriteString("_No issues._\n\n")
		} else {
			sb.WriteString("| Severity | Issue | Location |\n")
			sb.WriteString("|---|---|---|\n")
			for _, is := range sortedIssues(res.Issues) {
				fmt.Fprintf(&sb, "| %s | %s | `%s` |\n", is.Severity, cell(is.Description), cell(is.Location.Selector))
			}
			sb.WriteString("\n")
		}
		if len(res.Recommendations) > 0 {
			sb.WriteString("**Recommendations**\n\n")
			for _, r := range res.Recommendations {
				fmt.Fprintf(&sb, "- %s\n", r)
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
