package model

import (
	"encoding/json"
	"strings"
)

// Location points at the page element an issue refers to. Selector may be a
// descriptive placeholder such as "general" when no element is implicated.
type Location struct {
	URL         string `json:"url"`
	Selector    string `json:"selector"`
	HTMLSnippet string `json:"html_snippet,omitempty"`
	Line        *int   `json:"line_number,omitempty"`
}

// Issue is one located, severity-tagged finding.
type Issue struct {
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Location    Location `json:"location"`
	Help        string   `json:"help,omitempty"`
}

// UnmarshalJSON accepts the structured form or a bare string. Strings are
// converted with IssueFromText and carry no page URL.
func (i *Issue) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*i = IssueFromText(text, "")
		return nil
	}
	type plain Issue
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*i = Issue(p)
	return nil
}

// ScanResult is the normalized output of one scanner invocation.
type ScanResult struct {
	Category        Category `json:"category"`
	Score           float64  `json:"score"`
	Issues          []Issue  `json:"issues"`
	Recommendations []string `json:"recommendations"`
	Metrics         any      `json:"metrics,omitempty"`
	Note            string   `json:"note,omitempty"`
	FetchMethod     string   `json:"fetch_method,omitempty"`
}

// IssueFromText converts a legacy string-only issue into the structured form.
// A leading "Critical:", "High:", "Serious:" (and so on) prefix selects the
// severity; anything else is treated as medium.
func IssueFromText(text, pageURL string) Issue {
	sev := SeverityMedium
	desc := strings.TrimSpace(text)
	if prefix, rest, ok := strings.Cut(desc, ":"); ok {
		if parsed, err := ParseSeverity(prefix); err == nil {
			sev = parsed
			desc = strings.TrimSpace(rest)
		}
	}
	return Issue{
		Description: desc,
		Severity:    sev,
		Location:    Location{URL: pageURL, Selector: "general"},
	}
}
