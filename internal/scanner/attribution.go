package scanner

import (
	"fmt"
	"strings"

	"github.com/Bahjat/site-audit/internal/fetcher"
	"github.com/Bahjat/site-audit/internal/model"
)

// Scores assigned when the page could not be fetched. They keep testing
// limitations (bot blocking, slow or unreachable networks) from being
// reported as site defects.
const (
	blockedScore            = 75
	timeoutScore            = 60
	performanceTimeoutScore = 30
	networkScore            = 70
)

// degraded builds the result for a fetch that failed, following one policy
// for every category.
func degraded(category model.Category, url string, res *fetcher.Result) model.ScanResult {
	ferr := res.Err
	name := strings.ToLower(noun(category))
	if category == model.CategorySEO || category == model.CategoryUX {
		name = noun(category)
	}
	loc := location(url, "general")

	out := model.ScanResult{
		Category:    category,
		FetchMethod: string(res.Method),
		Metrics: map[string]any{
			"fetch_error":   ferr.Error(),
			"fetch_kind":    string(ferr.Kind),
			"status_code":   ferr.StatusCode,
			"fallback_used": res.FallbackUsed,
		},
	}

	switch ferr.Kind {
	case fetcher.KindBlocked:
		out.Score = blockedScore
		out.Note = fmt.Sprintf("Website has anti-bot protection that blocked automated %s testing. Manual testing recommended.", name)
		out.Issues = []model.Issue{{
			Description: "⚠️ Automated access blocked (403) - this is NOT a website issue",
			Severity:    model.SeverityLow,
			Location:    loc,
			Help:        fmt.Sprintf("The site refused automated requests. The %s score is a neutral estimate, not a measurement.", name),
		}}
		out.Recommendations = []string{
			"Website has anti-bot protection in place (good for security)",
			fmt.Sprintf("Run a manual %s review from a regular browser", name),
			"Consider allow-listing audit tools if automated monitoring is needed",
		}

	case fetcher.KindNotFound:
		out.Score = 0
		out.Issues = []model.Issue{{
			Description: "Page not found (404)",
			Severity:    model.SeverityHigh,
			Location:    loc,
			Help:        "The audited URL returned 404. Check that the address is correct and the page is published.",
		}}
		out.Recommendations = []string{"Verify the URL is correct and the page is publicly reachable"}

	case fetcher.KindTimeout:
		if category == model.CategoryPerformance {
			out.Score = performanceTimeoutScore
			out.Issues = []model.Issue{{
				Description: "Request timed out - indicates slow website performance",
				Severity:    model.SeverityHigh,
				Location:    loc,
			}}
			out.Recommendations = []string{
				"Optimize server response time",
				"Check server capacity and hosting performance",
			}
		} else {
			out.Score = timeoutScore
			out.Note = fmt.Sprintf("The site did not respond in time, so %s checks could not run. This is not a %s defect in itself.", name, name)
			out.Issues = []model.Issue{{
				Description: fmt.Sprintf("Request timed out - %s checks could not complete", name),
				Severity:    model.SeverityMedium,
				Location:    loc,
			}}
			out.Recommendations = []string{"Re-run the audit when the site is responding normally"}
		}

	case fetcher.KindNetwork:
		out.Score = networkScore
		out.Note = "Connection error during testing. This is a testing infrastructure limitation, not necessarily a website issue."
		out.Issues = []model.Issue{{
			Description: "Network/connection error - testing limitation, not necessarily a website issue",
			Severity:    model.SeverityLow,
			Location:    loc,
			Help:        ferr.Error(),
		}}
		out.Recommendations = []string{"Verify the site is reachable from the public internet and re-run the audit"}

	default:
		out.Score = 0
		out.Issues = []model.Issue{{
			Description: fmt.Sprintf("%s scan failed: %s", noun(category), ferr.Error()),
			Severity:    model.SeverityHigh,
			Location:    loc,
		}}
		out.Recommendations = []string{"Check that the URL serves an HTML page and re-run the audit"}
	}

	return out
}
