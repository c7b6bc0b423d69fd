package model

import (
	"net"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Status is the lifecycle state of an audit.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Category identifies one of the five audit dimensions.
type Category string

const (
	CategorySecurity      Category = "security"
	CategoryPerformance   Category = "performance"
	CategorySEO           Category = "seo"
	CategoryUX            Category = "ux"
	CategoryAccessibility Category = "accessibility"
)

// Categories lists every category in report order.
var Categories = []Category{
	CategorySecurity,
	CategoryPerformance,
	CategorySEO,
	CategoryUX,
	CategoryAccessibility,
}

// Scores holds the per-category scores and the weighted overall score.
type Scores struct {
	Security      float64 `json:"security"`
	Performance   float64 `json:"performance"`
	SEO           float64 `json:"seo"`
	UX            float64 `json:"ux"`
	Accessibility float64 `json:"accessibility"`
	Overall       float64 `json:"overall"`
}

// Get returns the score for a category.
func (s Scores) Get(c Category) float64 {
	switch c {
	case CategorySecurity:
		return s.Security
	case CategoryPerformance:
		return s.Performance
	case CategorySEO:
		return s.SEO
	case CategoryUX:
		return s.UX
	case CategoryAccessibility:
		return s.Accessibility
	}
	return 0
}

// Set stores the score for a category.
func (s *Scores) Set(c Category, v float64) {
	switch c {
	case CategorySecurity:
		s.Security = v
	case CategoryPerformance:
		s.Performance = v
	case CategorySEO:
		s.SEO = v
	case CategoryUX:
		s.UX = v
	case CategoryAccessibility:
		s.Accessibility = v
	}
}

// AuditRequest is one end-to-end evaluation of a single URL.
type AuditRequest struct {
	ID               string                  `json:"id"`
	URL              string                  `json:"url"`
	Domain           string                  `json:"domain,omitempty"`
	Status           Status                  `json:"status"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
	CompletedAt      *time.Time              `json:"completed_at,omitempty"`
	ProcessingTime   *float64                `json:"processing_time,omitempty"` // seconds
	ErrorMessage     string                  `json:"error_message,omitempty"`
	Scores           *Scores                 `json:"scores,omitempty"`
	Results          map[Category]ScanResult `json:"results,omitempty"`
	NarrativeSummary string                  `json:"narrative_summary,omitempty"`
}

// Clone returns a deep enough copy for stores that hand out records by value.
func (a *AuditRequest) Clone() *AuditRequest {
	c := *a
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		c.CompletedAt = &t
	}
	if a.ProcessingTime != nil {
		p := *a.ProcessingTime
		c.ProcessingTime = &p
	}
	if a.Scores != nil {
		s := *a.Scores
		c.Scores = &s
	}
	if a.Results != nil {
		c.Results = make(map[Category]ScanResult, len(a.Results))
		for k, v := range a.Results {
			c.Results[k] = v
		}
	}
	return &c
}

// RegistrableDomain returns the eTLD+1 of rawURL, or the bare host when the
// public suffix list has no answer (IP addresses, localhost).
func RegistrableDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// ErrorResponse is the JSON shape returned on failure.
type ErrorResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}
