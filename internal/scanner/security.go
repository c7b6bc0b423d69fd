package scanner

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Bahjat/site-audit/internal/model"
)

// securityHeaders are the six canonical response headers that are checked.
var securityHeaders = []string{
	"Strict-Transport-Security",
	"X-Content-Type-Options",
	"X-Frame-Options",
	"X-XSS-Protection",
	"Content-Security-Policy",
	"Referrer-Policy",
}

const (
	headerPoints     = 12
	headerBaseScore  = 30
	headerScaling    = 0.83
	certWarningDays  = 30
	vulnPenaltyHigh  = 30
	vulnPenaltyMed   = 15
	vulnPenaltyLow   = 5
	disclosureSource = "Server"
)

// Vulnerability is one lightweight probe finding.
type Vulnerability struct {
	Type        string         `json:"type"`
	Severity    model.Severity `json:"severity"`
	Description string         `json:"description"`
	Path        string         `json:"path,omitempty"`
}

// HeaderReport lists which security headers were found.
type HeaderReport struct {
	Present map[string]string `json:"present"`
	Missing []string          `json:"missing"`
	Score   float64           `json:"score"`
}

// SecurityMetrics is the raw data behind the security score.
type SecurityMetrics struct {
	TLS             TLSInfo         `json:"ssl"`
	Headers         HeaderReport    `json:"headers"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
	Probes          []ProbeResult   `json:"probes"`
}

// Security combines the TLS handshake, security headers and exposure probes.
type Security struct {
	fetcher PageFetcher
	tls     *TLSProber
	prober  *PathProber
}

// NewSecurity returns a Security scanner.
func NewSecurity(f PageFetcher, tlsProber *TLSProber, prober *PathProber) *Security {
	return &Security{fetcher: f, tls: tlsProber, prober: prober}
}

func (s *Security) Category() model.Category { return model.CategorySecurity }

func (s *Security) Scan(ctx context.Context, url string) model.ScanResult {
	return guard(model.CategorySecurity, url, func() (model.ScanResult, error) {
		page := s.fetcher.Fetch(ctx, url)
		if !page.OK() {
			return degraded(model.CategorySecurity, url, page), nil
		}

		m := SecurityMetrics{
			TLS:     s.tls.Probe(ctx, url),
			Headers: checkSecurityHeaders(page.Headers),
			Probes:  s.prober.ProbeAll(ctx, url, sensitivePaths),
		}
		m.Vulnerabilities = findVulnerabilities(page.Headers, m.Probes)

		res := securityResult(url, m)
		res.FetchMethod = string(page.Method)
		return res, nil
	})
}

func checkSecurityHeaders(h http.Header) HeaderReport {
	r := HeaderReport{Present: map[string]string{}, Missing: []string{}}
	for _, name := range securityHeaders {
		if v := h.Get(name); v != "" {
			r.Present[name] = v
		} else {
			r.Missing = append(r.Missing, name)
		}
	}
	r.Score = headerScore(len(r.Present))
	return r
}

// headerScore gives a floor of 30 and scales the per-header points so that
// all six headers reach 89.8.
func headerScore(present int) float64 {
	points := present * headerPoints
	if points == 0 {
		return headerBaseScore
	}
	return round1(headerBaseScore + float64(points)*headerScaling)
}

func findVulnerabilities(h http.Header, probes []ProbeResult) []Vulnerability {
	vulns := []Vulnerability{}
	for _, p := range probes {
		if p.Exposed() {
			vulns = append(vulns, Vulnerability{
				Type:        "exposed_path",
				Severity:    model.SeverityMedium,
				Description: "Potentially sensitive path accessible: " + p.Path,
				Path:        p.Path,
			})
		}
	}

	server := strings.ToLower(h.Get(disclosureSource))
	for _, product := range []string{"apache", "nginx", "iis"} {
		if strings.Contains(server, product) {
			vulns = append(vulns, Vulnerability{
				Type:        "information_disclosure",
				Severity:    model.SeverityLow,
				Description: "Server information disclosed: " + h.Get(disclosureSource),
			})
			break
		}
	}
	return vulns
}

func securityResult(url string, m SecurityMetrics) model.ScanResult {
	var (
		issues []model.Issue
		recs   []string
	)

	switch {
	case m.TLS.Error != "":
		issues = append(issues, model.Issue{
			Description: "SSL/TLS handshake failed",
			Severity:    model.SeverityHigh,
			Location:    location(url, "https://protocol"),
			Help:        m.TLS.Error,
		})
		recs = append(recs, "Install a valid certificate from a trusted authority")
	case !m.TLS.Enabled:
		issues = append(issues, model.Issue{
			Description: "SSL/HTTPS not enabled",
			Severity:    model.SeverityHigh,
			Location:    location(url, "https://protocol"),
		})
		recs = append(recs, "Enable HTTPS with a valid SSL certificate")
	case m.TLS.DaysToExpiry != nil && *m.TLS.DaysToExpiry < certWarningDays:
		issues = append(issues, model.Issue{
			Description: fmt.Sprintf("SSL certificate expires in %d days", *m.TLS.DaysToExpiry),
			Severity:    model.SeverityMedium,
			Location:    location(url, "https://protocol"),
		})
		recs = append(recs, "Renew the SSL certificate")
	}

	for _, name := range m.Headers.Missing {
		issues = append(issues, model.Issue{
			Description: "Missing security header: " + name,
			Severity:    model.SeverityMedium,
			Location:    location(url, "HTTP headers"),
		})
	}
	if len(m.Headers.Missing) > 0 {
		recs = append(recs, "Implement the missing security headers")
	}

	penalty := 0
	for _, v := range m.Vulnerabilities {
		selector := "general"
		if v.Path != "" {
			selector = v.Path
		}
		issues = append(issues, model.Issue{
			Description: v.Description,
			Severity:    v.Severity,
			Location:    location(url, selector),
		})
		penalty += vulnPenalty(v.Severity)
	}
	if len(m.Vulnerabilities) > 0 {
		recs = append(recs, "Restrict access to sensitive paths and hide server version banners")
	}

	score := 0.5*float64(m.TLS.Score) + 0.5*m.Headers.Score - float64(penalty)

	return model.ScanResult{
		Score:           roundScore(score),
		Issues:          issues,
		Recommendations: recs,
		Metrics:         m,
	}
}

func vulnPenalty(s model.Severity) int {
	switch s {
	case model.SeverityCritical, model.SeverityHigh:
		return vulnPenaltyHigh
	case model.SeverityMedium:
		return vulnPenaltyMed
	case model.SeverityLow:
		return vulnPenaltyLow
	}
	return 0
}
