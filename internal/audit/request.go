package audit

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Bahjat/site-audit/internal/model"
	"github.com/Bahjat/site-audit/internal/platform/errs"
)

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &errs.AppError{Kind: errs.InvalidInput, Message: "url is required"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &errs.AppError{Kind: errs.InvalidInput, Message: "Invalid URL format", Cause: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &errs.AppError{Kind: errs.InvalidInput, Message: "Invalid URL format: scheme must be http or https"}
	}
	if u.Hostname() == "" {
		return &errs.AppError{Kind: errs.InvalidInput, Message: "Invalid URL format: missing host"}
	}
	return nil
}

// NewRequest builds a pending audit for rawURL.
func NewRequest(rawURL string, now time.Time) *model.AuditRequest {
	rawURL = strings.TrimSpace(rawURL)
	return &model.AuditRequest{
		ID:        uuid.NewString(),
		URL:       rawURL,
		Domain:    model.RegistrableDomain(rawURL),
		Status:    model.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
