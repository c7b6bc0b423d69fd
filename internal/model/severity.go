package model

import (
	"errors"
	"fmt"
	"strings"
)

// Severity is the fixed enumeration every surfaced issue must carry.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

var errUnknownSeverity = errors.New("unknown severity")

// Rank orders severities from most to least urgent (critical = 4).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the enumerated values.
func (s Severity) Valid() bool { return s.Rank() > 0 }

// ParseSeverity accepts both the canonical names and the impact vocabulary
// used by accessibility tooling (serious, moderate, minor).
func ParseSeverity(v string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "critical":
		return SeverityCritical, nil
	case "high", "serious":
		return SeverityHigh, nil
	case "medium", "moderate":
		return SeverityMedium, nil
	case "low", "minor":
		return SeverityLow, nil
	default:
		return "", fmt.Errorf("%w: %q", errUnknownSeverity, v)
	}
}

// UnmarshalText rejects free-text severities when decoding stored results.
func (s *Severity) UnmarshalText(b []byte) error {
	parsed, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
