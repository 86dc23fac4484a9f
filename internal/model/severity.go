package model

import (
	"fmt"
	"strings"
)

// Severity represents the risk level of a security finding.
type Severity int

const (
	// SeverityInfo indicates informational findings with no direct security impact.
	SeverityInfo Severity = iota

	// SeverityLow indicates minor hardening gaps.
	// Example: missing X-Content-Type-Options.
	SeverityLow

	// SeverityMedium indicates missing protections that enable common attacks.
	// Examples: missing Content-Security-Policy or Strict-Transport-Security.
	SeverityMedium

	// SeverityHigh indicates software versions with known public vulnerabilities.
	// Examples: Apache 2.4.x, PHP 7.x signatures.
	SeverityHigh

	// SeverityCritical indicates findings that need immediate attention.
	// No built-in rule uses it; it is available to rules loaded from the config file.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity converts a severity name (case-insensitive) to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INFO":
		return SeverityInfo, nil
	case "LOW":
		return SeverityLow, nil
	case "MEDIUM":
		return SeverityMedium, nil
	case "HIGH":
		return SeverityHigh, nil
	case "CRITICAL":
		return SeverityCritical, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", s)
	}
}

// MarshalText encodes the severity as its name so JSON and YAML output stay readable.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// AllSeverities returns every severity level from most to least severe.
func AllSeverities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
}
