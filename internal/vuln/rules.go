package vuln

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/vulncrawl/internal/model"
)

// Condition is the test a rule applies to its header.
type Condition string

const (
	// Absent fires when the header is missing from the response.
	// A header present with an empty value counts as present.
	Absent Condition = "absent"

	// Contains fires when the header value contains the rule's needle.
	Contains Condition = "contains"
)

// ErrInvalidRule is returned by Rule.Validate.
var ErrInvalidRule = errors.New("invalid rule")

// Rule is one entry of the detection table.
type Rule struct {
	// ID identifies the rule in findings and reports (e.g. "CSP").
	ID string `yaml:"id" json:"id"`

	// Kind is the category of the findings the rule produces.
	Kind model.FindingKind `yaml:"kind" json:"kind"`

	// Header is the response header the rule inspects.
	Header string `yaml:"header" json:"header"`

	// Condition selects the test.
	Condition Condition `yaml:"condition" json:"condition"`

	// Needle is the substring searched for by Contains rules.
	Needle string `yaml:"needle,omitempty" json:"needle,omitempty"`

	// Component names the detected software for version rules.
	Component string `yaml:"component,omitempty" json:"component,omitempty"`

	// Severity is assigned to every finding of this rule.
	Severity model.Severity `yaml:"severity" json:"severity"`
}

// Validate reports whether the rule can be evaluated.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRule)
	}
	if strings.TrimSpace(r.Header) == "" {
		return fmt.Errorf("%w: rule %s: missing header", ErrInvalidRule, r.ID)
	}
	switch r.Condition {
	case Absent:
	case Contains:
		if r.Needle == "" {
			return fmt.Errorf("%w: rule %s: contains condition needs a needle", ErrInvalidRule, r.ID)
		}
	default:
		return fmt.Errorf("%w: rule %s: unknown condition %q", ErrInvalidRule, r.ID, r.Condition)
	}
	switch r.Kind {
	case model.KindMissingHeader, model.KindOutdatedServer, model.KindOutdatedRuntime:
	default:
		return fmt.Errorf("%w: rule %s: unknown kind %q", ErrInvalidRule, r.ID, r.Kind)
	}
	return nil
}

// DefaultRules returns the built-in rule table.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:        "CTO",
			Kind:      model.KindMissingHeader,
			Header:    "X-Content-Type-Options",
			Condition: Absent,
			Severity:  model.SeverityLow,
		},
		{
			ID:        "HSTS",
			Kind:      model.KindMissingHeader,
			Header:    "Strict-Transport-Security",
			Condition: Absent,
			Severity:  model.SeverityMedium,
		},
		{
			ID:        "CSP",
			Kind:      model.KindMissingHeader,
			Header:    "Content-Security-Policy",
			Condition: Absent,
			Severity:  model.SeverityMedium,
		},
		{
			ID:        "OldApache",
			Kind:      model.KindOutdatedServer,
			Header:    "Server",
			Condition: Contains,
			Needle:    "Apache/2.4",
			Component: "Apache server",
			Severity:  model.SeverityHigh,
		},
		{
			ID:        "OldPHP",
			Kind:      model.KindOutdatedRuntime,
			Header:    "X-Powered-By",
			Condition: Contains,
			Needle:    "PHP/7",
			Component: "PHP version",
			Severity:  model.SeverityHigh,
		},
	}
}
