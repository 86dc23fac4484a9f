package model

import "fmt"

// FindingKind classifies what a rule detected.
type FindingKind string

const (
	// KindMissingHeader is reported when a hardening header is absent.
	KindMissingHeader FindingKind = "MissingHeader"

	// KindOutdatedServer is reported when the Server header shows an old version.
	KindOutdatedServer FindingKind = "OutdatedServer"

	// KindOutdatedRuntime is reported when X-Powered-By shows an old runtime.
	KindOutdatedRuntime FindingKind = "OutdatedRuntime"
)

// Finding is a single security weakness observed on one URL.
// Findings are created by the vulnerability scanner and streamed to sinks
// immediately; the crawler never retains them.
type Finding struct {
	// URL is the page the finding was observed on.
	URL string `json:"url"`

	// Rule is the identifier of the rule that produced the finding (e.g. "CSP").
	Rule string `json:"rule"`

	// Kind is the category of the finding.
	Kind FindingKind `json:"kind"`

	// Header is the HTTP header the rule inspected.
	Header string `json:"header"`

	// Component names the outdated software for version findings
	// (e.g. "Apache server"). Empty for missing-header findings.
	Component string `json:"component,omitempty"`

	// Detail is the offending header value, or a short note for absent headers.
	Detail string `json:"detail"`

	// Severity is the risk level assigned by the rule.
	Severity Severity `json:"severity"`
}

// Message renders the finding as the human-readable line printed by the CLI.
func (f Finding) Message() string {
	switch f.Kind {
	case KindMissingHeader:
		return fmt.Sprintf("Missing %s header on %s", f.Header, f.URL)
	case KindOutdatedServer, KindOutdatedRuntime:
		component := f.Component
		if component == "" {
			component = f.Header
		}
		return fmt.Sprintf("Outdated %s detected on %s", component, f.URL)
	default:
		return fmt.Sprintf("%s (%s) on %s", f.Rule, f.Detail, f.URL)
	}
}
