package vuln

import (
	"net/http"
	"strings"

	"golang.org/x/text/cases"

	"github.com/nao1215/vulncrawl/internal/model"
)

// Scanner evaluates a rule table against response headers.
type Scanner struct {
	rules    []Rule
	foldCase bool
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithRules appends rules to the table. Rules are evaluated in order.
func WithRules(rules ...Rule) Option {
	return func(s *Scanner) {
		s.rules = append(s.rules, rules...)
	}
}

// WithoutDefaultRules starts from an empty table instead of DefaultRules.
// Apply it before WithRules.
func WithoutDefaultRules() Option {
	return func(s *Scanner) {
		s.rules = nil
	}
}

// WithFoldCase makes Contains rules compare with Unicode case folding.
func WithFoldCase(fold bool) Option {
	return func(s *Scanner) {
		s.foldCase = fold
	}
}

// NewScanner creates a Scanner with the built-in rules.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{rules: DefaultRules()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rules returns a copy of the active rule table.
func (s *Scanner) Rules() []Rule {
	return append([]Rule(nil), s.rules...)
}

// Scan returns one finding per rule that fires on headers.
// The result is nil when nothing fires.
func (s *Scanner) Scan(headers http.Header, pageURL string) []model.Finding {
	var findings []model.Finding
	for _, rule := range s.rules {
		values, present := headers[http.CanonicalHeaderKey(rule.Header)]

		switch rule.Condition {
		case Absent:
			if present {
				continue
			}
			findings = append(findings, newFinding(rule, pageURL, "header not present"))

		case Contains:
			for _, v := range values {
				if s.contains(v, rule.Needle) {
					findings = append(findings, newFinding(rule, pageURL, v))
					break
				}
			}
		}
	}
	return findings
}

// contains reports whether value contains needle, folding case if configured.
// A Caser is stateful, so a new one is created per call.
func (s *Scanner) contains(value, needle string) bool {
	if !s.foldCase {
		return strings.Contains(value, needle)
	}
	folder := cases.Fold()
	return strings.Contains(folder.String(value), folder.String(needle))
}

func newFinding(rule Rule, pageURL, detail string) model.Finding {
	return model.Finding{
		URL:       pageURL,
		Rule:      rule.ID,
		Kind:      rule.Kind,
		Header:    http.CanonicalHeaderKey(rule.Header),
		Component: rule.Component,
		Detail:    detail,
		Severity:  rule.Severity,
	}
}
