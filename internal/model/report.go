package model

import (
	"sort"
	"time"
)

// CrawlSummary holds the counters of a finished crawl run.
// It is returned by the crawler and never contains findings themselves.
type CrawlSummary struct {
	// Seed is the URL the crawl started from.
	Seed string `json:"seed"`

	// Depth is the depth the crawl was started with.
	Depth int `json:"depth"`

	// StartedAt is when the crawl started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last in-flight task completed.
	FinishedAt time.Time `json:"finished_at"`

	// PagesCrawled is the number of successful fetches.
	PagesCrawled int `json:"pages_crawled"`

	// PagesFailed is the number of fetches that ended in a FetchError.
	PagesFailed int `json:"pages_failed"`

	// Duplicates is the number of tasks rejected by the frontier.
	Duplicates int `json:"duplicates"`

	// Dropped is the number of queued tasks abandoned because the run was cancelled
	// or the page limit was reached.
	Dropped int `json:"dropped"`

	// Findings is the number of findings emitted.
	Findings int `json:"findings"`

	// PeakConcurrency is the highest number of simultaneous in-flight fetches.
	PeakConcurrency int `json:"peak_concurrency"`

	// Cancelled reports whether the run was interrupted before all work finished.
	Cancelled bool `json:"cancelled"`

	// Truncated reports whether the page limit stopped further dispatch.
	Truncated bool `json:"truncated"`
}

// Elapsed returns the wall-clock duration of the run.
func (s *CrawlSummary) Elapsed() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// CrawlReport is a crawl summary plus the findings collected by a reporter.
// It backs the Markdown report and the results database.
type CrawlReport struct {
	// Summary contains the run counters.
	Summary CrawlSummary `json:"summary"`

	// Findings contains every finding observed during the run.
	Findings []Finding `json:"findings"`
}

// NewCrawlReport creates a CrawlReport for the given summary and findings.
func NewCrawlReport(summary CrawlSummary, findings []Finding) *CrawlReport {
	return &CrawlReport{Summary: summary, Findings: findings}
}

// CountBySeverity returns the number of findings per severity level.
func (r *CrawlReport) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int, len(AllSeverities()))
	for _, f := range r.Findings {
		counts[f.Severity]++
	}
	return counts
}

// FindingsBySeverity returns the findings of one severity level,
// sorted by URL then rule for stable output.
func (r *CrawlReport) FindingsBySeverity(sev Severity) []Finding {
	result := make([]Finding, 0)
	for _, f := range r.Findings {
		if f.Severity == sev {
			result = append(result, f)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].URL != result[j].URL {
			return result[i].URL < result[j].URL
		}
		return result[i].Rule < result[j].Rule
	})
	return result
}

// HasFindings reports whether any finding was collected.
func (r *CrawlReport) HasFindings() bool {
	return len(r.Findings) > 0
}
