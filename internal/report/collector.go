package report

import (
	"sync"

	"github.com/nao1215/vulncrawl/internal/model"
)

// Collector is a sink that keeps every finding in memory so a whole-run
// report can be written or saved after the crawl.
type Collector struct {
	mu       sync.Mutex
	findings []model.Finding
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Emit records finding events and ignores the rest.
func (c *Collector) Emit(e model.Event) {
	if e.Type != model.EventFinding || e.Finding == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.findings = append(c.findings, *e.Finding)
}

// Findings returns a copy of the collected findings in arrival order.
func (c *Collector) Findings() []model.Finding {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Finding, len(c.findings))
	copy(out, c.findings)
	return out
}

// Report builds a CrawlReport from the summary and the collected findings.
func (c *Collector) Report(summary model.CrawlSummary) *model.CrawlReport {
	return model.NewCrawlReport(summary, c.Findings())
}
