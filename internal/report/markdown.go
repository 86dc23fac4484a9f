package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/vulncrawl/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MarkdownWriter outputs a crawl report in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeFindings(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report title and the run metadata table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	s := report.Summary

	md.H1("Vulncrawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed URL", "`" + s.Seed + "`"},
			{"Depth", strconv.Itoa(s.Depth)},
			{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", s.Elapsed().Round(time.Millisecond).String()},
			{"Pages Crawled", strconv.Itoa(s.PagesCrawled)},
			{"Pages Failed", strconv.Itoa(s.PagesFailed)},
			{"Peak Concurrency", strconv.Itoa(s.PeakConcurrency)},
			{"Status", w.getStatusText(s)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on how the run ended.
func (w *MarkdownWriter) getStatusText(s model.CrawlSummary) string {
	if s.Cancelled {
		return "⚠️ Interrupted (partial results)"
	}
	if s.Truncated {
		return "⚠️ Page limit reached"
	}
	return "✅ Complete"
}

// writeSummary writes the severity table, pie chart and alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Severity Summary")
	md.PlainText("")

	counts := report.CountBySeverity()
	rows := make([][]string, 0, len(model.AllSeverities())+1)
	for _, sev := range model.AllSeverities() {
		rows = append(rows, []string{severityLabel(sev), strconv.Itoa(counts[sev])})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(len(report.Findings)) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.HasFindings() {
		w.writePieChart(md, counts)
	}

	w.writeAlert(md, counts, len(report.Findings))
}

// writePieChart writes a mermaid pie chart for severity distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[model.Severity]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Finding Severity Distribution"),
		piechart.WithShowData(true),
	)

	for _, sev := range model.AllSeverities() {
		if n := counts[sev]; n > 0 {
			chart.LabelAndIntValue(titleCase(sev), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on severity counts.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, counts map[model.Severity]int, total int) {
	switch {
	case counts[model.SeverityCritical] > 0:
		md.Cautionf(
			"Critical issues detected! %d critical finding(s) require immediate attention.",
			counts[model.SeverityCritical],
		)
	case counts[model.SeverityHigh] > 0:
		md.Warningf(
			"Outdated software detected. %d high severity finding(s) should be addressed.",
			counts[model.SeverityHigh],
		)
	case counts[model.SeverityMedium] > 0:
		md.Importantf(
			"Missing protections found. %d medium severity finding(s) leave pages open to common attacks.",
			counts[model.SeverityMedium],
		)
	case total > 0:
		md.Note("Only low severity and informational findings detected.")
	default:
		md.Tip("No missing security headers or outdated software detected.")
	}
	md.PlainText("")
}

// writeFindings writes all findings grouped by severity.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Findings")
	md.PlainText("")

	if !report.HasFindings() {
		md.PlainText("No security findings detected.")
		md.PlainText("")
		return
	}

	for _, sev := range model.AllSeverities() {
		findings := report.FindingsBySeverity(sev)
		if len(findings) == 0 {
			continue
		}

		md.PlainText("### " + severityLabel(sev))
		md.PlainText("")
		w.writeFindingsTable(md, findings)
	}
}

// writeFindingsTable writes a table of findings.
func (w *MarkdownWriter) writeFindingsTable(md *markdown.Markdown, findings []model.Finding) {
	rows := make([][]string, len(findings))
	for i, f := range findings {
		detail := f.Detail
		if detail == "" {
			detail = "-"
		}
		rows[i] = []string{
			f.Rule,
			f.Header,
			"`" + truncateString(detail, 50) + "`",
			truncateString(f.URL, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Rule", "Header", "Detail", "URL"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [vulncrawl](https://github.com/nao1215/vulncrawl)*")
}

// severityLabel returns the severity name with its colour marker.
func severityLabel(sev model.Severity) string {
	switch sev {
	case model.SeverityCritical:
		return "🔴 Critical"
	case model.SeverityHigh:
		return "🟠 High"
	case model.SeverityMedium:
		return "🟡 Medium"
	case model.SeverityLow:
		return "🔵 Low"
	default:
		return "⚪ Info"
	}
}

// titleCase turns "CRITICAL" into "Critical".
func titleCase(sev model.Severity) string {
	return cases.Title(language.English).String(strings.ToLower(sev.String()))
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
