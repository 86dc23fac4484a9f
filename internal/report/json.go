package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/vulncrawl/internal/model"
)

// JSONWriter outputs a whole crawl report as one JSON document.
// It backs "history --json" where a finished run is printed at once.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in JSON format.
func (w *JSONWriter) Write(report *model.CrawlReport) (int, error) {
	return w.writeJSON(NewJSONReport(report))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONReport is the document written by JSONWriter: the report plus
// per-severity counts keyed by severity name.
type JSONReport struct {
	Summary  model.CrawlSummary `json:"summary"`
	Counts   map[string]int     `json:"counts"`
	Findings []model.Finding    `json:"findings"`
}

// NewJSONReport creates a JSONReport for the given crawl report.
func NewJSONReport(report *model.CrawlReport) *JSONReport {
	counts := make(map[string]int)
	for sev, n := range report.CountBySeverity() {
		counts[sev.String()] = n
	}
	findings := report.Findings
	if findings == nil {
		findings = []model.Finding{}
	}
	return &JSONReport{
		Summary:  report.Summary,
		Counts:   counts,
		Findings: findings,
	}
}
