package report

import (
	"io"

	"github.com/nao1215/vulncrawl/internal/model"
)

// Writer renders a finished crawl report.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.CrawlReport) (int, error)
}

// StreamSink is a model.Sink that also closes its stream with the run summary.
type StreamSink interface {
	model.Sink

	// Finish writes the closing record for the run.
	Finish(summary model.CrawlSummary) error
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
