package report

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/vulncrawl/internal/model"
)

// TextSink prints the crawl as human-readable lines.
//
//	[*] Crawling: https://example.com/
//	[!] Missing Content-Security-Policy header on https://example.com/
//	[!] Error fetching: https://example.com/broken (timeout)
type TextSink struct {
	baseWriter

	mu sync.Mutex

	// quiet suppresses the "[*] Crawling:" progress lines.
	quiet bool

	// err is the first write error, reported by Finish.
	err error
}

// TextSinkOption configures a TextSink.
type TextSinkOption func(*TextSink)

// WithQuiet suppresses progress lines so only findings and failures are printed.
func WithQuiet(quiet bool) TextSinkOption {
	return func(s *TextSink) {
		s.quiet = quiet
	}
}

// NewTextSink creates a TextSink writing to output.
func NewTextSink(output io.Writer, opts ...TextSinkOption) *TextSink {
	s := &TextSink{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit prints one line for the event.
func (s *TextSink) Emit(e model.Event) {
	var line string
	switch e.Type {
	case model.EventCrawling:
		if s.quiet {
			return
		}
		line = "[*] Crawling: " + e.URL
	case model.EventFinding:
		if e.Finding == nil {
			return
		}
		line = "[!] " + e.Finding.Message()
	case model.EventFetchFailed:
		line = "[!] Error fetching: " + e.URL
		if e.Reason != "" {
			line += " (" + e.Reason + ")"
		}
	default:
		return
	}
	s.writeLine(line)
}

// Finish prints the completion line and the run counters.
func (s *TextSink) Finish(summary model.CrawlSummary) error {
	s.writeLine("[*] Crawling complete!")
	s.writeLine(FormatSummary(summary))

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *TextSink) writeLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.output, line+"\n"); err != nil && s.err == nil {
		s.err = err
	}
}

// FormatSummary renders the run counters on one line.
func FormatSummary(summary model.CrawlSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[*] Pages crawled: %d, failed: %d, findings: %d, elapsed: %s",
		summary.PagesCrawled,
		summary.PagesFailed,
		summary.Findings,
		summary.Elapsed().Round(time.Millisecond),
	)
	switch {
	case summary.Cancelled:
		sb.WriteString(" (interrupted)")
	case summary.Truncated:
		sb.WriteString(" (page limit reached)")
	}
	return sb.String()
}
