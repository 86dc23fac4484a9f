package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/nao1215/vulncrawl/internal/model"
)

// Record types written by JSONLinesSink.
const (
	recordFinding    = "finding"
	recordFetchError = "fetch_error"
	recordSummary    = "summary"
)

// findingRecord is the flat JSON form of one finding.
type findingRecord struct {
	Type      string            `json:"type"`
	URL       string            `json:"url"`
	Rule      string            `json:"rule"`
	Kind      model.FindingKind `json:"kind"`
	Header    string            `json:"header"`
	Component string            `json:"component,omitempty"`
	Detail    string            `json:"detail"`
	Severity  model.Severity    `json:"severity"`
}

// fetchErrorRecord is the JSON form of one failed fetch.
type fetchErrorRecord struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Depth  int    `json:"depth"`
	Reason string `json:"reason"`
}

// summaryRecord closes the stream.
type summaryRecord struct {
	Type string `json:"type"`
	model.CrawlSummary
}

// JSONLinesSink streams findings and fetch failures as newline-delimited JSON.
// Progress events are not written.
type JSONLinesSink struct {
	mu  sync.Mutex
	enc *json.Encoder
	err error
}

// NewJSONLinesSink creates a JSONLinesSink writing to output.
func NewJSONLinesSink(output io.Writer) *JSONLinesSink {
	return &JSONLinesSink{enc: json.NewEncoder(output)}
}

// Emit writes one record for finding and fetch-failure events.
func (s *JSONLinesSink) Emit(e model.Event) {
	switch e.Type {
	case model.EventFinding:
		if e.Finding == nil {
			return
		}
		f := e.Finding
		s.encode(findingRecord{
			Type:      recordFinding,
			URL:       f.URL,
			Rule:      f.Rule,
			Kind:      f.Kind,
			Header:    f.Header,
			Component: f.Component,
			Detail:    f.Detail,
			Severity:  f.Severity,
		})
	case model.EventFetchFailed:
		s.encode(fetchErrorRecord{
			Type:   recordFetchError,
			URL:    e.URL,
			Depth:  e.Depth,
			Reason: e.Reason,
		})
	}
}

// Finish writes the summary record and returns the first write error, if any.
func (s *JSONLinesSink) Finish(summary model.CrawlSummary) error {
	s.encode(summaryRecord{Type: recordSummary, CrawlSummary: summary})

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *JSONLinesSink) encode(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(v); err != nil && s.err == nil {
		s.err = fmt.Errorf("failed to write JSON record: %w", err)
	}
}
