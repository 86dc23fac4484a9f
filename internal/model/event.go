package model

// EventType identifies an entry of the crawl event stream.
type EventType string

const (
	// EventCrawling is emitted when a task is admitted and about to fetch.
	EventCrawling EventType = "crawling"

	// EventFinding carries one Finding.
	EventFinding EventType = "finding"

	// EventFetchFailed is emitted when a fetch ends in a FetchError.
	EventFetchFailed EventType = "fetch_error"
)

// Event is a single entry of the crawl event stream.
// The crawler emits events; reporters consume them.
type Event struct {
	// Type identifies the event.
	Type EventType `json:"type"`

	// URL is the URL the event refers to.
	URL string `json:"url"`

	// Depth is the remaining depth of the task that produced the event.
	Depth int `json:"depth"`

	// Finding is set for EventFinding.
	Finding *Finding `json:"finding,omitempty"`

	// Reason is a short failure category for EventFetchFailed (e.g. "timeout").
	Reason string `json:"reason,omitempty"`

	// Err is the underlying error for EventFetchFailed.
	Err error `json:"-"`
}

// Sink consumes crawl events.
// Implementations must be safe for concurrent use: the crawler emits from
// many workers at once.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts an ordinary function to the Sink interface.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) {
	f(e)
}

// MultiSink fans one event out to several sinks in order.
type MultiSink []Sink

// Emit forwards the event to every sink.
func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// DiscardSink drops every event.
var DiscardSink Sink = SinkFunc(func(Event) {})
