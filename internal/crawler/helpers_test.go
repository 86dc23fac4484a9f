package crawler

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nao1215/vulncrawl/internal/model"
)

// fakeSite is an in-memory link graph served by fakeFetcher,
// keyed by normalized URL.
type fakeSite map[string][]string

// fakeFetcher serves pages from a fakeSite and counts fetches per normalized URL.
type fakeFetcher struct {
	site  fakeSite
	delay time.Duration

	// block, when non-nil, holds every fetch until it is closed.
	block chan struct{}
	// started receives one value per fetch that has begun.
	started chan string

	mu     sync.Mutex
	counts map[string]int
}

func newFakeFetcher(site fakeSite) *fakeFetcher {
	return &fakeFetcher{site: site, counts: make(map[string]int)}
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (*model.Page, error) {
	key := NormalizeURL(rawURL)
	f.mu.Lock()
	f.counts[key]++
	f.mu.Unlock()

	if f.started != nil {
		f.started <- rawURL
	}
	if f.block != nil {
		<-f.block
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	links, ok := f.site[key]
	if !ok {
		return nil, &FetchError{URL: rawURL, Reason: ReasonNetwork}
	}

	body := "<html><body>"
	for _, l := range links {
		body += `<a href="` + l + `">link</a>`
	}
	body += "</body></html>"

	h := http.Header{}
	h.Set("Content-Type", "text/html; charset=utf-8")
	return &model.Page{URL: rawURL, StatusCode: http.StatusOK, Headers: h, Body: []byte(body)}, nil
}

func (f *fakeFetcher) count(rawURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[NormalizeURL(rawURL)]
}

func (f *fakeFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.counts {
		n += c
	}
	return n
}

// eventRecorder is a concurrency-safe model.Sink that keeps every event.
type eventRecorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *eventRecorder) Emit(e model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) ofType(t model.EventType) []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// headerScanner reports one finding per page that lacks the X-Test header.
type headerScanner struct{}

func (headerScanner) Scan(headers http.Header, pageURL string) []model.Finding {
	if headers.Get("X-Test") != "" {
		return nil
	}
	return []model.Finding{{
		URL:      pageURL,
		Rule:     "TEST",
		Kind:     model.KindMissingHeader,
		Header:   "X-Test",
		Severity: model.SeverityLow,
	}}
}

// wideSite returns a seed page linking to n children that all link to /shared.
func wideSite(n int) fakeSite {
	site := fakeSite{"https://example.com/shared": nil}
	var seedLinks []string
	for i := range n {
		child := fmt.Sprintf("/page%d", i)
		seedLinks = append(seedLinks, child)
		site["https://example.com"+child] = []string{"/shared", "/"}
	}
	site["https://example.com/"] = seedLinks
	return site
}
