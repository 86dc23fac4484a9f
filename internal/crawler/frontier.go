package crawler

import (
	"net/url"
	"strings"
	"sync"
)

// Frontier is the set of URLs already admitted for fetching in one crawl run.
// It only grows; the single mutation is the atomic check-and-insert TryVisit.
type Frontier struct {
	mu      sync.Mutex
	visited map[string]struct{}
}

// NewFrontier creates an empty Frontier.
func NewFrontier() *Frontier {
	return &Frontier{visited: make(map[string]struct{})}
}

// TryVisit records rawURL and reports whether it was new.
// Exactly one of any number of concurrent callers with the same
// normalized URL gets true.
func (f *Frontier) TryVisit(rawURL string) bool {
	key := NormalizeURL(rawURL)

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.visited[key]; ok {
		return false
	}
	f.visited[key] = struct{}{}
	return true
}

// Visited reports whether rawURL has already been recorded.
func (f *Frontier) Visited(rawURL string) bool {
	key := NormalizeURL(rawURL)

	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.visited[key]
	return ok
}

// Len returns the number of distinct URLs recorded.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}

// NormalizeURL returns the deduplication key for rawURL.
//
// The key keeps scheme, host and path only. Scheme and host are lower-cased,
// default ports are dropped, and fragment, query and userinfo are removed.
// An empty path becomes "/" and a trailing slash on any other path is
// trimmed. Path case is preserved. A string that does not parse is its own key.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Opaque != "" {
		return rawURL
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host = host + ":" + port
	}
	if strings.Contains(u.Hostname(), ":") {
		// IPv6 literal
		host = "[" + strings.ToLower(u.Hostname()) + "]"
		if port != "" {
			host += ":" + port
		}
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}

	normalized := url.URL{
		Scheme: scheme,
		Host:   host,
	}
	return normalized.String() + path
}
