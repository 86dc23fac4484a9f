package model

import (
	"net/http"
	"strings"
)

// Page is the result of one successful fetch.
// Headers and Body are read-only once the fetcher returns the page.
type Page struct {
	// URL is the URL that was requested.
	URL string `json:"url"`

	// FinalURL is the URL after redirects. Relative links resolve against it.
	FinalURL string `json:"final_url,omitempty"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// Headers contains all HTTP response headers with canonicalized keys,
	// so lookups through Get are case-insensitive.
	Headers http.Header `json:"headers"`

	// Body is the response body, already validated as UTF-8.
	Body []byte `json:"-"`
}

// GetHeader returns the first value of the named header (case-insensitive).
func (p *Page) GetHeader(name string) string {
	if p.Headers == nil {
		return ""
	}
	return p.Headers.Get(name)
}

// ContentType returns the media type of the response without parameters.
func (p *Page) ContentType() string {
	ct := p.GetHeader("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// IsHTML reports whether the page declares an HTML content type.
// A missing Content-Type is treated as HTML so that links are still extracted.
func (p *Page) IsHTML() bool {
	ct := p.ContentType()
	return ct == "" || ct == "text/html" || ct == "application/xhtml+xml"
}

// BaseURL returns the URL relative links on this page resolve against.
func (p *Page) BaseURL() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.URL
}
