package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/nao1215/vulncrawl/internal/model"
)

const (
	// DefaultFetchTimeout bounds a single fetch including the body read.
	DefaultFetchTimeout = 10 * time.Second

	// DefaultMaxBodySize is the largest body read from one response.
	DefaultMaxBodySize int64 = 5 * 1024 * 1024
)

// Fetcher retrieves one URL.
// Implementations return a *FetchError on failure and must be safe for
// concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*model.Page, error)
}

// HTTPFetcher fetches pages with a single GET request.
// Non-2xx responses are returned as pages; their headers are still scanned.
type HTTPFetcher struct {
	client      *http.Client
	timeout     time.Duration
	maxBodySize int64
	userAgent   string
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithTimeout sets the time bound of one fetch.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBodySize sets the maximum number of body bytes read.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithUserAgent sets the User-Agent header. Empty keeps the Go default.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// NewHTTPFetcher creates a fetcher on top of client.
// A nil client uses a plain http.Client.
func NewHTTPFetcher(client *http.Client, opts ...FetcherOption) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	f := &HTTPFetcher{
		client:      client,
		timeout:     DefaultFetchTimeout,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs the GET request for rawURL.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*model.Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Reason: ReasonRequest, Err: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &FetchError{
			URL:    rawURL,
			Reason: ReasonRequest,
			Err:    fmt.Errorf("unsupported URL %q", rawURL),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Reason: ReasonRequest, Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Reason: classifyError(err), Err: err}
	}
	defer resp.Body.Close()

	page := &model.Page{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
	}
	if resp.Request != nil && resp.Request.URL != nil && resp.Request.URL.String() != rawURL {
		page.FinalURL = resp.Request.URL.String()
	}

	// Only HTML bodies are needed; links are never extracted from anything else.
	if !page.IsHTML() {
		return page, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		reason := ReasonBody
		if errors.Is(err, context.DeadlineExceeded) {
			reason = ReasonTimeout
		}
		return nil, &FetchError{URL: rawURL, Reason: reason, Err: err}
	}
	if int64(len(body)) > f.maxBodySize {
		body = trimPartialRune(body[:f.maxBodySize])
	}
	if !utf8.Valid(body) {
		return nil, &FetchError{
			URL:    rawURL,
			Reason: ReasonEncoding,
			Err:    errors.New("body is not valid UTF-8"),
		}
	}
	page.Body = body

	return page, nil
}

// trimPartialRune drops an incomplete UTF-8 sequence left at the end of a
// truncated body.
func trimPartialRune(b []byte) []byte {
	for i := 1; i <= utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			return b
		}
	}
	return b
}
