package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

var (
	// ErrShutdown is returned by Limiter.Acquire once the limiter is closed.
	ErrShutdown = errors.New("limiter is shut down")

	// ErrInvalidSeed is returned when the seed URL is not an absolute http(s) URL.
	ErrInvalidSeed = errors.New("invalid seed URL")
)

// FetchReason is a short category describing why a fetch failed.
type FetchReason string

const (
	// ReasonRequest means the request could not be built (malformed URL, unsupported scheme).
	ReasonRequest FetchReason = "request"

	// ReasonDNS means the host name could not be resolved.
	ReasonDNS FetchReason = "dns"

	// ReasonTimeout means the fetch exceeded its time bound.
	ReasonTimeout FetchReason = "timeout"

	// ReasonNetwork covers connection refused, reset and other transport errors.
	ReasonNetwork FetchReason = "network"

	// ReasonBody means the response body could not be read.
	ReasonBody FetchReason = "body"

	// ReasonEncoding means the HTML body is not valid UTF-8.
	ReasonEncoding FetchReason = "encoding"
)

// FetchError describes a failed fetch.
// It is recovered per task and never stops a crawl.
type FetchError struct {
	// URL is the URL that was requested.
	URL string

	// Reason classifies the failure.
	Reason FetchReason

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Transient reports whether retrying the fetch may succeed.
// Timeouts and connection resets are transient; DNS and request errors are not.
func (e *FetchError) Transient() bool {
	switch e.Reason {
	case ReasonTimeout:
		return true
	case ReasonNetwork:
		return errors.Is(e.Err, syscall.ECONNRESET) ||
			errors.Is(e.Err, syscall.ECONNABORTED) ||
			errors.Is(e.Err, syscall.EPIPE)
	default:
		return false
	}
}

// classifyError maps a transport error to a FetchReason.
func classifyError(err error) FetchReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return ReasonTimeout
		}
		return ReasonDNS
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}

	return ReasonNetwork
}
