package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// maxRedirects is the number of redirects followed before the last
	// response is returned as is.
	maxRedirects = 10

	// checkProxyTimeout bounds the SOCKS5 handshake in CheckProxy.
	checkProxyTimeout = 2 * time.Second
)

// SOCKS5 protocol constants
const (
	socks5Version  = 0x05
	socks5AuthNone = 0x00
)

// options holds the client settings collected from Option values.
type options struct {
	proxyAddress   string
	timeout        time.Duration
	maxIdlePerHost int
}

// Option configures NewHTTPClient.
type Option func(*options)

// WithProxy routes every connection through the SOCKS5 proxy at address ("host:port").
// An empty address means a direct connection.
func WithProxy(address string) Option {
	return func(o *options) {
		o.proxyAddress = address
	}
}

// WithTimeout sets http.Client.Timeout as an overall bound per request.
// Zero leaves the bound to the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithMaxIdleConnsPerHost sizes the idle pool so concurrent fetches to one host reuse connections.
func WithMaxIdleConnsPerHost(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxIdlePerHost = n
		}
	}
}

// NewHTTPClient creates the HTTP client used for crawling.
// No cookie jar is attached, so no session state is carried between pages.
func NewHTTPClient(opts ...Option) (*http.Client, error) {
	o := &options{maxIdlePerHost: 2}
	for _, opt := range opts {
		opt(o)
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: o.maxIdlePerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if o.proxyAddress != "" {
		dial, err := socks5DialContext(o.proxyAddress)
		if err != nil {
			return nil, err
		}
		transport.DialContext = dial
	}

	return &http.Client{
		Transport: transport,
		Timeout:   o.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// socks5DialContext returns a DialContext function that connects through the proxy.
func socks5DialContext(address string) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	if !IsValidProxyAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, address)
	}

	// No auth: local SOCKS ports (Tor, ssh -D) do not require it.
	dialer, err := proxy.SOCKS5("tcp", address, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)
		go func() {
			conn, err := dialer.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()

		select {
		case r := <-resultCh:
			return r.conn, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, nil
}

// IsValidProxyAddress reports whether address is "host:port" with a port in 1-65535.
func IsValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// CheckProxy verifies that a SOCKS5 proxy listens at address and accepts
// clients without authentication. Only the method negotiation is performed;
// no connection is requested through the proxy.
func CheckProxy(ctx context.Context, address string) error {
	if !IsValidProxyAddress(address) {
		return fmt.Errorf("%w: %q", ErrInvalidProxyAddress, address)
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrProxyTimeout, address)
		}
		return fmt.Errorf("%w: %s: %w", ErrProxyCannotConnect, address, err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrProxyCannotConnect, address, err)
	}

	// version, one method, no auth
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrProxyCannotConnect, address, err)
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("%w: %s", ErrProxyTimeout, address)
		}
		return fmt.Errorf("%w: %s", ErrProxyNotSOCKS5, address)
	}

	if resp[0] != socks5Version || resp[1] != socks5AuthNone {
		return fmt.Errorf("%w: %s", ErrProxyNotSOCKS5, address)
	}
	return nil
}
