package transport

import "errors"

var (
	// ErrInvalidProxyAddress is returned when the proxy address is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrProxyCannotConnect is returned when no TCP connection to the proxy can be made.
	ErrProxyCannotConnect = errors.New("cannot connect to proxy")

	// ErrProxyNotSOCKS5 is returned when the proxy answers but does not speak SOCKS5
	// without authentication.
	ErrProxyNotSOCKS5 = errors.New("proxy is not a SOCKS5 proxy")

	// ErrProxyTimeout is returned when the proxy does not answer in time.
	ErrProxyTimeout = errors.New("timeout connecting to proxy")
)
