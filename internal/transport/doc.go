// Package transport builds the HTTP clients used by the crawler.
//
// Clients never carry a cookie jar and cap redirects at ten hops. An
// optional SOCKS5 proxy can route every connection, for example through a
// local Tor daemon or an SSH tunnel.
package transport
