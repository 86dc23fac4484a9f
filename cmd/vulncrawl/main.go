// Package main provides the entry point for the vulncrawl CLI.
//
// vulncrawl crawls a website from a seed URL up to a fixed link depth and
// reports pages that miss common security headers or advertise outdated
// server software.
//
// Usage:
//
//	vulncrawl -u https://example.com
//	vulncrawl -u https://example.com -d 3 --json
//
// See --help for all available options.
package main

// main is the entry point for vulncrawl.
func main() {
	Execute()
}
