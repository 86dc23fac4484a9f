// Package database provides SQLite-based storage for finished crawl runs.
//
// A run row holds the CrawlSummary counters; each of its findings is stored
// in a separate row keyed by an xxhash fingerprint of (url, rule). The
// fingerprint is unique per run, so two runs of the same seed can be
// compared to see which findings are new and which were resolved.
//
// SQLite is provided by modernc.org/sqlite, a CGO-free driver, so the
// database is a single file under the XDG data directory.
package database
