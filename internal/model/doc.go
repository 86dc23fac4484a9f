// Package model defines the core data structures shared by the crawler,
// the vulnerability scanner and the reporters.
//
// This package contains the following main types:
//   - Page: A fetched HTTP response (headers and body)
//   - Finding: A single security weakness tied to a URL
//   - Event: One entry of the crawl event stream
//   - CrawlSummary: Counters describing a finished crawl run
//   - CrawlReport: Summary plus collected findings, used for reports and storage
//
// Models live in their own package so that crawler, vuln, report and
// database can all depend on them without import cycles.
package model
