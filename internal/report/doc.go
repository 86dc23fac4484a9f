// Package report turns the crawl event stream into output.
//
// Streaming sinks print results while the crawl runs:
//   - TextSink: the "[*] Crawling: ..." / "[!] ..." lines for a terminal
//   - JSONLinesSink: one JSON record per finding or fetch failure
//
// A Collector gathers findings into a model.CrawlReport once the crawl
// finishes. Writers render such a report as a whole:
//   - MarkdownWriter: a summary with tables and a mermaid pie chart
//   - JSONWriter: the report as a single JSON document
//
// Sinks are called from many crawl workers at once and lock internally.
package report
