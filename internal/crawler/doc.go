// Package crawler implements the bounded-depth concurrent crawl engine.
//
// # Architecture
//
// The Spider type drives one task per discovered URL. A coordinator
// goroutine owns the task queue and the in-flight counter; each dispatched
// task runs in its own goroutine and suspends only on the Limiter and on
// the network call.
//
// # Components
//
//   - Spider: coordinates the crawl and streams events to a model.Sink
//   - Limiter: bounds the number of in-flight fetches
//   - Frontier: records normalized URLs so each is fetched at most once
//   - HTTPFetcher / RetryFetcher: issue bounded GET requests
//   - ExtractLinks / Resolve / IsFollowable: turn a body into child URLs
//
// # Depth
//
// Depth counts the remaining hops from the seed. A task at depth 0 is still
// fetched and scanned, but it dispatches no children.
//
// # Usage
//
//	spider := crawler.NewSpider(
//		crawler.WithFetcher(crawler.NewHTTPFetcher(client)),
//		crawler.WithScanner(vuln.NewScanner()),
//		crawler.WithSink(reporter),
//	)
//	summary, err := spider.Crawl(ctx, "https://example.com", 2)
package crawler
