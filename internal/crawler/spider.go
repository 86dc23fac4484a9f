package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/vulncrawl/internal/model"
)

// DefaultConcurrency is the limiter capacity used when none is configured.
const DefaultConcurrency = 10

// Scanner inspects the response headers of one page.
// Implementations must be stateless or safe for concurrent use.
type Scanner interface {
	Scan(headers http.Header, pageURL string) []model.Finding
}

// Task is one unit of crawl work: visit URL with Depth hops remaining.
type Task struct {
	URL   string
	Depth int
}

// Spider crawls a site from a seed URL up to a depth bound.
// A Spider holds configuration only; every Crawl call gets its own
// Frontier and Limiter, so one Spider can run several crawls.
type Spider struct {
	fetcher     Fetcher
	scanner     Scanner
	sink        model.Sink
	logger      *slog.Logger
	concurrency int

	// maxPages caps the number of fetches per run. 0 means unlimited.
	maxPages int

	// sameHost restricts link following to the seed host.
	sameHost bool

	// ignorePatterns are URL path globs that are never followed.
	ignorePatterns []string

	// followPatterns, when set, are the only URL path globs followed.
	followPatterns []string
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithFetcher sets the fetcher used for every task.
func WithFetcher(f Fetcher) SpiderOption {
	return func(s *Spider) {
		s.fetcher = f
	}
}

// WithScanner sets the header scanner.
func WithScanner(sc Scanner) SpiderOption {
	return func(s *Spider) {
		s.scanner = sc
	}
}

// WithSink sets the destination of crawl events.
func WithSink(sink model.Sink) SpiderOption {
	return func(s *Spider) {
		s.sink = sink
	}
}

// WithLogger sets the logger for diagnostic messages.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithConcurrency sets the maximum number of in-flight fetches.
func WithConcurrency(n int) SpiderOption {
	return func(s *Spider) {
		s.concurrency = n
	}
}

// WithMaxPages sets the maximum number of pages fetched in one run.
// When the limit is hit, dispatch stops and in-flight fetches drain.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithSameHost restricts crawling to links on the seed host.
func WithSameHost(sameHost bool) SpiderOption {
	return func(s *Spider) {
		s.sameHost = sameHost
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only URLs matching at least one pattern are crawled.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// NewSpider creates a Spider. Without options it fetches with a plain
// http.Client, reports nothing and uses DefaultConcurrency.
func NewSpider(opts ...SpiderOption) *Spider {
	s := &Spider{
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.fetcher == nil {
		s.fetcher = NewHTTPFetcher(nil)
	}
	if s.scanner == nil {
		s.scanner = noopScanner{}
	}
	if s.sink == nil {
		s.sink = model.DiscardSink
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.concurrency < 1 {
		s.concurrency = DefaultConcurrency
	}
	return s
}

// taskOutcome is the terminal state of one task.
type taskOutcome int

const (
	// outcomeVisited: fetched, scanned and, depth permitting, dispatched.
	outcomeVisited taskOutcome = iota
	// outcomeFailed: the fetch returned an error.
	outcomeFailed
	// outcomeDuplicate: the Frontier had already seen the URL.
	outcomeDuplicate
	// outcomeDropped: the limiter shut down before a permit was granted.
	outcomeDropped
	// outcomeLimit: the page limit was already used up.
	outcomeLimit
)

// taskResult is what a task hands back to the coordinator.
type taskResult struct {
	task     Task
	outcome  taskOutcome
	findings int
	children []Task
}

// crawlRun is the state shared by all tasks of a single Crawl call.
type crawlRun struct {
	frontier *Frontier
	limiter  *Limiter
	filter   linkFilter
	maxPages int64
	pages    atomic.Int64
}

// reservePage claims one slot of the page limit.
func (r *crawlRun) reservePage() bool {
	if r.maxPages <= 0 {
		return true
	}
	return r.pages.Add(1) <= r.maxPages
}

// Crawl visits seed and everything reachable from it within depth hops.
//
// Crawl returns only after every dispatched task has finished. When ctx is
// cancelled, no new task is admitted, queued tasks are dropped and in-flight
// fetches run to completion; the partial summary is returned with ctx.Err().
func (s *Spider) Crawl(ctx context.Context, seed string, depth int) (*model.CrawlSummary, error) {
	seedURL, err := parseSeed(seed)
	if err != nil {
		return nil, err
	}
	if depth < 0 {
		return nil, fmt.Errorf("%w: negative depth %d", ErrInvalidSeed, depth)
	}

	run := &crawlRun{
		frontier: NewFrontier(),
		limiter:  NewLimiter(s.concurrency),
		filter: linkFilter{
			ignorePatterns: s.ignorePatterns,
			followPatterns: s.followPatterns,
		},
		maxPages: int64(s.maxPages),
	}
	if s.sameHost {
		run.filter.seedHost = seedURL.Hostname()
	}

	summary := &model.CrawlSummary{
		Seed:      seedURL.String(),
		Depth:     depth,
		StartedAt: time.Now(),
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		g       errgroup.Group
		results = make(chan taskResult)
		pending int
		stopped bool
		done    = ctx.Done()
	)

	dispatch := func(task Task) {
		pending++
		g.Go(func() error {
			results <- s.runTask(runCtx, run, task)
			return nil
		})
	}
	stop := func() {
		stopped = true
		cancel()
		run.limiter.Close()
	}

	dispatch(Task{URL: seedURL.String(), Depth: depth})

	for pending > 0 {
		select {
		case <-done:
			done = nil
			summary.Cancelled = true
			s.logger.Debug("crawl cancelled, draining in-flight fetches", "pending", pending)
			stop()

		case res := <-results:
			pending--
			recordOutcome(summary, res)

			if res.outcome == outcomeLimit && !stopped {
				summary.Truncated = true
				s.logger.Debug("page limit reached", "max_pages", s.maxPages)
				stop()
			}

			for _, child := range res.children {
				if stopped {
					summary.Dropped++
					continue
				}
				if run.frontier.Visited(child.URL) {
					summary.Duplicates++
					continue
				}
				dispatch(child)
			}
		}
	}

	// Every task has already delivered its result.
	_ = g.Wait()

	summary.FinishedAt = time.Now()
	summary.PeakConcurrency = run.limiter.Peak()

	if summary.Cancelled {
		return summary, ctx.Err()
	}
	return summary, nil
}

// runTask drives one task through admission, fetch, scan and dispatch.
// The limiter permit is held for the whole task and released on every path.
func (s *Spider) runTask(ctx context.Context, run *crawlRun, task Task) taskResult {
	result := taskResult{task: task}

	permit, err := run.limiter.Acquire(ctx)
	if err != nil {
		result.outcome = outcomeDropped
		return result
	}
	defer permit.Release()

	if !run.frontier.TryVisit(task.URL) {
		result.outcome = outcomeDuplicate
		return result
	}
	if !run.reservePage() {
		result.outcome = outcomeLimit
		return result
	}

	s.sink.Emit(model.Event{Type: model.EventCrawling, URL: task.URL, Depth: task.Depth})

	// In-flight fetches drain on cancellation; the fetch timeout bounds them.
	page, err := s.fetcher.Fetch(context.WithoutCancel(ctx), task.URL)
	if err != nil {
		reason := string(ReasonNetwork)
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			reason = string(fetchErr.Reason)
		}
		s.logger.Debug("fetch failed", "url", task.URL, "reason", reason, "error", err)
		s.sink.Emit(model.Event{
			Type:   model.EventFetchFailed,
			URL:    task.URL,
			Depth:  task.Depth,
			Reason: reason,
			Err:    err,
		})
		result.outcome = outcomeFailed
		return result
	}

	for _, finding := range s.scanner.Scan(page.Headers, task.URL) {
		s.sink.Emit(model.Event{
			Type:    model.EventFinding,
			URL:     task.URL,
			Depth:   task.Depth,
			Finding: &finding,
		})
		result.findings++
	}

	result.outcome = outcomeVisited
	if task.Depth > 0 && len(page.Body) > 0 {
		result.children = childTasks(page, task.Depth-1, &run.filter)
	}
	return result
}

// childTasks extracts, resolves and filters the links of page.
func childTasks(page *model.Page, depth int, filter *linkFilter) []Task {
	base := page.BaseURL()
	var children []Task
	for href := range ExtractLinks(page.Body) {
		if !IsFollowable(href) {
			continue
		}
		link := Resolve(base, href)
		if !filter.allow(link) {
			continue
		}
		children = append(children, Task{URL: link, Depth: depth})
	}
	return children
}

func recordOutcome(summary *model.CrawlSummary, res taskResult) {
	switch res.outcome {
	case outcomeVisited:
		summary.PagesCrawled++
		summary.Findings += res.findings
	case outcomeFailed:
		summary.PagesFailed++
	case outcomeDuplicate:
		summary.Duplicates++
	case outcomeDropped, outcomeLimit:
		summary.Dropped++
	}
}

// parseSeed checks that seed is an absolute http(s) URL.
func parseSeed(seed string) (*url.URL, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return nil, fmt.Errorf("%w: empty URL", ErrInvalidSeed)
	}
	u, err := url.Parse(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https: %s", ErrInvalidSeed, seed)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host: %s", ErrInvalidSeed, seed)
	}
	return u, nil
}

type noopScanner struct{}

func (noopScanner) Scan(http.Header, string) []model.Finding { return nil }
