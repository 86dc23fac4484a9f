package crawler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/vulncrawl/internal/model"
)

// DefaultRetryDelays returns the backoff delays used between fetch attempts.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{500 * time.Millisecond, 1 * time.Second, 2 * time.Second}
}

// RetryFetcher wraps a Fetcher and retries transient failures.
// The caller keeps its limiter permit for the whole sequence of attempts.
type RetryFetcher struct {
	next    Fetcher
	retries int
	delays  []time.Duration
	logger  *slog.Logger
}

// NewRetryFetcher wraps next so that a transient failure is retried up to
// retries extra times. Delay i is taken from delays, repeating the last one;
// nil delays use DefaultRetryDelays.
func NewRetryFetcher(next Fetcher, retries int, delays []time.Duration, logger *slog.Logger) *RetryFetcher {
	if retries < 0 {
		retries = 0
	}
	if delays == nil {
		delays = DefaultRetryDelays()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RetryFetcher{
		next:    next,
		retries: retries,
		delays:  delays,
		logger:  logger,
	}
}

// Fetch calls the wrapped fetcher until it succeeds, fails permanently,
// or the retry budget is spent.
func (r *RetryFetcher) Fetch(ctx context.Context, rawURL string) (*model.Page, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		page, err := r.next.Fetch(ctx, rawURL)
		if err == nil {
			return page, nil
		}
		lastErr = err

		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) || !fetchErr.Transient() || attempt == r.retries {
			break
		}

		r.logger.Debug("retrying fetch",
			"url", rawURL,
			"attempt", attempt+2,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, lastErr
		case <-time.After(r.delay(attempt)):
		}
	}
	return nil, lastErr
}

func (r *RetryFetcher) delay(attempt int) time.Duration {
	if len(r.delays) == 0 {
		return 0
	}
	if attempt >= len(r.delays) {
		return r.delays[len(r.delays)-1]
	}
	return r.delays[attempt]
}
