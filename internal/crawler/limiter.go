package crawler

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds the number of in-flight fetches.
// Waiters are not served in any particular order.
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int

	// closed is cancelled by Close and wakes every waiter.
	closed    context.Context
	closeFunc context.CancelFunc

	mu       sync.Mutex
	inFlight int
	peak     int
}

// Permit is one slot of a Limiter.
// Release is idempotent; callers should always defer it.
type Permit struct {
	limiter *Limiter
	once    sync.Once
}

// NewLimiter creates a limiter with the given capacity.
// A capacity below 1 is treated as 1.
func NewLimiter(capacity int) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	closed, closeFunc := context.WithCancel(context.Background())
	return &Limiter{
		sem:       semaphore.NewWeighted(int64(capacity)),
		capacity:  capacity,
		closed:    closed,
		closeFunc: closeFunc,
	}
}

// Acquire blocks until a permit is available, ctx is done, or the limiter is closed.
// It returns ErrShutdown if the limiter is closed before or while waiting.
func (l *Limiter) Acquire(ctx context.Context) (*Permit, error) {
	if l.closed.Err() != nil {
		return nil, ErrShutdown
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(l.closed, cancel)
	defer stop()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if l.closed.Err() != nil {
			return nil, ErrShutdown
		}
		return nil, fmt.Errorf("acquire permit: %w", err)
	}

	// Close may have raced with a successful acquire.
	if l.closed.Err() != nil {
		l.sem.Release(1)
		return nil, ErrShutdown
	}

	l.mu.Lock()
	l.inFlight++
	if l.inFlight > l.peak {
		l.peak = l.inFlight
	}
	l.mu.Unlock()

	return &Permit{limiter: l}, nil
}

// Release returns the permit to its limiter. Calling it more than once is a no-op.
func (p *Permit) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		p.limiter.mu.Lock()
		p.limiter.inFlight--
		p.limiter.mu.Unlock()
		p.limiter.sem.Release(1)
	})
}

// Close shuts the limiter down. Pending and future Acquire calls fail with
// ErrShutdown; permits already held stay valid until released.
func (l *Limiter) Close() {
	l.closeFunc()
}

// Capacity returns the maximum number of simultaneous permits.
func (l *Limiter) Capacity() int {
	return l.capacity
}

// InFlight returns the number of permits currently held.
func (l *Limiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight
}

// Peak returns the highest number of permits held at the same time.
func (l *Limiter) Peak() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peak
}
