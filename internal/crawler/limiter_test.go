package crawler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// TestLimiter tests permit accounting and shutdown.
func TestLimiter(t *testing.T) {
	t.Parallel()

	t.Run("never exceeds capacity", func(t *testing.T) {
		t.Parallel()

		l := NewLimiter(3)
		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p, err := l.Acquire(context.Background())
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				defer p.Release()
				if n := l.InFlight(); n > 3 {
					t.Errorf("in-flight %d exceeds capacity", n)
				}
				time.Sleep(2 * time.Millisecond)
			}()
		}
		wg.Wait()

		if l.Peak() > 3 {
			t.Errorf("peak %d exceeds capacity 3", l.Peak())
		}
		if l.InFlight() != 0 {
			t.Errorf("expected 0 in-flight after release, got %d", l.InFlight())
		}
	})

	t.Run("release is idempotent", func(t *testing.T) {
		t.Parallel()

		l := NewLimiter(1)
		p, err := l.Acquire(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		p.Release()
		p.Release()

		if l.InFlight() != 0 {
			t.Errorf("expected 0 in-flight, got %d", l.InFlight())
		}

		// A second double release would over-release the semaphore and panic.
		p2, err := l.Acquire(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		p2.Release()
	})

	t.Run("close wakes waiters with ErrShutdown", func(t *testing.T) {
		t.Parallel()

		l := NewLimiter(1)
		held, err := l.Acquire(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer held.Release()

		errCh := make(chan error, 1)
		go func() {
			_, err := l.Acquire(context.Background())
			errCh <- err
		}()

		time.Sleep(20 * time.Millisecond)
		l.Close()

		select {
		case err := <-errCh:
			if !errors.Is(err, ErrShutdown) {
				t.Errorf("expected ErrShutdown, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("waiter was not woken by Close")
		}
	})

	t.Run("acquire after close fails", func(t *testing.T) {
		t.Parallel()

		l := NewLimiter(2)
		l.Close()
		l.Close()

		if _, err := l.Acquire(context.Background()); !errors.Is(err, ErrShutdown) {
			t.Errorf("expected ErrShutdown, got %v", err)
		}
	})

	t.Run("context cancellation is reported", func(t *testing.T) {
		t.Parallel()

		l := NewLimiter(1)
		held, err := l.Acquire(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer held.Release()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err = l.Acquire(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context.DeadlineExceeded, got %v", err)
		}
	})

	t.Run("capacity below one is clamped", func(t *testing.T) {
		t.Parallel()

		if c := NewLimiter(0).Capacity(); c != 1 {
			t.Errorf("expected capacity 1, got %d", c)
		}
	})
}
