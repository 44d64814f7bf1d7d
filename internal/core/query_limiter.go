package core

// query_limiter.go bounds the number of queries executing against the
// database at once. When every slot is taken, a query waits up to maxWait
// before failing with ErrTooManyQueries. WaitForDrain lets shutdown wait for
// running queries.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyQueries is returned when all query slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyQueries = errors.New("too many concurrent queries, please try again later")

// DefaultMaxConcurrentQueries is the default limit for parallel executions.
const DefaultMaxConcurrentQueries = 8

// DefaultMaxQueryWait is how long to wait for a slot before rejecting.
const DefaultMaxQueryWait = 10 * time.Second

// QueryLimiter is a counting semaphore over query executions.
type QueryLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewQueryLimiter allows at most maxConcurrent simultaneous executions.
func NewQueryLimiter(maxConcurrent int, maxWait time.Duration) *QueryLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentQueries
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxQueryWait
	}
	return &QueryLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting up to maxWait. The caller must Release it.
func (l *QueryLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-timer.C:
		return ErrTooManyQueries
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (l *QueryLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Run executes fn while holding a slot.
func (l *QueryLimiter) Run(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

// ActiveCount returns the number of running executions.
func (l *QueryLimiter) ActiveCount() int { return int(l.active.Load()) }

// MaxConcurrent returns the slot count.
func (l *QueryLimiter) MaxConcurrent() int { return cap(l.slots) }

// Available returns the number of free slots.
func (l *QueryLimiter) Available() int { return cap(l.slots) - len(l.slots) }

// WaitForDrain blocks until no execution is running or ctx is done.
func (l *QueryLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.ActiveCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// QueryLimiterStatus is a snapshot of the limiter.
type QueryLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *QueryLimiter) Status() QueryLimiterStatus {
	return QueryLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: l.MaxConcurrent(),
	}
}
