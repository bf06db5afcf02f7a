package dataforseo

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// rateWindow is the trailing window over which requests are counted.
const rateWindow = time.Minute

// RateLimiter is a sliding-window admission gate for outbound provider
// calls: at most maxRequests grants within the trailing window.
type RateLimiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	stamps []time.Time
	now    func() time.Time
}

// NewRateLimiter creates a limiter admitting maxRequests per minute.
// A non-positive maxRequests is a configuration error; rejecting it here
// keeps WaitForSlot from spinning forever at call time.
func NewRateLimiter(maxRequests int) (*RateLimiter, error) {
	if maxRequests <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", maxRequests)
	}
	return &RateLimiter{
		max:    maxRequests,
		window: rateWindow,
		now:    time.Now,
	}, nil
}

// WaitForSlot blocks until admitting one more request stays within the
// window, then records the grant. The wait is an explicit loop: each pass
// sleeps until the oldest stamp ages out, so concurrent waiters make
// progress without any queuing order guarantee.
func (rl *RateLimiter) WaitForSlot(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := rl.now()
		rl.prune(now)

		if len(rl.stamps) < rl.max {
			rl.stamps = append(rl.stamps, now)
			rl.mu.Unlock()
			return nil
		}

		wait := rl.stamps[0].Add(rl.window).Sub(now)
		rl.mu.Unlock()

		if wait <= 0 {
			wait = time.Millisecond
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// AvailableSlots returns the remaining capacity in the current window.
// Never negative.
func (rl *RateLimiter) AvailableSlots() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.prune(rl.now())
	remaining := rl.max - len(rl.stamps)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// prune drops stamps that have left the trailing window. Caller holds mu.
func (rl *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-rl.window)
	i := 0
	for i < len(rl.stamps) && !rl.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		rl.stamps = rl.stamps[i:]
	}
}
