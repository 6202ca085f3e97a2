package services

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultSpinRateLimit  = 5
	DefaultSpinRateWindow = time.Second
)

// RateLimiter bounds spin throughput per user. Allow reports whether
// the request fits the current window; when it doesn't, retryAfter is
// the time left until the window resets.
type RateLimiter interface {
	Allow(ctx context.Context, userID string) (allowed bool, retryAfter time.Duration, err error)
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// SpinRateLimiter is the process-local RateLimiter: a fixed window
// counter per user, swept on a timer.
type SpinRateLimiter struct {
	mu       sync.Mutex
	counters map[string]*rateWindow
	limit    int
	window   time.Duration
	now      func() time.Time
}

func NewSpinRateLimiter(limit int, window time.Duration) *SpinRateLimiter {
	if limit <= 0 {
		limit = DefaultSpinRateLimit
	}
	if window <= 0 {
		window = DefaultSpinRateWindow
	}
	return &SpinRateLimiter{
		counters: make(map[string]*rateWindow),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (l *SpinRateLimiter) Allow(ctx context.Context, userID string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.counters[userID]
	if !ok || !now.Before(w.resetAt) {
		l.counters[userID] = &rateWindow{count: 1, resetAt: now.Add(l.window)}
		return true, 0, nil
	}
	w.count++
	if w.count > l.limit {
		return false, w.resetAt.Sub(now), nil
	}
	return true, 0, nil
}

// Sweep drops counters whose window has passed.
func (l *SpinRateLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for userID, w := range l.counters {
		if !now.Before(w.resetAt) {
			delete(l.counters, userID)
		}
	}
}
