package utils

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrThrottleContextCanceled indicates the context ended while waiting for a token.
var ErrThrottleContextCanceled = errors.New("context canceled while waiting for throttle")

// Throttle paces operations to a fixed number per interval. The scan engine
// uses it to keep outbound probes from hammering a target host.
type Throttle struct {
	limit      int
	interval   time.Duration
	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
}

// NewThrottle creates a throttle allowing limit operations per interval.
// Non-positive parameters fall back to 100 per second.
func NewThrottle(limit int, interval time.Duration) *Throttle {
	if limit <= 0 || interval <= 0 {
		limit = 100
		interval = time.Second
	}

	return &Throttle{
		limit:      limit,
		interval:   interval,
		tokens:     limit,
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available or the context ends.
func (t *Throttle) Wait(ctx context.Context) error {
	for {
		waitTime, ok := t.tryAcquire()
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ErrThrottleContextCanceled
		case <-time.After(waitTime):
		}
	}
}

// tryAcquire takes a token if one is available, otherwise returns how long
// to wait before the next token arrives.
func (t *Throttle) tryAcquire() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(t.lastRefill)

	if elapsed >= t.interval {
		t.tokens = t.limit
		t.lastRefill = now
	} else {
		refilled := int(float64(elapsed) / float64(t.interval) * float64(t.limit))
		if refilled > 0 {
			t.tokens = min(t.limit, t.tokens+refilled)
			t.lastRefill = t.lastRefill.Add(elapsed)
		}
	}

	if t.tokens > 0 {
		t.tokens--
		return 0, true
	}

	timePerToken := t.interval / time.Duration(t.limit)
	return timePerToken - elapsed%timePerToken, false
}
