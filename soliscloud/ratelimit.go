package soliscloud

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Vendor-documented call ceiling: two calls per second, account-wide.
const (
	DefaultRateLimit  = 2
	DefaultRateWindow = time.Second
)

// Limiter gates call issuance. Every call acquires the gate before its
// request is dispatched; acquisition may block until capacity is
// available. Waiters are served first come first served, and cancelling
// the context while waiting releases the slot.
type Limiter interface {
	Wait(ctx context.Context) error
}

// NewLimiter returns the default token-bucket gate allowing at most
// calls per window. One limiter is shared by every call issued through a
// client instance.
func NewLimiter(calls int, window time.Duration) Limiter {
	if calls <= 0 {
		calls = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	return rate.NewLimiter(rate.Limit(float64(calls)/window.Seconds()), calls)
}

// NopLimiter never blocks. Intended for tests.
type NopLimiter struct{}

func (NopLimiter) Wait(ctx context.Context) error { return ctx.Err() }
