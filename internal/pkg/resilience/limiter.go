package resilience

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a token-bucket rate limiter for one upstream dependency. The
// bucket refills at ratePerMinute/60 tokens per second up to burst; when no
// token is available Acquire waits out exactly the deficit instead of
// failing.
type Limiter struct {
	lim *rate.Limiter
}

// NewLimiter builds a limiter granting ratePerMinute requests per minute
// with the given burst capacity. Non-positive arguments fall back to 60/min
// and a burst of 1.
func NewLimiter(ratePerMinute float64, burst int) *Limiter {
	if ratePerMinute <= 0 {
		ratePerMinute = 60
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{lim: rate.NewLimiter(rate.Limit(ratePerMinute/60.0), burst)}
}

// Acquire debits one token, pausing the caller until one is available. It
// only errors when ctx is cancelled while waiting.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.lim.Wait(ctx)
}

// Tokens reports the budget currently in the bucket.
func (l *Limiter) Tokens() float64 {
	return l.lim.Tokens()
}
