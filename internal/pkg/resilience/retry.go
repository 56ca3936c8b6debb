package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"
)

// Strategy selects how retry delays grow between attempts.
type Strategy int

const (
	StrategyFixed Strategy = iota
	StrategyLinear
	StrategyExponential
	StrategyExponentialJitter
)

func (s Strategy) String() string {
	switch s {
	case StrategyFixed:
		return "fixed"
	case StrategyLinear:
		return "linear"
	case StrategyExponential:
		return "exponential"
	case StrategyExponentialJitter:
		return "exponential-jitter"
	}
	return "unknown"
}

// ParseStrategy resolves a config string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exponential-jitter", "exponential-with-jitter":
		return StrategyExponentialJitter, nil
	case "fixed":
		return StrategyFixed, nil
	case "linear":
		return StrategyLinear, nil
	case "exponential":
		return StrategyExponential, nil
	}
	return StrategyFixed, fmt.Errorf("unknown retry strategy %q", s)
}

// Policy re-attempts transient failures with backoff. The zero value
// performs a single attempt.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Strategy    Strategy

	// Retryable decides whether a failure consumes another attempt.
	// Nil defaults to IsTransient.
	Retryable func(error) bool
}

// Do invokes fn up to MaxAttempts times. Non-retryable failures propagate
// immediately; exhaustion returns an *ExhaustedError wrapping the last
// cause. Backoff waits observe ctx.
func (p Policy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		delay := p.Delay(attempt)
		slog.Debug("retrying operation",
			"operation", op, "attempt", attempt, "max_attempts", attempts,
			"delay", delay, "error", lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return &ExhaustedError{Op: op, Attempts: attempts, Err: lastErr}
}

// Delay computes the pause after the n-th failed attempt (1-based).
// Exponential delay is base×2^(n−1); the jitter strategy multiplies by a
// uniform factor in [0.5, 1.0); everything is clamped to MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}

	var d time.Duration
	switch p.Strategy {
	case StrategyLinear:
		d = base * time.Duration(attempt)
	case StrategyExponential, StrategyExponentialJitter:
		shift := attempt - 1
		if shift > 20 {
			shift = 20
		}
		d = base * (1 << uint(shift))
	default:
		d = base
	}

	if p.Strategy == StrategyExponentialJitter {
		d = time.Duration(float64(d) * (0.5 + rand.Float64()*0.5))
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}
