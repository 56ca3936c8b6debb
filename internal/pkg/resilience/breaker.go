package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State of a circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrOpen is returned without invoking the wrapped operation while the
// breaker is open and the recovery timeout has not elapsed.
var ErrOpen = errors.New("circuit breaker is open")

// BreakerSettings configure one breaker instance.
type BreakerSettings struct {
	FailureThreshold int           // consecutive failures before opening
	RecoveryTimeout  time.Duration // open duration before a half-open probe
	SuccessThreshold int           // consecutive half-open successes to close
	CallTimeout      time.Duration // bound on each wrapped invocation

	// OnStateChange, when set, observes every transition.
	OnStateChange func(from, to State)
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 5
	}
	if s.RecoveryTimeout <= 0 {
		s.RecoveryTimeout = time.Minute
	}
	if s.SuccessThreshold <= 0 {
		s.SuccessThreshold = 3
	}
	return s
}

// Breaker guards one logical dependency. All state lives behind one mutex
// held only across the read-modify-write, never across the call itself.
type Breaker struct {
	name     string
	settings BreakerSettings

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	lastFailure time.Time
	openings    uint64
	probing     bool
}

// BreakerStats is a point-in-time snapshot for the observability surface.
type BreakerStats struct {
	State       State     `json:"state"`
	Failures    int       `json:"consecutive_failures"`
	Successes   int       `json:"consecutive_successes"`
	LastFailure time.Time `json:"last_failure"`
	Openings    uint64    `json:"openings"`
}

// NewBreaker creates a closed breaker for the named dependency.
func NewBreaker(name string, settings BreakerSettings) *Breaker {
	return &Breaker{name: name, settings: settings.withDefaults()}
}

// Do runs fn through the breaker. While open it fails fast with ErrOpen;
// once the recovery timeout has elapsed exactly one probe is let through at
// a time. Each invocation is bounded by CallTimeout, and a timeout counts
// as a failure.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.begin(); err != nil {
		return err
	}

	callCtx := ctx
	if b.settings.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, b.settings.CallTimeout)
		defer cancel()
	}

	if err := fn(callCtx); err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns a snapshot of the breaker counters.
func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerStats{
		State:       b.state,
		Failures:    b.failures,
		Successes:   b.successes,
		LastFailure: b.lastFailure,
		Openings:    b.openings,
	}
}

func (b *Breaker) begin() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if time.Since(b.lastFailure) < b.settings.RecoveryTimeout {
			return ErrOpen
		}
		b.transition(StateHalfOpen)
		b.probing = true
	case StateHalfOpen:
		// One probe in flight at a time.
		if b.probing {
			return ErrOpen
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.settings.SuccessThreshold {
			b.transition(StateClosed)
		}
	case StateClosed:
		b.failures = 0
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	b.lastFailure = time.Now()
	switch b.state {
	case StateHalfOpen:
		b.transition(StateOpen)
	case StateClosed:
		b.failures++
		if b.failures >= b.settings.FailureThreshold {
			b.transition(StateOpen)
		}
	}
}

func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	switch to {
	case StateOpen:
		b.openings++
	case StateClosed:
		b.failures = 0
		b.successes = 0
	case StateHalfOpen:
		b.successes = 0
	}
	slog.Info("circuit breaker state changed", "dependency", b.name, "from", from.String(), "to", to.String())
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(from, to)
	}
}
