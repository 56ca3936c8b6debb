package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestBreakerOpensAtFailureThreshold(t *testing.T) {
	b := NewBreaker("upstream", BreakerSettings{FailureThreshold: 3, RecoveryTimeout: time.Hour})
	calls := 0
	fail := func(context.Context) error {
		calls++
		return errBoom
	}

	for i := 0; i < 3; i++ {
		if err := b.Do(context.Background(), fail); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: expected boom, got %v", i+1, err)
		}
	}
	if got := b.State(); got != StateOpen {
		t.Fatalf("expected open after threshold, got %v", got)
	}

	// While open the wrapped operation must not run.
	if err := b.Do(context.Background(), fail); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if calls != 3 {
		t.Errorf("operation invoked %d times, want 3", calls)
	}
}

func TestBreakerStaysClosedBelowThreshold(t *testing.T) {
	b := NewBreaker("upstream", BreakerSettings{FailureThreshold: 3})
	fail := func(context.Context) error { return errBoom }
	ok := func(context.Context) error { return nil }

	b.Do(context.Background(), fail)
	b.Do(context.Background(), fail)
	// A success resets the consecutive-failure count.
	b.Do(context.Background(), ok)
	b.Do(context.Background(), fail)
	b.Do(context.Background(), fail)

	if got := b.State(); got != StateClosed {
		t.Errorf("expected closed, got %v", got)
	}
}

func TestBreakerDefaultsOpenAtFive(t *testing.T) {
	b := NewBreaker("upstream", BreakerSettings{})
	fail := func(context.Context) error { return errBoom }

	for i := 0; i < 4; i++ {
		b.Do(context.Background(), fail)
	}
	if got := b.State(); got != StateClosed {
		t.Fatalf("expected closed after 4 failures, got %v", got)
	}
	b.Do(context.Background(), fail)
	if got := b.State(); got != StateOpen {
		t.Errorf("expected open after 5 failures, got %v", got)
	}
}

func TestBreakerHalfOpenClosesAfterSuccesses(t *testing.T) {
	b := NewBreaker("upstream", BreakerSettings{
		FailureThreshold: 1,
		RecoveryTimeout:  20 * time.Millisecond,
		SuccessThreshold: 2,
	})
	b.Do(context.Background(), func(context.Context) error { return errBoom })
	if got := b.State(); got != StateOpen {
		t.Fatalf("expected open, got %v", got)
	}

	time.Sleep(50 * time.Millisecond)

	ok := func(context.Context) error { return nil }
	if err := b.Do(context.Background(), ok); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("expected half-open after first probe, got %v", got)
	}
	if err := b.Do(context.Background(), ok); err != nil {
		t.Fatalf("second probe failed: %v", err)
	}
	if got := b.State(); got != StateClosed {
		t.Errorf("expected closed after success threshold, got %v", got)
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker("upstream", BreakerSettings{
		FailureThreshold: 1,
		RecoveryTimeout:  20 * time.Millisecond,
		SuccessThreshold: 2,
	})
	b.Do(context.Background(), func(context.Context) error { return errBoom })
	time.Sleep(50 * time.Millisecond)

	if err := b.Do(context.Background(), func(context.Context) error { return errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("expected probe to run and fail, got %v", err)
	}
	if got := b.State(); got != StateOpen {
		t.Fatalf("expected reopen after failed probe, got %v", got)
	}

	calls := 0
	err := b.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen right after reopen, got %v", err)
	}
	if calls != 0 {
		t.Errorf("operation ran while open")
	}
}

func TestBreakerHalfOpenAllowsOneProbe(t *testing.T) {
	b := NewBreaker("upstream", BreakerSettings{
		FailureThreshold: 1,
		RecoveryTimeout:  10 * time.Millisecond,
		SuccessThreshold: 2,
	})
	b.Do(context.Background(), func(context.Context) error { return errBoom })
	time.Sleep(30 * time.Millisecond)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	// The probe is still in flight, so a second caller is rejected.
	calls := 0
	err := b.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen while probe in flight, got %v", err)
	}
	if calls != 0 {
		t.Errorf("second operation ran during probe")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if got := b.State(); got != StateHalfOpen {
		t.Errorf("expected half-open after one success, got %v", got)
	}
}

func TestBreakerCallTimeoutCountsAsFailure(t *testing.T) {
	b := NewBreaker("upstream", BreakerSettings{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Hour,
		CallTimeout:      15 * time.Millisecond,
	})
	err := b.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if got := b.State(); got != StateOpen {
		t.Errorf("expected open after timeout, got %v", got)
	}
}

func TestBreakerOnStateChange(t *testing.T) {
	type change struct{ from, to State }
	var changes []change
	b := NewBreaker("upstream", BreakerSettings{
		FailureThreshold: 2,
		RecoveryTimeout:  10 * time.Millisecond,
		SuccessThreshold: 1,
		OnStateChange:    func(from, to State) { changes = append(changes, change{from, to}) },
	})
	fail := func(context.Context) error { return errBoom }
	ok := func(context.Context) error { return nil }

	b.Do(context.Background(), fail)
	b.Do(context.Background(), fail)
	time.Sleep(30 * time.Millisecond)
	b.Do(context.Background(), ok)

	want := []change{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}
	if len(changes) != len(want) {
		t.Fatalf("expected %d transitions, got %d: %v", len(want), len(changes), changes)
	}
	for i, w := range want {
		if changes[i] != w {
			t.Errorf("transition %d: got %v->%v, want %v->%v", i, changes[i].from, changes[i].to, w.from, w.to)
		}
	}
}

func TestBreakerStats(t *testing.T) {
	b := NewBreaker("upstream", BreakerSettings{FailureThreshold: 2, RecoveryTimeout: time.Hour})
	b.Do(context.Background(), func(context.Context) error { return errBoom })
	b.Do(context.Background(), func(context.Context) error { return errBoom })

	stats := b.Stats()
	if stats.State != StateOpen {
		t.Errorf("stats state = %v, want open", stats.State)
	}
	if stats.Openings != 1 {
		t.Errorf("openings = %d, want 1", stats.Openings)
	}
	if stats.LastFailure.IsZero() {
		t.Errorf("last failure not recorded")
	}
}
