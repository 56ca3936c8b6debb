// Package sofascore is the guarded gateway to the upstream fixtures and
// lineups feed. Every fetch runs through the same fixed composition: rate
// limiter first, then the circuit breaker wrapping the retry policy around
// the raw HTTP call, with successful responses placed in a TTL cache.
package sofascore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/squadwatch/lineup-monitor/internal/pkg/cache"
	"github.com/squadwatch/lineup-monitor/internal/pkg/config"
	"github.com/squadwatch/lineup-monitor/internal/pkg/metrics"
	"github.com/squadwatch/lineup-monitor/internal/pkg/models"
	"github.com/squadwatch/lineup-monitor/internal/pkg/resilience"
)

const dateLayout = "2006-01-02"

type Client struct {
	raw          *rawClient
	limiter      *resilience.Limiter
	breaker      *resilience.Breaker
	retry        resilience.Policy
	sem          *semaphore.Weighted
	tournamentID int64

	fixtures *cache.Cache[[]models.Match]
	lineups  *cache.Cache[models.MatchLineups]

	mu           sync.Mutex
	requests     uint64
	errors       uint64
	totalLatency time.Duration
}

// Stats is the client's observability snapshot.
type Stats struct {
	Requests         uint64                  `json:"total_requests"`
	Errors           uint64                  `json:"total_errors"`
	ErrorRate        float64                 `json:"error_rate"`
	AverageLatencyMS float64                 `json:"average_latency_ms"`
	LimiterTokens    float64                 `json:"rate_limiter_tokens"`
	Breaker          resilience.BreakerStats `json:"circuit_breaker"`
	FixturesCache    cache.Stats             `json:"fixtures_cache"`
	LineupsCache     cache.Stats             `json:"lineups_cache"`
}

// New builds a Client from the upstream section of the config.
func New(cfg config.UpstreamConfig) (*Client, error) {
	strategy, err := resilience.ParseStrategy(cfg.RetryStrategy)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream config: %w", err)
	}

	maxConcurrent := cfg.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}

	return &Client{
		raw:     newRawClient(cfg.BaseURL, cfg.Timeout),
		limiter: resilience.NewLimiter(cfg.RateLimitPerMinute, cfg.Burst),
		breaker: resilience.NewBreaker("sofascore", resilience.BreakerSettings{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			RecoveryTimeout:  cfg.Breaker.RecoveryTimeout,
			SuccessThreshold: cfg.Breaker.SuccessThreshold,
			CallTimeout:      cfg.Timeout,
			OnStateChange: func(_, to resilience.State) {
				metrics.RecordBreakerTransition("sofascore", to)
			},
		}),
		retry: resilience.Policy{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxDelay:    cfg.RetryMaxDelay,
			Strategy:    strategy,
		},
		sem:          semaphore.NewWeighted(maxConcurrent),
		tournamentID: cfg.TournamentID,
		fixtures: cache.New[[]models.Match]("fixtures", cache.Options{
			MaxEntries:    cfg.Cache.MaxSize,
			TTL:           cfg.Cache.FixturesTTL,
			SweepInterval: cfg.Cache.SweepInterval,
		}),
		lineups: cache.New[models.MatchLineups]("lineups", cache.Options{
			MaxEntries:    cfg.Cache.MaxSize,
			TTL:           cfg.Cache.LineupsTTL,
			SweepInterval: cfg.Cache.SweepInterval,
		}),
	}, nil
}

// FixturesWindow returns tournament fixtures with kickoff inside [from, to],
// ordered by kickoff. The upstream schedule is served per calendar day, so a
// window crossing midnight fetches every day it touches.
func (c *Client) FixturesWindow(ctx context.Context, from, to time.Time) ([]models.Match, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid fixtures window: %s is after %s",
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	var out []models.Match
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for !day.After(to) {
		matches, err := c.fixturesForDay(ctx, day)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if m.Kickoff.Before(from) || m.Kickoff.After(to) {
				continue
			}
			out = append(out, m)
		}
		day = day.AddDate(0, 0, 1)
	}

	// The upstream groups days in its own calendar, which may disagree with
	// the window's location around midnight.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kickoff.Equal(out[j].Kickoff) {
			return out[i].ID < out[j].ID
		}
		return out[i].Kickoff.Before(out[j].Kickoff)
	})
	return out, nil
}

func (c *Client) fixturesForDay(ctx context.Context, day time.Time) ([]models.Match, error) {
	date := day.Format(dateLayout)
	key := cache.Key("fixtures", date)
	if cached, ok := c.fixtures.Get(key); ok {
		metrics.RecordCacheLookup("fixtures", true)
		return cached, nil
	}
	metrics.RecordCacheLookup("fixtures", false)

	if err := c.sem.Acquire(ctx, 1); err != nil {
		metrics.RecordUpstreamRejected("fixtures")
		return nil, err
	}
	defer c.sem.Release(1)
	if err := c.limiter.Acquire(ctx); err != nil {
		metrics.RecordUpstreamRejected("fixtures")
		return nil, err
	}

	var matches []models.Match
	start := time.Now()
	err := c.breaker.Do(ctx, func(callCtx context.Context) error {
		return c.retry.Do(callCtx, "fetch fixtures", func(rctx context.Context) error {
			var resp scheduledEventsResponse
			err := c.raw.getJSON(rctx, "/api/v1/sport/football/scheduled-events/"+date, &resp)
			switch {
			case errors.Is(err, ErrNotFound):
				// No schedule published for this day.
				matches = nil
				return nil
			case err != nil:
				return err
			}
			matches = eventsToMatches(resp.Events, c.tournamentID)
			return nil
		})
	})
	c.observe("fixtures", start, err, false)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fixtures for %s: %w", date, err)
	}

	c.fixtures.Set(key, matches)
	slog.Debug("fetched fixtures", "date", date, "matches", len(matches))
	return matches, nil
}

// Lineups fetches both teams' lineups for a match. The second return is
// false while the upstream has not yet published them; that state is not an
// error, never trips the breaker and consumes no retry attempts. Only
// published lineups are cached, since an unpublished one can appear at any
// moment.
func (c *Client) Lineups(ctx context.Context, matchID int64) (models.MatchLineups, bool, error) {
	var zero models.MatchLineups

	key := cache.Key("lineups", matchID)
	if cached, ok := c.lineups.Get(key); ok {
		metrics.RecordCacheLookup("lineups", true)
		return cached, true, nil
	}
	metrics.RecordCacheLookup("lineups", false)

	if err := c.sem.Acquire(ctx, 1); err != nil {
		metrics.RecordUpstreamRejected("lineups")
		return zero, false, err
	}
	defer c.sem.Release(1)
	if err := c.limiter.Acquire(ctx); err != nil {
		metrics.RecordUpstreamRejected("lineups")
		return zero, false, err
	}

	path := fmt.Sprintf("/api/v1/event/%d/lineups", matchID)
	var resp lineupsResponse
	notPublished := false
	start := time.Now()
	err := c.breaker.Do(ctx, func(callCtx context.Context) error {
		return c.retry.Do(callCtx, "fetch lineups", func(rctx context.Context) error {
			err := c.raw.getJSON(rctx, path, &resp)
			if errors.Is(err, ErrNotFound) {
				notPublished = true
				return nil
			}
			return err
		})
	})
	c.observe("lineups", start, err, notPublished)
	if err != nil {
		return zero, false, fmt.Errorf("failed to fetch lineups for match %d: %w", matchID, err)
	}
	if notPublished {
		slog.Debug("lineups not yet published", "match_id", matchID)
		return zero, false, nil
	}

	lineups := resp.toLineups()
	// A 200 with an empty side shows up briefly around publication time.
	if len(lineups.Home.StartingXI) == 0 || len(lineups.Away.StartingXI) == 0 {
		slog.Debug("lineups response incomplete, treating as unpublished", "match_id", matchID)
		return zero, false, nil
	}
	if len(lineups.Home.StartingXI) != 11 || len(lineups.Away.StartingXI) != 11 {
		slog.Warn("unexpected lineup size",
			"match_id", matchID,
			"home_starters", len(lineups.Home.StartingXI),
			"away_starters", len(lineups.Away.StartingXI))
	}
	c.lineups.Set(key, lineups)
	return lineups, true, nil
}

// TestConnection probes the upstream by fetching today's schedule. A failed
// probe reports false rather than an error.
func (c *Client) TestConnection(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	now := time.Now()
	if _, err := c.FixturesWindow(probeCtx, now, now); err != nil {
		slog.Warn("upstream connection test failed", "error", err)
		return false
	}
	return true
}

func (c *Client) Stats() Stats {
	c.mu.Lock()
	requests, errCount, total := c.requests, c.errors, c.totalLatency
	c.mu.Unlock()

	s := Stats{
		Requests:      requests,
		Errors:        errCount,
		LimiterTokens: c.limiter.Tokens(),
		Breaker:       c.breaker.Stats(),
		FixturesCache: c.fixtures.Stats(),
		LineupsCache:  c.lineups.Stats(),
	}
	if requests > 0 {
		s.ErrorRate = float64(errCount) / float64(requests) * 100
		s.AverageLatencyMS = float64(total.Milliseconds()) / float64(requests)
	}
	return s
}

// Close stops the cache sweepers.
func (c *Client) Close() {
	slog.Info("closing upstream client")
	c.fixtures.Stop()
	c.lineups.Stop()
}

func (c *Client) observe(endpoint string, start time.Time, err error, notPublished bool) {
	elapsed := time.Since(start)
	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
	case notPublished:
		outcome = "not_published"
	}
	metrics.RecordUpstreamRequest(endpoint, outcome, elapsed.Seconds())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests++
	c.totalLatency += elapsed
	if err != nil {
		c.errors++
	}
}
