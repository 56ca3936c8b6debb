// Package monitor drives the adaptive monitoring loop: fetch the fixtures
// worth watching, check due lineups concurrently, turn surprises into routed
// alerts, then sleep just long enough. The check cadence tightens as kickoff
// approaches and a daily cycle cap bounds upstream usage.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/squadwatch/lineup-monitor/internal/analysis"
	"github.com/squadwatch/lineup-monitor/internal/notify"
	"github.com/squadwatch/lineup-monitor/internal/pkg/config"
	"github.com/squadwatch/lineup-monitor/internal/pkg/metrics"
	"github.com/squadwatch/lineup-monitor/internal/pkg/models"
	"github.com/squadwatch/lineup-monitor/internal/sofascore"
)

const (
	// liveLookback keeps a live match's kickoff inside the fixtures window
	// for roughly the length of a match.
	liveLookback = 3 * time.Hour

	// capSleep is how long the loop dozes once the daily cycle cap is hit
	// before re-checking whether the day has rolled over.
	capSleep = time.Hour

	// emptyWatchSleep is the pause between cycles when nothing is watched.
	emptyWatchSleep = time.Minute
)

// Source is the slice of the upstream client the loop needs.
type Source interface {
	FixturesWindow(ctx context.Context, from, to time.Time) ([]models.Match, error)
	Lineups(ctx context.Context, matchID int64) (models.MatchLineups, bool, error)
	Stats() sofascore.Stats
	Close()
}

// Exporter receives the monitoring snapshot after each successful cycle.
type Exporter interface {
	ExportSnapshot(ctx context.Context, snap Snapshot) error
}

// Snapshot is the state handed to the exporter.
type Snapshot struct {
	Squad   models.Squad   `json:"squad"`
	Matches []WatchedMatch `json:"matches"`
	Status  Status         `json:"status"`
}

// Status is the live monitoring snapshot served by /status and written to
// the dashboard export.
type Status struct {
	Running          bool            `json:"running"`
	UptimeSeconds    float64         `json:"uptime_seconds"`
	LastCheck        time.Time       `json:"last_check"`
	WatchedMatches   int             `json:"watched_matches"`
	TotalChecks      uint64          `json:"total_checks"`
	SuccessfulChecks uint64          `json:"successful_checks"`
	Errors           uint64          `json:"errors"`
	SuccessRate      float64         `json:"success_rate"`
	CyclesToday      int             `json:"cycles_today"`
	MaxCyclesPerDay  int             `json:"max_cycles_per_day"`
	SquadSize        int             `json:"squad_size"`
	Upstream         sofascore.Stats `json:"upstream"`
	Notifications    notify.Stats    `json:"notifications"`
}

// Service owns the monitoring loop. Run blocks until the context ends, then
// drains in-flight checks, sends the shutdown notice and closes the router
// and the upstream client.
type Service struct {
	cfg       *config.Config
	source    Source
	router    *notify.Router
	squad     models.Squad
	analyzer  *analysis.Analyzer
	generator *analysis.Generator
	watch     *watchlist
	exporter  Exporter

	mu              sync.Mutex
	running         bool
	startedAt       time.Time
	lastCheck       time.Time
	watchedCount    int
	totalChecks     uint64
	successfulCount uint64
	errorCount      uint64
	consecutiveErrs int
	cyclesToday     int
	capDay          string
}

func New(cfg *config.Config, source Source, router *notify.Router, squad models.Squad) *Service {
	var matcher analysis.NameMatcher
	if cfg.Monitoring.NameMatching == "folded" {
		matcher = analysis.FoldedMatch{}
	}
	return &Service{
		cfg:       cfg,
		source:    source,
		router:    router,
		squad:     squad,
		analyzer:  analysis.NewAnalyzer(matcher),
		generator: analysis.NewGenerator(),
		watch:     newWatchlist(),
	}
}

// SetExporter wires the dashboard exporter invoked after each cycle. Must be
// called before Run.
func (s *Service) SetExporter(e Exporter) {
	s.exporter = e
}

func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("monitor is already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	slog.Info("starting lineup monitoring",
		"squad_players", len(s.squad.Players),
		"teams", len(s.squad.Teams()),
		"check_interval", s.cfg.Monitoring.CheckInterval,
		"lead_window", s.cfg.Monitoring.LeadWindow)
	s.sendStartupNotification(ctx)

	s.loop(ctx)

	s.mu.Lock()
	s.running = false
	uptime := time.Since(s.startedAt).Round(time.Second)
	s.mu.Unlock()

	s.sendShutdownNotification()
	s.router.Close()
	s.source.Close()
	slog.Info("lineup monitoring stopped", "uptime", uptime)
	return nil
}

func (s *Service) loop(ctx context.Context) {
	for {
		if !s.waitForDailyCap(ctx) {
			return
		}

		start := time.Now()
		err := s.runCycle(ctx)
		metrics.RecordCycle(err, time.Since(start).Seconds())

		if ctx.Err() != nil {
			return
		}

		var sleep time.Duration
		if err != nil {
			s.mu.Lock()
			s.errorCount++
			s.consecutiveErrs++
			failures := s.consecutiveErrs
			s.mu.Unlock()
			sleep = errorBackoff(failures)
			slog.Error("monitoring cycle failed",
				"error", err, "consecutive_failures", failures, "backoff", sleep)
		} else {
			now := time.Now()
			s.mu.Lock()
			s.consecutiveErrs = 0
			s.cyclesToday++
			s.lastCheck = now
			s.mu.Unlock()
			s.export(ctx)
			sleep = s.nextSleep(now)
			slog.Debug("cycle complete", "next_check_in", sleep)
		}

		if !sleepCtx(ctx, sleep) {
			return
		}
	}
}

// waitForDailyCap blocks while today's cycle budget is spent, waking hourly
// to see whether the day has rolled over. Reports false once the context
// ends.
func (s *Service) waitForDailyCap(ctx context.Context) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		day := time.Now().Format("2006-01-02")
		s.mu.Lock()
		if day != s.capDay {
			if s.capDay != "" {
				slog.Info("daily cycle counter reset", "previous_cycles", s.cyclesToday)
			}
			s.capDay = day
			s.cyclesToday = 0
		}
		cycles := s.cyclesToday
		s.mu.Unlock()

		limit := s.cfg.Monitoring.MaxCyclesPerDay
		if limit <= 0 || cycles < limit {
			return true
		}
		slog.Warn("daily cycle cap reached", "cycles", cycles, "cap", limit)
		if !sleepCtx(ctx, capSleep) {
			return false
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	log := slog.With("cycle", uuid.NewString()[:8])
	now := time.Now()

	matches, err := s.relevantMatches(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch fixtures: %w", err)
	}

	added, dropped := s.watch.reconcile(matches, s.squad, now)
	watched := s.watch.len()
	metrics.SetWatchedMatches(watched)
	s.mu.Lock()
	s.watchedCount = watched
	s.mu.Unlock()
	if added > 0 || dropped > 0 {
		log.Info("watch list reconciled", "watched", watched, "added", added, "dropped", dropped)
	}

	if watched == 0 {
		log.Debug("no relevant matches")
		return nil
	}

	due := s.watch.dueEntries(s.cfg.Monitoring, now)
	if len(due) == 0 {
		log.Debug("no lineup checks due", "watched", watched)
		return nil
	}

	log.Info("checking lineups", "due", len(due), "watched", watched)
	var wg sync.WaitGroup
	for _, e := range due {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.checkMatch(ctx, log, e)
		}()
	}
	wg.Wait()
	return nil
}

// relevantMatches fetches the fixtures worth watching right now: kickoff
// inside the lead window, plus matches already live. The window reaches far
// enough back that a live match's kickoff still falls inside it.
func (s *Service) relevantMatches(ctx context.Context) ([]models.Match, error) {
	now := time.Now()
	from := now.Add(-liveLookback)
	to := now.Add(s.cfg.Monitoring.LeadWindow)
	fixtures, err := s.source.FixturesWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}

	var relevant []models.Match
	for _, m := range fixtures {
		switch {
		case m.Status == models.MatchLive:
			relevant = append(relevant, m)
		case m.IsFinished():
		case !m.Kickoff.Before(now):
			relevant = append(relevant, m)
		}
	}
	return relevant, nil
}

// checkMatch runs one lineup check: fetch, analyze against the roster slice
// for this match, route the resulting alerts most urgent first. Failures are
// logged and counted, never propagated.
func (s *Service) checkMatch(ctx context.Context, log *slog.Logger, e *watchEntry) {
	now := time.Now()
	e.lastCheck = now
	s.mu.Lock()
	s.totalChecks++
	s.mu.Unlock()

	lineups, published, err := s.source.Lineups(ctx, e.match.ID)
	if err != nil {
		s.mu.Lock()
		s.errorCount++
		s.mu.Unlock()
		log.Error("lineup check failed", "match", e.match.Name(), "error", err)
		return
	}
	s.mu.Lock()
	s.successfulCount++
	s.mu.Unlock()

	if !published {
		s.warnIfSprintUnpublished(ctx, log, e, now)
		return
	}

	if !e.lineupSeen {
		log.Info("lineup published",
			"match", e.match.Name(),
			"kickoff_in", e.match.Kickoff.Sub(now).Round(time.Second))
	}
	e.lineupSeen = true

	// The upstream lineup payload carries no team names.
	lineups.Home.Team = e.match.HomeTeam.Name
	lineups.Away.Team = e.match.AwayTeam.Name

	discrepancies := s.analyzer.Analyze(e.match, lineups, models.Squad{Players: e.players})
	alerts := s.generator.Generate(discrepancies)
	if len(alerts) == 0 {
		return
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Urgency.Rank() > alerts[j].Urgency.Rank()
	})
	delivered := 0
	for _, a := range alerts {
		metrics.RecordAlert(string(a.Urgency))
		if s.router.SendAlert(ctx, a) {
			delivered++
		}
	}
	e.alertsSent += delivered

	summary := s.analyzer.Summary(discrepancies)
	if summary.Benchings > 0 || summary.SurpriseStarts > 0 {
		log.Warn("lineup surprises found",
			"match", e.match.Name(),
			"benchings", summary.Benchings,
			"surprise_starts", summary.SurpriseStarts,
			"alerts_delivered", delivered)
	} else {
		log.Debug("lineup as expected", "match", e.match.Name(), "players", summary.Analyzed)
	}
}

// warnIfSprintUnpublished sends one warning per match when kickoff is inside
// the final sprint window and the lineup is still missing.
func (s *Service) warnIfSprintUnpublished(ctx context.Context, log *slog.Logger, e *watchEntry, now time.Time) {
	until := e.match.Kickoff.Sub(now)
	log.Debug("lineups not yet published",
		"match", e.match.Name(), "kickoff_in", until.Round(time.Second))
	if e.notYetWarned || until <= 0 || until > s.cfg.Monitoring.FinalSprintWindow {
		return
	}
	e.notYetWarned = true
	text := fmt.Sprintf("⏳ No lineup published yet for %s, kickoff in %s",
		e.match.Name(), until.Round(time.Second))
	s.router.Send(ctx, text, models.UrgencyWarning)
}

// nextSleep picks the pause before the next cycle from the nearest kickoff.
func (s *Service) nextSleep(now time.Time) time.Duration {
	if s.watch.len() == 0 {
		return emptyWatchSleep
	}
	m := s.cfg.Monitoring
	until, ok := s.watch.nearestKickoff(now)
	switch {
	case !ok:
		// Everything watched is already under way.
		return m.FinalSprintInterval
	case until <= m.FinalSprintWindow:
		return m.FinalSprintInterval
	case until <= time.Hour:
		quarter := m.CheckInterval / 4
		if quarter < time.Minute {
			quarter = time.Minute
		}
		return quarter
	}
	return m.CheckInterval
}

func (s *Service) export(ctx context.Context) {
	if s.exporter == nil {
		return
	}
	snap := Snapshot{
		Squad:   s.squad,
		Matches: s.watch.snapshot(),
		Status:  s.Status(),
	}
	if err := s.exporter.ExportSnapshot(ctx, snap); err != nil {
		slog.Warn("dashboard export failed", "error", err)
	}
}

func (s *Service) sendStartupNotification(ctx context.Context) {
	if !s.cfg.Notifications.SendStartup {
		return
	}
	msg := fmt.Sprintf("🚀 Lineup monitoring started\n⏰ Check interval: %s\n👥 Squad size: %d players\n🎯 Ready to monitor lineups!",
		s.cfg.Monitoring.CheckInterval, len(s.squad.Players))
	if !s.router.Send(ctx, msg, models.UrgencyInfo) {
		slog.Warn("startup notification not delivered")
	}
}

func (s *Service) sendShutdownNotification() {
	if !s.cfg.Notifications.SendShutdown {
		return
	}
	s.mu.Lock()
	uptime := time.Since(s.startedAt).Round(time.Second)
	total, successful, errCount := s.totalChecks, s.successfulCount, s.errorCount
	s.mu.Unlock()

	// The run context is gone by this point; the grace period bounds the
	// farewell instead.
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Monitoring.ShutdownGrace)
	defer cancel()
	msg := fmt.Sprintf("🛑 Lineup monitoring stopped\n⏱️ Uptime: %s\n📊 Total checks: %d\n✅ Successful: %d\n❌ Errors: %d",
		uptime, total, successful, errCount)
	if !s.router.Send(ctx, msg, models.UrgencyInfo) {
		slog.Warn("shutdown notification not delivered")
	}
}

// Status assembles the live snapshot. Safe to call from any goroutine.
func (s *Service) Status() Status {
	s.mu.Lock()
	st := Status{
		Running:          s.running,
		LastCheck:        s.lastCheck,
		WatchedMatches:   s.watchedCount,
		TotalChecks:      s.totalChecks,
		SuccessfulChecks: s.successfulCount,
		Errors:           s.errorCount,
		CyclesToday:      s.cyclesToday,
		MaxCyclesPerDay:  s.cfg.Monitoring.MaxCyclesPerDay,
		SquadSize:        len(s.squad.Players),
	}
	if !s.startedAt.IsZero() {
		st.UptimeSeconds = time.Since(s.startedAt).Seconds()
	}
	s.mu.Unlock()

	if st.TotalChecks > 0 {
		st.SuccessRate = float64(st.SuccessfulChecks) / float64(st.TotalChecks) * 100
	}
	st.Upstream = s.source.Stats()
	st.Notifications = s.router.Stats()
	return st
}

// errorBackoff grows quadratically with consecutive cycle failures, capped
// at five minutes.
func errorBackoff(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	d := 30 * time.Second * time.Duration(failures*failures)
	if d > 5*time.Minute {
		d = 5 * time.Minute
	}
	return d
}

// sleepCtx sleeps for d unless the context ends first, reporting whether the
// sleep ran to completion.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
