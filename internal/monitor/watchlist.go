package monitor

import (
	"log/slog"
	"sort"
	"time"

	"github.com/squadwatch/lineup-monitor/internal/pkg/config"
	"github.com/squadwatch/lineup-monitor/internal/pkg/models"
)

// watchEntry tracks one fixture the loop cares about. The map structure is
// owned by the loop goroutine; an entry's mutable fields are touched by at
// most one check goroutine per cycle, joined before the next reconcile.
type watchEntry struct {
	match        models.Match
	players      []models.Player
	priority     int // 1 = kickoff imminent .. 5 = more than a day out
	lastCheck    time.Time
	lineupSeen   bool
	alertsSent   int
	notYetWarned bool
}

// priorityFor buckets a match by time to kickoff. Live and started matches
// fall through to the top bucket.
func priorityFor(kickoff, now time.Time) int {
	until := kickoff.Sub(now)
	switch {
	case until <= 15*time.Minute:
		return 1
	case until <= time.Hour:
		return 2
	case until <= 6*time.Hour:
		return 3
	case until <= 24*time.Hour:
		return 4
	}
	return 5
}

func (e *watchEntry) inFinalSprint(cfg config.MonitoringConfig, now time.Time) bool {
	return e.match.Kickoff.Sub(now) <= cfg.FinalSprintWindow
}

// checkInterval is the minimum gap between lineup checks once a lineup has
// been seen. It tightens as kickoff approaches.
func (e *watchEntry) checkInterval(cfg config.MonitoringConfig, now time.Time) time.Duration {
	if e.inFinalSprint(cfg, now) {
		return cfg.FinalSprintInterval
	}
	switch {
	case e.priority <= 2:
		return cfg.MinAnalysisInterval
	case e.priority == 3:
		if d := 2 * cfg.MinAnalysisInterval; d < cfg.CheckInterval {
			return d
		}
		return cfg.CheckInterval
	}
	return cfg.CheckInterval
}

// due reports whether this entry should be checked now. A match whose lineup
// has never been seen is checked every cycle.
func (e *watchEntry) due(cfg config.MonitoringConfig, now time.Time) bool {
	if !e.lineupSeen || e.lastCheck.IsZero() {
		return true
	}
	return now.Sub(e.lastCheck) >= e.checkInterval(cfg, now)
}

type watchlist struct {
	entries map[int64]*watchEntry
}

func newWatchlist() *watchlist {
	return &watchlist{entries: make(map[int64]*watchEntry)}
}

func (w *watchlist) len() int {
	return len(w.entries)
}

// reconcile brings the watch-list in line with the fixtures of this cycle:
// matches involving at least one roster player are added or refreshed,
// finished and no-longer-returned ones are dropped. Check history of
// retained entries survives.
func (w *watchlist) reconcile(matches []models.Match, squad models.Squad, now time.Time) (added, dropped int) {
	current := make(map[int64]bool, len(matches))
	for _, m := range matches {
		if m.IsFinished() {
			continue
		}
		players := squad.PlayersForMatch(m)
		if len(players) == 0 {
			continue
		}
		current[m.ID] = true

		if e, ok := w.entries[m.ID]; ok {
			e.match = m
			e.players = players
			e.priority = priorityFor(m.Kickoff, now)
			continue
		}
		w.entries[m.ID] = &watchEntry{
			match:    m,
			players:  players,
			priority: priorityFor(m.Kickoff, now),
		}
		added++
		slog.Info("watching match",
			"match", m.Name(),
			"kickoff", m.Kickoff.Format(time.RFC3339),
			"squad_players", len(players),
			"priority", w.entries[m.ID].priority)
	}

	for id, e := range w.entries {
		if current[id] && !e.match.IsFinished() {
			continue
		}
		delete(w.entries, id)
		dropped++
		slog.Debug("stopped watching match", "match", e.match.Name(), "status", e.match.Status)
	}
	return added, dropped
}

// dueEntries returns the entries due for a check, most pressing first.
func (w *watchlist) dueEntries(cfg config.MonitoringConfig, now time.Time) []*watchEntry {
	var due []*watchEntry
	for _, e := range w.entries {
		if e.due(cfg, now) {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].priority != due[j].priority {
			return due[i].priority < due[j].priority
		}
		return due[i].match.Kickoff.Before(due[j].match.Kickoff)
	})
	return due
}

// nearestKickoff returns the time until the next future kickoff on the list,
// comma-ok. Matches already under way do not count.
func (w *watchlist) nearestKickoff(now time.Time) (time.Duration, bool) {
	var best time.Duration
	found := false
	for _, e := range w.entries {
		until := e.match.Kickoff.Sub(now)
		if until <= 0 {
			continue
		}
		if !found || until < best {
			best = until
			found = true
		}
	}
	return best, found
}

// WatchedMatch is the exportable view of one watch-list entry.
type WatchedMatch struct {
	Match        models.Match `json:"match"`
	Priority     int          `json:"priority"`
	SquadPlayers int          `json:"squad_players"`
	LineupFound  bool         `json:"lineup_found"`
	AlertsSent   int          `json:"alerts_sent"`
	LastCheck    time.Time    `json:"last_check"`
}

// WatchPreview builds the watch-list view for a fixture set without running
// the monitoring loop. One-shot tools use it to export today's picture.
func WatchPreview(matches []models.Match, squad models.Squad, now time.Time) []WatchedMatch {
	w := newWatchlist()
	w.reconcile(matches, squad, now)
	return w.snapshot()
}

func (w *watchlist) snapshot() []WatchedMatch {
	out := make([]WatchedMatch, 0, len(w.entries))
	for _, e := range w.entries {
		out = append(out, WatchedMatch{
			Match:        e.match,
			Priority:     e.priority,
			SquadPlayers: len(e.players),
			LineupFound:  e.lineupSeen,
			AlertsSent:   e.alertsSent,
			LastCheck:    e.lastCheck,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Match.Kickoff.Equal(out[j].Match.Kickoff) {
			return out[i].Match.ID < out[j].Match.ID
		}
		return out[i].Match.Kickoff.Before(out[j].Match.Kickoff)
	})
	return out
}
