// Package export writes the static dashboard artifacts: squad.json,
// matches.json, status.json and metadata.json under the configured
// directory. The files are write-only from here; a static frontend polls
// them.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/squadwatch/lineup-monitor/internal/monitor"
	"github.com/squadwatch/lineup-monitor/internal/pkg/config"
	"github.com/squadwatch/lineup-monitor/internal/pkg/models"
)

const formatVersion = "1.0"

type Exporter struct {
	dir      string
	interval time.Duration

	mu         sync.Mutex
	lastExport time.Time
}

func New(cfg config.ExportConfig) (*Exporter, error) {
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	slog.Info("dashboard export ready", "directory", cfg.Directory, "interval", cfg.Interval)
	return &Exporter{dir: cfg.Directory, interval: cfg.Interval}, nil
}

// ExportSnapshot writes the dashboard files, throttled to the configured
// interval. The monitoring loop calls this after every cycle; most calls
// return without touching the disk.
func (e *Exporter) ExportSnapshot(ctx context.Context, snap monitor.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.interval > 0 && !e.lastExport.IsZero() && time.Since(e.lastExport) < e.interval {
		e.mu.Unlock()
		return nil
	}
	e.lastExport = time.Now()
	e.mu.Unlock()

	return e.Write(snap)
}

// Write writes every artifact unconditionally. The one-shot export tool
// calls this directly.
func (e *Exporter) Write(snap monitor.Snapshot) error {
	now := time.Now().UTC()
	files := []struct {
		name string
		doc  any
	}{
		{"squad.json", squadDocument(snap.Squad, now)},
		{"matches.json", matchesDocument(snap.Matches, now)},
		{"status.json", statusDocument(snap.Status, e.dir, now)},
		{"metadata.json", metadataDocument(e.interval, now)},
	}
	for _, f := range files {
		if err := e.writeJSON(f.name, f.doc); err != nil {
			return err
		}
	}
	slog.Debug("dashboard data exported", "directory", e.dir, "files", len(files))
	return nil
}

func (e *Exporter) writeJSON(name string, doc any) error {
	f, err := os.Create(filepath.Join(e.dir, name))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return f.Close()
}

type squadDoc struct {
	LastUpdated      string          `json:"last_updated"`
	TotalPlayers     int             `json:"total_players"`
	ActivePlayers    int             `json:"active_players"`
	ReservePlayers   int             `json:"reserve_players"`
	TeamsRepresented []string        `json:"teams_represented"`
	Players          []models.Player `json:"players"`
}

func squadDocument(squad models.Squad, now time.Time) squadDoc {
	return squadDoc{
		LastUpdated:      now.Format(time.RFC3339),
		TotalPlayers:     len(squad.Players),
		ActivePlayers:    squad.ActiveCount(),
		ReservePlayers:   squad.ReserveCount(),
		TeamsRepresented: squad.Teams(),
		Players:          squad.Players,
	}
}

type matchesDoc struct {
	Date         string                 `json:"date"`
	TotalMatches int                    `json:"total_matches"`
	Matches      []monitor.WatchedMatch `json:"matches"`
}

func matchesDocument(matches []monitor.WatchedMatch, now time.Time) matchesDoc {
	if matches == nil {
		matches = []monitor.WatchedMatch{}
	}
	return matchesDoc{
		Date:         now.Format("2006-01-02"),
		TotalMatches: len(matches),
		Matches:      matches,
	}
}

type statusDoc struct {
	GeneratedAt string         `json:"generated_at"`
	Monitoring  monitor.Status `json:"monitoring"`
	ExportInfo  exportInfo     `json:"export_info"`
}

type exportInfo struct {
	Directory string `json:"export_directory"`
}

func statusDocument(status monitor.Status, dir string, now time.Time) statusDoc {
	return statusDoc{
		GeneratedAt: now.Format(time.RFC3339),
		Monitoring:  status,
		ExportInfo:  exportInfo{Directory: dir},
	}
}

type metadataDoc struct {
	GeneratedAt   string            `json:"generated_at"`
	FormatVersion string            `json:"format_version"`
	DataFiles     map[string]string `json:"data_files"`
	RefreshInfo   refreshInfo       `json:"refresh_info"`
}

type refreshInfo struct {
	LastRefresh            string  `json:"last_refresh"`
	RefreshIntervalSeconds float64 `json:"refresh_interval_seconds"`
	NextRecommendedRefresh string  `json:"next_recommended_refresh"`
}

func metadataDocument(interval time.Duration, now time.Time) metadataDoc {
	return metadataDoc{
		GeneratedAt:   now.Format(time.RFC3339),
		FormatVersion: formatVersion,
		DataFiles: map[string]string{
			"squad":   "squad.json",
			"matches": "matches.json",
			"status":  "status.json",
		},
		RefreshInfo: refreshInfo{
			LastRefresh:            now.Format(time.RFC3339),
			RefreshIntervalSeconds: interval.Seconds(),
			NextRecommendedRefresh: now.Add(interval).Format(time.RFC3339),
		},
	}
}
