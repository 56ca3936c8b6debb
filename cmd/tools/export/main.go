// Command export writes a one-shot dashboard snapshot: today's fixtures
// involving roster players, plus the squad itself. Useful for refreshing
// dashboard data without running the monitor.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/squadwatch/lineup-monitor/internal/export"
	"github.com/squadwatch/lineup-monitor/internal/monitor"
	"github.com/squadwatch/lineup-monitor/internal/pkg/config"
	"github.com/squadwatch/lineup-monitor/internal/roster"
	"github.com/squadwatch/lineup-monitor/internal/sofascore"
)

func main() {
	if err := run(); err != nil {
		slog.Error("export failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "configs/production.yaml", "Path to config file")
	timeout := flag.Duration("timeout", time.Minute, "Overall export timeout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	squad, err := roster.Load(cfg.Monitoring.RosterPath)
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}

	client, err := sofascore.New(cfg.Upstream)
	if err != nil {
		return fmt.Errorf("failed to build upstream client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	matches, err := client.FixturesWindow(ctx, dayStart, dayStart.Add(24*time.Hour-time.Second))
	if err != nil {
		return fmt.Errorf("failed to fetch today's fixtures: %w", err)
	}
	watched := monitor.WatchPreview(matches, squad, now)

	exp, err := export.New(cfg.Export)
	if err != nil {
		return err
	}
	snap := monitor.Snapshot{
		Squad:   squad,
		Matches: watched,
		Status: monitor.Status{
			SquadSize:       len(squad.Players),
			MaxCyclesPerDay: cfg.Monitoring.MaxCyclesPerDay,
			Upstream:        client.Stats(),
		},
	}
	if err := exp.Write(snap); err != nil {
		return err
	}

	fmt.Printf("✅ Exported %d players and %d watched matches to %s\n",
		len(squad.Players), len(watched), cfg.Export.Directory)
	return nil
}
