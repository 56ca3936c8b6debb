package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/squadwatch/lineup-monitor/internal/export"
	"github.com/squadwatch/lineup-monitor/internal/monitor"
	"github.com/squadwatch/lineup-monitor/internal/notify"
	"github.com/squadwatch/lineup-monitor/internal/pkg/config"
	"github.com/squadwatch/lineup-monitor/internal/pkg/health"
	"github.com/squadwatch/lineup-monitor/internal/pkg/logging"
	"github.com/squadwatch/lineup-monitor/internal/roster"
	"github.com/squadwatch/lineup-monitor/internal/sofascore"
)

const defaultConfigPath = "configs/production.yaml"

type flags struct {
	configPath string
	runFor     time.Duration
}

func main() {
	if err := run(); err != nil {
		slog.Error("lineup monitor failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	f := parseFlags()

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	_, closeLogs, err := logging.Setup(&cfg.Logging, "lineup-monitor")
	if err != nil {
		slog.Warn("failed to set up logging, continuing with default logger", "error", err)
	} else {
		defer closeLogs()
	}
	slog.Info("lineup monitor starting", "config", f.configPath)

	squad, err := roster.Load(cfg.Monitoring.RosterPath)
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}

	client, err := sofascore.New(cfg.Upstream)
	if err != nil {
		return fmt.Errorf("failed to build upstream client: %w", err)
	}

	router, err := notify.FromConfig(cfg.Notifications)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to build notification channels: %w", err)
	}

	svc := monitor.New(cfg, client, router, squad)
	if cfg.Export.Enabled {
		exp, err := export.New(cfg.Export)
		if err != nil {
			client.Close()
			router.Close()
			return err
		}
		svc.SetExporter(exp)
	}

	ctx, cancel := createContext(f.runFor)
	defer cancel()
	setupSignalHandler(ctx, cancel)

	health.Run(ctx, health.AddrFor(cfg.Health.Port), "lineup-monitor",
		func() any { return svc.Status() }, cfg.Health.ReadHeaderTimeout)

	// Run blocks until ctx ends and owns the client and router shutdown.
	return svc.Run(ctx)
}

func parseFlags() flags {
	var f flags
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}
	flag.StringVar(&f.configPath, "config", defaultConfig, "Path to config file")
	flag.DurationVar(&f.runFor, "run-for", 0, "Auto-stop after duration. 0 = run until SIGINT/SIGTERM")
	flag.Parse()
	return f
}

func createContext(runFor time.Duration) (context.Context, context.CancelFunc) {
	if runFor > 0 {
		return context.WithTimeout(context.Background(), runFor)
	}
	return context.WithCancel(context.Background())
}

func setupSignalHandler(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received shutdown signal", "signal", sig.String())
			cancel()
		case <-ctx.Done():
			signal.Stop(sigChan)
		}
	}()
}
