// Command probe verifies that the configured upstream and notification
// channels are reachable before a real monitoring run. It sends a test
// message to every enabled channel, so expect pings.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/squadwatch/lineup-monitor/internal/notify"
	"github.com/squadwatch/lineup-monitor/internal/pkg/config"
	"github.com/squadwatch/lineup-monitor/internal/sofascore"
)

func main() {
	if err := run(); err != nil {
		slog.Error("probe failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "configs/production.yaml", "Path to config file")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall probe timeout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return probeUpstream(ctx, cfg) })
	g.Go(func() error { return probeChannels(ctx, cfg) })
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Println("🎉 All probes passed")
	return nil
}

func probeUpstream(ctx context.Context, cfg *config.Config) error {
	client, err := sofascore.New(cfg.Upstream)
	if err != nil {
		return fmt.Errorf("upstream client: %w", err)
	}
	defer client.Close()

	if !client.TestConnection(ctx) {
		fmt.Printf("❌ upstream %s unreachable\n", cfg.Upstream.BaseURL)
		return fmt.Errorf("upstream %s unreachable", cfg.Upstream.BaseURL)
	}
	fmt.Printf("✅ upstream %s\n", cfg.Upstream.BaseURL)
	return nil
}

func probeChannels(ctx context.Context, cfg *config.Config) error {
	router, err := notify.FromConfig(cfg.Notifications)
	if err != nil {
		return fmt.Errorf("notification channels: %w", err)
	}
	defer router.Close()

	names := router.ChannelNames()
	if len(names) == 0 {
		fmt.Println("⚠️ No notification channels configured")
		return nil
	}

	var failed []string
	for name, err := range router.TestAll(ctx) {
		if err != nil {
			fmt.Printf("❌ channel %s: %v\n", name, err)
			failed = append(failed, name)
			continue
		}
		fmt.Printf("✅ channel %s\n", name)
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		return fmt.Errorf("channels failed: %s", strings.Join(failed, ", "))
	}
	return nil
}
