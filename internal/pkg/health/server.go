package health

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/squadwatch/lineup-monitor/internal/pkg/health/handlers"
)

// Run starts the health server in the background and shuts it down when ctx
// is cancelled. The status function feeds the /status endpoint; /metrics
// serves the Prometheus registry.
func Run(ctx context.Context, addr string, service string, status handlers.StatusFunc, readHeaderTimeout time.Duration) {
	handlers.SetStatusFunc(status)

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", handlers.HandlePing)
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/status", handlers.HandleStatus)
	mux.Handle("/metrics", promhttp.Handler())

	if readHeaderTimeout <= 0 {
		slog.Error("read_header_timeout must be specified in config")
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		slog.Info("health server listening", "service", service, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server error", "service", service, "error", err)
		}
	}()
}

func AddrFor(port int) string {
	if port <= 0 {
		slog.Error("port must be greater than 0")
		os.Exit(1)
	}
	return fmt.Sprintf(":%d", port)
}
