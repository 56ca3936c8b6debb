package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/squadwatch/lineup-monitor/internal/pkg/config"
)

// Setup builds the process-wide logger: a stdout handler in the configured
// format and level, plus an optional buffered JSON file handler. The result
// is installed as the slog default and tags every record with the service
// name. The returned close function drains the file handler; it is a no-op
// when no file is configured.
func Setup(cfg *config.LoggingConfig, serviceName string) (*slog.Logger, func(), error) {
	level := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handlers []slog.Handler
	if cfg.Format == "json" {
		handlers = append(handlers, slog.NewJSONHandler(os.Stdout, opts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(os.Stdout, opts))
	}

	closeFile := func() {}
	if cfg.File != "" {
		fileHandler, err := newFileHandler(cfg.File, level)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, fileHandler)
		closeFile = func() { fileHandler.Close() }
	}

	logger := slog.New(&MultiHandler{handlers: handlers}).With("service", serviceName)
	slog.SetDefault(logger)
	return logger, closeFile, nil
}

// ParseLevel maps a config level string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// MultiHandler fans every record out to all underlying handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *MultiHandler) Handle(ctx context.Context, record slog.Record) error {
	var lastErr error
	for _, h := range m.handlers {
		if h.Enabled(ctx, record.Level) {
			if err := h.Handle(ctx, record); err != nil {
				lastErr = err
			}
		}
	}
	return lastErr
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: handlers}
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &MultiHandler{handlers: handlers}
}
