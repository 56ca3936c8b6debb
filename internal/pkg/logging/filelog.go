package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	fileBatchSize     = 16
	fileFlushInterval = 2 * time.Second
)

type fileEntry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// fileCore owns the file and the write buffer shared by every fileHandler
// derived through WithAttrs.
type fileCore struct {
	f *os.File

	mu     sync.Mutex
	buffer []fileEntry

	ticker    *time.Ticker
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// fileHandler appends JSON lines to a log file. Records are buffered and
// written in batches, when the batch fills or on a background ticker.
type fileHandler struct {
	core  *fileCore
	level slog.Level
	attrs []slog.Attr
}

func newFileHandler(path string, level slog.Level) (*fileHandler, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	core := &fileCore{
		f:      f,
		buffer: make([]fileEntry, 0, fileBatchSize),
		ticker: time.NewTicker(fileFlushInterval),
		done:   make(chan struct{}),
	}
	core.wg.Add(1)
	go core.flushLoop()

	return &fileHandler{core: core, level: level}, nil
}

func (h *fileHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *fileHandler) Handle(_ context.Context, record slog.Record) error {
	entry := fileEntry{
		Time:    record.Time,
		Level:   record.Level.String(),
		Message: record.Message,
	}
	if len(h.attrs) > 0 || record.NumAttrs() > 0 {
		entry.Attrs = make(map[string]any, len(h.attrs)+record.NumAttrs())
		for _, a := range h.attrs {
			entry.Attrs[a.Key] = a.Value.Any()
		}
		record.Attrs(func(a slog.Attr) bool {
			entry.Attrs[a.Key] = a.Value.Any()
			return true
		})
	}

	c := h.core
	c.mu.Lock()
	c.buffer = append(c.buffer, entry)
	shouldFlush := len(c.buffer) >= fileBatchSize
	c.mu.Unlock()

	// Flush inline when the batch fills; a detached goroutine could outlive
	// Close and race the file handle.
	if shouldFlush {
		c.flush()
	}
	return nil
}

func (h *fileHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &fileHandler{core: h.core, level: h.level, attrs: merged}
}

// WithGroup is accepted but not nested; grouped attributes land flat. None
// of our call sites use groups.
func (h *fileHandler) WithGroup(string) slog.Handler {
	return h
}

// Close drains the buffer and closes the file. Safe to call more than once.
func (h *fileHandler) Close() error {
	c := h.core
	c.closeOnce.Do(func() {
		close(c.done)
		c.ticker.Stop()
		c.wg.Wait()
		c.flush()
		c.f.Close()
	})
	return nil
}

func (c *fileCore) flushLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ticker.C:
			c.flush()
		case <-c.done:
			return
		}
	}
}

// flush writes the buffered batch. The write happens under the buffer lock
// so a ticker flush and a batch-full flush cannot interleave on the file.
func (c *fileCore) flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buffer) == 0 {
		return
	}

	var out bytes.Buffer
	for _, entry := range c.buffer {
		line, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		out.Write(line)
		out.WriteByte('\n')
	}
	c.buffer = c.buffer[:0]
	if _, err := c.f.Write(out.Bytes()); err != nil {
		// Report on stderr rather than through slog to avoid recursion.
		fmt.Fprintf(os.Stderr, "failed to write log file batch: %v\n", err)
	}
}
