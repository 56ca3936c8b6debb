// Package notify fans alerts out to the configured notification channels.
//
// Urgent and important alerts broadcast to every channel; info and warning
// traffic only reaches channels marked low-noise, so email never sees
// routine confirmations. Delivery failures are logged and counted, never
// propagated: a dead webhook must not abort a monitoring cycle.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/squadwatch/lineup-monitor/internal/pkg/config"
	"github.com/squadwatch/lineup-monitor/internal/pkg/metrics"
	"github.com/squadwatch/lineup-monitor/internal/pkg/models"
)

// Channel is one notification transport.
type Channel interface {
	Name() string
	// LowNoise reports whether the channel tolerates routine info/warning
	// traffic.
	LowNoise() bool
	SendAlert(ctx context.Context, alert models.Alert) error
	Send(ctx context.Context, text string, urgency models.Urgency) error
}

// DeliveryCount tracks sent/failed totals for one channel or urgency.
type DeliveryCount struct {
	Sent   uint64 `json:"sent"`
	Failed uint64 `json:"failed"`
}

// Stats is a snapshot of routing counters.
type Stats struct {
	TotalSent   uint64                   `json:"total_sent"`
	TotalFailed uint64                   `json:"total_failed"`
	ByChannel   map[string]DeliveryCount `json:"by_channel"`
	ByUrgency   map[string]DeliveryCount `json:"by_urgency"`
}

// Router routes alerts and plain texts to channels by urgency.
type Router struct {
	channels []Channel

	mu        sync.Mutex
	sent      uint64
	failed    uint64
	byChannel map[string]*DeliveryCount
	byUrgency map[models.Urgency]*DeliveryCount
}

func NewRouter(channels ...Channel) *Router {
	r := &Router{
		channels:  channels,
		byChannel: make(map[string]*DeliveryCount),
		byUrgency: make(map[models.Urgency]*DeliveryCount),
	}
	slog.Info("notification router initialized", "channels", r.ChannelNames())
	return r
}

// FromConfig assembles a Router with one channel per enabled transport.
func FromConfig(cfg config.NotificationsConfig) (*Router, error) {
	var channels []Channel
	if cfg.Telegram.Enabled {
		tg, err := NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			return nil, fmt.Errorf("telegram channel: %w", err)
		}
		channels = append(channels, tg)
	}
	if cfg.Discord.Enabled {
		channels = append(channels, NewDiscord(cfg.Discord.WebhookURL, cfg.Discord.Timeout))
	}
	if cfg.Email.Enabled {
		e := cfg.Email
		channels = append(channels, NewEmail(e.Host, e.Port, e.Username, e.Password, e.FromName, e.Recipient, e.Timeout))
	}
	if cfg.NATS.Enabled {
		nc, err := NewNATS(cfg.NATS.URL, cfg.NATS.SubjectPrefix, cfg.NATS.Stream)
		if err != nil {
			return nil, fmt.Errorf("nats channel: %w", err)
		}
		channels = append(channels, nc)
	}
	return NewRouter(channels...), nil
}

// ChannelNames lists the configured channels in registration order.
func (r *Router) ChannelNames() []string {
	names := make([]string, 0, len(r.channels))
	for _, ch := range r.channels {
		names = append(names, ch.Name())
	}
	return names
}

// SendAlert delivers the alert to every channel its urgency targets and
// reports whether at least one delivery succeeded. With no targets the alert
// is logged and false returned.
func (r *Router) SendAlert(ctx context.Context, alert models.Alert) bool {
	targets := r.targetsFor(alert.Urgency)
	if len(targets) == 0 {
		slog.Warn("no notification channels for alert, logging only",
			"urgency", alert.Urgency,
			"player", alert.Player.Name,
			"message", alert.Message)
		return false
	}

	delivered := 0
	for _, ch := range targets {
		err := ch.SendAlert(ctx, alert)
		r.record(ch.Name(), alert.Urgency, err)
		if err != nil {
			slog.Error("alert delivery failed",
				"channel", ch.Name(),
				"player", alert.Player.Name,
				"error", err)
			continue
		}
		delivered++
	}

	switch {
	case delivered == 0:
		slog.Error("alert failed on every channel",
			"attempted", len(targets), "player", alert.Player.Name)
		return false
	case delivered < len(targets):
		slog.Warn("alert partially delivered",
			"delivered", delivered, "attempted", len(targets), "player", alert.Player.Name)
	default:
		slog.Info("alert delivered",
			"channels", delivered, "urgency", alert.Urgency, "player", alert.Player.Name)
	}
	return true
}

// Send delivers a plain text notice (startup, shutdown, operational
// warnings) under the same routing rules as alerts.
func (r *Router) Send(ctx context.Context, text string, urgency models.Urgency) bool {
	targets := r.targetsFor(urgency)
	if len(targets) == 0 {
		slog.Warn("no notification channels for message, logging only",
			"urgency", urgency, "message", text)
		return false
	}

	delivered := 0
	for _, ch := range targets {
		err := ch.Send(ctx, text, urgency)
		r.record(ch.Name(), urgency, err)
		if err != nil {
			slog.Error("message delivery failed", "channel", ch.Name(), "error", err)
			continue
		}
		delivered++
	}
	return delivered > 0
}

// TestAll sends a test message through every channel directly, bypassing
// urgency routing, and reports per-channel results.
func (r *Router) TestAll(ctx context.Context) map[string]error {
	results := make(map[string]error, len(r.channels))
	for _, ch := range r.channels {
		text := fmt.Sprintf("🧪 Connection test - %s", time.Now().UTC().Format("15:04:05"))
		err := ch.Send(ctx, text, models.UrgencyInfo)
		results[ch.Name()] = err
		if err != nil {
			slog.Error("channel test failed", "channel", ch.Name(), "error", err)
		} else {
			slog.Info("channel test passed", "channel", ch.Name())
		}
	}
	return results
}

// Stats returns a copy of the routing counters.
func (r *Router) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{
		TotalSent:   r.sent,
		TotalFailed: r.failed,
		ByChannel:   make(map[string]DeliveryCount, len(r.byChannel)),
		ByUrgency:   make(map[string]DeliveryCount, len(r.byUrgency)),
	}
	for name, c := range r.byChannel {
		s.ByChannel[name] = *c
	}
	for urgency, c := range r.byUrgency {
		s.ByUrgency[string(urgency)] = *c
	}
	return s
}

// Close shuts down channels that hold background resources (queues,
// connections).
func (r *Router) Close() {
	for _, ch := range r.channels {
		closer, ok := ch.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			slog.Warn("failed to close notification channel", "channel", ch.Name(), "error", err)
		}
	}
}

func (r *Router) targetsFor(urgency models.Urgency) []Channel {
	if urgency == models.UrgencyUrgent || urgency == models.UrgencyImportant {
		return r.channels
	}
	var out []Channel
	for _, ch := range r.channels {
		if ch.LowNoise() {
			out = append(out, ch)
		}
	}
	return out
}

func (r *Router) record(channel string, urgency models.Urgency, err error) {
	metrics.RecordDelivery(channel, err)

	r.mu.Lock()
	defer r.mu.Unlock()
	byCh := r.byChannel[channel]
	if byCh == nil {
		byCh = &DeliveryCount{}
		r.byChannel[channel] = byCh
	}
	byUrg := r.byUrgency[urgency]
	if byUrg == nil {
		byUrg = &DeliveryCount{}
		r.byUrgency[urgency] = byUrg
	}
	if err != nil {
		r.failed++
		byCh.Failed++
		byUrg.Failed++
		return
	}
	r.sent++
	byCh.Sent++
	byUrg.Sent++
}
