package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/squadwatch/lineup-monitor/internal/pkg/models"
)

// NATS publishes alerts as JSON to JetStream, one subject per urgency
// ({prefix}.{urgency}), for machine consumers. Low-noise: a stream does not
// mind confirmations.
type NATS struct {
	nc            *nats.Conn
	js            nats.JetStreamContext
	subjectPrefix string
}

// NewNATS connects, obtains a JetStream context and ensures the stream
// covering {prefix}.* exists.
func NewNATS(url, subjectPrefix, stream string) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get jetstream context: %w", err)
	}

	if _, err := js.StreamInfo(stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     stream,
			Subjects: []string{subjectPrefix + ".*"},
			Storage:  nats.FileStorage,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to create stream %s: %w", stream, err)
		}
	}

	slog.Info("nats channel initialized", "url", url, "stream", stream)
	return &NATS{nc: nc, js: js, subjectPrefix: subjectPrefix}, nil
}

func (n *NATS) Name() string { return "nats" }

func (n *NATS) LowNoise() bool { return true }

func (n *NATS) SendAlert(ctx context.Context, alert models.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	return n.publish(ctx, alert.Urgency, data)
}

func (n *NATS) Send(ctx context.Context, text string, urgency models.Urgency) error {
	data, err := json.Marshal(map[string]string{
		"message": text,
		"urgency": string(urgency),
		"sent_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return n.publish(ctx, urgency, data)
}

func (n *NATS) publish(ctx context.Context, urgency models.Urgency, data []byte) error {
	subject := fmt.Sprintf("%s.%s", n.subjectPrefix, urgency)
	if _, err := n.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	slog.Debug("alert published", "subject", subject, "size", len(data))
	return nil
}

func (n *NATS) Close() error {
	if n.nc != nil {
		slog.Info("closing nats connection")
		n.nc.Close()
	}
	return nil
}
