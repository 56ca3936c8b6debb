package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/squadwatch/lineup-monitor/internal/pkg/models"
)

type fakeChannel struct {
	name     string
	lowNoise bool
	fail     bool

	mu     sync.Mutex
	alerts []models.Alert
	texts  []string
	closed bool
}

func (f *fakeChannel) Name() string   { return f.name }
func (f *fakeChannel) LowNoise() bool { return f.lowNoise }

func (f *fakeChannel) SendAlert(ctx context.Context, alert models.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	if f.fail {
		return errors.New("channel down")
	}
	return nil
}

func (f *fakeChannel) Send(ctx context.Context, text string, urgency models.Urgency) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	if f.fail {
		return errors.New("channel down")
	}
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts) + len(f.texts)
}

func urgentAlert() models.Alert {
	return models.Alert{
		ID:      "a-1",
		Player:  models.Player{Name: "Mohamed Salah", Team: models.Team{Name: "Liverpool"}},
		Type:    models.UnexpectedBenching,
		Urgency: models.UrgencyUrgent,
		Message: "benched",
	}
}

func TestRouterBroadcastsUrgentToAllChannels(t *testing.T) {
	chat := &fakeChannel{name: "chat", lowNoise: true}
	mail := &fakeChannel{name: "mail", lowNoise: false}
	r := NewRouter(chat, mail)

	if !r.SendAlert(context.Background(), urgentAlert()) {
		t.Fatal("expected delivery to succeed")
	}
	if chat.attempts() != 1 || mail.attempts() != 1 {
		t.Errorf("expected 1 attempt per channel, got chat=%d mail=%d", chat.attempts(), mail.attempts())
	}
}

func TestRouterPartialFailureIsStillSuccess(t *testing.T) {
	good := &fakeChannel{name: "good", lowNoise: true}
	bad := &fakeChannel{name: "bad", lowNoise: true, fail: true}
	r := NewRouter(good, bad)

	if !r.SendAlert(context.Background(), urgentAlert()) {
		t.Fatal("expected one good channel to carry the alert")
	}
	if good.attempts() != 1 || bad.attempts() != 1 {
		t.Errorf("expected both channels attempted, got good=%d bad=%d", good.attempts(), bad.attempts())
	}

	s := r.Stats()
	if s.TotalSent != 1 || s.TotalFailed != 1 {
		t.Errorf("expected sent=1 failed=1, got %+v", s)
	}
	if s.ByChannel["bad"].Failed != 1 || s.ByChannel["good"].Sent != 1 {
		t.Errorf("unexpected per-channel stats: %+v", s.ByChannel)
	}
	if s.ByUrgency["urgent"].Sent != 1 || s.ByUrgency["urgent"].Failed != 1 {
		t.Errorf("unexpected per-urgency stats: %+v", s.ByUrgency)
	}
}

func TestRouterAllChannelsFailing(t *testing.T) {
	r := NewRouter(
		&fakeChannel{name: "a", lowNoise: true, fail: true},
		&fakeChannel{name: "b", lowNoise: true, fail: true},
	)
	if r.SendAlert(context.Background(), urgentAlert()) {
		t.Error("expected failure when every channel fails")
	}
}

func TestRouterInfoSkipsNoisySensitiveChannels(t *testing.T) {
	chat := &fakeChannel{name: "chat", lowNoise: true}
	mail := &fakeChannel{name: "mail", lowNoise: false}
	r := NewRouter(chat, mail)

	alert := urgentAlert()
	alert.Urgency = models.UrgencyInfo
	alert.Type = models.LineupConfirmed

	if !r.SendAlert(context.Background(), alert) {
		t.Fatal("expected info alert to reach the low-noise channel")
	}
	if chat.attempts() != 1 {
		t.Errorf("expected 1 chat attempt, got %d", chat.attempts())
	}
	if mail.attempts() != 0 {
		t.Errorf("expected email untouched by info alert, got %d attempts", mail.attempts())
	}
}

func TestRouterInfoWithNoLowNoiseChannels(t *testing.T) {
	mail := &fakeChannel{name: "mail", lowNoise: false}
	r := NewRouter(mail)

	if r.Send(context.Background(), "cycle complete", models.UrgencyInfo) {
		t.Error("expected log-only degradation without low-noise channels")
	}
	if mail.attempts() != 0 {
		t.Errorf("expected no attempts, got %d", mail.attempts())
	}
}

func TestRouterWithoutChannels(t *testing.T) {
	r := NewRouter()
	if r.SendAlert(context.Background(), urgentAlert()) {
		t.Error("expected log-only failure without channels")
	}
	if r.Send(context.Background(), "hello", models.UrgencyUrgent) {
		t.Error("expected log-only failure without channels")
	}
}

func TestRouterSendRoutesWarnings(t *testing.T) {
	chat := &fakeChannel{name: "chat", lowNoise: true}
	mail := &fakeChannel{name: "mail", lowNoise: false}
	r := NewRouter(chat, mail)

	if !r.Send(context.Background(), "lineups still unpublished", models.UrgencyWarning) {
		t.Fatal("expected warning delivery to succeed")
	}
	if chat.attempts() != 1 || mail.attempts() != 0 {
		t.Errorf("warning should reach only low-noise channels, got chat=%d mail=%d", chat.attempts(), mail.attempts())
	}
}

func TestRouterTestAllBypassesRouting(t *testing.T) {
	chat := &fakeChannel{name: "chat", lowNoise: true}
	mail := &fakeChannel{name: "mail", lowNoise: false, fail: true}
	r := NewRouter(chat, mail)

	results := r.TestAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results["chat"] != nil {
		t.Errorf("expected chat test to pass, got %v", results["chat"])
	}
	if results["mail"] == nil {
		t.Error("expected mail test to fail")
	}
	if mail.attempts() != 1 {
		t.Errorf("expected test message to bypass urgency routing, got %d attempts", mail.attempts())
	}
}

func TestRouterCloseClosesChannels(t *testing.T) {
	chat := &fakeChannel{name: "chat", lowNoise: true}
	r := NewRouter(chat)
	r.Close()
	if !chat.closed {
		t.Error("expected channel to be closed")
	}
}

func TestRouterChannelNames(t *testing.T) {
	r := NewRouter(
		&fakeChannel{name: "telegram", lowNoise: true},
		&fakeChannel{name: "nats", lowNoise: true},
	)
	names := r.ChannelNames()
	if len(names) != 2 || names[0] != "telegram" || names[1] != "nats" {
		t.Errorf("unexpected channel names: %v", names)
	}
}
