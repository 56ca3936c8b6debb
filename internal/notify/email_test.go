package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/squadwatch/lineup-monitor/internal/pkg/models"
)

func TestEmailIsNotLowNoise(t *testing.T) {
	e := NewEmail("smtp.example.com", 587, "bot@example.com", "secret", "Lineup Monitor", "me@example.com", 30*time.Second)
	if e.Name() != "email" {
		t.Errorf("unexpected name %q", e.Name())
	}
	if e.LowNoise() {
		t.Error("email must not receive info traffic")
	}
}

func TestAlertSubject(t *testing.T) {
	a := benchingAlert()
	if got := alertSubject(a); got != "🚨 Mohamed Salah BENCHED!" {
		t.Errorf("unexpected subject %q", got)
	}

	a.Type = models.UnexpectedStarting
	a.Urgency = models.UrgencyImportant
	if got := alertSubject(a); got != "⚡ Mohamed Salah STARTING!" {
		t.Errorf("unexpected subject %q", got)
	}

	a.Type = models.LineupConfirmed
	a.Urgency = models.UrgencyInfo
	if got := alertSubject(a); got != "ℹ️ Lineup Update: Mohamed Salah" {
		t.Errorf("unexpected subject %q", got)
	}
}

func TestAlertHTML(t *testing.T) {
	a := benchingAlert()
	a.Player.DraftPercent = "98"
	html := alertHTML(a)

	for _, want := range []string{
		"Mohamed Salah",
		"Liverpool (LIV)",
		"Liverpool vs Arsenal",
		"#ff0000",
		"Games Played:</strong> 20",
		"Draft Percentage:</strong> 98%",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("alert html missing %q", want)
		}
	}
}

func TestMessageHTMLConvertsnewlines(t *testing.T) {
	html := messageHTML("line one\nline two", models.UrgencyWarning)
	if !strings.Contains(html, "line one<br>line two") {
		t.Error("expected newlines converted to <br>")
	}
	if !strings.Contains(html, "#ffaa00") {
		t.Error("expected warning color")
	}
}

func TestEmailMessageFraming(t *testing.T) {
	e := NewEmail("smtp.example.com", 587, "bot@example.com", "secret", "Lineup Monitor", "me@example.com", time.Second)
	msg := string(e.message("Test Subject", "<html></html>"))

	for _, want := range []string{
		"From: Lineup Monitor <bot@example.com>\r\n",
		"To: me@example.com\r\n",
		"Subject: Test Subject\r\n",
		"Content-Type: text/html; charset=\"UTF-8\"\r\n",
		"\r\n\r\n<html></html>",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q in:\n%s", want, msg)
		}
	}
}
