package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/squadwatch/lineup-monitor/internal/pkg/models"
)

// Discord delivers alerts to a webhook as rich embeds.
type Discord struct {
	webhookURL string
	client     *http.Client
}

func NewDiscord(webhookURL string, timeout time.Duration) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
	}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) LowNoise() bool { return true }

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields,omitempty"`
	Footer      discordFooter  `json:"footer"`
	Timestamp   string         `json:"timestamp"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordFooter struct {
	Text string `json:"text"`
}

func (d *Discord) SendAlert(ctx context.Context, alert models.Alert) error {
	embed := discordEmbed{
		Title:       fmt.Sprintf("%s %s", alert.Emoji(), alertTitle(alert.Type)),
		Description: alert.Message,
		Color:       discordColor(alert.Urgency),
		Fields: []discordField{
			{
				Name:   "Player",
				Value:  fmt.Sprintf("**%s**\n%s", alert.Player.Name, alert.Player.Position),
				Inline: true,
			},
			{
				Name:   "Team",
				Value:  fmt.Sprintf("**%s**\n(%s)", alert.Player.Team.Name, alert.Player.Team.Abbreviation),
				Inline: true,
			},
			{
				Name:   "Match",
				Value:  fmt.Sprintf("**%s**\n🕐 %s UTC", alert.Match.Name(), alert.Match.Kickoff.Format("15:04")),
				Inline: true,
			},
		},
		Footer:    discordFooter{Text: "Lineup Monitor"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if alert.Player.AveragePoints > 0 {
		stats := fmt.Sprintf("**Avg Points:** %.1f\n**Total Points:** %.1f",
			alert.Player.AveragePoints, alert.Player.FantasyPoints)
		if alert.Player.GamesPlayed > 0 {
			stats += fmt.Sprintf("\n**Games:** %d", alert.Player.GamesPlayed)
		}
		embed.Fields = append(embed.Fields, discordField{Name: "Fantasy Stats", Value: stats, Inline: true})
	}

	return d.post(ctx, discordPayload{Embeds: []discordEmbed{embed}})
}

func (d *Discord) Send(ctx context.Context, text string, urgency models.Urgency) error {
	embed := discordEmbed{
		Title:       fmt.Sprintf("%s %s Update", urgencyEmoji(urgency), titleCase(string(urgency))),
		Description: text,
		Color:       discordColor(urgency),
		Footer:      discordFooter{Text: "Lineup Monitor"},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	return d.post(ctx, discordPayload{Embeds: []discordEmbed{embed}})
}

func (d *Discord) post(ctx context.Context, payload discordPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute discord webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// Discord returns 204 without ?wait=true, 200 with it.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	slog.Debug("discord message sent")
	return nil
}

func alertTitle(t models.AlertType) string {
	return titleCase(strings.ReplaceAll(string(t), "_", " "))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func discordColor(u models.Urgency) int {
	switch u {
	case models.UrgencyUrgent:
		return 0xff0000
	case models.UrgencyImportant:
		return 0xff9900
	case models.UrgencyWarning:
		return 0xffaa00
	}
	return 0x36a64f
}

func urgencyEmoji(u models.Urgency) string {
	switch u {
	case models.UrgencyUrgent:
		return "🚨"
	case models.UrgencyImportant:
		return "⚡"
	case models.UrgencyWarning:
		return "⚠️"
	}
	return "ℹ️"
}
