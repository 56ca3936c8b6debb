package analysis

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/squadwatch/lineup-monitor/internal/pkg/models"
)

// Generator renders discrepancies into alerts ready for routing. Surprises
// become urgent or important alerts with a full context block; confirmed
// expectations become a one-line info notice.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate produces one alert per discrepancy.
func (g *Generator) Generate(discrepancies []models.Discrepancy) []models.Alert {
	alerts := make([]models.Alert, 0, len(discrepancies))
	for _, d := range discrepancies {
		alerts = append(alerts, g.alertFor(d))
	}
	if len(alerts) > 0 {
		slog.Debug("alerts generated", "count", len(alerts))
	}
	return alerts
}

func (g *Generator) alertFor(d models.Discrepancy) models.Alert {
	alertType := d.Classification()
	return models.Alert{
		ID:        uuid.NewString(),
		Player:    d.Player,
		Match:     d.Match,
		Type:      alertType,
		Urgency:   urgencyFor(alertType),
		Message:   renderMessage(d),
		Context:   contextFor(d),
		CreatedAt: time.Now().UTC(),
	}
}

// urgencyFor maps classification to routing urgency: a benched starter is
// the emergency, a surprise starter is actionable, a confirmation is noise
// unless asked for.
func urgencyFor(t models.AlertType) models.Urgency {
	switch t {
	case models.UnexpectedBenching:
		return models.UrgencyUrgent
	case models.UnexpectedStarting:
		return models.UrgencyImportant
	}
	return models.UrgencyInfo
}

func renderMessage(d models.Discrepancy) string {
	switch d.Classification() {
	case models.UnexpectedBenching:
		return renderBenching(d)
	case models.UnexpectedStarting:
		return renderSurpriseStart(d)
	}
	return renderConfirmation(d)
}

func renderBenching(d models.Discrepancy) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 **%s** BENCHED!\n\n", d.Player.Name)
	fmt.Fprintf(&b, "**Team:** %s\n", d.Player.Team.Name)
	fmt.Fprintf(&b, "**Position:** %s\n", d.Player.Position)
	fmt.Fprintf(&b, "**Match:** %s\n", d.Match.Name())
	fmt.Fprintf(&b, "**Kickoff:** %s\n", d.Match.Kickoff.Format("15:04"))
	fmt.Fprintf(&b, "**Games Played:** %s\n\n", orNA(strconv.Itoa(d.Player.GamesPlayed), d.Player.GamesPlayed > 0))
	b.WriteString("⚠️ You may want to update your lineup!")
	return b.String()
}

func renderSurpriseStart(d models.Discrepancy) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚡ **%s** STARTING!\n\n", d.Player.Name)
	fmt.Fprintf(&b, "**Team:** %s\n", d.Player.Team.Name)
	fmt.Fprintf(&b, "**Position:** %s\n", d.Player.Position)
	fmt.Fprintf(&b, "**Match:** %s\n", d.Match.Name())
	fmt.Fprintf(&b, "**Kickoff:** %s\n", d.Match.Kickoff.Format("15:04"))
	fmt.Fprintf(&b, "**Draft %%:** %s%%\n\n", orNA(d.Player.DraftPercent, d.Player.DraftPercent != ""))
	b.WriteString("💡 Consider moving to starting XI!")
	return b.String()
}

func renderConfirmation(d models.Discrepancy) string {
	if d.ExpectedStarting && d.ActuallyStarting {
		return fmt.Sprintf("✅ %s confirmed starting for %s vs %s",
			d.Player.Name, d.Player.Team.Name, d.Match.Opponent(d.Player.Team.Name))
	}
	return fmt.Sprintf("✅ %s lineup status as expected (%s)", d.Player.Name, d.Player.Team.Name)
}

func orNA(value string, ok bool) string {
	if ok {
		return value
	}
	return "N/A"
}

func contextFor(d models.Discrepancy) map[string]string {
	return map[string]string{
		"player_id":         d.Player.ID,
		"team_abbreviation": d.Player.Team.Abbreviation,
		"match_id":          strconv.FormatInt(d.Match.ID, 10),
		"kickoff":           d.Match.Kickoff.Format(time.RFC3339),
		"expected_starting": strconv.FormatBool(d.ExpectedStarting),
		"actually_starting": strconv.FormatBool(d.ActuallyStarting),
	}
}

// FilterByUrgency keeps alerts at or above the given urgency.
func FilterByUrgency(alerts []models.Alert, min models.Urgency) []models.Alert {
	var out []models.Alert
	for _, a := range alerts {
		if a.Urgency.Rank() >= min.Rank() {
			out = append(out, a)
		}
	}
	return out
}

// GroupByTeam buckets alerts by the player's team name.
func GroupByTeam(alerts []models.Alert) map[string][]models.Alert {
	grouped := make(map[string][]models.Alert)
	for _, a := range alerts {
		grouped[a.Player.Team.Name] = append(grouped[a.Player.Team.Name], a)
	}
	return grouped
}

// AlertSummary counts one batch of alerts by urgency and type.
type AlertSummary struct {
	Total          int `json:"total"`
	Urgent         int `json:"urgent"`
	Important      int `json:"important"`
	Warning        int `json:"warning"`
	Info           int `json:"info"`
	Benchings      int `json:"benchings"`
	SurpriseStarts int `json:"surprise_starts"`
	Confirmations  int `json:"confirmations"`
}

func Summarize(alerts []models.Alert) AlertSummary {
	s := AlertSummary{Total: len(alerts)}
	for _, a := range alerts {
		switch a.Urgency {
		case models.UrgencyUrgent:
			s.Urgent++
		case models.UrgencyImportant:
			s.Important++
		case models.UrgencyWarning:
			s.Warning++
		case models.UrgencyInfo:
			s.Info++
		}
		switch a.Type {
		case models.UnexpectedBenching:
			s.Benchings++
		case models.UnexpectedStarting:
			s.SurpriseStarts++
		case models.LineupConfirmed:
			s.Confirmations++
		}
	}
	return s
}
