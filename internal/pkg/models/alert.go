package models

import "time"

// AlertType classifies a lineup discrepancy.
type AlertType string

const (
	UnexpectedBenching AlertType = "unexpected_benching"
	UnexpectedStarting AlertType = "unexpected_starting"
	LineupConfirmed    AlertType = "lineup_confirmed"
)

// Urgency controls notification routing: urgent and important go to every
// channel, info and warning only to low-noise channels.
type Urgency string

const (
	UrgencyUrgent    Urgency = "urgent"
	UrgencyImportant Urgency = "important"
	UrgencyWarning   Urgency = "warning"
	UrgencyInfo      Urgency = "info"
)

// Rank orders urgencies for filtering: info < warning < important < urgent.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyWarning:
		return 1
	case UrgencyImportant:
		return 2
	case UrgencyUrgent:
		return 3
	}
	return 0
}

// Discrepancy records how one roster player's expectation compares to the
// published lineup of one match. One per (player, match, cycle).
type Discrepancy struct {
	Player           Player `json:"player"`
	Match            Match  `json:"match"`
	ExpectedStarting bool   `json:"expected_starting"`
	ActuallyStarting bool   `json:"actually_starting"`
}

// Classification derives the alert type. Pure function of the two flags.
func (d Discrepancy) Classification() AlertType {
	switch {
	case d.ExpectedStarting && !d.ActuallyStarting:
		return UnexpectedBenching
	case !d.ExpectedStarting && d.ActuallyStarting:
		return UnexpectedStarting
	}
	return LineupConfirmed
}

// IsSurprise reports whether the discrepancy diverges from expectation.
func (d Discrepancy) IsSurprise() bool {
	return d.Classification() != LineupConfirmed
}

// Alert is a rendered, urgency-classified notification about one player in
// one match.
type Alert struct {
	ID        string            `json:"id"`
	Player    Player            `json:"player"`
	Match     Match             `json:"match"`
	Type      AlertType         `json:"type"`
	Urgency   Urgency           `json:"urgency"`
	Message   string            `json:"message"`
	Context   map[string]string `json:"context,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Emoji returns the marker used when rendering the alert in chat channels.
func (a Alert) Emoji() string {
	switch a.Type {
	case UnexpectedBenching:
		return "🚨"
	case UnexpectedStarting:
		return "⚡"
	case LineupConfirmed:
		return "✅"
	}
	return "📋"
}
