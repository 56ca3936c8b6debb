package models

import (
	"fmt"
	"time"
)

// MatchStatus is the coarse lifecycle state reported by the upstream feed.
type MatchStatus string

const (
	MatchNotStarted MatchStatus = "NS"
	MatchLive       MatchStatus = "LIVE"
	MatchFinished   MatchStatus = "FT"
	MatchPostponed  MatchStatus = "PST"
	MatchCancelled  MatchStatus = "CANC"
	MatchUnknown    MatchStatus = "TBD"
)

// Match represents one scheduled fixture. Instances are replaced wholesale
// each monitoring cycle, never mutated in place.
type Match struct {
	ID       int64       `json:"id"`
	HomeTeam Team        `json:"home_team"`
	AwayTeam Team        `json:"away_team"`
	Kickoff  time.Time   `json:"kickoff"`
	Status   MatchStatus `json:"status"`
}

// Name returns the human-readable pairing, e.g. "Arsenal vs Chelsea".
func (m Match) Name() string {
	return fmt.Sprintf("%s vs %s", m.HomeTeam.Name, m.AwayTeam.Name)
}

// HasTeam reports whether the named team plays in this match.
func (m Match) HasTeam(team string) bool {
	return m.HomeTeam.Name == team || m.AwayTeam.Name == team
}

// Opponent returns the opposing team name for the given side, or "" when the
// team is not part of the match.
func (m Match) Opponent(team string) string {
	switch team {
	case m.HomeTeam.Name:
		return m.AwayTeam.Name
	case m.AwayTeam.Name:
		return m.HomeTeam.Name
	}
	return ""
}

// IsStarted reports whether the match is live or already over.
func (m Match) IsStarted() bool {
	return m.Status == MatchLive || m.Status == MatchFinished
}

// IsFinished reports whether no further lineup changes can matter: the match
// is over, called off, or postponed to a date the schedule will re-announce.
func (m Match) IsFinished() bool {
	return m.Status == MatchFinished || m.Status == MatchCancelled || m.Status == MatchPostponed
}
