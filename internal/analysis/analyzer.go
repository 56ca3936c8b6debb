// Package analysis implements the pure stages of a monitoring cycle:
// comparing published lineups against roster expectations and rendering the
// resulting discrepancies into urgency-classified alerts.
package analysis

import (
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/squadwatch/lineup-monitor/internal/pkg/models"
)

// NameMatcher decides whether a roster name and a published lineup name
// refer to the same player.
type NameMatcher interface {
	Match(rosterName, lineupName string) bool
}

// ExactMatch compares names byte for byte. The roster and the upstream feed
// both use full latinized names, so this is the default.
type ExactMatch struct{}

func (ExactMatch) Match(rosterName, lineupName string) bool {
	return rosterName == lineupName
}

// FoldedMatch compares names case-insensitively with diacritics stripped,
// so "Dúbravka" and "Dubravka" match. Opt-in: it trades a little precision
// for tolerance of feed spelling drift.
type FoldedMatch struct{}

func (FoldedMatch) Match(rosterName, lineupName string) bool {
	return foldName(rosterName) == foldName(lineupName)
}

func foldName(s string) string {
	// The transform chain carries state, so it is built per call rather
	// than shared.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Analyzer compares a match's published lineups against the fantasy squad.
// It holds no per-match state: Analyze is a pure function of its arguments
// plus the matching policy chosen at construction.
type Analyzer struct {
	matcher NameMatcher
}

// NewAnalyzer builds an analyzer with the given matching policy. A nil
// matcher selects ExactMatch.
func NewAnalyzer(matcher NameMatcher) *Analyzer {
	if matcher == nil {
		matcher = ExactMatch{}
	}
	return &Analyzer{matcher: matcher}
}

// Analyze returns one Discrepancy per squad player whose team plays in the
// match, surprise or not; downstream decides what is alert-worthy. Players
// from uninvolved teams produce nothing.
func (a *Analyzer) Analyze(match models.Match, lineups models.MatchLineups, squad models.Squad) []models.Discrepancy {
	relevant := squad.PlayersForMatch(match)
	if len(relevant) == 0 {
		slog.Debug("no squad players in match", "match", match.Name())
		return nil
	}

	discrepancies := make([]models.Discrepancy, 0, len(relevant))
	for _, player := range relevant {
		lineup := sideFor(match, lineups, player.Team.Name)
		d := models.Discrepancy{
			Player:           player,
			Match:            match,
			ExpectedStarting: player.ExpectedStarting(),
			ActuallyStarting: a.inStartingXI(lineup, player.Name),
		}
		discrepancies = append(discrepancies, d)
		slog.Debug("player analyzed",
			"player", player.Name,
			"team", player.Team.Name,
			"expected_starting", d.ExpectedStarting,
			"actually_starting", d.ActuallyStarting)
	}
	return discrepancies
}

// sideFor picks the lineup for the side the team plays on. The upstream
// lineup payload carries no team names, so sides are resolved through the
// match, not the lineup labels.
func sideFor(match models.Match, lineups models.MatchLineups, team string) models.Lineup {
	switch team {
	case match.HomeTeam.Name:
		return lineups.Home
	case match.AwayTeam.Name:
		return lineups.Away
	}
	return models.Lineup{}
}

func (a *Analyzer) inStartingXI(lineup models.Lineup, player string) bool {
	for _, name := range lineup.StartingXI {
		if a.matcher.Match(player, name) {
			return true
		}
	}
	return false
}

// Summary counts one analysis pass by classification.
type Summary struct {
	Analyzed       int `json:"analyzed"`
	Benchings      int `json:"benchings"`
	SurpriseStarts int `json:"surprise_starts"`
	Confirmed      int `json:"confirmed"`
}

// Summary tallies discrepancies for cycle-level logging.
func (a *Analyzer) Summary(discrepancies []models.Discrepancy) Summary {
	s := Summary{Analyzed: len(discrepancies)}
	for _, d := range discrepancies {
		switch d.Classification() {
		case models.UnexpectedBenching:
			s.Benchings++
		case models.UnexpectedStarting:
			s.SurpriseStarts++
		default:
			s.Confirmed++
		}
	}
	return s
}
