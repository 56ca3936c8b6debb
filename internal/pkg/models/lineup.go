package models

// Lineup is the published selection for one team in one match: the starting
// XI in announcement order plus the bench. Immutable value, never merged
// with an earlier snapshot.
type Lineup struct {
	Team        string   `json:"team"`
	StartingXI  []string `json:"starting_xi"`
	Substitutes []string `json:"substitutes"`
}

// Starting reports whether the named player is in the starting XI.
func (l Lineup) Starting(player string) bool {
	for _, name := range l.StartingXI {
		if name == player {
			return true
		}
	}
	return false
}

// MatchLineups pairs both sides' published lineups for a match.
type MatchLineups struct {
	Home Lineup `json:"home"`
	Away Lineup `json:"away"`
}

// ForTeam returns the side matching the team name, comma-ok.
func (ml MatchLineups) ForTeam(team string) (Lineup, bool) {
	if ml.Home.Team == team {
		return ml.Home, true
	}
	if ml.Away.Team == team {
		return ml.Away, true
	}
	return Lineup{}, false
}
