package models

// Team identifies a club by its full name and the roster-file abbreviation.
type Team struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

// Position of a player on the pitch.
type Position string

const (
	Goalkeeper Position = "Goalkeeper"
	Defender   Position = "Defender"
	Midfielder Position = "Midfielder"
	Forward    Position = "Forward"
)

// PlayerStatus is the fantasy-roster slot: Act means the player is expected
// to start, Res means benched.
type PlayerStatus string

const (
	StatusActive  PlayerStatus = "Act"
	StatusReserve PlayerStatus = "Res"
)

// Player is one roster entry plus the fantasy metadata carried by the
// roster export. Immutable for the lifetime of a run once loaded.
type Player struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Team          Team         `json:"team"`
	Position      Position     `json:"position"`
	Status        PlayerStatus `json:"status"`
	FantasyPoints float64      `json:"fantasy_points"`
	AveragePoints float64      `json:"average_points"`
	Age           int          `json:"age,omitempty"`
	Opponent      string       `json:"opponent,omitempty"`
	GamesPlayed   int          `json:"games_played,omitempty"`
	DraftPercent  string       `json:"draft_percentage,omitempty"`
	AvgDraftPos   string       `json:"average_draft_position,omitempty"`
}

// ExpectedStarting reports whether the roster expects this player in the
// starting XI.
func (p Player) ExpectedStarting() bool {
	return p.Status == StatusActive
}

// Squad is the full fantasy roster for one run.
type Squad struct {
	Players []Player `json:"players"`
}

// ActiveCount returns the number of players expected to start.
func (s Squad) ActiveCount() int {
	n := 0
	for _, p := range s.Players {
		if p.ExpectedStarting() {
			n++
		}
	}
	return n
}

// ReserveCount returns the number of bench players.
func (s Squad) ReserveCount() int {
	return len(s.Players) - s.ActiveCount()
}

// Teams returns the distinct team names represented in the squad, in first
// appearance order.
func (s Squad) Teams() []string {
	seen := make(map[string]bool, len(s.Players))
	var teams []string
	for _, p := range s.Players {
		if !seen[p.Team.Name] {
			seen[p.Team.Name] = true
			teams = append(teams, p.Team.Name)
		}
	}
	return teams
}

// PlayersForMatch returns the squad players whose team plays in the match.
func (s Squad) PlayersForMatch(m Match) []Player {
	var out []Player
	for _, p := range s.Players {
		if m.HasTeam(p.Team.Name) {
			out = append(out, p)
		}
	}
	return out
}
