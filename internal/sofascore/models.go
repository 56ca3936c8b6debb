package sofascore

import (
	"sort"
	"strings"
	"time"

	"github.com/squadwatch/lineup-monitor/internal/pkg/models"
	"github.com/squadwatch/lineup-monitor/internal/pkg/teams"
)

type scheduledEventsResponse struct {
	Events []eventDTO `json:"events"`
}

type eventDTO struct {
	ID             int64         `json:"id"`
	Tournament     tournamentDTO `json:"tournament"`
	HomeTeam       teamDTO       `json:"homeTeam"`
	AwayTeam       teamDTO       `json:"awayTeam"`
	StartTimestamp int64         `json:"startTimestamp"`
	Status         statusDTO     `json:"status"`
}

type tournamentDTO struct {
	ID int64 `json:"id"`
}

type teamDTO struct {
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
}

type statusDTO struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
}

type lineupsResponse struct {
	Confirmed bool          `json:"confirmed"`
	Home      sideLineupDTO `json:"home"`
	Away      sideLineupDTO `json:"away"`
}

type sideLineupDTO struct {
	Players []lineupPlayerDTO `json:"players"`
}

type lineupPlayerDTO struct {
	Player     playerDTO `json:"player"`
	Substitute bool      `json:"substitute"`
}

type playerDTO struct {
	Name     string `json:"name"`
	Position string `json:"position"`
}

func (e eventDTO) toMatch() models.Match {
	return models.Match{
		ID: e.ID,
		HomeTeam: models.Team{
			Name:         teams.Normalize(e.HomeTeam.Name),
			Abbreviation: e.HomeTeam.ShortName,
		},
		AwayTeam: models.Team{
			Name:         teams.Normalize(e.AwayTeam.Name),
			Abbreviation: e.AwayTeam.ShortName,
		},
		Kickoff: time.Unix(e.StartTimestamp, 0).UTC(),
		Status:  e.Status.toStatus(),
	}
}

// toStatus maps the upstream status vocabulary: well-known numeric codes are
// authoritative, the description catches variants.
func (s statusDTO) toStatus() models.MatchStatus {
	desc := strings.ToLower(s.Description)
	switch {
	case s.Code == 0 || strings.Contains(desc, "not started"):
		return models.MatchNotStarted
	case s.Code == 100 || strings.Contains(desc, "finished"):
		return models.MatchFinished
	case s.Code == 6 || s.Code == 7 || strings.Contains(desc, "live") || strings.Contains(desc, "progress"):
		return models.MatchLive
	case strings.Contains(desc, "postponed"):
		return models.MatchPostponed
	case strings.Contains(desc, "cancelled"):
		return models.MatchCancelled
	}
	return models.MatchUnknown
}

// eventsToMatches filters one day's schedule down to the configured
// tournament and orders the result by kickoff.
func eventsToMatches(events []eventDTO, tournamentID int64) []models.Match {
	matches := make([]models.Match, 0, len(events))
	for _, e := range events {
		if e.Tournament.ID != tournamentID {
			continue
		}
		matches = append(matches, e.toMatch())
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Kickoff.Equal(matches[j].Kickoff) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Kickoff.Before(matches[j].Kickoff)
	})
	return matches
}

func (r lineupsResponse) toLineups() models.MatchLineups {
	return models.MatchLineups{
		Home: r.Home.toLineup(),
		Away: r.Away.toLineup(),
	}
}

func (s sideLineupDTO) toLineup() models.Lineup {
	var lineup models.Lineup
	for _, p := range s.Players {
		if p.Player.Name == "" {
			continue
		}
		if p.Substitute {
			lineup.Substitutes = append(lineup.Substitutes, p.Player.Name)
		} else {
			lineup.StartingXI = append(lineup.StartingXI, p.Player.Name)
		}
	}
	return lineup
}
