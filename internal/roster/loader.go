// Package roster loads the fantasy squad from a Fantrax CSV export.
//
// The export is not a plain CSV table: it interleaves section banners
// ("Goalkeeper", "Outfielder"), per-section column header rows and player
// rows, and the two sections carry different column sets. Parsing is done
// line by line so one malformed row never discards the rest of the file.
package roster

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/squadwatch/lineup-monitor/internal/pkg/models"
	"github.com/squadwatch/lineup-monitor/internal/pkg/teams"
)

// Column names as they appear in the Fantrax export header rows.
const (
	colID          = "ID"
	colName        = "Player"
	colTeam        = "Team"
	colPos         = "Pos"
	colStatus      = "Status"
	colAge         = "Age"
	colOpponent    = "Opponent"
	colPoints      = "Fantasy Points"
	colAvgPoints   = "Average Fantasy Points per Game"
	colGamesPlayed = "GP"
	colDraftPct    = "% of leagues in which player was drafted"
	colAvgDraftPos = "Average draft position among all leagues on Fantrax"
)

// Load reads a Fantrax CSV export and returns the parsed squad. A squad with
// zero valid players is an error: a monitor with nobody to watch is a
// misconfiguration, not a quiet day.
func Load(path string) (models.Squad, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Squad{}, fmt.Errorf("failed to open roster file: %w", err)
	}
	defer f.Close()

	players, err := parse(f)
	if err != nil {
		return models.Squad{}, fmt.Errorf("failed to parse roster file %s: %w", path, err)
	}
	if len(players) == 0 {
		return models.Squad{}, fmt.Errorf("no valid players found in roster file %s", path)
	}

	squad := models.Squad{Players: players}
	slog.Info("roster loaded",
		"path", path,
		"players", len(squad.Players),
		"active", squad.ActiveCount(),
		"reserve", squad.ReserveCount(),
		"teams", len(squad.Teams()))
	return squad, nil
}

// parse walks the export line by line. Section banners look like
// ("","Goalkeeper"), header rows start with "ID", player rows have an ID
// wrapped in asterisks. Anything else is ignored.
func parse(r io.Reader) ([]models.Player, error) {
	var (
		players []models.Player
		section string
		headers []string
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		row, err := splitRow(line)
		if err != nil {
			slog.Warn("skipping unparseable roster line", "line", lineNum, "error", err)
			continue
		}
		if len(row) == 0 {
			continue
		}

		switch {
		case len(row) >= 2 && (row[1] == "Goalkeeper" || row[1] == "Outfielder"):
			section = row[1]
			headers = nil
		case row[0] == colID:
			headers = row
		case strings.HasPrefix(row[0], "*") && len(headers) > 0 && section != "":
			p, ok := playerFromRow(row, headers, section, lineNum)
			if ok {
				players = append(players, p)
				slog.Debug("roster player parsed", "player", p.Name, "team", p.Team.Name)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read roster lines: %w", err)
	}
	return players, nil
}

// splitRow parses a single physical line as one CSV record.
func splitRow(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	return r.Read()
}

// playerFromRow maps a player row onto the current section's headers. Rows
// missing id, name or team are skipped with a warning rather than failing
// the whole load.
func playerFromRow(row, headers []string, section string, lineNum int) (models.Player, bool) {
	fields := make(map[string]string, len(headers))
	for i, h := range headers {
		if i < len(row) {
			fields[h] = row[i]
		} else {
			fields[h] = ""
		}
	}

	id := strings.TrimSpace(fields[colID])
	name := strings.TrimSpace(fields[colName])
	abbr := strings.TrimSpace(fields[colTeam])
	if id == "" || name == "" || abbr == "" {
		slog.Warn("skipping roster row with missing essential fields", "line", lineNum)
		return models.Player{}, false
	}

	return models.Player{
		ID:   id,
		Name: name,
		Team: models.Team{
			Name:         teams.FullName(abbr),
			Abbreviation: abbr,
		},
		Position:      positionFor(fields[colPos], section),
		Status:        statusFor(fields[colStatus]),
		FantasyPoints: parseFloat(fields[colPoints]),
		AveragePoints: parseFloat(fields[colAvgPoints]),
		Age:           parseInt(fields[colAge]),
		Opponent:      strings.TrimSpace(fields[colOpponent]),
		GamesPlayed:   parseInt(fields[colGamesPlayed]),
		DraftPercent:  strings.TrimSpace(fields[colDraftPct]),
		AvgDraftPos:   strings.TrimSpace(fields[colAvgDraftPos]),
	}, true
}

// positionFor resolves the Pos code, falling back to the section the row
// appeared under. Outfielders without a code default to midfielder.
func positionFor(code, section string) models.Position {
	switch strings.TrimSpace(code) {
	case "G":
		return models.Goalkeeper
	case "D":
		return models.Defender
	case "M":
		return models.Midfielder
	case "F":
		return models.Forward
	}
	if section == "Goalkeeper" {
		return models.Goalkeeper
	}
	return models.Midfielder
}

// statusFor treats anything that is not Act as a bench slot.
func statusFor(s string) models.PlayerStatus {
	if strings.EqualFold(strings.TrimSpace(s), "Act") {
		return models.StatusActive
	}
	return models.StatusReserve
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}
