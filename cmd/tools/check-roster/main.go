// Command check-roster validates a roster CSV and prints a short summary.
// Run it after editing the roster export to catch format mistakes before
// the monitor does.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/squadwatch/lineup-monitor/internal/pkg/models"
	"github.com/squadwatch/lineup-monitor/internal/roster"
)

func main() {
	if err := run(); err != nil {
		slog.Error("roster check failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	rosterPath := flag.String("roster", "my_roster.csv", "Path to roster CSV")
	flag.Parse()

	squad, err := roster.Load(*rosterPath)
	if err != nil {
		return err
	}

	fmt.Printf("✅ Roster OK: %d players (%d active, %d reserve)\n",
		len(squad.Players), squad.ActiveCount(), squad.ReserveCount())

	byTeam := make(map[string]int)
	byPosition := make(map[models.Position]int)
	for _, p := range squad.Players {
		byTeam[p.Team.Name]++
		byPosition[p.Position]++
	}

	fmt.Println("\nBy team:")
	teams := make([]string, 0, len(byTeam))
	for t := range byTeam {
		teams = append(teams, t)
	}
	sort.Strings(teams)
	for _, t := range teams {
		fmt.Printf("  %-20s %d\n", t, byTeam[t])
	}

	fmt.Println("\nBy position:")
	for _, pos := range []models.Position{models.Goalkeeper, models.Defender, models.Midfielder, models.Forward} {
		if n := byPosition[pos]; n > 0 {
			fmt.Printf("  %-12s %d\n", pos, n)
		}
	}
	return nil
}
