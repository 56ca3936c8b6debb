package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/squadwatch/lineup-monitor/internal/monitor"
	"github.com/squadwatch/lineup-monitor/internal/pkg/config"
	"github.com/squadwatch/lineup-monitor/internal/pkg/models"
)

func testSnapshot() monitor.Snapshot {
	kickoff := time.Date(2025, 3, 8, 17, 30, 0, 0, time.UTC)
	return monitor.Snapshot{
		Squad: models.Squad{Players: []models.Player{
			{
				ID:     "*05rjo*",
				Name:   "Mohamed Salah",
				Team:   models.Team{Name: "Liverpool", Abbreviation: "LIV"},
				Status: models.StatusActive,
			},
			{
				ID:     "*0adf1*",
				Name:   "Declan Rice",
				Team:   models.Team{Name: "Arsenal", Abbreviation: "ARS"},
				Status: models.StatusReserve,
			},
		}},
		Matches: []monitor.WatchedMatch{{
			Match: models.Match{
				ID:       9001,
				HomeTeam: models.Team{Name: "Liverpool", Abbreviation: "LIV"},
				AwayTeam: models.Team{Name: "Arsenal", Abbreviation: "ARS"},
				Kickoff:  kickoff,
				Status:   models.MatchNotStarted,
			},
			Priority:     2,
			SquadPlayers: 2,
			LineupFound:  true,
			AlertsSent:   1,
		}},
		Status: monitor.Status{
			Running:         true,
			WatchedMatches:  1,
			TotalChecks:     10,
			SuccessRate:     100,
			CyclesToday:     4,
			MaxCyclesPerDay: 200,
			SquadSize:       2,
		},
	}
}

func readDoc(t *testing.T, dir, name string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal %s: %v", name, err)
	}
	return doc
}

func TestWriteProducesAllArtifacts(t *testing.T) {
	dir := t.TempDir()
	exp, err := New(config.ExportConfig{Directory: dir, Interval: 5 * time.Minute})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := exp.Write(testSnapshot()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	squad := readDoc(t, dir, "squad.json")
	if squad["total_players"].(float64) != 2 {
		t.Errorf("total_players = %v, want 2", squad["total_players"])
	}
	if squad["active_players"].(float64) != 1 || squad["reserve_players"].(float64) != 1 {
		t.Errorf("active/reserve = %v/%v, want 1/1",
			squad["active_players"], squad["reserve_players"])
	}
	teams := squad["teams_represented"].([]any)
	if len(teams) != 2 {
		t.Errorf("teams_represented = %v, want 2 teams", teams)
	}

	matches := readDoc(t, dir, "matches.json")
	if matches["total_matches"].(float64) != 1 {
		t.Errorf("total_matches = %v, want 1", matches["total_matches"])
	}
	entry := matches["matches"].([]any)[0].(map[string]any)
	if entry["priority"].(float64) != 2 || entry["alerts_sent"].(float64) != 1 {
		t.Errorf("watched match entry = %v", entry)
	}
	if !entry["lineup_found"].(bool) {
		t.Error("lineup_found lost in export")
	}

	status := readDoc(t, dir, "status.json")
	mon := status["monitoring"].(map[string]any)
	if mon["running"].(bool) != true || mon["cycles_today"].(float64) != 4 {
		t.Errorf("monitoring status = %v", mon)
	}
	if status["generated_at"].(string) == "" {
		t.Error("generated_at missing")
	}

	meta := readDoc(t, dir, "metadata.json")
	if meta["format_version"].(string) != "1.0" {
		t.Errorf("format_version = %v", meta["format_version"])
	}
	files := meta["data_files"].(map[string]any)
	for _, key := range []string{"squad", "matches", "status"} {
		if _, ok := files[key]; !ok {
			t.Errorf("data_files missing %s", key)
		}
	}
	refresh := meta["refresh_info"].(map[string]any)
	if refresh["refresh_interval_seconds"].(float64) != 300 {
		t.Errorf("refresh_interval_seconds = %v, want 300", refresh["refresh_interval_seconds"])
	}
}

func TestExportSnapshotThrottles(t *testing.T) {
	dir := t.TempDir()
	exp, err := New(config.ExportConfig{Directory: dir, Interval: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if err := exp.ExportSnapshot(ctx, testSnapshot()); err != nil {
		t.Fatalf("first ExportSnapshot: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "squad.json")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	// Inside the interval nothing is written back.
	if err := exp.ExportSnapshot(ctx, testSnapshot()); err != nil {
		t.Fatalf("second ExportSnapshot: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "squad.json")); !os.IsNotExist(err) {
		t.Error("throttled export still wrote files")
	}

	// Write bypasses the throttle.
	if err := exp.Write(testSnapshot()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "squad.json")); err != nil {
		t.Errorf("forced write missing squad.json: %v", err)
	}
}

func TestExportSnapshotZeroIntervalAlwaysWrites(t *testing.T) {
	dir := t.TempDir()
	exp, err := New(config.ExportConfig{Directory: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := exp.ExportSnapshot(ctx, testSnapshot()); err != nil {
			t.Fatalf("ExportSnapshot #%d: %v", i+1, err)
		}
		if err := os.Remove(filepath.Join(dir, "metadata.json")); err != nil {
			t.Fatalf("metadata.json not written on call #%d: %v", i+1, err)
		}
	}
}

func TestExportSnapshotHonorsContext(t *testing.T) {
	dir := t.TempDir()
	exp, err := New(config.ExportConfig{Directory: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := exp.ExportSnapshot(ctx, testSnapshot()); err == nil {
		t.Error("expected error for canceled context")
	}
	if _, err := os.Stat(filepath.Join(dir, "squad.json")); !os.IsNotExist(err) {
		t.Error("canceled export still wrote files")
	}
}

func TestNewCreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dashboard", "data")
	if _, err := New(config.ExportConfig{Directory: dir}); err != nil {
		t.Fatalf("New: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("export directory not created: %v", err)
	}
}

func TestWriteOverwritesPreviousArtifacts(t *testing.T) {
	dir := t.TempDir()
	exp, err := New(config.ExportConfig{Directory: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	snap := testSnapshot()
	if err := exp.Write(snap); err != nil {
		t.Fatalf("Write: %v", err)
	}
	snap.Status.CyclesToday = 9
	if err := exp.Write(snap); err != nil {
		t.Fatalf("second Write: %v", err)
	}

	status := readDoc(t, dir, "status.json")
	mon := status["monitoring"].(map[string]any)
	if mon["cycles_today"].(float64) != 9 {
		t.Errorf("cycles_today = %v, want the overwrite to win", mon["cycles_today"])
	}
}
