package store

import (
	"context"

	"stormlightlabs.org/mlbedge/internal/core"
)

// UpsertBatterWindowStats idempotently writes one rolling-window
// aggregate row per (batter_id, stat_date, window_days).
func (s *Store) UpsertBatterWindowStats(ctx context.Context, stats []core.BatterWindowStats) error {
	columns := []string{"batter_id", "stat_date", "window_days", "plate_appearances", "at_bats", "hits", "home_runs", "strikeouts", "walks", "total_bases"}
	rows := make([][]any, 0, len(stats))
	for _, st := range stats {
		rows = append(rows, []any{
			string(st.BatterID), st.AsOfDate.Time(), st.WindowDays, st.PlateAppearances, st.AtBats,
			st.Hits, st.HomeRuns, st.Strikeouts, st.Walks, st.TotalBases,
		})
	}
	return s.BatchUpsert(ctx, "batter_window_stats", columns, []string{"batter_id", "stat_date", "window_days"}, columns[3:], rows)
}

// UpsertPitcherWindowStats mirrors UpsertBatterWindowStats.
func (s *Store) UpsertPitcherWindowStats(ctx context.Context, stats []core.PitcherWindowStats) error {
	columns := []string{"pitcher_id", "stat_date", "window_days", "batters_faced", "outs_recorded", "strikeouts", "walks", "hits_allowed", "home_runs_allowed", "earned_runs"}
	rows := make([][]any, 0, len(stats))
	for _, st := range stats {
		rows = append(rows, []any{
			string(st.PitcherID), st.AsOfDate.Time(), st.WindowDays, st.BattersFaced, st.OutsRecorded,
			st.Strikeouts, st.Walks, st.HitsAllowed, st.HomeRunsAllowed, st.EarnedRuns,
		})
	}
	return s.BatchUpsert(ctx, "pitcher_window_stats", columns, []string{"pitcher_id", "stat_date", "window_days"}, columns[3:], rows)
}
