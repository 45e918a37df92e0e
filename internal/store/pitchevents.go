package store

import (
	"context"
	"database/sql"
	"time"

	"stormlightlabs.org/mlbedge/internal/core"
)

// UpsertPitchEvents batches PitchEvent rows keyed by (game_id,
// at_bat_index, pitch_index). Used by both the per-day fetcher path and
// Phase 1 bulk backfill ingestion.
func (s *Store) UpsertPitchEvents(ctx context.Context, events []core.PitchEvent) error {
	columns := []string{
		"game_id", "date", "at_bat_index", "pitch_index", "batter_id", "pitcher_id",
		"inning", "is_top_inning", "outs", "event_type", "is_plate_appearance_end",
		"is_at_bat_end", "total_bases_on_play", "rbi_on_play",
		"batter_hand", "pitcher_hand", "times_through_order",
		"exit_velocity_mph", "launch_angle_deg", "batted_ball_type", "is_pulled",
		"pitch_type", "pitch_velocity_mph", "is_swing", "is_whiff", "is_chase",
	}

	rows := make([][]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, []any{
			string(e.GameID), e.Date.Time(), e.AtBatIndex, e.PitchIndex, string(e.BatterID), string(e.PitcherID),
			e.Inning, e.IsTopInning, e.Outs, e.EventType, e.IsPlateAppearanceEnd,
			e.IsAtBatEnd, e.TotalBasesOnPlay, e.RBIOnPlay,
			string(e.BatterHand), string(e.PitcherHand), e.TimesThroughOrder,
			nullableFloat(e.ExitVelocityMPH), nullableFloat(e.LaunchAngleDeg), e.BattedBallType, e.IsPulled,
			e.PitchType, nullableFloat(e.PitchVelocityMPH), e.IsSwing, e.IsWhiff, e.IsChase,
		})
	}

	return s.BatchUpsert(ctx, "pitch_events", columns, []string{"game_id", "at_bat_index", "pitch_index"}, columns[4:], rows)
}

// BatterEventsBefore loads every pitch event involving batterID strictly
// before the no-lookahead anchor date D, bounded to the last windowDays.
// This is the one read path every batter-side feature builder and window
// stats refresh uses — keeping the "< D" filter in one place is what
// makes the no-lookahead invariant checkable in one spot rather than at
// every call site.
func (s *Store) BatterEventsBefore(ctx context.Context, batterID core.PlayerID, d core.Date, windowDays int) ([]core.PitchEvent, error) {
	query := s.Bind(pitchEventColumns + `
		FROM pitch_events
		WHERE batter_id = $1 AND date >= $2 AND date < $3
		ORDER BY date, at_bat_index, pitch_index
	`)
	rows, err := s.QueryContext(ctx, query, string(batterID), d.AddDays(-windowDays).Time(), d.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPitchEvents(rows)
}

// PitcherEventsBefore mirrors BatterEventsBefore for the pitching side.
func (s *Store) PitcherEventsBefore(ctx context.Context, pitcherID core.PlayerID, d core.Date, windowDays int) ([]core.PitchEvent, error) {
	query := s.Bind(pitchEventColumns + `
		FROM pitch_events
		WHERE pitcher_id = $1 AND date >= $2 AND date < $3
		ORDER BY date, at_bat_index, pitch_index
	`)
	rows, err := s.QueryContext(ctx, query, string(pitcherID), d.AddDays(-windowDays).Time(), d.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPitchEvents(rows)
}

// EventsForGame loads every pitch event recorded for one game,
// regardless of date — the grader's input for deriving realized
// per-player counting stats once a game is final.
func (s *Store) EventsForGame(ctx context.Context, gameID core.GameID) ([]core.PitchEvent, error) {
	query := s.Bind(pitchEventColumns + `
		FROM pitch_events WHERE game_id = $1 ORDER BY at_bat_index, pitch_index
	`)
	rows, err := s.QueryContext(ctx, query, string(gameID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPitchEvents(rows)
}

// pitchEventColumns is shared across every pitch_events read path so a
// schema change is made once, not at every call site.
const pitchEventColumns = `
	SELECT game_id, date, at_bat_index, pitch_index, batter_id, pitcher_id, inning, is_top_inning,
	       outs, event_type, is_plate_appearance_end, is_at_bat_end, total_bases_on_play, rbi_on_play,
	       batter_hand, pitcher_hand, times_through_order,
	       exit_velocity_mph, launch_angle_deg, batted_ball_type, is_pulled,
	       pitch_type, pitch_velocity_mph, is_swing, is_whiff, is_chase
`

func scanPitchEvents(rows *sql.Rows) ([]core.PitchEvent, error) {
	var out []core.PitchEvent
	for rows.Next() {
		var e core.PitchEvent
		var gameID, batterID, pitcherID, eventType, batterHand, pitcherHand, battedBallType, pitchType string
		var date time.Time
		var exitVelo, launchAngle, pitchVelo sql.NullFloat64
		if err := rows.Scan(&gameID, &date, &e.AtBatIndex, &e.PitchIndex, &batterID, &pitcherID, &e.Inning,
			&e.IsTopInning, &e.Outs, &eventType, &e.IsPlateAppearanceEnd, &e.IsAtBatEnd,
			&e.TotalBasesOnPlay, &e.RBIOnPlay,
			&batterHand, &pitcherHand, &e.TimesThroughOrder,
			&exitVelo, &launchAngle, &battedBallType, &e.IsPulled,
			&pitchType, &pitchVelo, &e.IsSwing, &e.IsWhiff, &e.IsChase); err != nil {
			return nil, err
		}
		e.GameID, e.BatterID, e.PitcherID, e.EventType = core.GameID(gameID), core.PlayerID(batterID), core.PlayerID(pitcherID), eventType
		e.Date = core.NewDate(date)
		e.BatterHand, e.PitcherHand = core.Handedness(batterHand), core.Handedness(pitcherHand)
		e.BattedBallType, e.PitchType = battedBallType, pitchType
		if exitVelo.Valid {
			v := exitVelo.Float64
			e.ExitVelocityMPH = &v
		}
		if launchAngle.Valid {
			v := launchAngle.Float64
			e.LaunchAngleDeg = &v
		}
		if pitchVelo.Valid {
			v := pitchVelo.Float64
			e.PitchVelocityMPH = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
