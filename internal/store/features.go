package store

import (
	"context"
	"database/sql"
	"time"

	"stormlightlabs.org/mlbedge/internal/core"
)

// batterFeatureColumns covers both the legacy L15/L30/L60 fields older
// market models read and the 7/14/30 families layered on top. Only the
// upsert uses this slice; BatterDailyFeaturesFor lists the same columns
// in the same order by hand.
var batterFeatureColumns = []string{
	"batter_id", "game_id", "game_date", "pa_per_game_l15", "hr_rate_l30", "hr_rate_l60",
	"hit_rate_l15", "k_rate_l15", "iso_l30", "opposing_pitcher_id", "platoon_split_hr_rate",
	"park_hr_factor", "batting_order_slot", "is_starter", "sample_size_pa", "built_at",
	"pa_rate_7", "pa_rate_14", "pa_rate_30",
	"hit_rate_7", "hit_rate_14", "hit_rate_30",
	"hr_rate_7", "hr_rate_14", "hr_rate_30",
	"k_rate_7", "k_rate_14", "k_rate_30",
	"bb_rate_7", "bb_rate_14", "bb_rate_30",
	"single_rate_7", "double_rate_7", "triple_rate_7", "rbi_rate_7", "run_rate_7",
	"iso_7", "iso_14", "iso_30", "slg_30", "tb_per_pa_30",
	"barrel_pct_30", "hard_hit_pct_30", "avg_exit_velo_mph_30", "avg_launch_angle_deg_30", "sweet_spot_pct_30",
	"fly_ball_pct_30", "line_drive_pct_30", "ground_ball_pct_30", "pull_pct_30",
	"iso_vs_hand", "hit_rate_vs_hand", "k_rate_vs_hand",
	"iso_delta_7v30", "hit_rate_delta_7v30",
}

func (s *Store) UpsertBatterDailyFeatures(ctx context.Context, rows []core.BatterDailyFeatures) error {
	values := make([][]any, 0, len(rows))
	for _, f := range rows {
		values = append(values, []any{
			string(f.BatterID), string(f.GameID), f.GameDate.Time(), f.PAPerGameL15, f.HRRateL30, f.HRRateL60,
			f.HitRateL15, f.KRateL15, f.ISOL30, nullablePlayerID(f.OpposingPitcherID), f.PlatoonSplitHRRate,
			f.ParkHRFactor, nullableInt(f.BattingOrderSlot), f.IsStarter, f.SampleSizePA, f.BuiltAt,
			f.PARate7, f.PARate14, f.PARate30,
			f.HitRate7, f.HitRate14, f.HitRate30,
			f.HRRate7, f.HRRate14, f.HRRate30,
			f.KRate7, f.KRate14, f.KRate30,
			f.BBRate7, f.BBRate14, f.BBRate30,
			f.SingleRate7, f.DoubleRate7, f.TripleRate7, f.RBIRate7, f.RunRate7,
			f.ISO7, f.ISO14, f.ISO30, f.SLG30, f.TBPerPA30,
			f.BarrelPct30, f.HardHitPct30, f.AvgExitVeloMPH30, f.AvgLaunchAngleDeg30, f.SweetSpotPct30,
			f.FlyBallPct30, f.LineDrivePct30, f.GroundBallPct30, f.PullPct30,
			f.ISOvsHand, f.HitRateVsHand, f.KRateVsHand,
			f.ISODelta7v30, f.HitRateDelta7v30,
		})
	}
	return s.BatchUpsert(ctx, "batter_daily_features", batterFeatureColumns, []string{"game_date", "batter_id"}, batterFeatureColumns[2:], values)
}

// pitcherFeatureColumns mirrors batterFeatureColumns for the pitching
// side.
var pitcherFeatureColumns = []string{
	"pitcher_id", "game_id", "game_date", "k_rate_l5", "k_rate_l10", "bb_rate_l10",
	"outs_per_start_l5", "whip_l10", "era_l10", "opposing_team_k_rate", "is_probable_starter",
	"sample_size_bf", "built_at",
	"k_rate_14", "k_rate_30", "bb_rate_14", "bb_rate_30", "hr9_l30", "hr_fb_pct_30",
	"hard_hit_pct_allowed_30", "barrel_pct_allowed_30", "avg_exit_velo_allowed_mph_30", "fly_ball_pct_allowed_30",
	"whiff_pct_30", "chase_pct_30", "fastball_velo_mph", "fastball_velo_trend_mph",
	"outs_recorded_avg_l5", "pitches_avg_l5", "starter_role_confidence",
	"k_rate_vs_left", "k_rate_vs_right", "hr_rate_vs_left", "hr_rate_vs_right",
	"tto_k_decay_pct", "tto_hr_increase_pct", "tto_endurance_score",
}

func (s *Store) UpsertPitcherDailyFeatures(ctx context.Context, rows []core.PitcherDailyFeatures) error {
	values := make([][]any, 0, len(rows))
	for _, f := range rows {
		values = append(values, []any{
			string(f.PitcherID), string(f.GameID), f.GameDate.Time(), f.KRateL5, f.KRateL10, f.BBRateL10,
			f.OutsPerStartL5, f.WhipL10, f.ERAL10, f.OpposingTeamKRate, f.IsProbableStarter,
			f.SampleSizeBF, f.BuiltAt,
			f.KRate14, f.KRate30, f.BBRate14, f.BBRate30, f.HR9L30, f.HRFBPct30,
			f.HardHitPctAllowed30, f.BarrelPctAllowed30, f.AvgExitVeloAllowedMPH30, f.FlyBallPctAllowed30,
			f.WhiffPct30, f.ChasePct30, f.FastballVeloMPH, f.FastballVeloTrendMPH,
			f.OutsRecordedAvgL5, f.PitchesAvgL5, f.StarterRoleConfidence,
			f.KRateVsLeft, f.KRateVsRight, f.HRRateVsLeft, f.HRRateVsRight,
			f.TTOKDecayPct, f.TTOHRIncreasePct, f.TTOEnduranceScore,
		})
	}
	return s.BatchUpsert(ctx, "pitcher_daily_features", pitcherFeatureColumns, []string{"game_date", "pitcher_id"}, pitcherFeatureColumns[2:], values)
}

func (s *Store) UpsertTeamDailyFeatures(ctx context.Context, rows []core.TeamDailyFeatures) error {
	columns := []string{"team_id", "game_id", "game_date", "runs_per_game_l15", "runs_allowed_l15", "bullpen_era_l15", "win_pct_l15", "rest_days", "built_at"}
	values := make([][]any, 0, len(rows))
	for _, f := range rows {
		values = append(values, []any{
			string(f.TeamID), string(f.GameID), f.GameDate.Time(), f.RunsPerGameL15, f.RunsAllowedL15,
			f.BullpenERAL15, f.WinPctL15, f.RestDays, f.BuiltAt,
		})
	}
	return s.BatchUpsert(ctx, "team_daily_features", columns, []string{"game_date", "team_id"}, columns[2:], values)
}

func (s *Store) UpsertGameContextFeatures(ctx context.Context, rows []core.GameContextFeatures) error {
	columns := []string{
		"game_id", "game_date", "venue_id", "wind_speed_mph", "wind_dir_deg", "temp_f", "is_dome",
		"home_lineup_confirmed", "away_lineup_confirmed", "is_final_context", "umpire_id", "built_at",
	}
	values := make([][]any, 0, len(rows))
	for _, f := range rows {
		values = append(values, []any{
			string(f.GameID), f.GameDate.Time(), f.VenueID, f.WindSpeedMPH, f.WindDirDeg, f.TempF, f.IsDome,
			f.HomeLineupConfirmed, f.AwayLineupConfirmed, f.IsFinalContext, f.UmpireID, f.BuiltAt,
		})
	}
	return s.BatchUpsert(ctx, "game_context_features", columns, []string{"game_date", "game_id"}, columns[2:], values)
}

// BatterDailyFeaturesFor loads the feature row for one batter/game pair,
// returning core.NotFoundError if the feature store has no row yet.
func (s *Store) BatterDailyFeaturesFor(ctx context.Context, gameID core.GameID, batterID core.PlayerID) (*core.BatterDailyFeatures, error) {
	query := s.Bind(`
		SELECT batter_id, game_id, game_date, pa_per_game_l15, hr_rate_l30, hr_rate_l60, hit_rate_l15,
		       k_rate_l15, iso_l30, opposing_pitcher_id, platoon_split_hr_rate, park_hr_factor,
		       batting_order_slot, is_starter, sample_size_pa, built_at,
		       pa_rate_7, pa_rate_14, pa_rate_30,
		       hit_rate_7, hit_rate_14, hit_rate_30,
		       hr_rate_7, hr_rate_14, hr_rate_30,
		       k_rate_7, k_rate_14, k_rate_30,
		       bb_rate_7, bb_rate_14, bb_rate_30,
		       single_rate_7, double_rate_7, triple_rate_7, rbi_rate_7, run_rate_7,
		       iso_7, iso_14, iso_30, slg_30, tb_per_pa_30,
		       barrel_pct_30, hard_hit_pct_30, avg_exit_velo_mph_30, avg_launch_angle_deg_30, sweet_spot_pct_30,
		       fly_ball_pct_30, line_drive_pct_30, ground_ball_pct_30, pull_pct_30,
		       iso_vs_hand, hit_rate_vs_hand, k_rate_vs_hand,
		       iso_delta_7v30, hit_rate_delta_7v30
		FROM batter_daily_features WHERE game_id = $1 AND batter_id = $2
	`)
	row := s.QueryRowContext(ctx, query, string(gameID), string(batterID))

	var f core.BatterDailyFeatures
	var bid, gid string
	var date time.Time
	var opposing sql.NullString
	var slot sql.NullInt64
	if err := row.Scan(&bid, &gid, &date, &f.PAPerGameL15, &f.HRRateL30, &f.HRRateL60, &f.HitRateL15,
		&f.KRateL15, &f.ISOL30, &opposing, &f.PlatoonSplitHRRate, &f.ParkHRFactor, &slot, &f.IsStarter,
		&f.SampleSizePA, &f.BuiltAt,
		&f.PARate7, &f.PARate14, &f.PARate30,
		&f.HitRate7, &f.HitRate14, &f.HitRate30,
		&f.HRRate7, &f.HRRate14, &f.HRRate30,
		&f.KRate7, &f.KRate14, &f.KRate30,
		&f.BBRate7, &f.BBRate14, &f.BBRate30,
		&f.SingleRate7, &f.DoubleRate7, &f.TripleRate7, &f.RBIRate7, &f.RunRate7,
		&f.ISO7, &f.ISO14, &f.ISO30, &f.SLG30, &f.TBPerPA30,
		&f.BarrelPct30, &f.HardHitPct30, &f.AvgExitVeloMPH30, &f.AvgLaunchAngleDeg30, &f.SweetSpotPct30,
		&f.FlyBallPct30, &f.LineDrivePct30, &f.GroundBallPct30, &f.PullPct30,
		&f.ISOvsHand, &f.HitRateVsHand, &f.KRateVsHand,
		&f.ISODelta7v30, &f.HitRateDelta7v30); err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewNotFoundError("batter_daily_features", string(gameID)+"/"+string(batterID))
		}
		return nil, err
	}
	f.BatterID, f.GameID, f.GameDate = core.PlayerID(bid), core.GameID(gid), core.NewDate(date)
	if opposing.Valid {
		v := core.PlayerID(opposing.String)
		f.OpposingPitcherID = &v
	}
	if slot.Valid {
		v := int(slot.Int64)
		f.BattingOrderSlot = &v
	}
	return &f, nil
}

// PitcherDailyFeaturesFor loads the feature row for one pitcher/game
// pair, returning core.NotFoundError if the feature store has no row yet.
func (s *Store) PitcherDailyFeaturesFor(ctx context.Context, gameID core.GameID, pitcherID core.PlayerID) (*core.PitcherDailyFeatures, error) {
	query := s.Bind(`
		SELECT pitcher_id, game_id, game_date, k_rate_l5, k_rate_l10, bb_rate_l10,
		       outs_per_start_l5, whip_l10, era_l10, opposing_team_k_rate, is_probable_starter, sample_size_bf, built_at,
		       k_rate_14, k_rate_30, bb_rate_14, bb_rate_30, hr9_l30, hr_fb_pct_30,
		       hard_hit_pct_allowed_30, barrel_pct_allowed_30, avg_exit_velo_allowed_mph_30, fly_ball_pct_allowed_30,
		       whiff_pct_30, chase_pct_30, fastball_velo_mph, fastball_velo_trend_mph,
		       outs_recorded_avg_l5, pitches_avg_l5, starter_role_confidence,
		       k_rate_vs_left, k_rate_vs_right, hr_rate_vs_left, hr_rate_vs_right,
		       tto_k_decay_pct, tto_hr_increase_pct, tto_endurance_score
		FROM pitcher_daily_features WHERE game_id = $1 AND pitcher_id = $2
	`)
	row := s.QueryRowContext(ctx, query, string(gameID), string(pitcherID))

	var f core.PitcherDailyFeatures
	var pid, gid string
	var date time.Time
	if err := row.Scan(&pid, &gid, &date, &f.KRateL5, &f.KRateL10, &f.BBRateL10, &f.OutsPerStartL5,
		&f.WhipL10, &f.ERAL10, &f.OpposingTeamKRate, &f.IsProbableStarter, &f.SampleSizeBF, &f.BuiltAt,
		&f.KRate14, &f.KRate30, &f.BBRate14, &f.BBRate30, &f.HR9L30, &f.HRFBPct30,
		&f.HardHitPctAllowed30, &f.BarrelPctAllowed30, &f.AvgExitVeloAllowedMPH30, &f.FlyBallPctAllowed30,
		&f.WhiffPct30, &f.ChasePct30, &f.FastballVeloMPH, &f.FastballVeloTrendMPH,
		&f.OutsRecordedAvgL5, &f.PitchesAvgL5, &f.StarterRoleConfidence,
		&f.KRateVsLeft, &f.KRateVsRight, &f.HRRateVsLeft, &f.HRRateVsRight,
		&f.TTOKDecayPct, &f.TTOHRIncreasePct, &f.TTOEnduranceScore); err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewNotFoundError("pitcher_daily_features", string(gameID)+"/"+string(pitcherID))
		}
		return nil, err
	}
	f.PitcherID, f.GameID, f.GameDate = core.PlayerID(pid), core.GameID(gid), core.NewDate(date)
	return &f, nil
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
