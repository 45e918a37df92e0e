// Package features builds the daily feature store: rolling-window
// batter/pitcher aggregates and the per-game-date batter, pitcher,
// team, and game-context feature rows every market model consumes.
// Every builder in this package enforces the same no-lookahead
// discipline: for a target date D, only events with timestamp < D are
// read, via the store's BatterEventsBefore/PitcherEventsBefore, which
// already apply the [D-window, D) filter.
package features

import (
	"context"

	"stormlightlabs.org/mlbedge/internal/core"
)

// Windows are the standard lookback periods used across builders.
const (
	Window7  = 7
	Window14 = 14
	Window15 = 15
	Window30 = 30
	Window60 = 60
)

// Contact-quality thresholds. HardHit and the sweet-spot launch-angle
// band follow the common Statcast definitions; Barrel is a coarse
// single-band approximation of Statcast's EV/launch-angle matrix (the
// real matrix widens its angle tolerance as EV climbs above 98) that
// trades precision for a formula a rolling window can apply uniformly.
const (
	HardHitMPH      = 95.0
	BarrelMinMPH    = 98.0
	BarrelMinAngle  = 26.0
	BarrelMaxAngle  = 30.0
	SweetSpotMinAngle = 8.0
	SweetSpotMaxAngle = 32.0
)

func isBarrel(ev, angle float64) bool {
	return ev >= BarrelMinMPH && angle >= BarrelMinAngle && angle <= BarrelMaxAngle
}

func isSweetSpot(angle float64) bool {
	return angle >= SweetSpotMinAngle && angle <= SweetSpotMaxAngle
}

// eventStore is the subset of *store.Store the window aggregators need.
type eventStore interface {
	BatterEventsBefore(ctx context.Context, batterID core.PlayerID, d core.Date, windowDays int) ([]core.PitchEvent, error)
	PitcherEventsBefore(ctx context.Context, pitcherID core.PlayerID, d core.Date, windowDays int) ([]core.PitchEvent, error)
}

// BuildBatterWindowStats aggregates a batter's events in [D-window, D)
// into one BatterWindowStats row.
func BuildBatterWindowStats(ctx context.Context, s eventStore, batterID core.PlayerID, d core.Date, windowDays int) (core.BatterWindowStats, error) {
	events, err := s.BatterEventsBefore(ctx, batterID, d, windowDays)
	if err != nil {
		return core.BatterWindowStats{}, err
	}
	return AggregateBatterEvents(events, batterID, d, windowDays), nil
}

// AggregateBatterEvents folds a slice of pitch events into one
// BatterWindowStats row. Exported so daily-feature builders can
// re-aggregate a hand-filtered subset of an already-fetched window
// without a second store round trip.
func AggregateBatterEvents(events []core.PitchEvent, batterID core.PlayerID, d core.Date, windowDays int) core.BatterWindowStats {
	stats := core.BatterWindowStats{BatterID: batterID, AsOfDate: d, WindowDays: windowDays}
	for _, e := range events {
		if !e.IsAtBatEnd {
			continue
		}
		if e.EventType != "Walk" && e.EventType != "Intent Walk" {
			stats.AtBats++
		}
		stats.TotalBases += e.TotalBasesOnPlay
		stats.RBI += e.RBIOnPlay
		switch e.EventType {
		case "Single":
			stats.Hits++
			stats.Singles++
		case "Double":
			stats.Hits++
			stats.Doubles++
		case "Triple":
			stats.Hits++
			stats.Triples++
		case "Home Run":
			stats.Hits++
			stats.HomeRuns++
			stats.RunsScored++ // a batter always scores on their own home run
		case "Strikeout":
			stats.Strikeouts++
		case "Walk", "Intent Walk":
			stats.Walks++
		}
		if e.IsPlateAppearanceEnd {
			stats.PlateAppearances++
		}
		if e.BattedBallType != "" {
			stats.BattedBalls++
			switch e.BattedBallType {
			case "FB":
				stats.FlyBalls++
			case "LD":
				stats.LineDrives++
			case "GB":
				stats.GroundBalls++
			case "PU":
				stats.PopUps++
			}
			if e.IsPulled {
				stats.PulledBalls++
			}
			if e.ExitVelocityMPH != nil {
				stats.ExitVeloSum += *e.ExitVelocityMPH
				stats.ExitVeloCount++
				if *e.ExitVelocityMPH >= HardHitMPH {
					stats.HardHitCount++
				}
				if e.LaunchAngleDeg != nil && isBarrel(*e.ExitVelocityMPH, *e.LaunchAngleDeg) {
					stats.BarrelCount++
				}
			}
			if e.LaunchAngleDeg != nil {
				stats.LaunchAngleSum += *e.LaunchAngleDeg
				if isSweetSpot(*e.LaunchAngleDeg) {
					stats.SweetSpotCount++
				}
			}
		}
	}
	return stats
}

// BuildPitcherWindowStats mirrors BuildBatterWindowStats for the
// pitching side.
func BuildPitcherWindowStats(ctx context.Context, s eventStore, pitcherID core.PlayerID, d core.Date, windowDays int) (core.PitcherWindowStats, error) {
	events, err := s.PitcherEventsBefore(ctx, pitcherID, d, windowDays)
	if err != nil {
		return core.PitcherWindowStats{}, err
	}
	return AggregatePitcherEvents(events, pitcherID, d, windowDays), nil
}

// AggregatePitcherEvents folds a slice of pitch events into one
// PitcherWindowStats row. Exported for the same reason as
// AggregateBatterEvents: daily-feature builders re-slice an
// already-fetched window (e.g. by batter hand) without refetching.
func AggregatePitcherEvents(events []core.PitchEvent, pitcherID core.PlayerID, d core.Date, windowDays int) core.PitcherWindowStats {
	stats := core.PitcherWindowStats{PitcherID: pitcherID, AsOfDate: d, WindowDays: windowDays}
	games := make(map[core.GameID]bool)

	for _, e := range events {
		games[e.GameID] = true
		tto := e.TimesThroughOrder - 1
		if tto < 0 {
			tto = 0
		}
		if tto > 2 {
			tto = 2
		}

		stats.Pitches++
		if e.IsSwing {
			stats.Swings++
		}
		if e.IsWhiff {
			stats.Whiffs++
		}
		if e.IsChase {
			stats.ChasePitches++
			if e.IsSwing {
				stats.ChaseSwings++
			}
		}
		if e.PitchType == "FF" || e.PitchType == "SI" {
			if e.PitchVelocityMPH != nil {
				stats.FastballVeloSum += *e.PitchVelocityMPH
				stats.FastballVeloCount++
			}
		}

		if e.IsAtBatEnd {
			stats.BattersFaced++
			stats.TTOBattersFaced[tto]++
		}
		if e.EventType != "pitch" && e.Outs > 0 {
			stats.OutsRecorded++
		}
		switch e.EventType {
		case "Strikeout":
			stats.Strikeouts++
			stats.TTOStrikeouts[tto]++
		case "Walk", "Intent Walk":
			stats.Walks++
		case "Single", "Double", "Triple", "Home Run":
			stats.HitsAllowed++
		}
		if e.EventType == "Home Run" {
			stats.HomeRunsAllowed++
			stats.TTOHomeRunsAllowed[tto]++
		}

		if e.BattedBallType != "" {
			stats.BattedBallsAllowed++
			if e.BattedBallType == "FB" {
				stats.FlyBallsAllowed++
			}
			if e.ExitVelocityMPH != nil {
				stats.ExitVeloSum += *e.ExitVelocityMPH
				stats.ExitVeloCount++
				if *e.ExitVelocityMPH >= HardHitMPH {
					stats.HardHitCountAllowed++
				}
				if e.LaunchAngleDeg != nil && isBarrel(*e.ExitVelocityMPH, *e.LaunchAngleDeg) {
					stats.BarrelCountAllowed++
				}
			}
		}
	}
	stats.Appearances = len(games)
	return stats
}
