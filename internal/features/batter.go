package features

import (
	"context"
	"time"

	"stormlightlabs.org/mlbedge/internal/core"
)

// MinimumPA is the smallest plate-appearance sample a window needs
// before its rate stats are trusted; below this, the window's rate
// fields are not computed and keep their zero value (the feature row
// has no null for them).
const MinimumPA = 10

// BatterFeatureStore is the subset of *store.Store the batter builder
// needs beyond the shared eventStore.
type BatterFeatureStore interface {
	eventStore
	UpsertBatterWindowStats(ctx context.Context, stats []core.BatterWindowStats) error
}

// ParkFactors looks up a venue's home-run park factor (1.0 = neutral).
type ParkFactors interface {
	HRFactor(venueID string) float64
}

// BuildBatterDailyFeatures computes the D-anchored feature row for one
// batter in one game, from rolling window stats it also persists.
// Legacy L15/L30/L60 fields are kept alongside the 7/14/30 families so
// existing market models that already read them keep working.
func BuildBatterDailyFeatures(ctx context.Context, s BatterFeatureStore, parks ParkFactors, batterID core.PlayerID, gameID core.GameID, d core.Date, venueID string, opposingPitcher *core.PlayerID, battingOrderSlot *int) (core.BatterDailyFeatures, error) {
	events30, err := s.BatterEventsBefore(ctx, batterID, d, Window30)
	if err != nil {
		return core.BatterDailyFeatures{}, err
	}
	events60, err := s.BatterEventsBefore(ctx, batterID, d, Window60)
	if err != nil {
		return core.BatterDailyFeatures{}, err
	}

	w7 := AggregateBatterEvents(windowSlice(events30, d, Window7), batterID, d, Window7)
	w14 := AggregateBatterEvents(windowSlice(events30, d, Window14), batterID, d, Window14)
	w15 := AggregateBatterEvents(windowSlice(events60, d, Window15), batterID, d, Window15)
	w30 := AggregateBatterEvents(events30, batterID, d, Window30)
	w60 := AggregateBatterEvents(events60, batterID, d, Window60)

	if err := s.UpsertBatterWindowStats(ctx, []core.BatterWindowStats{w7, w14, w15, w30, w60}); err != nil {
		return core.BatterDailyFeatures{}, err
	}

	f := core.BatterDailyFeatures{
		BatterID:          batterID,
		GameID:            gameID,
		GameDate:          d,
		OpposingPitcherID: opposingPitcher,
		BattingOrderSlot:  battingOrderSlot,
		IsStarter:         battingOrderSlot != nil,
		SampleSizePA:      w15.PlateAppearances,
		BuiltAt:           time.Now().UTC(),
	}

	if w15.PlateAppearances >= MinimumPA {
		f.PAPerGameL15 = float64(w15.PlateAppearances) / 15
		f.HitRateL15 = float64(w15.Hits) / float64(nonZero(w15.AtBats))
		f.KRateL15 = float64(w15.Strikeouts) / float64(nonZero(w15.PlateAppearances))
	}
	if w30.PlateAppearances >= MinimumPA {
		f.HRRateL30 = float64(w30.HomeRuns) / float64(nonZero(w30.PlateAppearances))
		f.ISOL30 = iso(w30)
	}
	if w60.PlateAppearances >= MinimumPA {
		f.HRRateL60 = float64(w60.HomeRuns) / float64(nonZero(w60.PlateAppearances))
	}

	if w7.PlateAppearances >= MinimumPA {
		f.PARate7 = float64(w7.PlateAppearances) / 7
		f.HitRate7 = float64(w7.Hits) / float64(nonZero(w7.AtBats))
		f.HRRate7 = float64(w7.HomeRuns) / float64(nonZero(w7.PlateAppearances))
		f.KRate7 = float64(w7.Strikeouts) / float64(nonZero(w7.PlateAppearances))
		f.BBRate7 = float64(w7.Walks) / float64(nonZero(w7.PlateAppearances))
		f.SingleRate7 = float64(w7.Singles) / float64(nonZero(w7.AtBats))
		f.DoubleRate7 = float64(w7.Doubles) / float64(nonZero(w7.AtBats))
		f.TripleRate7 = float64(w7.Triples) / float64(nonZero(w7.AtBats))
		f.RBIRate7 = float64(w7.RBI) / float64(nonZero(w7.PlateAppearances))
		f.RunRate7 = float64(w7.RunsScored) / float64(nonZero(w7.PlateAppearances))
		f.ISO7 = iso(w7)
	}
	if w14.PlateAppearances >= MinimumPA {
		f.PARate14 = float64(w14.PlateAppearances) / 14
		f.HitRate14 = float64(w14.Hits) / float64(nonZero(w14.AtBats))
		f.HRRate14 = float64(w14.HomeRuns) / float64(nonZero(w14.PlateAppearances))
		f.KRate14 = float64(w14.Strikeouts) / float64(nonZero(w14.PlateAppearances))
		f.BBRate14 = float64(w14.Walks) / float64(nonZero(w14.PlateAppearances))
		f.ISO14 = iso(w14)
	}
	if w30.PlateAppearances >= MinimumPA {
		f.PARate30 = float64(w30.PlateAppearances) / 30
		f.HitRate30 = float64(w30.Hits) / float64(nonZero(w30.AtBats))
		f.HRRate30 = f.HRRateL30
		f.KRate30 = float64(w30.Strikeouts) / float64(nonZero(w30.PlateAppearances))
		f.BBRate30 = float64(w30.Walks) / float64(nonZero(w30.PlateAppearances))
		f.ISO30 = f.ISOL30
		f.SLG30 = slg(w30)
		f.TBPerPA30 = float64(w30.TotalBases) / float64(nonZero(w30.PlateAppearances))

		if w30.BattedBalls > 0 {
			f.BarrelPct30 = float64(w30.BarrelCount) / float64(w30.BattedBalls)
			f.HardHitPct30 = float64(w30.HardHitCount) / float64(w30.BattedBalls)
			f.SweetSpotPct30 = float64(w30.SweetSpotCount) / float64(w30.BattedBalls)
			f.FlyBallPct30 = float64(w30.FlyBalls) / float64(w30.BattedBalls)
			f.LineDrivePct30 = float64(w30.LineDrives) / float64(w30.BattedBalls)
			f.GroundBallPct30 = float64(w30.GroundBalls) / float64(w30.BattedBalls)
			f.PullPct30 = float64(w30.PulledBalls) / float64(w30.BattedBalls)
		}
		if w30.ExitVeloCount > 0 {
			f.AvgExitVeloMPH30 = w30.ExitVeloSum / float64(w30.ExitVeloCount)
			f.AvgLaunchAngleDeg30 = w30.LaunchAngleSum / float64(w30.ExitVeloCount)
		}
	}

	if w7.PlateAppearances >= MinimumPA && w30.PlateAppearances >= MinimumPA {
		f.ISODelta7v30 = f.ISO7 - f.ISOL30
		f.HitRateDelta7v30 = f.HitRate7 - f.HitRate30
	}

	if opposingPitcher != nil {
		if hand, err := pitcherHand(ctx, s, *opposingPitcher, d); err == nil && hand != "" {
			vs := filterByPitcherHand(events30, hand)
			split := AggregateBatterEvents(vs, batterID, d, Window30)
			if split.PlateAppearances >= MinimumPA {
				f.ISOvsHand = iso(split)
				f.HitRateVsHand = float64(split.Hits) / float64(nonZero(split.AtBats))
				f.KRateVsHand = float64(split.Strikeouts) / float64(nonZero(split.PlateAppearances))
				f.PlatoonSplitHRRate = float64(split.HomeRuns) / float64(nonZero(split.PlateAppearances))
			}
		}
	}

	if parks != nil {
		f.ParkHRFactor = parks.HRFactor(venueID)
	} else {
		f.ParkHRFactor = 1.0
	}

	return f, nil
}

// windowSlice narrows an already-fetched event slice to [d-windowDays, d),
// avoiding a second store round trip for a shorter window nested inside
// one already loaded.
func windowSlice(events []core.PitchEvent, d core.Date, windowDays int) []core.PitchEvent {
	floor := d.AddDays(-windowDays)
	out := make([]core.PitchEvent, 0, len(events))
	for _, e := range events {
		if !e.Date.Before(floor) && e.Date.Before(d) {
			out = append(out, e)
		}
	}
	return out
}

// filterByPitcherHand narrows events to plate appearances against a
// pitcher throwing with the given hand.
func filterByPitcherHand(events []core.PitchEvent, hand core.Handedness) []core.PitchEvent {
	out := make([]core.PitchEvent, 0, len(events))
	for _, e := range events {
		if e.PitcherHand == hand {
			out = append(out, e)
		}
	}
	return out
}

// handCache is the optional read-through cache a BatterFeatureStore may
// satisfy; *store.Store wires this to a Redis client, cutting the
// repeated per-batter pitcher-hand lookup down to one store round trip
// per opposing pitcher per cache TTL window.
type handCache interface {
	HandFor(ctx context.Context, pitcherID core.PlayerID, compute func() (core.Handedness, error)) (core.Handedness, error)
}

// pitcherHand looks up a pitcher's throwing hand from their own recent
// pitch events; there is no standalone roster/handedness table, so the
// hand recorded on the raw events is the source of truth.
func pitcherHand(ctx context.Context, s BatterFeatureStore, pitcherID core.PlayerID, d core.Date) (core.Handedness, error) {
	compute := func() (core.Handedness, error) {
		events, err := s.PitcherEventsBefore(ctx, pitcherID, d, Window60)
		if err != nil {
			return "", err
		}
		for _, e := range events {
			if e.PitcherHand != "" {
				return e.PitcherHand, nil
			}
		}
		return "", nil
	}
	if hc, ok := s.(handCache); ok {
		return hc.HandFor(ctx, pitcherID, compute)
	}
	return compute()
}

func iso(w core.BatterWindowStats) float64 {
	if w.AtBats == 0 {
		return 0
	}
	return slg(w) - float64(w.Hits)/float64(w.AtBats)
}

func slg(w core.BatterWindowStats) float64 {
	if w.AtBats == 0 {
		return 0
	}
	return float64(w.TotalBases) / float64(w.AtBats)
}

func nonZero(n int) int {
	if n == 0 {
		return 1
	}
	return n
}
