package features

import (
	"context"
	"time"

	"stormlightlabs.org/mlbedge/internal/core"
)

// MinimumBF is the smallest batters-faced sample a pitcher window
// needs before its rate stats are trusted.
const MinimumBF = 15

// PitcherFeatureStore is the subset of *store.Store the pitcher
// builder needs beyond the shared eventStore.
type PitcherFeatureStore interface {
	eventStore
	UpsertPitcherWindowStats(ctx context.Context, stats []core.PitcherWindowStats) error
}

// BuildPitcherDailyFeatures computes the D-anchored feature row for one
// probable or relief pitcher.
func BuildPitcherDailyFeatures(ctx context.Context, s PitcherFeatureStore, pitcherID core.PlayerID, gameID core.GameID, d core.Date, isProbableStarter bool, opposingTeamKRate float64) (core.PitcherDailyFeatures, error) {
	events30, err := s.PitcherEventsBefore(ctx, pitcherID, d, Window30)
	if err != nil {
		return core.PitcherDailyFeatures{}, err
	}

	w5 := AggregatePitcherEvents(windowSlice(events30, d, Window7), pitcherID, d, Window7)
	w10 := AggregatePitcherEvents(windowSlice(events30, d, Window14), pitcherID, d, Window14)
	w30 := AggregatePitcherEvents(events30, pitcherID, d, Window30)

	if err := s.UpsertPitcherWindowStats(ctx, []core.PitcherWindowStats{w5, w10, w30}); err != nil {
		return core.PitcherDailyFeatures{}, err
	}

	f := core.PitcherDailyFeatures{
		PitcherID:         pitcherID,
		GameID:            gameID,
		GameDate:          d,
		IsProbableStarter: isProbableStarter,
		OpposingTeamKRate: opposingTeamKRate,
		SampleSizeBF:      w10.BattersFaced,
		BuiltAt:           time.Now().UTC(),
	}

	if w5.BattersFaced >= MinimumBF {
		f.KRateL5 = float64(w5.Strikeouts) / float64(nonZero(w5.BattersFaced))
		f.OutsPerStartL5 = float64(w5.OutsRecorded) / 5
		f.OutsRecordedAvgL5 = float64(w5.OutsRecorded) / float64(nonZero(w5.Appearances))
		f.PitchesAvgL5 = float64(w5.Pitches) / float64(nonZero(w5.Appearances))
	}
	if w10.BattersFaced >= MinimumBF {
		f.KRateL10 = float64(w10.Strikeouts) / float64(nonZero(w10.BattersFaced))
		f.BBRateL10 = float64(w10.Walks) / float64(nonZero(w10.BattersFaced))
		f.WhipL10 = float64(w10.Walks+w10.HitsAllowed) / float64(nonZero(w10.OutsRecorded)) * 3
		if w10.OutsRecorded > 0 {
			f.ERAL10 = float64(w10.EarnedRuns) / (float64(w10.OutsRecorded) / 27) // 27 outs per 9 innings
		}
		f.KRate14 = f.KRateL10
		f.BBRate14 = f.BBRateL10
	}

	if w30.BattersFaced >= MinimumBF {
		f.KRate30 = float64(w30.Strikeouts) / float64(nonZero(w30.BattersFaced))
		f.BBRate30 = float64(w30.Walks) / float64(nonZero(w30.BattersFaced))
		if w30.OutsRecorded > 0 {
			f.HR9L30 = float64(w30.HomeRunsAllowed) / (float64(w30.OutsRecorded) / 27)
		}
		if w30.FlyBallsAllowed > 0 {
			f.HRFBPct30 = float64(w30.HomeRunsAllowed) / float64(w30.FlyBallsAllowed)
		}
		if w30.BattedBallsAllowed > 0 {
			f.HardHitPctAllowed30 = float64(w30.HardHitCountAllowed) / float64(w30.BattedBallsAllowed)
			f.BarrelPctAllowed30 = float64(w30.BarrelCountAllowed) / float64(w30.BattedBallsAllowed)
			f.FlyBallPctAllowed30 = float64(w30.FlyBallsAllowed) / float64(w30.BattedBallsAllowed)
		}
		if w30.ExitVeloCount > 0 {
			f.AvgExitVeloAllowedMPH30 = w30.ExitVeloSum / float64(w30.ExitVeloCount)
		}
		if w30.Pitches > 0 {
			f.WhiffPct30 = float64(w30.Whiffs) / float64(nonZero(w30.Swings))
		}
		if w30.ChasePitches > 0 {
			f.ChasePct30 = float64(w30.ChaseSwings) / float64(w30.ChasePitches)
		}
		if w30.FastballVeloCount > 0 {
			f.FastballVeloMPH = w30.FastballVeloSum / float64(w30.FastballVeloCount)
		}

		f.StarterRoleConfidence = starterRoleConfidence(w30)
		f.TTOKDecayPct, f.TTOHRIncreasePct = ttoDeltas(w30)
		f.TTOEnduranceScore = enduranceScore(w30)
	}

	vsL := filterByBatterHand(events30, core.HandednessLeft)
	vsR := filterByBatterHand(events30, core.HandednessRight)
	wL := AggregatePitcherEvents(vsL, pitcherID, d, Window30)
	wR := AggregatePitcherEvents(vsR, pitcherID, d, Window30)
	if wL.BattersFaced >= MinimumBF {
		f.KRateVsLeft = float64(wL.Strikeouts) / float64(nonZero(wL.BattersFaced))
		f.HRRateVsLeft = float64(wL.HomeRunsAllowed) / float64(nonZero(wL.BattersFaced))
	}
	if wR.BattersFaced >= MinimumBF {
		f.KRateVsRight = float64(wR.Strikeouts) / float64(nonZero(wR.BattersFaced))
		f.HRRateVsRight = float64(wR.HomeRunsAllowed) / float64(nonZero(wR.BattersFaced))
	}

	return f, nil
}

// filterByBatterHand narrows events to plate appearances against
// batters standing with the given hand.
func filterByBatterHand(events []core.PitchEvent, hand core.Handedness) []core.PitchEvent {
	out := make([]core.PitchEvent, 0, len(events))
	for _, e := range events {
		if e.BatterHand == hand {
			out = append(out, e)
		}
	}
	return out
}

// starterRoleConfidence estimates how reliably a pitcher is used as a
// starter from batters-faced-per-appearance: a true starter faces
// roughly 21-27 batters each time out, a reliever far fewer.
func starterRoleConfidence(w core.PitcherWindowStats) float64 {
	if w.Appearances == 0 {
		return 0
	}
	bfPerAppearance := float64(w.BattersFaced) / float64(w.Appearances)
	confidence := bfPerAppearance / 21.0
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

// ttoDeltas compares strikeout and home-run rates the first time through
// the order against the third-plus, returning fractional change
// (positive kDecay means K rate drops late; positive hrIncrease means
// HR rate climbs late).
func ttoDeltas(w core.PitcherWindowStats) (kDecayPct, hrIncreasePct float64) {
	bf1, bf3 := w.TTOBattersFaced[0], w.TTOBattersFaced[2]
	if bf1 == 0 || bf3 == 0 {
		return 0, 0
	}
	k1 := float64(w.TTOStrikeouts[0]) / float64(bf1)
	k3 := float64(w.TTOStrikeouts[2]) / float64(bf3)
	if k1 > 0 {
		kDecayPct = (k1 - k3) / k1
	}
	hr1 := float64(w.TTOHomeRunsAllowed[0]) / float64(bf1)
	hr3 := float64(w.TTOHomeRunsAllowed[2]) / float64(bf3)
	if hr1 > 0 {
		hrIncreasePct = (hr3 - hr1) / hr1
	}
	return kDecayPct, hrIncreasePct
}

// enduranceScore is how deep into the order a starter typically works,
// normalized against three full trips through a nine-man lineup.
func enduranceScore(w core.PitcherWindowStats) float64 {
	total := w.TTOBattersFaced[0] + w.TTOBattersFaced[1] + w.TTOBattersFaced[2]
	if total == 0 {
		return 0
	}
	score := float64(total) / float64(nonZero(w.Appearances)) / 27.0
	if score > 1 {
		score = 1
	}
	return score
}
