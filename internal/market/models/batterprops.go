package models

import (
	"stormlightlabs.org/mlbedge/internal/core"
	"stormlightlabs.org/mlbedge/internal/market"
	"stormlightlabs.org/mlbedge/internal/oddsnorm"
)

// ScoreHR scores the home-run yes/no market for one batter. Factors:
// recent HR rate (form), ISO power, opposing pitcher HR/9 vulnerability
// via park-adjusted HR rate, platoon fit, and park HR factor.
func ScoreHR(runID int64, spec market.Spec, bf core.BatterDailyFeatures, pitcherHRRateAllowed float64, oppThrowsHand string, batterSplitHRRate, batterOtherHandHRRate float64, lookup OddsLookup) core.ModelScore {
	form := market.FactorScoreRelativeSlope(bf.HRRateL30-bf.HRRateL60, bf.HRRateL60, 0.01, 400, 20, 80)
	power := market.FactorScoreLinear(bf.ISOL30, 0.08, 0.32)
	vuln := market.FactorScoreLinear(pitcherHRRateAllowed, 0.01, 0.06)
	platoon := market.PlatoonAdvantage(batterSplitHRRate, batterOtherHandHRRate)
	park := market.FactorScoreLinear(bf.ParkHRFactor, 0.85, 1.20)

	factors := []market.FactorContribution{
		{Name: "recent_form", Score: form, Weight: 0.25},
		{Name: "power", Score: power, Weight: 0.25},
		{Name: "pitcher_vulnerability", Score: vuln, Weight: 0.25},
		{Name: "platoon_fit", Score: platoon, Weight: 0.15},
		{Name: "park", Score: park, Weight: 0.10},
	}
	score := market.Composite(factors)
	reasons := market.BuildReasons(factors, 3)

	subMinimum := bf.SampleSizePA < 10
	key := oddsnorm.BuildSelectionKey(core.MarketHR, "player", string(bf.BatterID), nil, "YES")

	flags := market.RiskFlagsFor(false, subMinimum, false, !bf.IsStarter, false, false, false, oppThrowsHand == "")
	return finalize(runID, bf.GameID, spec, key, "YES", nil, probFromScore(score), score, lookup, flags, reasons)
}

// ScoreHits1Plus scores the 1+ hits yes/no market.
func ScoreHits1Plus(runID int64, spec market.Spec, bf core.BatterDailyFeatures, pitcherKRate float64, lookup OddsLookup) core.ModelScore {
	form := market.FactorScoreRelativeSlope(bf.HitRateL15-0.25, 0.25, 0.05, 300, 20, 80)
	contact := market.FactorScoreLinear(bf.HitRateL15, 0.15, 0.40)
	suppression := market.FactorScoreLinear(1-pitcherKRate, 0.55, 0.85)

	factors := []market.FactorContribution{
		{Name: "recent_form", Score: form, Weight: 0.3},
		{Name: "contact_quality", Score: contact, Weight: 0.4},
		{Name: "k_suppression", Score: suppression, Weight: 0.3},
	}
	score := market.Composite(factors)
	reasons := market.BuildReasons(factors, 2)

	subMinimum := bf.SampleSizePA < 10
	key := oddsnorm.BuildSelectionKey(core.MarketHits1P, "player", string(bf.BatterID), nil, "YES")

	flags := market.RiskFlagsFor(false, subMinimum, false, !bf.IsStarter, false, false, false, false)
	return finalize(runID, bf.GameID, spec, key, "YES", nil, probFromScore(score), score, lookup, flags, reasons)
}

// ScoreHitsLine scores the hits over/under projection market for one
// side (OVER or UNDER); callers emit both sides per the shared
// over/under convention.
func ScoreHitsLine(runID int64, spec market.Spec, bf core.BatterDailyFeatures, line float64, side core.Side, lookup OddsLookup) core.ModelScore {
	projection := bf.HitRateL15 * bf.PAPerGameL15
	score := market.FactorScoreLinear(projection-line, -1, 1)
	if side == "UNDER" {
		score = 100 - score
	}

	factors := []market.FactorContribution{{Name: "projection_vs_line", Score: score, Weight: 1.0}}
	reasons := market.BuildReasons(factors, 1)

	subMinimum := bf.SampleSizePA < 10
	key := oddsnorm.BuildSelectionKey(core.MarketHitsLine, "player", string(bf.BatterID), &line, side)

	flags := market.RiskFlagsFor(line == 0, subMinimum, false, !bf.IsStarter, false, false, false, false)
	return finalize(runID, bf.GameID, spec, key, side, &line, projection, score, lookup, flags, reasons)
}

// ScoreTotalBases scores the total-bases over/under projection market,
// weighting hard-hit/barrel proxy via ISO and pitcher vulnerability.
func ScoreTotalBases(runID int64, spec market.Spec, bf core.BatterDailyFeatures, pitcherHardHitAllowed, line float64, side core.Side, lookup OddsLookup) core.ModelScore {
	projection := (1 + bf.ISOL30*3) * bf.HitRateL15 * bf.PAPerGameL15
	vuln := market.FactorScoreLinear(pitcherHardHitAllowed, 0.25, 0.45)

	diffScore := market.FactorScoreLinear(projection-line, -1.5, 1.5)
	factors := []market.FactorContribution{
		{Name: "projection_vs_line", Score: diffScore, Weight: 0.7},
		{Name: "pitcher_vulnerability", Score: vuln, Weight: 0.3},
	}
	score := market.Composite(factors)
	if side == "UNDER" {
		score = 100 - score
	}
	reasons := market.BuildReasons(factors, 2)

	subMinimum := bf.SampleSizePA < 10
	key := oddsnorm.BuildSelectionKey(core.MarketTotalBasesLn, "player", string(bf.BatterID), &line, side)

	flags := market.RiskFlagsFor(line == 0, subMinimum, false, !bf.IsStarter, false, false, false, false)
	return finalize(runID, bf.GameID, spec, key, side, &line, projection, score, lookup, flags, reasons)
}

// probFromScore maps the composite 0-100 neutral-50 score onto a
// (0,1) win probability via the simplest monotone mapping — identity
// scaled to the unit interval — until the model_calibration table has
// enough graded history for a model-specific curve.
func probFromScore(score float64) float64 {
	return score / 100
}
