package models

import (
	"stormlightlabs.org/mlbedge/internal/core"
	"stormlightlabs.org/mlbedge/internal/market"
	"stormlightlabs.org/mlbedge/internal/oddsnorm"
)

// ScoreStrikeouts scores the pitcher strikeouts over/under projection
// market. Opponent team K% is weighted negatively: the factor scores
// 1 - K%, so a higher opponent K% lowers the score.
func ScoreStrikeouts(runID int64, spec market.Spec, pf core.PitcherDailyFeatures, line float64, side core.Side, lookup OddsLookup) core.ModelScore {
	expectedOuts := pf.OutsPerStartL5
	if expectedOuts == 0 {
		expectedOuts = 18 // six-inning default absent a usable sample
	}
	projection := pf.KRateL10 * (expectedOuts / 3 * 4.3) // outs -> batters faced proxy

	form := market.FactorScoreRelativeSlope(pf.KRateL5-pf.KRateL10, pf.KRateL10, 0.02, 300, 20, 80)
	oppSuppression := market.FactorScoreLinear(1-pf.OpposingTeamKRate, 0.6, 0.9)
	diffScore := market.FactorScoreLinear(projection-line, -1.5, 1.5)

	factors := []market.FactorContribution{
		{Name: "recent_form", Score: form, Weight: 0.3},
		{Name: "opponent_k_suppression", Score: oppSuppression, Weight: 0.2},
		{Name: "projection_vs_line", Score: diffScore, Weight: 0.5},
	}
	score := market.Composite(factors)
	if side == "UNDER" {
		score = 100 - score
	}
	reasons := market.BuildReasons(factors, 2)

	subMinimum := pf.SampleSizeBF < 15
	key := oddsnorm.BuildSelectionKey(core.MarketK, "player", string(pf.PitcherID), &line, side)

	flags := market.RiskFlagsFor(line == 0, subMinimum, false, !pf.IsProbableStarter, false, false, false, false)
	return finalize(runID, pf.GameID, spec, key, side, &line, projection, score, lookup, flags, reasons)
}

// ScoreOutsRecorded scores the outs-recorded over/under projection
// market, weighting starter-role confidence and walk rate — a high
// BB% pitcher burns pitch count faster and exits earlier.
func ScoreOutsRecorded(runID int64, spec market.Spec, pf core.PitcherDailyFeatures, starterRoleConfidence, line float64, side core.Side, lookup OddsLookup) core.ModelScore {
	projection := pf.OutsPerStartL5
	roleScore := market.FactorScoreLinear(starterRoleConfidence, 0.3, 1.0)
	controlScore := market.FactorScoreLinear(1-pf.BBRateL10, 0.85, 0.97)
	diffScore := market.FactorScoreLinear(projection-line, -3, 3)

	factors := []market.FactorContribution{
		{Name: "starter_role_confidence", Score: roleScore, Weight: 0.35},
		{Name: "control", Score: controlScore, Weight: 0.25},
		{Name: "projection_vs_line", Score: diffScore, Weight: 0.4},
	}
	score := market.Composite(factors)
	if side == "UNDER" {
		score = 100 - score
	}
	reasons := market.BuildReasons(factors, 2)

	subMinimum := pf.SampleSizeBF < 15
	key := oddsnorm.BuildSelectionKey(core.MarketOutsRecorded, "player", string(pf.PitcherID), &line, side)

	flags := market.RiskFlagsFor(line == 0, subMinimum, false, !pf.IsProbableStarter, false, false, false, false)
	return finalize(runID, pf.GameID, spec, key, side, &line, projection, score, lookup, flags, reasons)
}
