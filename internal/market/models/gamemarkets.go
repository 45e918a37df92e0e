package models

import (
	"stormlightlabs.org/mlbedge/internal/core"
	"stormlightlabs.org/mlbedge/internal/market"
	"stormlightlabs.org/mlbedge/internal/oddsnorm"
)

// f5Discount scales a full-game bullpen-driven factor down for the
// first-5-innings variants, where the bullpen has barely entered.
const f5Discount = 0.4

// gameFactors composes the shared SP-edge / offense / bullpen /
// park+weather factor set used by every game-level market, scaled by
// isF5 for the bullpen term. No umpire factor is included.
func gameFactors(home, away core.TeamDailyFeatures, ctx core.GameContextFeatures, homeSPQuality, awaySPQuality float64, isF5 bool) []market.FactorContribution {
	spEdge := market.FactorScoreLinear(homeSPQuality-awaySPQuality, -30, 30)
	offense := market.FactorScoreLinear(home.RunsPerGameL15-away.RunsAllowedL15, -2, 2)

	bullpenWeight := 0.2
	if isF5 {
		bullpenWeight *= f5Discount
	}
	bullpen := market.FactorScoreLinear(away.BullpenERAL15-home.BullpenERAL15, -2, 2)

	park := 50.0
	if ctx.TempF != nil {
		park = market.FactorScoreLinear(*ctx.TempF, 50, 95)
	}

	return []market.FactorContribution{
		{Name: "sp_edge", Score: spEdge, Weight: 0.4},
		{Name: "offense_matchup", Score: offense, Weight: 0.25},
		{Name: "bullpen", Score: bullpen, Weight: bullpenWeight},
		{Name: "park_weather", Score: park, Weight: 0.15},
	}
}

// ScoreMoneyline scores both sides of the full-game moneyline market.
func ScoreMoneyline(runID int64, spec market.Spec, gameID core.GameID, home, away core.TeamDailyFeatures, ctx core.GameContextFeatures, homeSPQuality, awaySPQuality float64, lookup OddsLookup) []core.ModelScore {
	factors := gameFactors(home, away, ctx, homeSPQuality, awaySPQuality, false)
	homeScore := market.Composite(factors)
	awayScore := 100 - homeScore
	reasons := market.BuildReasons(factors, 3)

	missingLineup := !ctx.HomeLineupConfirmed || !ctx.AwayLineupConfirmed
	missingWeather := ctx.TempF == nil && !ctx.IsDome

	homeKey := oddsnorm.BuildSelectionKey(core.MarketMoneyline, "game", string(gameID), nil, "HOME")
	awayKey := oddsnorm.BuildSelectionKey(core.MarketMoneyline, "game", string(gameID), nil, "AWAY")

	flags := market.RiskFlagsFor(false, false, missingWeather, missingLineup, false, false, false, false)

	homeRow := finalize(runID, gameID, spec, homeKey, "HOME", nil, probFromScore(homeScore), homeScore, lookup, flags, reasons)
	awayRow := finalize(runID, gameID, spec, awayKey, "AWAY", nil, probFromScore(awayScore), awayScore, lookup, flags, reasons)
	return []core.ModelScore{homeRow, awayRow}
}

// ScoreTotal scores one side (OVER/UNDER) of the full-game total runs
// market.
func ScoreTotal(runID int64, spec market.Spec, gameID core.GameID, home, away core.TeamDailyFeatures, ctx core.GameContextFeatures, umpireRunEnvironment, line float64, side core.Side, lookup OddsLookup) core.ModelScore {
	projection := home.RunsPerGameL15 + away.RunsPerGameL15 + umpireRunEnvironment
	if ctx.WindSpeedMPH != nil && ctx.WindDirDeg != nil {
		projection += windRunAdjustment(*ctx.WindSpeedMPH, *ctx.WindDirDeg)
	}

	diffScore := market.FactorScoreLinear(projection-line, -2, 2)
	factors := []market.FactorContribution{{Name: "projection_vs_line", Score: diffScore, Weight: 1.0}}
	score := diffScore
	if side == "UNDER" {
		score = 100 - score
	}
	reasons := market.BuildReasons(factors, 1)

	missingWeather := ctx.TempF == nil && !ctx.IsDome
	key := oddsnorm.BuildSelectionKey(core.MarketTotal, "game", string(gameID), &line, side)

	flags := market.RiskFlagsFor(line == 0, false, missingWeather, false, false, false, false, false)
	return finalize(runID, gameID, spec, key, side, &line, projection, score, lookup, flags, reasons)
}

// ScoreF5Moneyline scores both sides of the first-5-innings moneyline,
// downweighting the bullpen term since relievers rarely enter by the
// fifth.
func ScoreF5Moneyline(runID int64, spec market.Spec, gameID core.GameID, home, away core.TeamDailyFeatures, ctx core.GameContextFeatures, homeSPQuality, awaySPQuality float64, lookup OddsLookup) []core.ModelScore {
	factors := gameFactors(home, away, ctx, homeSPQuality, awaySPQuality, true)
	homeScore := market.Composite(factors)
	awayScore := 100 - homeScore
	reasons := market.BuildReasons(factors, 3)

	homeKey := oddsnorm.BuildSelectionKey(core.MarketF5Moneyline, "game", string(gameID), nil, "HOME")
	awayKey := oddsnorm.BuildSelectionKey(core.MarketF5Moneyline, "game", string(gameID), nil, "AWAY")

	missingLineup := !ctx.HomeLineupConfirmed || !ctx.AwayLineupConfirmed
	flags := market.RiskFlagsFor(false, false, ctx.TempF == nil && !ctx.IsDome, missingLineup, false, false, false, false)

	homeRow := finalize(runID, gameID, spec, homeKey, "HOME", nil, probFromScore(homeScore), homeScore, lookup, flags, reasons)
	awayRow := finalize(runID, gameID, spec, awayKey, "AWAY", nil, probFromScore(awayScore), awayScore, lookup, flags, reasons)
	return []core.ModelScore{homeRow, awayRow}
}

// ScoreF5Total scores one side of the first-5-innings total runs
// market — roughly 5/9ths of a full-game projection.
func ScoreF5Total(runID int64, spec market.Spec, gameID core.GameID, home, away core.TeamDailyFeatures, ctx core.GameContextFeatures, line float64, side core.Side, lookup OddsLookup) core.ModelScore {
	fullGame := home.RunsPerGameL15 + away.RunsPerGameL15
	projection := fullGame * 5 / 9

	diffScore := market.FactorScoreLinear(projection-line, -1.5, 1.5)
	factors := []market.FactorContribution{{Name: "projection_vs_line", Score: diffScore, Weight: 1.0}}
	score := diffScore
	if side == "UNDER" {
		score = 100 - score
	}
	reasons := market.BuildReasons(factors, 1)

	key := oddsnorm.BuildSelectionKey(core.MarketF5Total, "game", string(gameID), &line, side)
	flags := market.RiskFlagsFor(line == 0, false, ctx.TempF == nil && !ctx.IsDome, false, false, false, false, false)
	return finalize(runID, gameID, spec, key, side, &line, projection, score, lookup, flags, reasons)
}

// ScoreTeamTotal scores one team's over/under run total.
func ScoreTeamTotal(runID int64, spec market.Spec, gameID core.GameID, teamID core.TeamID, team, opponent core.TeamDailyFeatures, ctx core.GameContextFeatures, line float64, side core.Side, lookup OddsLookup) core.ModelScore {
	projection := (team.RunsPerGameL15 + opponent.RunsAllowedL15) / 2

	diffScore := market.FactorScoreLinear(projection-line, -1.5, 1.5)
	factors := []market.FactorContribution{{Name: "projection_vs_line", Score: diffScore, Weight: 1.0}}
	score := diffScore
	if side == "UNDER" {
		score = 100 - score
	}
	reasons := market.BuildReasons(factors, 1)

	key := oddsnorm.BuildSelectionKey(core.MarketTeamTotal, "team", string(teamID), &line, side)
	flags := market.RiskFlagsFor(line == 0, false, ctx.TempF == nil && !ctx.IsDome, false, false, false, false, false)
	return finalize(runID, gameID, spec, key, side, &line, projection, score, lookup, flags, reasons)
}

// windRunAdjustment applies a small deterministic run-environment shift
// for wind blowing out (0° = out to center) vs in.
func windRunAdjustment(speedMPH, dirDeg float64) float64 {
	if speedMPH < 5 {
		return 0
	}
	blowingOut := dirDeg > 315 || dirDeg < 45
	if blowingOut {
		return speedMPH * 0.03
	}
	return -speedMPH * 0.02
}
