package grader

import (
	"math"

	"stormlightlabs.org/mlbedge/internal/core"
)

// Settlement is the four-way result of a bet against a realized
// outcome.
type Settlement string

const (
	SettlementWin  Settlement = "win"
	SettlementLoss Settlement = "loss"
	SettlementPush Settlement = "push"
	SettlementVoid Settlement = "void"
)

// SettleBet resolves one bet's win/loss/push outcome and profit_units
// under the 1-unit stake convention: decimal odds minus 1 on a win,
// minus 1 on a loss, 0 on a push. It never returns SettlementVoid.
// Integer lines push on an exact match; half-point lines can never push.
func SettleBet(bet core.Bet, outcome core.MarketOutcome, line *float64, side core.Side, decimalOdds float64) (Settlement, float64) {
	if line != nil {
		return settleLine(*line, outcome.OutcomeValue, bet.StakeUnits, decimalOdds, side)
	}
	won := outcome.OutcomeValue >= 1
	return settleBoolean(won, bet.StakeUnits, decimalOdds)
}

func settleBoolean(won bool, stake, decimalOdds float64) (Settlement, float64) {
	if won {
		return SettlementWin, stake * (decimalOdds - 1)
	}
	return SettlementLoss, -stake
}

func settleLine(line, actual, stake, decimalOdds float64, side core.Side) (Settlement, float64) {
	isWholeLine := math.Mod(line, 1) == 0
	if isWholeLine && actual == line {
		return SettlementPush, 0
	}

	over := actual > line
	won := (side == "OVER" && over) || (side == "UNDER" && !over)
	if won {
		return SettlementWin, stake * (decimalOdds - 1)
	}
	return SettlementLoss, -stake
}

// ClosingLinePolicy names the method used to resolve a closing-line
// snapshot for CLV.
type ClosingLinePolicy string

const (
	PolicyLatestPregame  ClosingLinePolicy = "latest_pregame"
	PolicyBestAvailable  ClosingLinePolicy = "best_available"
)

// CaptureCLV computes closing-line value: the open implied probability
// minus the close implied probability. Positive means the bettor beat
// the closing line.
func CaptureCLV(openImplied, closeImplied float64) float64 {
	return openImplied - closeImplied
}
