package market

import (
	"fmt"
	"math"
	"sort"

	"stormlightlabs.org/mlbedge/internal/core"
)

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// FactorScoreLinear maps x linearly onto [0,100] over [lo,hi], clamped
// at the edges. 50 sits at the midpoint of the range.
func FactorScoreLinear(x, lo, hi float64) float64 {
	if hi == lo {
		return 50
	}
	return clamp((x-lo)/(hi-lo)*100, 0, 100)
}

// FactorScoreRelativeSlope scores a hot/cold delta relative to a
// player's own baseline, so a stable high-baseline producer isn't
// penalized for a delta that would look large against a low baseline.
func FactorScoreRelativeSlope(delta, baseline, floor, scale, loCap, hiCap float64) float64 {
	base := math.Max(baseline, floor)
	return clamp(50+delta/base*scale, loCap, hiCap)
}

// PlatoonAdvantage scores a platoon split rate against its complement,
// centered on their average.
func PlatoonAdvantage(splitRate, otherRate float64) float64 {
	avg := (splitRate + otherRate) / 2
	if avg == 0 {
		return 50
	}
	return clamp(50+(splitRate-avg)/avg*150, 20, 80)
}

// PercentileScore returns the percentile rank (0-100) of x within a
// same-date reference population.
func PercentileScore(population []float64, x float64) float64 {
	if len(population) == 0 {
		return 50
	}
	below := 0
	for _, v := range population {
		if v < x {
			below++
		}
	}
	return clamp(float64(below)/float64(len(population))*100, 0, 100)
}

// OddsSource resolves the best-available price for a selection key.
type OddsSource interface {
	BestAvailableOdds(key core.SelectionKey) (*core.MarketOdds, error)
}

// ComputeEdge derives edge percentage from a model's output per the
// market's edge method. Projection edge is undefined (returns false)
// when line is zero — that case is surfaced by the caller as
// RiskFlagLineZero, not a division by zero.
func ComputeEdge(method EdgeMethod, modelOutput float64, impliedProb float64, line *float64) (edgePct float64, ok bool) {
	switch method {
	case EdgeProbVsImplied:
		return (modelOutput - impliedProb) * 100, true
	case EdgeProjectionVsLine:
		if line == nil || *line == 0 {
			return 0, false
		}
		return (modelOutput - *line) / math.Abs(*line) * 100, true
	default:
		return (modelOutput - impliedProb) * 100, true
	}
}

// AssignSignal applies a market's thresholds to a composite score and
// an optional edge percentage. Score-only mode (edge absent) applies
// thresholds to score alone; full mode requires both to clear.
func AssignSignal(thresholds map[core.Signal]Thresholds, score float64, edgePct *float64) core.Signal {
	bet, lean, fade := thresholds[core.SignalBet], thresholds[core.SignalLean], thresholds[core.SignalFade]

	if edgePct == nil {
		switch {
		case score >= bet.MinScore:
			return core.SignalBet
		case score >= lean.MinScore:
			return core.SignalLean
		case score <= fade.MaxScore:
			return core.SignalFade
		default:
			return core.SignalSkip
		}
	}

	e := *edgePct
	switch {
	case score >= bet.MinScore && e >= bet.MinEdge:
		return core.SignalBet
	case score >= lean.MinScore && e >= lean.MinEdge:
		return core.SignalLean
	case score <= fade.MaxScore && e <= fade.MaxEdge:
		return core.SignalFade
	default:
		return core.SignalSkip
	}
}

// ConfidenceBand derives a band from the composite score, degraded by
// the number of attached risk flags.
func ConfidenceBand(score float64, riskFlags []core.RiskFlag) core.ConfidenceBand {
	var band core.ConfidenceBand
	switch {
	case score >= 78:
		band = core.ConfidenceHigh
	case score >= 60:
		band = core.ConfidenceMedium
	default:
		band = core.ConfidenceLow
	}

	n := len(riskFlags)
	if band == core.ConfidenceHigh && n >= 2 {
		band = core.ConfidenceMedium
	}
	if band == core.ConfidenceMedium && n >= 3 {
		band = core.ConfidenceLow
	}
	return band
}

// VisibilityTier gates free-tier exposure to the highest-confidence
// bets only.
func VisibilityTier(signal core.Signal, band core.ConfidenceBand) core.VisibilityTier {
	if signal == core.SignalBet && band == core.ConfidenceHigh {
		return core.VisibilityFree
	}
	return core.VisibilityPro
}

// FactorContribution is one named factor's subscore and weight, used
// to build human-readable reasons.
type FactorContribution struct {
	Name   string
	Score  float64
	Weight float64
}

// Composite computes the clamped weighted sum of factor subscores, all
// expected on the common 0-100 neutral-50 scale.
func Composite(factors []FactorContribution) float64 {
	var sum, weightSum float64
	for _, f := range factors {
		sum += f.Score * f.Weight
		weightSum += f.Weight
	}
	if weightSum == 0 {
		return 50
	}
	return clamp(sum/weightSum, 0, 100)
}

// BuildReasons phrases the top-K factor contributions (by |score-50|,
// i.e. distance from neutral) as short tags.
func BuildReasons(factors []FactorContribution, topK int) []string {
	sorted := make([]FactorContribution, len(factors))
	copy(sorted, factors)
	sort.Slice(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].Score-50) > math.Abs(sorted[j].Score-50)
	})

	if topK > len(sorted) {
		topK = len(sorted)
	}

	reasons := make([]string, 0, topK)
	for _, f := range sorted[:topK] {
		direction := "favorable"
		if f.Score < 50 {
			direction = "unfavorable"
		}
		reasons = append(reasons, fmt.Sprintf("%s:%s", f.Name, direction))
	}
	return reasons
}

// RiskFlagsFor assembles the risk-flag set for a scored row from the
// booleans every model tracks for its inputs.
func RiskFlagsFor(lineZero, subMinimumPA, missingWeather, missingLineup, missingOdds, staleFeatures, noCalibration, platoonUnknown bool) []core.RiskFlag {
	var flags []core.RiskFlag
	add := func(cond bool, flag core.RiskFlag) {
		if cond {
			flags = append(flags, flag)
		}
	}
	add(lineZero, core.RiskFlagLineZero)
	add(subMinimumPA, core.RiskFlagSubMinimumPA)
	add(missingWeather, core.RiskFlagMissingWeather)
	add(missingLineup, core.RiskFlagMissingLineup)
	add(missingOdds, core.RiskFlagMissingOdds)
	add(staleFeatures, core.RiskFlagStaleFeatures)
	add(noCalibration, core.RiskFlagCalibrationGap)
	add(platoonUnknown, core.RiskFlagPlatoonUnknown)
	return flags
}
