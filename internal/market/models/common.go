// Package models holds the eleven market scoring functions. Each
// function loads its feature inputs, composes factor subscores via
// internal/market's shared engine helpers, prices against
// best-available odds, and emits one or more core.ModelScore rows —
// never touching core.MarketOdds.IsActive directly, since that
// provenance bit belongs to the odds normalizer alone.
package models

import (
	"time"

	"stormlightlabs.org/mlbedge/internal/core"
	"stormlightlabs.org/mlbedge/internal/market"
)

// OddsLookup resolves the best-available price for a selection key.
// Returning an error means no odds have posted yet; finalize then keeps
// the row, leaves edge nil and flags it RiskFlagMissingOdds rather than
// fail the run. The market's MissingDataPolicy is not consulted.
type OddsLookup func(key core.SelectionKey) (*core.MarketOdds, error)

// finalize prices a composite score against odds (when the market's
// edge method needs them), assigns signal/band/tier, and assembles the
// ModelScore row. line is nil for probability markets.
func finalize(runID int64, gameID core.GameID, spec market.Spec, selectionKey core.SelectionKey, side core.Side, line *float64, modelOutput float64, score float64, lookup OddsLookup, extraFlags []core.RiskFlag, reasons []string) core.ModelScore {
	thresholds := market.ThresholdsFor(spec.ThresholdFamily)

	var modelProb *float64
	var edgePct *float64
	var impliedProb float64
	missingOdds := false

	priced, err := lookup(selectionKey)
	if err != nil || priced == nil {
		missingOdds = true
	} else {
		impliedProb = priced.ImpliedProb
	}

	if spec.OutputType == market.OutputProbability {
		p := modelOutput
		modelProb = &p
	}

	if !missingOdds {
		e, ok := market.ComputeEdge(spec.EdgeMethod, modelOutput, impliedProb, line)
		if ok {
			edgePct = &e
		} else {
			extraFlags = append(extraFlags, core.RiskFlagLineZero)
		}
	} else {
		extraFlags = append(extraFlags, core.RiskFlagMissingOdds)
	}

	signal := market.AssignSignal(thresholds, score, edgePct)
	band := market.ConfidenceBand(score, extraFlags)
	tier := market.VisibilityTier(signal, band)

	var edge *float64
	if edgePct != nil {
		e := *edgePct
		edge = &e
	}

	return core.ModelScore{
		RunID:          runID,
		GameID:         gameID,
		Market:         spec.Market,
		SelectionKey:   selectionKey,
		Side:           side,
		Line:           line,
		ModelScore:     score,
		ModelProb:      modelProb,
		Edge:           edge,
		Signal:         signal,
		ConfidenceBand: band,
		RiskFlags:      extraFlags,
		VisibilityTier: tier,
		Reasons:        reasons,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}
}
