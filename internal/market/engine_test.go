package market

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stormlightlabs.org/mlbedge/internal/core"
)

// TestAssignSignalHRScoreOnlyScenario reproduces the HR yes-score
// scenario: composite score 82.0 against DEFAULT thresholds, full mode
// with a 0.2% edge (below the 5.0% BET edge floor) resolves to SKIP,
// but score-only mode (no odds) resolves to BET since 82 >= 75.
func TestAssignSignalHRScoreOnlyScenario(t *testing.T) {
	thresholds := ThresholdsFor(FamilyDefault)

	edge := 0.2
	assert.Equal(t, core.SignalSkip, AssignSignal(thresholds, 82.0, &edge))
	assert.Equal(t, core.SignalBet, AssignSignal(thresholds, 82.0, nil))
}

// TestAssignSignalKOverUnderScenario reproduces the K-over-UNDER
// scenario: score 34, edge -14.0% against DEFAULT thresholds must
// resolve to FADE (score <= 35, edge <= -3).
func TestAssignSignalKOverUnderScenario(t *testing.T) {
	thresholds := ThresholdsFor(FamilyDefault)

	edge := -14.0
	assert.Equal(t, core.SignalFade, AssignSignal(thresholds, 34, &edge))
}

func TestAssignSignalEveryFamilyOrdering(t *testing.T) {
	for _, family := range []ThresholdFamily{FamilyDefault, FamilyConservative, FamilyAggressive} {
		thresholds := ThresholdsFor(family)
		bet, lean, fade := thresholds[core.SignalBet], thresholds[core.SignalLean], thresholds[core.SignalFade]

		assert.Greater(t, bet.MinScore, lean.MinScore, "%s: BET score floor must exceed LEAN", family)
		assert.Greater(t, lean.MinScore, fade.MaxScore, "%s: LEAN floor must exceed FADE ceiling", family)
		assert.Greater(t, bet.MinEdge, lean.MinEdge, "%s: BET edge floor must exceed LEAN", family)
		assert.Less(t, fade.MaxEdge, 0.0, "%s: FADE edge ceiling must be negative", family)
	}
}
