package features

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stormlightlabs.org/mlbedge/internal/core"
)

func pitcherAtBatEnd(pitcherID core.PlayerID, gameID core.GameID, date core.Date, eventType string, hand core.Handedness) core.PitchEvent {
	return core.PitchEvent{
		PitcherID: pitcherID, GameID: gameID, Date: date, EventType: eventType,
		IsAtBatEnd: true, BatterHand: hand, Outs: 1,
	}
}

func TestBuildPitcherDailyFeaturesComputesRatesAboveMinimumBF(t *testing.T) {
	d := mustDate(t, "2026-06-15")
	pitcherID := core.PlayerID("200")

	store := &fakeEventStore{}
	for i := 0; i < 20; i++ {
		store.events = append(store.events, pitcherAtBatEnd(pitcherID, core.GameID("g1"), d.AddDays(-1-i), "Strikeout", core.HandednessRight))
	}

	f, err := BuildPitcherDailyFeatures(context.Background(), store, pitcherID, core.GameID("g2"), d, true, 0.25)
	require.NoError(t, err)

	assert.Equal(t, 14, f.SampleSizeBF, "SampleSizeBF tracks the 14-day window, not the full 30")
	assert.InDelta(t, 1.0, f.KRate30, 1e-9)
	assert.Greater(t, f.KRateVsRight, 0.0)
	assert.Zero(t, f.KRateVsLeft, "no left-handed batters were faced")
}

func TestBuildPitcherDailyFeaturesStarterRoleConfidence(t *testing.T) {
	d := mustDate(t, "2026-06-15")
	pitcherID := core.PlayerID("200")

	store := &fakeEventStore{}
	// One start with a full 27-batter workload, well above the
	// batters-faced-per-appearance baseline a reliever would show.
	for i := 0; i < 27; i++ {
		store.events = append(store.events, pitcherAtBatEnd(pitcherID, core.GameID("g1"), d.AddDays(-2), "Groundout", core.HandednessRight))
	}

	f, err := BuildPitcherDailyFeatures(context.Background(), store, pitcherID, core.GameID("g2"), d, true, 0.25)
	require.NoError(t, err)

	assert.Equal(t, 1.0, f.StarterRoleConfidence)
}

func TestBuildPitcherDailyFeaturesTimesThroughOrderDecay(t *testing.T) {
	d := mustDate(t, "2026-06-15")
	pitcherID := core.PlayerID("200")
	gameID := core.GameID("g1")

	store := &fakeEventStore{}
	for tto := 1; tto <= 3; tto++ {
		for b := 0; b < 9; b++ {
			eventType := "Groundout"
			if tto == 1 {
				eventType = "Strikeout"
			}
			e := pitcherAtBatEnd(pitcherID, gameID, d.AddDays(-2), eventType, core.HandednessRight)
			e.TimesThroughOrder = tto
			store.events = append(store.events, e)
		}
	}

	f, err := BuildPitcherDailyFeatures(context.Background(), store, pitcherID, core.GameID("g2"), d, true, 0.25)
	require.NoError(t, err)

	assert.Greater(t, f.TTOKDecayPct, 0.0, "strikeout rate drops off in later trips through the order")
}
