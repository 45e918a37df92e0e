package features

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stormlightlabs.org/mlbedge/internal/core"
)

func float64p(v float64) *float64 { return &v }

func mustDate(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	assert.NoError(t, err)
	return d
}

func TestIsBarrelRequiresBothVelocityAndAngleBand(t *testing.T) {
	assert.True(t, isBarrel(99, 27))
	assert.False(t, isBarrel(90, 27), "exit velo below HardHit-adjacent threshold is never a barrel")
	assert.False(t, isBarrel(99, 10), "launch angle outside the barrel band is never a barrel")
}

func TestIsSweetSpotBand(t *testing.T) {
	assert.True(t, isSweetSpot(8))
	assert.True(t, isSweetSpot(32))
	assert.False(t, isSweetSpot(7.9))
	assert.False(t, isSweetSpot(32.1))
}

func TestAggregateBatterEventsCountsHitTypesAndContactQuality(t *testing.T) {
	d := mustDate(t, "2026-06-15")
	batterID := core.PlayerID("100")

	events := []core.PitchEvent{
		{BatterID: batterID, EventType: "Single", IsAtBatEnd: true, IsPlateAppearanceEnd: true, TotalBasesOnPlay: 1,
			BattedBallType: "LD", ExitVelocityMPH: float64p(101), LaunchAngleDeg: float64p(12)},
		{BatterID: batterID, EventType: "Home Run", IsAtBatEnd: true, IsPlateAppearanceEnd: true, TotalBasesOnPlay: 4, RBIOnPlay: 2,
			BattedBallType: "FB", ExitVelocityMPH: float64p(105), LaunchAngleDeg: float64p(28), IsPulled: true},
		{BatterID: batterID, EventType: "Strikeout", IsAtBatEnd: true, IsPlateAppearanceEnd: true},
		{BatterID: batterID, EventType: "Walk", IsAtBatEnd: true, IsPlateAppearanceEnd: true},
	}

	w := AggregateBatterEvents(events, batterID, d, Window30)

	assert.Equal(t, 3, w.AtBats)
	assert.Equal(t, 2, w.Hits)
	assert.Equal(t, 1, w.Singles)
	assert.Equal(t, 1, w.HomeRuns)
	assert.Equal(t, 1, w.Strikeouts)
	assert.Equal(t, 1, w.Walks)
	assert.Equal(t, 4, w.PlateAppearances)
	assert.Equal(t, 2, w.RBI)
	assert.Equal(t, 1, w.RunsScored, "only the home run trot is attributable")
	assert.Equal(t, 2, w.BattedBalls)
	assert.Equal(t, 2, w.HardHitCount)
	assert.Equal(t, 1, w.BarrelCount)
	assert.Equal(t, 1, w.PulledBalls)
	assert.Equal(t, 1, w.LineDrives)
	assert.Equal(t, 1, w.FlyBalls)
}

func TestAggregatePitcherEventsBucketsTimesThroughOrder(t *testing.T) {
	d := mustDate(t, "2026-06-15")
	pitcherID := core.PlayerID("200")
	gameID := core.GameID("g1")

	var events []core.PitchEvent
	for tto := 1; tto <= 4; tto++ {
		eventType := "Single"
		if tto == 4 {
			eventType = "Strikeout"
		}
		events = append(events, core.PitchEvent{
			GameID: gameID, PitcherID: pitcherID, EventType: eventType,
			IsAtBatEnd: true, TimesThroughOrder: tto,
		})
	}

	w := AggregatePitcherEvents(events, pitcherID, d, Window30)

	assert.Equal(t, 1, w.Appearances)
	assert.Equal(t, 4, w.BattersFaced)
	assert.Equal(t, 1, w.TTOBattersFaced[0], "first time through")
	assert.Equal(t, 1, w.TTOBattersFaced[1], "second time through")
	assert.Equal(t, 2, w.TTOBattersFaced[2], "third-and-later clamps into the last bucket")
}

func TestAggregatePitcherEventsTracksWhiffAndChase(t *testing.T) {
	d := mustDate(t, "2026-06-15")
	pitcherID := core.PlayerID("200")

	events := []core.PitchEvent{
		{PitcherID: pitcherID, EventType: "pitch", IsSwing: true, IsWhiff: true},
		{PitcherID: pitcherID, EventType: "pitch", IsSwing: true, IsChase: true},
		{PitcherID: pitcherID, EventType: "pitch", IsSwing: false},
	}

	w := AggregatePitcherEvents(events, pitcherID, d, Window30)

	assert.Equal(t, 3, w.Pitches)
	assert.Equal(t, 2, w.Swings)
	assert.Equal(t, 1, w.Whiffs)
	assert.Equal(t, 1, w.ChaseSwings)
}
