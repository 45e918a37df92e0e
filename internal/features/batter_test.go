package features

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stormlightlabs.org/mlbedge/internal/core"
)

// fakeEventStore replays BatterEventsBefore/PitcherEventsBefore over an
// in-memory slice using the same [D-window, D) filter the real store
// applies, so builder tests exercise the no-lookahead boundary without
// a database.
type fakeEventStore struct {
	events                []core.PitchEvent
	batterWindowStats     []core.BatterWindowStats
	pitcherWindowStats    []core.PitcherWindowStats
}

func (f *fakeEventStore) BatterEventsBefore(ctx context.Context, batterID core.PlayerID, d core.Date, windowDays int) ([]core.PitchEvent, error) {
	floor := d.AddDays(-windowDays)
	var out []core.PitchEvent
	for _, e := range f.events {
		if e.BatterID == batterID && !e.Date.Before(floor) && e.Date.Before(d) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEventStore) PitcherEventsBefore(ctx context.Context, pitcherID core.PlayerID, d core.Date, windowDays int) ([]core.PitchEvent, error) {
	floor := d.AddDays(-windowDays)
	var out []core.PitchEvent
	for _, e := range f.events {
		if e.PitcherID == pitcherID && !e.Date.Before(floor) && e.Date.Before(d) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEventStore) UpsertBatterWindowStats(ctx context.Context, stats []core.BatterWindowStats) error {
	f.batterWindowStats = append(f.batterWindowStats, stats...)
	return nil
}

func (f *fakeEventStore) UpsertPitcherWindowStats(ctx context.Context, stats []core.PitcherWindowStats) error {
	f.pitcherWindowStats = append(f.pitcherWindowStats, stats...)
	return nil
}

type fakeParkFactors struct{ factor float64 }

func (p fakeParkFactors) HRFactor(venueID string) float64 { return p.factor }

func totalBasesForTest(eventType string) int {
	switch eventType {
	case "Single":
		return 1
	case "Double":
		return 2
	case "Triple":
		return 3
	case "Home Run":
		return 4
	default:
		return 0
	}
}

func batterEventAt(batterID core.PlayerID, date core.Date, eventType string) core.PitchEvent {
	return core.PitchEvent{
		BatterID: batterID, Date: date, EventType: eventType,
		IsAtBatEnd: true, IsPlateAppearanceEnd: true,
		TotalBasesOnPlay: totalBasesForTest(eventType),
	}
}

func TestBuildBatterDailyFeaturesRespectsNoLookahead(t *testing.T) {
	d := mustDate(t, "2026-06-15")
	batterID := core.PlayerID("100")

	store := &fakeEventStore{}
	for i := 0; i < 15; i++ {
		store.events = append(store.events, batterEventAt(batterID, d.AddDays(-1-i), "Single"))
	}
	// This event is on the anchor date itself and must never be read.
	store.events = append(store.events, batterEventAt(batterID, d, "Home Run"))

	f, err := BuildBatterDailyFeatures(context.Background(), store, fakeParkFactors{factor: 1.1}, batterID, core.GameID("g1"), d, "venue1", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1.1, f.ParkHRFactor)
	assert.Zero(t, f.HRRate30, "the same-day home run must not leak into the 30-day window")
	assert.Greater(t, f.HitRate30, 0.0)
}

func TestBuildBatterDailyFeaturesComputesHotColdDelta(t *testing.T) {
	d := mustDate(t, "2026-06-15")
	batterID := core.PlayerID("100")

	store := &fakeEventStore{}
	for i := 0; i < 12; i++ {
		store.events = append(store.events, batterEventAt(batterID, d.AddDays(-1), "Home Run"))
	}
	for i := 0; i < 20; i++ {
		store.events = append(store.events, batterEventAt(batterID, d.AddDays(-20), "Strikeout"))
	}

	f, err := BuildBatterDailyFeatures(context.Background(), store, nil, batterID, core.GameID("g1"), d, "venue1", nil, nil)
	require.NoError(t, err)

	assert.Greater(t, f.ISO7, f.ISO30, "recent power surge should push the 7-day window above the 30-day baseline")
	assert.NotZero(t, f.ISODelta7v30)
	assert.Equal(t, 1.0, f.ParkHRFactor, "nil park factors source defaults to neutral")
}

func TestBuildBatterDailyFeaturesAppliesPlatoonSplit(t *testing.T) {
	d := mustDate(t, "2026-06-15")
	batterID := core.PlayerID("100")
	pitcherID := core.PlayerID("200")

	store := &fakeEventStore{}
	for i := 0; i < 12; i++ {
		e := batterEventAt(batterID, d.AddDays(-1-i), "Single")
		e.PitcherHand = core.HandednessLeft
		store.events = append(store.events, e)
	}
	store.events = append(store.events, core.PitchEvent{
		PitcherID: pitcherID, Date: d.AddDays(-2), EventType: "pitch", PitcherHand: core.HandednessLeft,
	})

	f, err := BuildBatterDailyFeatures(context.Background(), store, nil, batterID, core.GameID("g1"), d, "venue1", &pitcherID, nil)
	require.NoError(t, err)

	assert.Greater(t, f.HitRateVsHand, 0.0)
}
