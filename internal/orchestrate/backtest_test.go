package orchestrate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stormlightlabs.org/mlbedge/internal/core"
)

func TestAssertOddsNotFromFutureRejectsSameOrLaterFetch(t *testing.T) {
	d, err := core.ParseDate("2026-06-15")
	assert.NoError(t, err)

	assert.NoError(t, assertOddsNotFromFuture(nil, d))

	past := &core.MarketOdds{SelectionKey: "HR|player:1|YES", FetchedAt: d.AddDays(-1).Time()}
	assert.NoError(t, assertOddsNotFromFuture(past, d))

	same := &core.MarketOdds{SelectionKey: "HR|player:1|YES", FetchedAt: d.Time()}
	assert.Error(t, assertOddsNotFromFuture(same, d))

	future := &core.MarketOdds{SelectionKey: "HR|player:1|YES", FetchedAt: d.AddDays(1).Time()}
	assert.Error(t, assertOddsNotFromFuture(future, d))
}

func TestAssertOutcomeNotFromFutureRejectsSameOrLaterSettlement(t *testing.T) {
	d, err := core.ParseDate("2026-06-15")
	assert.NoError(t, err)

	assert.NoError(t, assertOutcomeNotFromFuture(nil, d))

	past := &core.MarketOutcome{SelectionKey: "HR|player:1|YES", SettledAt: d.AddDays(-1).Time()}
	assert.NoError(t, assertOutcomeNotFromFuture(past, d))

	same := &core.MarketOutcome{SelectionKey: "HR|player:1|YES", SettledAt: d.Time()}
	assert.Error(t, assertOutcomeNotFromFuture(same, d))

	future := &core.MarketOutcome{SelectionKey: "HR|player:1|YES", SettledAt: d.AddDays(3).Time()}
	assert.Error(t, assertOutcomeNotFromFuture(future, d))
}
