package grader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stormlightlabs.org/mlbedge/internal/core"
)

type fakeGameStore struct {
	game   *core.Game
	scores []core.ModelScore
}

func (f *fakeGameStore) GameByID(ctx context.Context, id core.GameID) (*core.Game, error) {
	return f.game, nil
}

func (f *fakeGameStore) ActiveScoresForGame(ctx context.Context, gameID core.GameID) ([]core.ModelScore, error) {
	return f.scores, nil
}

func intp(v int) *int { return &v }

// TestExtractOutcomesF5SettlesOffHalfInningSplit reproduces a game
// where the first-five-innings score diverges from the final score:
// home leads 2-1 through five but the away team comes back to win
// 5-2. The full-game moneyline/total must settle off the final score,
// while the F5 variants must settle off the five-inning split, not the
// same final numbers.
func TestExtractOutcomesF5SettlesOffHalfInningSplit(t *testing.T) {
	game := &core.Game{
		ID:            "G1",
		HomeTeam:      "HOU",
		AwayTeam:      "SEA",
		Status:        "final",
		FinalHomeRuns: intp(2),
		FinalAwayRuns: intp(5),
	}

	scores := []core.ModelScore{
		{Market: core.MarketMoneyline, SelectionKey: "ML|game:G1|HOME", Side: "HOME"},
		{Market: core.MarketF5Moneyline, SelectionKey: "F5_ML|game:G1|HOME", Side: "HOME"},
		{Market: core.MarketTotal, SelectionKey: "TOTAL|game:G1|OVER"},
		{Market: core.MarketF5Total, SelectionKey: "F5_TOTAL|game:G1|OVER"},
	}

	s := &fakeGameStore{game: game, scores: scores}
	f5 := F5Line{HomeRuns: 2, AwayRuns: 1, Known: true}

	outcomes, err := ExtractOutcomes(context.Background(), s, "G1", nil, nil, f5)
	require.NoError(t, err)

	byKey := make(map[core.SelectionKey]core.MarketOutcome, len(outcomes))
	for _, o := range outcomes {
		byKey[o.SelectionKey] = o
	}

	assert.Equal(t, 0.0, byKey["ML|game:G1|HOME"].OutcomeValue, "home lost the final game")
	assert.Equal(t, 1.0, byKey["F5_ML|game:G1|HOME"].OutcomeValue, "home led through five")
	assert.Equal(t, 7.0, byKey["TOTAL|game:G1|OVER"].OutcomeValue, "final total is 2+5")
	assert.Equal(t, 3.0, byKey["F5_TOTAL|game:G1|OVER"].OutcomeValue, "F5 total is 2+1, not the final 7")
}

// TestExtractOutcomesF5SkippedWithoutEvents confirms that an F5 market
// is left unsettled (not defaulted to the final score) when no pitch
// events were recorded for the game.
func TestExtractOutcomesF5SkippedWithoutEvents(t *testing.T) {
	game := &core.Game{
		ID:            "G2",
		Status:        "final",
		FinalHomeRuns: intp(3),
		FinalAwayRuns: intp(1),
	}
	scores := []core.ModelScore{
		{Market: core.MarketF5Total, SelectionKey: "F5_TOTAL|game:G2|OVER"},
	}

	s := &fakeGameStore{game: game, scores: scores}
	outcomes, err := ExtractOutcomes(context.Background(), s, "G2", nil, nil, F5Line{})
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}
