package oddsnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stormlightlabs.org/mlbedge/internal/core"
)

func TestAmericanDecimalRoundTrip(t *testing.T) {
	for _, p := range []int{100, 150, 320, -110, -340, -150} {
		d := AmericanToDecimal(p)
		got := DecimalToAmerican(d)
		assert.Equal(t, p, got, "round trip for %d", p)
	}
}

func TestAmericanToImpliedBounds(t *testing.T) {
	for _, p := range []int{-10000, -340, -110, 100, 150, 10000} {
		ip := AmericanToImplied(p)
		require.Greater(t, ip, 0.0)
		require.Less(t, ip, 1.0)
	}
}

func TestSelectionKeyShapes(t *testing.T) {
	assert.Equal(t, core.SelectionKey("HR|player:12345|YES"),
		BuildSelectionKey(core.MarketHR, "player", "12345", nil, "YES"))

	line := 6.5
	assert.Equal(t, core.SelectionKey("K|player:678|line:6.5|OVER"),
		BuildSelectionKey(core.MarketK, "player", "678", &line, "OVER"))

	assert.Equal(t, core.SelectionKey("ML|game:9|HOME"),
		BuildSelectionKey(core.MarketMoneyline, "game", "9", nil, "HOME"))
}

// TestBestAvailableThreeBooks reproduces the literal scenario: three
// books price HR YES at +320, +340, +300; +340 has the lowest implied
// probability (0.2273) and must carry is_best_available=1.
func TestBestAvailableThreeBooks(t *testing.T) {
	key := BuildSelectionKey(core.MarketHR, "player", "12345", nil, "YES")
	rows := []core.MarketOdds{
		{SelectionKey: key, Book: "book_a", AmericanOdds: 320, ImpliedProb: AmericanToImplied(320), IsActive: true},
		{SelectionKey: key, Book: "book_b", AmericanOdds: 340, ImpliedProb: AmericanToImplied(340), IsActive: true},
		{SelectionKey: key, Book: "book_c", AmericanOdds: 300, ImpliedProb: AmericanToImplied(300), IsActive: true},
	}

	out := BestAvailable(rows)

	require.InDelta(t, 0.2273, out[1].ImpliedProb, 0.0005)
	assert.False(t, out[0].IsBestAvailable)
	assert.True(t, out[1].IsBestAvailable)
	assert.False(t, out[2].IsBestAvailable)
}
