// Package oddsnorm maps heterogeneous sportsbook market/book keys to the
// internal (market, entity, side, line, selection_key) shape and provides
// American/decimal/implied-probability conversions shared by every
// downstream consumer of market_odds.
package oddsnorm

import (
	"fmt"
	"math"

	"stormlightlabs.org/mlbedge/internal/core"
)

// AmericanToDecimal converts an American price to its decimal payout
// multiple: 1 + p/100 for positive prices, 1 + 100/|p| for negative ones.
func AmericanToDecimal(p int) float64 {
	if p > 0 {
		return 1 + float64(p)/100
	}
	return 1 + 100/math.Abs(float64(p))
}

// AmericanToImplied converts an American price to implied probability:
// 100/(p+100) for positive prices, |p|/(|p|+100) for negative ones.
// Always returns a value in (0,1).
func AmericanToImplied(p int) float64 {
	if p > 0 {
		return 100 / (float64(p) + 100)
	}
	return math.Abs(float64(p)) / (math.Abs(float64(p)) + 100)
}

// DecimalToAmerican is the inverse of AmericanToDecimal, rounded to the
// nearest integer price. american_to_decimal then decimal_to_american is
// the identity on integer American prices.
func DecimalToAmerican(d float64) int {
	if d >= 2.0 {
		return int(math.Round((d - 1) * 100))
	}
	return int(math.Round(-100 / (d - 1)))
}

// BuildSelectionKey produces the stable cross-table join key, e.g.
// "HR|player:12345|YES", "K|player:678|line:6.5|OVER", "ML|game:9|HOME".
func BuildSelectionKey(market core.Market, entityKind, entityID string, line *float64, side core.Side) core.SelectionKey {
	key := fmt.Sprintf("%s|%s:%s", market, entityKind, entityID)
	if line != nil {
		key += fmt.Sprintf("|line:%s", trimFloat(*line))
	}
	if side != "" {
		key += fmt.Sprintf("|%s", side)
	}
	return core.SelectionKey(key)
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
