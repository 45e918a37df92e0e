package oddsnorm

import (
	"strings"

	"stormlightlabs.org/mlbedge/internal/core"
)

// sourceMarketKeys maps a sportsbook's own market key vocabulary to the
// internal market code. Unknown keys are logged by the caller and
// skipped, never guessed.
var sourceMarketKeys = map[string]core.Market{
	"batter_home_runs":        core.MarketHR,
	"player_home_runs":        core.MarketHR,
	"batter_strikeouts":       core.MarketK, // some books post batter Ks; mapped to K like pitcher Ks, not told apart
	"pitcher_strikeouts":      core.MarketK,
	"player_strikeouts":       core.MarketK,
	"batter_hits_1+":          core.MarketHits1P,
	"player_hits_over_under":  core.MarketHitsLine,
	"batter_total_bases":      core.MarketTotalBasesLn,
	"player_total_bases":      core.MarketTotalBasesLn,
	"pitcher_outs":            core.MarketOutsRecorded,
	"pitcher_record_outs":     core.MarketOutsRecorded,
	"h2h":                     core.MarketMoneyline,
	"moneyline":               core.MarketMoneyline,
	"totals":                  core.MarketTotal,
	"game_total":              core.MarketTotal,
	"h2h_1st_5_innings":       core.MarketF5Moneyline,
	"totals_1st_5_innings":    core.MarketF5Total,
	"team_totals":             core.MarketTeamTotal,
}

// MapMarketKey resolves a source book's market key to an internal market
// code. ok is false for unrecognized keys; the caller must skip the row.
func MapMarketKey(sourceKey string) (market core.Market, ok bool) {
	m, found := sourceMarketKeys[strings.ToLower(strings.TrimSpace(sourceKey))]
	return m, found
}
